package sregame

import "errors"

var (
	// ErrSessionStarted is returned when a second session is started on the
	// same Instrumentation.
	ErrSessionStarted = errors.New("session already started")
	// ErrDialogueEnded is returned when a dialogue is ended twice.
	ErrDialogueEnded = errors.New("dialogue already ended")
)
