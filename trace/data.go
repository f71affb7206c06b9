package trace

import "time"

// Completion tells how a dialogue span was closed.
type Completion string

const (
	// CompletionNormal means every line of the dialogue was read.
	CompletionNormal Completion = "normal"
	// CompletionForced means the player left the dialogue before the end.
	CompletionForced Completion = "forced"
)

// SessionData holds data specific to a session span.
type SessionData struct {
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// Position is a point in world coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InteractionData holds data specific to an interaction span.
type InteractionData struct {
	Type     string        `json:"type"`
	NPCName  string        `json:"npc_name,omitempty"`
	Position Position      `json:"position"`
	Distance float64       `json:"distance"`
	Elapsed  time.Duration `json:"elapsed"`
}

// DialogueData holds data specific to a dialogue span. The result fields are
// filled when the span is ended.
type DialogueData struct {
	Speaker      string     `json:"speaker"`
	TotalLines   int        `json:"total_lines"`
	Lines        []LineData `json:"lines,omitempty"`
	CharsRead    int        `json:"chars_read"`
	DurationSecs float64    `json:"duration_secs"`
	ReadingSpeed float64    `json:"reading_speed"`
	Completion   Completion `json:"completion,omitempty"`
}

// LineData describes one completed dialogue line.
type LineData struct {
	Index   int    `json:"index"`
	Length  int    `json:"length"`
	Preview string `json:"preview"`
}

// DialogueResult is passed to EndDialogue.
type DialogueResult struct {
	CharsRead    int        `json:"chars_read"`
	DurationSecs float64    `json:"duration_secs"`
	ReadingSpeed float64    `json:"reading_speed"`
	Completion   Completion `json:"completion"`
}

// MapTransitionData holds data specific to a map transition span.
type MapTransitionData struct {
	From     string        `json:"from"`
	To       string        `json:"to"`
	Position Position      `json:"position"`
	Elapsed  time.Duration `json:"elapsed"`
}
