package sregame

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/sregame/trace"
)

// PreviewLength is the maximum number of characters kept from a line.
const PreviewLength = 50

// Dialogue is one open dialogue span. It stays open across frames until End.
type Dialogue struct {
	inst      *Instrumentation
	ctx       context.Context
	speaker   string
	lines     int
	startedAt time.Time

	mu    sync.Mutex
	ended bool
	read  int
}

// StartDialogue opens a dialogue span under whatever span parent carries:
// an interaction's context, or a session's when there is none.
func (i *Instrumentation) StartDialogue(parent context.Context, speaker string, lines int) *Dialogue {
	ctx := i.handler.StartDialogue(parent, &trace.DialogueData{
		Speaker:    speaker,
		TotalLines: lines,
	})
	return &Dialogue{
		inst:      i,
		ctx:       ctx,
		speaker:   speaker,
		lines:     lines,
		startedAt: i.now(),
	}
}

// Context returns the context carrying the dialogue span.
func (d *Dialogue) Context() context.Context {
	return d.ctx
}

// Speaker returns the speaker name.
func (d *Dialogue) Speaker() string {
	return d.speaker
}

// StartedAt returns when the dialogue started.
func (d *Dialogue) StartedAt() time.Time {
	return d.startedAt
}

// LinesRead returns the number of lines completed so far.
func (d *Dialogue) LinesRead() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read
}

// LineComplete records that line index finished displaying. Calls after End
// are ignored.
func (d *Dialogue) LineComplete(text string, index int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ended {
		d.inst.logger.Warn("line completed after dialogue ended", "speaker", d.speaker, "index", index)
		return
	}
	d.read++

	d.inst.handler.AddDialogueLine(d.ctx, &trace.LineData{
		Index:   index,
		Length:  utf8.RuneCountInString(text),
		Preview: LinePreview(text),
	})
	if d.inst.metrics != nil {
		d.inst.metrics.LineRead(d.ctx, d.speaker)
	}
}

// End closes the dialogue span with the characters read over duration. The
// span is ended by the first call only; later calls return ErrDialogueEnded.
func (d *Dialogue) End(chars int, duration time.Duration, completion trace.Completion) (trace.DialogueResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ended {
		return trace.DialogueResult{}, ErrDialogueEnded
	}
	d.ended = true

	result := trace.DialogueResult{
		CharsRead:    chars,
		DurationSecs: duration.Seconds(),
		ReadingSpeed: ReadingSpeed(chars, duration),
		Completion:   completion,
	}

	d.inst.handler.EndDialogue(d.ctx, &result)
	if d.inst.metrics != nil {
		d.inst.metrics.ReadingSpeed(d.ctx, d.speaker, result.ReadingSpeed)
	}

	d.inst.logger.Debug("dialogue ended",
		"speaker", d.speaker,
		"lines_read", d.read,
		"lines", d.lines,
		"completion", completion,
	)
	return result, nil
}

// Ended reports whether End has been called.
func (d *Dialogue) Ended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

// ReadingSpeed returns chars per second, or 0 for a non-positive duration.
func ReadingSpeed(chars int, duration time.Duration) float64 {
	secs := duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(chars) / secs
}

// LinePreview returns at most the first PreviewLength characters of text.
func LinePreview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
