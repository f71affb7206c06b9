package game

import "time"

// CharInterval is the typewriter delay between two characters.
const CharInterval = 30 * time.Millisecond

// Typewriter reveals a line one character per CharInterval.
type Typewriter struct {
	text  []rune
	shown int
	acc   time.Duration
}

// NewTypewriter starts revealing text from its first character.
func NewTypewriter(text string) *Typewriter {
	return &Typewriter{text: []rune(text)}
}

// Tick advances by dt and returns how many characters became visible.
func (t *Typewriter) Tick(dt time.Duration) int {
	if t.Complete() {
		return 0
	}
	t.acc += dt
	n := int(t.acc / CharInterval)
	t.acc -= time.Duration(n) * CharInterval
	if remaining := len(t.text) - t.shown; n > remaining {
		n = remaining
	}
	t.shown += n
	return n
}

// SkipToEnd shows the whole line and returns how many characters it revealed.
func (t *Typewriter) SkipToEnd() int {
	n := len(t.text) - t.shown
	t.shown = len(t.text)
	return n
}

// Complete reports whether the whole line is visible.
func (t *Typewriter) Complete() bool {
	return t.shown >= len(t.text)
}

// Visible returns the revealed part of the line.
func (t *Typewriter) Visible() string {
	return string(t.text[:t.shown])
}

// Text returns the full line.
func (t *Typewriter) Text() string {
	return string(t.text)
}

// DialogueQueue walks the lines of one dialogue.
type DialogueQueue struct {
	Speaker string
	lines   []string
	current int
}

// NewDialogueQueue creates a queue positioned on the first line.
func NewDialogueQueue(speaker string, lines []string) *DialogueQueue {
	return &DialogueQueue{Speaker: speaker, lines: lines}
}

// Current returns the line being shown.
func (q *DialogueQueue) Current() (string, bool) {
	if q.current >= len(q.lines) {
		return "", false
	}
	return q.lines[q.current], true
}

// Index returns the index of the current line.
func (q *DialogueQueue) Index() int {
	return q.current
}

// Len returns the number of lines.
func (q *DialogueQueue) Len() int {
	return len(q.lines)
}

// Advance moves to the next line and reports whether one exists.
func (q *DialogueQueue) Advance() bool {
	q.current++
	return q.current < len(q.lines)
}

// Complete reports whether every line was passed.
func (q *DialogueQueue) Complete() bool {
	return q.current >= len(q.lines)
}
