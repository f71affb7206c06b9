package game

import (
	"context"
	"time"
)

// InputSource produces the input of the next frame. It returns false once
// it has nothing left to do.
type InputSource interface {
	Next(w *World) (Input, bool)
}

// Autoplay walks to every NPC in map order and reads their dialogue. The
// dialogue of the last NPC is left with Escape after its first line, so a
// session exercises both normal and forced completion.
type Autoplay struct {
	targets   int
	next      int
	talked    bool
	forceLast bool
}

// NewAutoplay creates a driver for the NPCs of w.
func NewAutoplay(w *World, forceLast bool) *Autoplay {
	return &Autoplay{targets: len(w.NPCs()), forceLast: forceLast}
}

func (a *Autoplay) Next(w *World) (Input, bool) {
	if w.InDialogue() {
		if !w.LineShown() {
			return Input{}, true
		}
		if a.forceLast && a.next == a.targets-1 {
			return Input{Escape: true}, true
		}
		return Input{Advance: true}, true
	}

	if a.talked {
		a.talked = false
		a.next++
	}
	if a.next >= a.targets {
		return Input{}, false
	}

	target := w.NPCs()[a.next]
	offset := target.Pos.Sub(w.Player())
	if offset.Length() > target.Radius/2 {
		return Input{Move: offset}, true
	}

	a.talked = true
	return Input{Interact: true}, true
}

// Run ticks w at a fixed dt with input from src until src is done, maxFrames
// is reached, or ctx is cancelled. It returns the number of frames run. No
// real time passes between frames.
func Run(ctx context.Context, w *World, src InputSource, dt time.Duration, maxFrames int) int {
	frames := 0
	for maxFrames <= 0 || frames < maxFrames {
		if ctx.Err() != nil {
			break
		}
		in, ok := src.Next(w)
		if !ok {
			break
		}
		w.Tick(ctx, dt, in)
		frames++
	}
	return frames
}
