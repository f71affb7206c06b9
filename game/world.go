// Package game runs the gameplay of one map without rendering: player
// movement, NPC proximity and interaction, and the typewriter dialogue. Each
// gameplay event is reported to the sregame instrumentation.
package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame"
	"github.com/m-mizutani/sregame/trace"
)

// PlayerSpeed is the movement speed in pixels per second.
const PlayerSpeed = 150.0

// activeDialogue is the single open dialogue of the world.
type activeDialogue struct {
	span       *sregame.Dialogue
	queue      *DialogueQueue
	typewriter *Typewriter
	chars      int
	startedAt  time.Duration
}

// World holds the state of the loaded map. It is driven from one goroutine
// by Tick; its systems run one after another in a fixed order.
type World struct {
	inst    *sregame.Instrumentation
	session *sregame.Session
	logger  *slog.Logger
	now     func() time.Time

	mapData *MapData
	player  Vec2
	npcs    []*NPC
	state   State
	clock   time.Duration
	frames  int

	dialogue *activeDialogue
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the gameplay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithClock replaces time.Now for frame and system timing.
func WithClock(now func() time.Time) Option {
	return func(w *World) {
		w.now = now
	}
}

// NewWorld creates a world in the loading state for session.
func NewWorld(inst *sregame.Instrumentation, session *sregame.Session, opts ...Option) *World {
	w := &World{
		inst:    inst,
		session: session,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		state:   StateLoading,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// LoadMap replaces the current map, spawning its NPCs and placing the player
// at the centre. An open dialogue is force-closed first.
func (w *World) LoadMap(m *MapData) error {
	from := ""
	if w.mapData != nil {
		from = w.mapData.Name
	}
	w.closeDialogue(trace.CompletionForced)

	transition := w.session.StartMapTransition(from, m.Name, w.player.Position())
	if err := m.Validate(); err != nil {
		transition.End(err)
		return goerr.Wrap(err, "failed to load map", goerr.V("map", m.Name))
	}

	w.mapData = m
	w.npcs = make([]*NPC, 0, len(m.NPCs))
	for _, data := range m.NPCs {
		w.npcs = append(w.npcs, newNPC(data, m))
	}
	w.player = Vec2{}
	transition.End(nil)

	w.setState(StatePlaying)
	return nil
}

// State returns the current game state.
func (w *World) State() State { return w.state }

// Player returns the player position.
func (w *World) Player() Vec2 { return w.player }

// NPCs returns the NPCs of the loaded map.
func (w *World) NPCs() []*NPC { return w.npcs }

// Clock returns the simulated time elapsed in Tick.
func (w *World) Clock() time.Duration { return w.clock }

// Frames returns the number of ticks run.
func (w *World) Frames() int { return w.frames }

// InDialogue reports whether a dialogue is open.
func (w *World) InDialogue() bool { return w.dialogue != nil }

// LineShown reports whether the current dialogue line is fully visible.
func (w *World) LineShown() bool {
	return w.dialogue != nil && w.dialogue.typewriter.Complete()
}

// DialogueLine returns the index of the current dialogue line, or -1.
func (w *World) DialogueLine() int {
	if w.dialogue == nil {
		return -1
	}
	return w.dialogue.queue.Index()
}

type system struct {
	name  string
	state State
	run   func(ctx context.Context, dt time.Duration, in Input)
}

func (w *World) systems() []system {
	return []system{
		{"player_movement", StatePlaying, w.movementSystem},
		{"npc_proximity", StatePlaying, w.proximitySystem},
		{"npc_interaction", StatePlaying, w.interactionSystem},
		{"dialogue_typewriter", StateDialogue, w.typewriterSystem},
		{"dialogue_advance", StateDialogue, w.advanceSystem},
		{"dialogue_escape", StateDialogue, w.escapeSystem},
	}
}

// Tick advances the world by dt with the input of this frame. Systems whose
// state does not match the state at their turn are skipped.
func (w *World) Tick(ctx context.Context, dt time.Duration, in Input) {
	frameStart := w.now()
	w.clock += dt
	w.frames++

	for _, sys := range w.systems() {
		if w.state != sys.state {
			continue
		}
		start := w.now()
		sys.run(ctx, dt, in)
		w.inst.RecordSystem(ctx, sys.name, w.now().Sub(start))
	}

	w.inst.RecordFrame(ctx, w.now().Sub(frameStart))
}

// Close force-closes an open dialogue so its span is ended on exit.
func (w *World) Close() {
	w.closeDialogue(trace.CompletionForced)
}

func (w *World) setState(s State) {
	if w.state == s {
		return
	}
	w.logger.Debug("game state changed", "from", w.state, "to", s)
	w.state = s
}

func (w *World) movementSystem(_ context.Context, dt time.Duration, in Input) {
	velocity := in.Move.Normalize().Scale(PlayerSpeed)
	w.player = w.player.Add(velocity.Scale(dt.Seconds()))
}

func (w *World) proximitySystem(_ context.Context, _ time.Duration, _ Input) {
	updateProximity(w.player, w.npcs)
}

// interactionSystem opens an interaction with the closest NPC in range. The
// interaction span only covers the decision: it ends once the dialogue it
// triggers has started as its child.
func (w *World) interactionSystem(_ context.Context, _ time.Duration, in Input) {
	if !in.Interact {
		return
	}
	npc, distance := closestInRange(w.player, w.npcs)
	if npc == nil {
		return
	}

	interaction := w.session.StartInteraction(npc.Name, w.player.Position(), distance)
	defer interaction.End()
	w.startDialogue(interaction, npc.Dialogue)
}

func (w *World) startDialogue(parent *sregame.Interaction, data DialogueData) {
	if w.dialogue != nil {
		w.logger.Warn("dialogue already open", "speaker", data.Speaker)
		return
	}

	span := w.inst.StartDialogue(parent.Context(), data.Speaker, len(data.Lines))
	queue := NewDialogueQueue(data.Speaker, data.Lines)
	first, ok := queue.Current()

	w.dialogue = &activeDialogue{
		span:       span,
		queue:      queue,
		typewriter: NewTypewriter(first),
		startedAt:  w.clock,
	}

	if !ok {
		w.closeDialogue(trace.CompletionNormal)
		return
	}
	w.setState(StateDialogue)
}

func (w *World) typewriterSystem(_ context.Context, dt time.Duration, _ Input) {
	d := w.dialogue
	if d == nil || d.typewriter.Complete() {
		return
	}
	d.chars += d.typewriter.Tick(dt)
	if d.typewriter.Complete() {
		w.lineShown(d)
	}
}

// advanceSystem finishes the current line, moves to the next one, or closes
// the dialogue after the last line.
func (w *World) advanceSystem(_ context.Context, _ time.Duration, in Input) {
	d := w.dialogue
	if !in.Advance || d == nil {
		return
	}

	if !d.typewriter.Complete() {
		d.chars += d.typewriter.SkipToEnd()
		w.lineShown(d)
		return
	}

	if d.queue.Advance() {
		next, _ := d.queue.Current()
		d.typewriter = NewTypewriter(next)
		return
	}

	w.logger.Info("dialogue sequence complete", "speaker", d.queue.Speaker)
	w.closeDialogue(trace.CompletionNormal)
}

func (w *World) escapeSystem(_ context.Context, _ time.Duration, in Input) {
	if !in.Escape || w.dialogue == nil {
		return
	}
	w.logger.Info("exiting dialogue mode", "speaker", w.dialogue.queue.Speaker)
	w.closeDialogue(trace.CompletionForced)
}

func (w *World) lineShown(d *activeDialogue) {
	d.span.LineComplete(d.typewriter.Text(), d.queue.Index())
}

// closeDialogue takes the dialogue out of its slot and ends it. Every path
// leaving the dialogue state goes through here.
func (w *World) closeDialogue(completion trace.Completion) {
	d := w.dialogue
	if d == nil {
		return
	}
	w.dialogue = nil

	if _, err := d.span.End(d.chars, w.clock-d.startedAt, completion); err != nil {
		w.logger.Warn("failed to end dialogue", "speaker", d.queue.Speaker, "error", err)
	}
	w.setState(StatePlaying)
}
