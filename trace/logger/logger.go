package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/sregame/trace"
)

// Event represents a trace event type that can be selectively enabled.
type Event int

const (
	// Session enables logging of session start/end.
	Session Event = iota
	// Interaction enables logging of NPC interactions.
	Interaction
	// Dialogue enables logging of dialogue start/end.
	Dialogue
	// DialogueLine enables logging of every completed dialogue line.
	DialogueLine
	// MapTransition enables logging of map changes.
	MapTransition
	// CustomEvent enables logging of free-form events.
	CustomEvent

	eventCount // sentinel for iteration
)

type config struct {
	logger *slog.Logger
	events map[Event]bool
}

// Option configures the logger handler.
type Option func(*config)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEvents enables only the specified event types.
// When not specified, all events are enabled.
func WithEvents(events ...Event) Option {
	return func(c *config) {
		c.events = make(map[Event]bool, len(events))
		for _, e := range events {
			c.events[e] = true
		}
	}
}

// handler implements trace.Handler by logging events via slog.
type handler struct {
	cfg config
}

// New creates a new trace.Handler that logs trace events via slog.
// By default, all events are enabled. Use WithEvents to enable only specific events.
func New(opts ...Option) trace.Handler {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Default: all events enabled
	if cfg.events == nil {
		cfg.events = make(map[Event]bool, eventCount)
		for i := Event(0); i < eventCount; i++ {
			cfg.events[i] = true
		}
	}

	return &handler{cfg: cfg}
}

func (h *handler) logger() *slog.Logger {
	if h.cfg.logger != nil {
		return h.cfg.logger
	}
	return slog.Default()
}

func (h *handler) enabled(e Event) bool {
	return h.cfg.events[e]
}

// context key for storing span start time
type startTimeKey struct{}

func withStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey{}, t)
}

func startTimeFrom(ctx context.Context) time.Time {
	t, _ := ctx.Value(startTimeKey{}).(time.Time)
	return t
}

// context key for storing the dialogue speaker
type speakerKey struct{}

func withSpeaker(ctx context.Context, speaker string) context.Context {
	return context.WithValue(ctx, speakerKey{}, speaker)
}

func speakerFrom(ctx context.Context) string {
	s, _ := ctx.Value(speakerKey{}).(string)
	return s
}

// context key for storing the NPC name of an interaction
type npcKey struct{}

func withNPC(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, npcKey{}, name)
}

func npcFrom(ctx context.Context) string {
	s, _ := ctx.Value(npcKey{}).(string)
	return s
}

func (h *handler) StartSession(ctx context.Context, data *trace.SessionData) context.Context {
	if h.enabled(Session) {
		attrs := []any{}
		if data != nil {
			attrs = append(attrs, slog.String("version", data.Version))
		}
		h.logger().InfoContext(ctx, "play session started", attrs...)
	}
	return withStartTime(ctx, time.Now())
}

func (h *handler) EndSession(ctx context.Context, err error) {
	if !h.enabled(Session) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "play session ended", attrs...)
}

func (h *handler) StartInteraction(ctx context.Context, data *trace.InteractionData) context.Context {
	ctx = withStartTime(ctx, time.Now())
	if data == nil {
		return ctx
	}
	ctx = withNPC(ctx, data.NPCName)
	if h.enabled(Interaction) {
		h.logger().InfoContext(ctx, "interacting with npc",
			slog.String("npc", data.NPCName),
			slog.Float64("x", data.Position.X),
			slog.Float64("y", data.Position.Y),
			slog.Float64("distance", data.Distance),
		)
	}
	return ctx
}

func (h *handler) EndInteraction(ctx context.Context, err error) {
	if !h.enabled(Interaction) {
		return
	}

	attrs := []any{
		slog.String("npc", npcFrom(ctx)),
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "interaction ended", attrs...)
}

func (h *handler) StartDialogue(ctx context.Context, data *trace.DialogueData) context.Context {
	ctx = withStartTime(ctx, time.Now())
	if data == nil {
		return ctx
	}
	ctx = withSpeaker(ctx, data.Speaker)
	if h.enabled(Dialogue) {
		h.logger().InfoContext(ctx, "starting dialogue",
			slog.String("speaker", data.Speaker),
			slog.Int("lines", data.TotalLines),
		)
	}
	return ctx
}

func (h *handler) AddDialogueLine(ctx context.Context, line *trace.LineData) {
	if !h.enabled(DialogueLine) || line == nil {
		return
	}
	h.logger().InfoContext(ctx, "dialogue line complete",
		slog.String("speaker", speakerFrom(ctx)),
		slog.Int("index", line.Index),
		slog.Int("chars", line.Length),
	)
}

func (h *handler) EndDialogue(ctx context.Context, result *trace.DialogueResult) {
	if !h.enabled(Dialogue) || result == nil {
		return
	}
	h.logger().InfoContext(ctx, "dialogue session complete",
		slog.String("speaker", speakerFrom(ctx)),
		slog.Int("chars_read", result.CharsRead),
		slog.Float64("duration_secs", result.DurationSecs),
		slog.Float64("reading_speed", result.ReadingSpeed),
		slog.String("completion", string(result.Completion)),
	)
}

func (h *handler) StartMapTransition(ctx context.Context, data *trace.MapTransitionData) context.Context {
	ctx = withStartTime(ctx, time.Now())
	if h.enabled(MapTransition) && data != nil {
		h.logger().InfoContext(ctx, "map transition",
			slog.String("from", data.From),
			slog.String("to", data.To),
		)
	}
	return ctx
}

func (h *handler) EndMapTransition(ctx context.Context, err error) {
	if !h.enabled(MapTransition) {
		return
	}

	attrs := []any{
		slog.Duration("duration", time.Since(startTimeFrom(ctx))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	h.logger().InfoContext(ctx, "map loaded", attrs...)
}

func (h *handler) AddEvent(ctx context.Context, name string, attrs map[string]any) {
	if !h.enabled(CustomEvent) {
		return
	}

	h.logger().InfoContext(ctx, "event",
		slog.String("name", name),
		slog.Any("attributes", attrs),
	)
}

// Finish is a no-op for the logger handler. Persistence is the Recorder's responsibility.
func (h *handler) Finish(_ context.Context) error {
	return nil
}
