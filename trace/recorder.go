package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithRepository sets the repository for persisting trace data.
func WithRepository(repo Repository) Option {
	return func(r *Recorder) {
		r.repo = repo
	}
}

// WithMetadata sets the metadata for the trace.
func WithMetadata(meta TraceMetadata) Option {
	return func(r *Recorder) {
		r.metadata = meta
	}
}

// WithTraceID sets a custom trace ID.
// If not set or set to an empty string, a UUID v7 is generated automatically.
func WithTraceID(id string) Option {
	return func(r *Recorder) {
		r.traceID = id
	}
}

// WithLogger sets the logger used to report misuse such as ending a span twice.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock replaces time.Now. Tests use it to get stable timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// Recorder collects tracing data during a play session into an in-memory
// Trace structure. It implements the Handler interface and provides access to
// the collected Trace via Trace().
type Recorder struct {
	trace    *Trace
	mu       sync.Mutex
	repo     Repository
	metadata TraceMetadata
	traceID  string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new Recorder with the given options.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// context key types
type handlerKey struct{}
type currentSpanKey struct{}

// WithHandler stores the Handler in the context.
func WithHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey{}, h)
}

// HandlerFrom retrieves the Handler from the context. Returns nil if not set.
func HandlerFrom(ctx context.Context) Handler {
	h, _ := ctx.Value(handlerKey{}).(Handler)
	return h
}

// withCurrentSpan stores the current span in the context.
func withCurrentSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, currentSpanKey{}, span)
}

// currentSpanFrom retrieves the current span from the context. Returns nil if not set.
func currentSpanFrom(ctx context.Context) *Span {
	s, _ := ctx.Value(currentSpanKey{}).(*Span)
	return s
}

// newSpanID generates a unique span ID.
func newSpanID() string {
	return uuid.New().String()
}

// StartSession starts the root session span.
func (r *Recorder) StartSession(ctx context.Context, data *SessionData) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	span := &Span{
		SpanID:    newSpanID(),
		Kind:      SpanKindSession,
		Name:      "game_session",
		StartedAt: now,
		Status:    SpanStatusOK,
		Session:   data,
	}

	traceID := r.traceID
	if traceID == "" {
		traceID = uuid.Must(uuid.NewV7()).String()
	}

	meta := r.metadata
	if meta.Version == "" && data != nil {
		meta.Version = data.Version
	}

	r.trace = &Trace{
		TraceID:   traceID,
		RootSpan:  span,
		Metadata:  meta,
		StartedAt: now,
	}

	return withCurrentSpan(ctx, span)
}

// EndSession ends the root session span.
func (r *Recorder) EndSession(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.endSpan(ctx, SpanKindSession, err)
	if span != nil && r.trace != nil {
		r.trace.EndedAt = span.EndedAt
	}
}

// StartInteraction starts an interaction span as a child of the current span.
func (r *Recorder) StartInteraction(ctx context.Context, data *InteractionData) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.startChildSpan(ctx, SpanKindInteraction, "npc.interaction")
	if span == nil {
		return ctx
	}
	span.Interaction = data
	return withCurrentSpan(ctx, span)
}

// EndInteraction ends the interaction span.
func (r *Recorder) EndInteraction(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endSpan(ctx, SpanKindInteraction, err)
}

// StartDialogue starts a dialogue span as a child of the current span.
func (r *Recorder) StartDialogue(ctx context.Context, data *DialogueData) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.startChildSpan(ctx, SpanKindDialogue, "dialogue.session")
	if span == nil {
		return ctx
	}
	if data == nil {
		data = &DialogueData{}
	}
	span.Dialogue = data
	r.appendEvent(span, EventDialogueCreated, DialogueCreatedAttrs(data))
	return withCurrentSpan(ctx, span)
}

// AddDialogueLine records a line displayed event on the dialogue span.
func (r *Recorder) AddDialogueLine(ctx context.Context, line *LineData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindDialogue || line == nil {
		return
	}
	if span.Ended() {
		r.logger.Warn("line recorded on ended dialogue span", "span_id", span.SpanID, "index", line.Index)
		return
	}

	span.Dialogue.Lines = append(span.Dialogue.Lines, *line)
	r.appendEvent(span, EventLineDisplayed, LineAttrs(line))
}

// EndDialogue attaches the result to the dialogue span and ends it.
func (r *Recorder) EndDialogue(ctx context.Context, result *DialogueResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != SpanKindDialogue || result == nil {
		return
	}
	if span.Ended() {
		r.logger.Warn("dialogue span ended twice", "span_id", span.SpanID)
		return
	}

	span.Dialogue.CharsRead = result.CharsRead
	span.Dialogue.DurationSecs = result.DurationSecs
	span.Dialogue.ReadingSpeed = result.ReadingSpeed
	span.Dialogue.Completion = result.Completion
	r.appendEvent(span, EventDialogueRemoved, DialogueRemovedAttrs(result))
	r.endSpan(ctx, SpanKindDialogue, nil)
}

// StartMapTransition starts a map transition span as a child of the current span.
func (r *Recorder) StartMapTransition(ctx context.Context, data *MapTransitionData) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := r.startChildSpan(ctx, SpanKindMapTransition, "map.transition")
	if span == nil {
		return ctx
	}
	span.MapTransition = data
	if r.trace != nil && data != nil {
		r.trace.Metadata.Map = data.To
	}
	return withCurrentSpan(ctx, span)
}

// EndMapTransition ends the map transition span.
func (r *Recorder) EndMapTransition(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endSpan(ctx, SpanKindMapTransition, err)
}

// AddEvent adds an event to the current span.
func (r *Recorder) AddEvent(ctx context.Context, name string, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	span := currentSpanFrom(ctx)
	if span == nil {
		return
	}
	r.appendEvent(span, name, attrs)
}

// Finish completes the trace and persists it to the Repository.
func (r *Recorder) Finish(ctx context.Context) error {
	r.mu.Lock()
	trace := r.trace
	repo := r.repo
	r.mu.Unlock()

	if trace == nil || repo == nil {
		return nil
	}

	if err := repo.Save(ctx, trace); err != nil {
		return err
	}

	return nil
}

// Trace returns the current trace data. Returns nil if no trace is active.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trace
}

// startChildSpan creates a child of the span carried by ctx. The parent is
// resolved here, at start time. Caller must hold r.mu.
func (r *Recorder) startChildSpan(ctx context.Context, kind SpanKind, name string) *Span {
	parent := currentSpanFrom(ctx)
	if parent == nil {
		return nil
	}
	if parent.Ended() {
		r.logger.Warn("child span started under ended parent",
			"parent_id", parent.SpanID,
			"parent_kind", parent.Kind,
			"kind", kind,
		)
	}

	span := &Span{
		SpanID:    newSpanID(),
		ParentID:  parent.SpanID,
		Kind:      kind,
		Name:      name,
		StartedAt: r.now(),
		Status:    SpanStatusOK,
	}

	parent.Children = append(parent.Children, span)
	return span
}

// endSpan closes the span carried by ctx if it has the expected kind. Caller
// must hold r.mu.
func (r *Recorder) endSpan(ctx context.Context, kind SpanKind, err error) *Span {
	span := currentSpanFrom(ctx)
	if span == nil || span.Kind != kind {
		return nil
	}
	if span.Ended() {
		r.logger.Warn("span ended twice", "span_id", span.SpanID, "kind", kind)
		return nil
	}

	now := r.now()
	span.EndedAt = now
	span.Duration = now.Sub(span.StartedAt)

	if err != nil {
		span.Status = SpanStatusError
		span.Error = err.Error()
	}
	return span
}

func (r *Recorder) appendEvent(span *Span, name string, attrs map[string]any) {
	span.Events = append(span.Events, &Event{
		Name:       name,
		Time:       r.now(),
		Attributes: attrs,
	})
}
