package trace

import (
	"time"
)

// SpanKind represents the type of a span.
type SpanKind string

const (
	SpanKindSession       SpanKind = "session"
	SpanKindInteraction   SpanKind = "interaction"
	SpanKindDialogue      SpanKind = "dialogue"
	SpanKindMapTransition SpanKind = "map_transition"
)

// SpanStatus represents the status of a span.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)

// Trace represents the root tracing data for one play session.
type Trace struct {
	TraceID   string        `json:"trace_id"`
	RootSpan  *Span         `json:"root_span"`
	Metadata  TraceMetadata `json:"metadata"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
}

// TraceMetadata holds metadata for a trace.
type TraceMetadata struct {
	Version string            `json:"version,omitempty"`
	Map     string            `json:"map,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Span represents a single unit of operation in the trace hierarchy.
type Span struct {
	SpanID    string        `json:"span_id"`
	ParentID  string        `json:"parent_id,omitempty"`
	Kind      SpanKind      `json:"kind"`
	Name      string        `json:"name"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
	Status    SpanStatus    `json:"status"`
	Error     string        `json:"error,omitempty"`
	Events    []*Event      `json:"events,omitempty"`
	Children  []*Span       `json:"children,omitempty"`

	// Kind-specific data (only one is non-nil based on Kind)
	Session       *SessionData       `json:"session,omitempty"`
	Interaction   *InteractionData   `json:"interaction,omitempty"`
	Dialogue      *DialogueData      `json:"dialogue,omitempty"`
	MapTransition *MapTransitionData `json:"map_transition,omitempty"`
}

// Ended reports whether the span has been closed.
func (s *Span) Ended() bool {
	return !s.EndedAt.IsZero()
}

// Event is a point-in-time annotation on a span. Events keep the order in
// which they were added.
type Event struct {
	Name       string         `json:"name"`
	Time       time.Time      `json:"time"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
