// Package sregame is the instrumentation surface gameplay code calls into.
// It turns session, interaction, dialogue and map events into correlated
// spans through a trace.Handler and records the game metrics.
//
//	inst := sregame.New(
//	    sregame.WithTrace(otel.New()),
//	    sregame.WithMetrics(reg),
//	)
//	session, err := inst.StartSession(ctx)
//	it := session.StartInteraction("Evie", pos, 32)
//	dlg := inst.StartDialogue(it.Context(), "Evie", 3)
//	it.End()
package sregame

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/sregame/metrics"
	"github.com/m-mizutani/sregame/trace"
)

// Instrumentation connects gameplay events to trace handlers and metrics.
// Telemetry problems are logged and never returned to gameplay code.
type Instrumentation struct {
	handlers []trace.Handler
	handler  trace.Handler
	metrics  *metrics.Registry
	logger   *slog.Logger
	now      func() time.Time
	version  string

	mu      sync.Mutex
	session *Session
}

// Option configures an Instrumentation.
type Option func(*Instrumentation)

// WithTrace adds a trace handler. It can be given several times; events are
// fanned out to every handler.
func WithTrace(h trace.Handler) Option {
	return func(i *Instrumentation) {
		i.handlers = append(i.handlers, h)
	}
}

// WithMetrics sets the metrics registry. Without it metrics are not recorded.
func WithMetrics(reg *metrics.Registry) Option {
	return func(i *Instrumentation) {
		i.metrics = reg
	}
}

// WithLogger sets the logger for telemetry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instrumentation) {
		i.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Instrumentation) {
		i.now = now
	}
}

// WithVersion sets the game version attached to the session span.
func WithVersion(version string) Option {
	return func(i *Instrumentation) {
		i.version = version
	}
}

// New creates an Instrumentation. With no options it records nothing.
func New(opts ...Option) *Instrumentation {
	i := &Instrumentation{
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		version: "0.1.0",
	}
	for _, opt := range opts {
		opt(i)
	}

	if len(i.handlers) == 1 && i.handlers[0] != nil {
		i.handler = i.handlers[0]
	} else {
		i.handler = trace.Multi(i.handlers...)
	}

	i.logger.Debug("instrumentation created",
		"handlers", len(i.handlers),
		"metrics", i.metrics != nil,
		"version", i.version,
	)
	return i
}

// StartSession starts the root session span. It may be called once per
// Instrumentation.
func (i *Instrumentation) StartSession(ctx context.Context) (*Session, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.session != nil {
		return nil, ErrSessionStarted
	}

	now := i.now()
	ctx = trace.WithHandler(ctx, i.handler)
	ctx = i.handler.StartSession(ctx, &trace.SessionData{
		Version:   i.version,
		StartedAt: now,
	})

	i.session = &Session{
		inst:      i,
		ctx:       ctx,
		startedAt: now,
	}
	i.logger.Debug("session started", "version", i.version)
	return i.session, nil
}

// Session returns the started session, or nil.
func (i *Instrumentation) Session() *Session {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.session
}

// Finish lets every handler persist what it recorded.
func (i *Instrumentation) Finish(ctx context.Context) error {
	return i.handler.Finish(ctx)
}

// RecordMetric records value on the named instrument. Unknown names and
// negative counter values are logged and dropped.
func (i *Instrumentation) RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	if i.metrics == nil {
		return
	}
	if err := i.metrics.Record(ctx, name, value, labels); err != nil {
		i.logger.Warn("metric dropped", "name", name, "value", value, "error", err)
	}
}

// RecordFrame records one frame time.
func (i *Instrumentation) RecordFrame(ctx context.Context, d time.Duration) {
	if i.metrics != nil {
		i.metrics.FrameTime(ctx, d)
	}
}

// RecordSystem records the execution time of one gameplay system.
func (i *Instrumentation) RecordSystem(ctx context.Context, system string, d time.Duration) {
	if i.metrics != nil {
		i.metrics.SystemTime(ctx, system, d)
	}
}
