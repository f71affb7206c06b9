// Package lifecycle orders telemetry startup and shutdown around a play
// session: the exporter pipeline comes up before application logging is
// attached, and on exit the session span is closed before the providers are
// flushed and stopped.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame"
	"github.com/m-mizutani/sregame/metrics"
	"github.com/m-mizutani/sregame/telemetry"
	"github.com/m-mizutani/sregame/trace"
	"github.com/m-mizutani/sregame/trace/logger"
	traceOtel "github.com/m-mizutani/sregame/trace/otel"
)

const defaultShutdownTimeout = 5 * time.Second

// ErrInvalidState is returned when an operation does not fit the current state.
var ErrInvalidState = goerr.New("invalid lifecycle state")

// Manager drives Uninitialized → Initializing → Active → ShuttingDown → Closed.
type Manager struct {
	cfg             telemetry.Config
	console         slog.Handler
	handlers        []trace.Handler
	shutdownTimeout time.Duration
	graceWait       time.Duration
	version         string

	mu       sync.Mutex
	state    State
	pipeline *telemetry.Pipeline
	logger   *slog.Logger
	inst     *sregame.Instrumentation
	session  *sregame.Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithConsole sets the console handler. Default is a text handler on stderr.
func WithConsole(h slog.Handler) Option {
	return func(m *Manager) {
		m.console = h
	}
}

// WithTraceHandler adds a trace handler next to the OpenTelemetry one, for
// example a trace.Recorder persisting the session.
func WithTraceHandler(h trace.Handler) Option {
	return func(m *Manager) {
		m.handlers = append(m.handlers, h)
	}
}

// WithShutdownTimeout bounds provider flush and shutdown. Default is 5s.
func WithShutdownTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.shutdownTimeout = d
	}
}

// WithGraceWait adds a wait after the providers are shut down. Flushes are
// already acknowledged by the providers, so the default is zero.
func WithGraceWait(d time.Duration) Option {
	return func(m *Manager) {
		m.graceWait = d
	}
}

// WithVersion sets the game version reported on the session span.
func WithVersion(version string) Option {
	return func(m *Manager) {
		m.version = version
	}
}

// New creates a Manager in the Uninitialized state.
func New(cfg telemetry.Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:             cfg,
		shutdownTimeout: defaultShutdownTimeout,
		version:         cfg.ServiceVersion,
		pipeline:        telemetry.Disabled(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.console == nil {
		m.console = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	m.logger = slog.New(m.console)
	m.inst = sregame.New(sregame.WithLogger(m.logger))
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Logger returns the application logger. Before Start it writes to the
// console only.
func (m *Manager) Logger() *slog.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logger
}

// Instrumentation returns the instrumentation gameplay code calls into.
// Before Start it records nothing.
func (m *Manager) Instrumentation() *sregame.Instrumentation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inst
}

// Pipeline returns the exporter pipeline. It is disabled until Start
// succeeds in building one.
func (m *Manager) Pipeline() *telemetry.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline
}

// Start builds the exporter pipeline and then attaches application logging
// to it. A pipeline failure is reported on the console and the manager
// continues without telemetry; an error is returned only for misuse.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Uninitialized {
		return goerr.Wrap(ErrInvalidState, "cannot start", goerr.V("state", m.state.String()))
	}
	m.state = Initializing

	consoleLogger := slog.New(m.console)
	cfg := m.cfg
	cfg.Logger = consoleLogger

	pipeline, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		consoleLogger.Warn("telemetry unavailable, continuing with console logging only",
			"endpoint", cfg.Endpoint,
			"error", err,
		)
		pipeline = telemetry.Disabled()
	}
	if err := pipeline.Install(); err != nil {
		consoleLogger.Warn("telemetry providers not registered globally", "error", err)
	}

	m.pipeline = pipeline
	m.logger = slog.New(pipeline.LogHandler(m.console))

	reg, err := metrics.New(pipeline.MeterProvider().Meter(metrics.MeterName))
	if err != nil {
		m.logger.Warn("metrics disabled", "error", err)
		reg = nil
	}

	opts := []sregame.Option{
		sregame.WithLogger(m.logger),
		sregame.WithVersion(m.version),
		sregame.WithTrace(logger.New(
			logger.WithLogger(m.logger),
			logger.WithEvents(logger.Session, logger.Interaction, logger.Dialogue, logger.MapTransition),
		)),
	}
	if reg != nil {
		opts = append(opts, sregame.WithMetrics(reg))
	}
	if pipeline.Enabled() {
		opts = append(opts, sregame.WithTrace(traceOtel.New(
			traceOtel.WithTracerProvider(pipeline.TracerProvider()),
		)))
	}
	for _, h := range m.handlers {
		opts = append(opts, sregame.WithTrace(h))
	}
	m.inst = sregame.New(opts...)

	m.state = Active
	m.logger.Info("telemetry lifecycle active", "telemetry", pipeline.Enabled())
	return nil
}

// BeginSession starts the play session span.
func (m *Manager) BeginSession(ctx context.Context) (*sregame.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return nil, goerr.Wrap(ErrInvalidState, "cannot begin session", goerr.V("state", m.state.String()))
	}

	session, err := m.inst.StartSession(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin session")
	}
	m.session = session
	return session, nil
}

// Shutdown ends the open session span, lets trace handlers persist, and
// flushes then stops every provider within the shutdown timeout. Failures are
// logged and returned together but never stop the sequence. Calling it on a
// closed manager is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Closed:
		return nil
	case Active:
	default:
		return goerr.Wrap(ErrInvalidState, "cannot shut down", goerr.V("state", m.state.String()))
	}
	m.state = ShuttingDown
	m.logger.Info("shutting down telemetry")

	if m.session != nil {
		m.session.End(nil)
	}

	var errs []error
	if err := m.inst.Finish(ctx); err != nil {
		m.logger.Warn("failed to finish trace handlers", "error", err)
		errs = append(errs, err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
	defer cancel()
	if err := m.pipeline.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("telemetry shutdown incomplete", "error", err)
		errs = append(errs, err)
	}

	if m.graceWait > 0 {
		timer := time.NewTimer(m.graceWait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	m.state = Closed
	return errors.Join(errs...)
}
