// Package telemetry builds the OpenTelemetry exporter pipeline: one logger,
// tracer and meter provider sharing a resource and an OTLP endpoint.
//
//	p, err := telemetry.Setup(ctx, cfg)
//	if err != nil {
//	    // keep console logging only
//	}
//	_ = p.Install()
//	defer p.Shutdown(ctx)
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Pipeline owns the providers created by Setup. A disabled pipeline has no
// providers and every method is a no-op.
type Pipeline struct {
	cfg      Config
	endpoint string
	logger   *slog.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	promServer *http.Server
	promAddr   string

	shutdownOnce sync.Once
	shutdownErr  error
}

var (
	installMu sync.Mutex
	installed bool
)

// Setup builds the pipeline described by cfg. An empty endpoint yields a
// disabled pipeline and no error. Any error leaves nothing running; callers
// are expected to continue with console logging.
func Setup(ctx context.Context, cfg Config) (*Pipeline, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pipeline{
		cfg:      cfg,
		endpoint: NormalizeEndpoint(cfg.Endpoint),
		logger:   cfg.Logger,
	}
	if p.endpoint == "" {
		p.logger.Info("telemetry disabled, no endpoint configured")
		return p, nil
	}

	if cfg.Protocol != ProtocolGRPC && cfg.Protocol != ProtocolHTTP {
		return nil, goerr.Wrap(ErrUnsupportedProtocol, "failed to set up telemetry", goerr.V("protocol", cfg.Protocol))
	}

	_, addr, err := parseEndpoint(p.endpoint)
	if err != nil {
		return nil, err
	}

	if cfg.DialTimeout > 0 {
		if err := checkReachable(ctx, addr, cfg.DialTimeout); err != nil {
			return nil, err
		}
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create resource")
	}

	exp, err := newExporters(ctx, cfg.Protocol, p.endpoint)
	if err != nil {
		return nil, err
	}

	readers := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric,
			sdkmetric.WithInterval(cfg.MetricInterval),
		)),
	}
	if cfg.PrometheusAddr != "" {
		reader, srv, promAddr, err := startPrometheus(cfg.PrometheusAddr, p.logger)
		if err != nil {
			exp.shutdown(ctx)
			return nil, err
		}
		readers = append(readers, sdkmetric.WithReader(reader))
		p.promServer = srv
		p.promAddr = promAddr
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.span),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	p.meterProvider = sdkmetric.NewMeterProvider(readers...)
	p.loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)),
		sdklog.WithResource(res),
	)

	p.logger.Info("telemetry pipeline ready",
		"endpoint", p.endpoint,
		"protocol", cfg.Protocol,
		"metric_interval", cfg.MetricInterval,
	)
	return p, nil
}

// Disabled returns a pipeline that exports nothing.
func Disabled() *Pipeline {
	return &Pipeline{logger: slog.New(slog.DiscardHandler)}
}

// Enabled reports whether the pipeline exports anything.
func (p *Pipeline) Enabled() bool {
	return p.tracerProvider != nil
}

// Endpoint returns the normalised collector endpoint, or "" when disabled.
func (p *Pipeline) Endpoint() string {
	return p.endpoint
}

// PrometheusAddr returns the address the scrape endpoint listens on.
func (p *Pipeline) PrometheusAddr() string {
	return p.promAddr
}

// TracerProvider returns the pipeline's tracer provider, or a no-op one.
func (p *Pipeline) TracerProvider() trace.TracerProvider {
	if p.tracerProvider == nil {
		return tracenoop.NewTracerProvider()
	}
	return p.tracerProvider
}

// MeterProvider returns the pipeline's meter provider, or a no-op one.
func (p *Pipeline) MeterProvider() metric.MeterProvider {
	if p.meterProvider == nil {
		return metricnoop.NewMeterProvider()
	}
	return p.meterProvider
}

// LoggerProvider returns the pipeline's logger provider, or a no-op one.
func (p *Pipeline) LoggerProvider() otellog.LoggerProvider {
	if p.loggerProvider == nil {
		return lognoop.NewLoggerProvider()
	}
	return p.loggerProvider
}

// Install registers the providers as the process-wide globals. It succeeds
// at most once per process; later calls return ErrAlreadyInstalled. A
// disabled pipeline registers nothing.
func (p *Pipeline) Install() error {
	if !p.Enabled() {
		return nil
	}

	installMu.Lock()
	defer installMu.Unlock()
	if installed {
		return goerr.Wrap(ErrAlreadyInstalled, "failed to install telemetry providers")
	}

	otel.SetTracerProvider(p.tracerProvider)
	otel.SetMeterProvider(p.meterProvider)
	global.SetLoggerProvider(p.loggerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	installed = true
	return nil
}

type flusher interface {
	ForceFlush(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Shutdown flushes and stops the tracer, meter and logger providers in that
// order. A failing provider is logged and does not prevent the next one from
// being shut down. The deadline of ctx bounds the whole sequence. Repeated
// calls return the first result.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		if !p.Enabled() {
			return
		}

		var errs []error
		steps := []struct {
			name     string
			provider flusher
		}{
			{"tracer", p.tracerProvider},
			{"meter", p.meterProvider},
			{"logger", p.loggerProvider},
		}
		for _, step := range steps {
			if err := step.provider.ForceFlush(ctx); err != nil {
				p.logger.Warn("failed to flush provider", "provider", step.name, "error", err)
				errs = append(errs, goerr.Wrap(err, "failed to flush provider", goerr.V("provider", step.name)))
			}
			if err := step.provider.Shutdown(ctx); err != nil {
				p.logger.Warn("failed to shut down provider", "provider", step.name, "error", err)
				errs = append(errs, goerr.Wrap(err, "failed to shut down provider", goerr.V("provider", step.name)))
			}
		}

		if p.promServer != nil {
			if err := p.promServer.Shutdown(ctx); err != nil {
				errs = append(errs, goerr.Wrap(err, "failed to stop prometheus endpoint"))
			}
		}

		p.shutdownErr = errors.Join(errs...)
		if p.shutdownErr == nil {
			p.logger.Info("telemetry pipeline shut down")
		}
	})
	return p.shutdownErr
}
