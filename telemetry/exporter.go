package telemetry

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type exporters struct {
	span   sdktrace.SpanExporter
	metric sdkmetric.Exporter
	log    sdklog.Exporter
}

// newExporters builds the three OTLP exporters for protocol. A http:// URL
// makes the gRPC connection insecure.
func newExporters(ctx context.Context, protocol Protocol, endpoint string) (*exporters, error) {
	exp := &exporters{}
	if err := exp.build(ctx, protocol, endpoint); err != nil {
		exp.shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	return exp, nil
}

// build fills exp in order. Members are only set on success so a partial
// result can be shut down safely.
func (exp *exporters) build(ctx context.Context, protocol Protocol, endpoint string) error {
	switch protocol {
	case ProtocolGRPC:
		span, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(endpoint))
		if err != nil {
			return goerr.Wrap(err, "failed to create trace exporter", goerr.V("endpoint", endpoint))
		}
		exp.span = span
		metric, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(endpoint))
		if err != nil {
			return goerr.Wrap(err, "failed to create metric exporter", goerr.V("endpoint", endpoint))
		}
		exp.metric = metric
		log, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(endpoint))
		if err != nil {
			return goerr.Wrap(err, "failed to create log exporter", goerr.V("endpoint", endpoint))
		}
		exp.log = log

	case ProtocolHTTP:
		base := strings.TrimRight(endpoint, "/")
		span, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(base+"/v1/traces"))
		if err != nil {
			return goerr.Wrap(err, "failed to create trace exporter", goerr.V("endpoint", endpoint))
		}
		exp.span = span
		metric, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(base+"/v1/metrics"))
		if err != nil {
			return goerr.Wrap(err, "failed to create metric exporter", goerr.V("endpoint", endpoint))
		}
		exp.metric = metric
		log, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(base+"/v1/logs"))
		if err != nil {
			return goerr.Wrap(err, "failed to create log exporter", goerr.V("endpoint", endpoint))
		}
		exp.log = log

	default:
		return goerr.Wrap(ErrUnsupportedProtocol, "failed to create exporters", goerr.V("protocol", protocol))
	}

	return nil
}

// shutdown releases every exporter built so far. Nil members are skipped.
func (exp *exporters) shutdown(ctx context.Context) {
	if exp.span != nil {
		_ = exp.span.Shutdown(ctx)
	}
	if exp.metric != nil {
		_ = exp.metric.Shutdown(ctx)
	}
	if exp.log != nil {
		_ = exp.log.Shutdown(ctx)
	}
}
