package telemetry

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ResetInstalled allows tests to register providers again.
func ResetInstalled() {
	installMu.Lock()
	defer installMu.Unlock()
	installed = false
}

var ParseEndpoint = parseEndpoint

// ShutdownPartialExporters shuts down an exporter set where only the span
// exporter was built.
func ShutdownPartialExporters(ctx context.Context, span sdktrace.SpanExporter) {
	(&exporters{span: span}).shutdown(ctx)
}
