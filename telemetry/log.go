package telemetry

import (
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// LogHandler returns the slog handler the application should log through.
// When the pipeline is enabled, records go to console and to the OTel logger
// provider. Only loggers built from this handler are bridged, so exporter
// internals never feed back into the pipeline.
func (p *Pipeline) LogHandler(console slog.Handler) slog.Handler {
	if !p.Enabled() {
		return console
	}

	bridge := otelslog.NewHandler(p.cfg.ServiceName,
		otelslog.WithLoggerProvider(p.loggerProvider),
	)
	return slogmulti.Fanout(console, bridge)
}
