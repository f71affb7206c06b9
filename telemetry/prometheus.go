package telemetry

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// startPrometheus creates a pull reader backed by a private registry and
// serves it on addr at /metrics. The returned address is the bound one, so
// ":0" can be used.
func startPrometheus(addr string, logger *slog.Logger) (sdkmetric.Reader, *http.Server, string, error) {
	registry := prometheus.NewRegistry()
	reader, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, "", goerr.Wrap(err, "failed to create prometheus exporter")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, "", goerr.Wrap(err, "failed to listen for prometheus endpoint", goerr.V("addr", addr))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("prometheus endpoint stopped", "error", err)
		}
	}()

	logger.Info("prometheus endpoint listening", "addr", ln.Addr().String())
	return reader, srv, ln.Addr().String(), nil
}
