package telemetry

import (
	"log/slog"
	"strings"
	"time"
)

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http/protobuf"
)

// Config configures the exporter pipeline.
type Config struct {
	// Endpoint is the collector address. Empty disables telemetry.
	Endpoint string
	Protocol Protocol

	ServiceName    string
	ServiceVersion string

	// MetricInterval is the push interval of the periodic metric reader.
	MetricInterval time.Duration
	// DialTimeout bounds the reachability check done before exporters are
	// built. Zero skips the check.
	DialTimeout time.Duration
	// PrometheusAddr, when set, serves a /metrics scrape endpoint.
	PrometheusAddr string

	// Logger receives pipeline diagnostics. It must not be backed by the
	// pipeline itself.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Protocol:       ProtocolGRPC,
		ServiceName:    "sregame",
		ServiceVersion: "0.1.0",
		MetricInterval: 10 * time.Second,
		DialTimeout:    2 * time.Second,
	}
}

// NormalizeEndpoint trims s and prefixes "http://" when it has no scheme.
// An empty or blank input yields "".
func NormalizeEndpoint(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		return "http://" + s
	}
	return s
}
