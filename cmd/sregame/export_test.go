package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/sregame/telemetry"
	"github.com/m-mizutani/sregame/trace"
)

type ListTracesResponse = listTracesResponse
type ListDialoguesResponse = listDialoguesResponse
type TraceSummaryExported = traceSummary

var (
	NewServer  = newServer
	WithAddr   = withAddr
	ParseGSURI = parseGSURI
)

// Handler returns the server's HTTP handler for testing.
func (s *server) Handler() http.Handler {
	return s.handler()
}

// ListResult holds the exported result of a List call.
type ListResult struct {
	Traces        []TraceSummaryExported
	NextPageToken string
}

// TestableSource wraps a traceSource for external test access.
type TestableSource struct {
	src traceSource
}

func NewLocalSource(dir string) *TestableSource {
	return &TestableSource{src: newLocalSource(dir)}
}

func (ts *TestableSource) List(ctx context.Context, pageSize int, pageToken string) (*ListResult, error) {
	resp, err := ts.src.List(ctx, listRequest{
		pageSize:  pageSize,
		pageToken: pageToken,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{
		Traces:        resp.traces,
		NextPageToken: resp.nextPageToken,
	}, nil
}

func (ts *TestableSource) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	return ts.src.Get(ctx, traceID)
}

func WithTestSource(ts *TestableSource) serverOption {
	return withSource(ts.src)
}

// PlayConfig mirrors the play command flags for testing.
type PlayConfig struct {
	Telemetry       telemetry.Config
	ShutdownTimeout time.Duration
	TraceDir        string
	TraceBucket     string
	Map             string
	FPS             int
	MaxFrames       int
}

func RunPlay(ctx context.Context, cfg PlayConfig, console slog.Handler) error {
	return runPlay(ctx, playConfig{
		telemetry:       cfg.Telemetry,
		shutdownTimeout: cfg.ShutdownTimeout,
		traceDir:        cfg.TraceDir,
		traceBucket:     cfg.TraceBucket,
		mapName:         cfg.Map,
		fps:             cfg.FPS,
		maxFrames:       cfg.MaxFrames,
	}, console)
}
