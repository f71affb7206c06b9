package main

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame/trace"
)

var (
	errInvalidTraceID = goerr.New("invalid trace ID")
	errTraceNotFound  = goerr.New("trace not found")
)

// traceSummary is a lightweight representation of a trace,
// derived from object metadata without reading the file contents.
type traceSummary struct {
	TraceID   string    `json:"trace_id"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listRequest struct {
	pageSize  int
	pageToken string
}

type listResponse struct {
	traces        []traceSummary
	nextPageToken string
}

// traceSource provides access to trace data from various backends.
type traceSource interface {
	List(ctx context.Context, req listRequest) (*listResponse, error)
	Get(ctx context.Context, traceID string) (*trace.Trace, error)
}

// validateTraceID rejects IDs that would escape the trace directory or prefix.
func validateTraceID(traceID string) error {
	if traceID == "" || strings.ContainsAny(traceID, `/\`) || strings.Contains(traceID, "..") {
		return goerr.Wrap(errInvalidTraceID, "rejected trace ID", goerr.V("traceID", traceID))
	}
	return nil
}
