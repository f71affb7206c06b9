package main

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame/trace"
	"github.com/m-mizutani/sregame/trace/storage"
)

// csSource reads traces written by the play command's Cloud Storage
// repository.
type csSource struct {
	repo *storage.Repository
}

func newCSSource(ctx context.Context, bucket, prefix string) (traceSource, error) {
	repo, err := storage.New(ctx, bucket, storage.WithPrefix(prefix))
	if err != nil {
		return nil, err
	}
	return &csSource{repo: repo}, nil
}

func (s *csSource) List(ctx context.Context, req listRequest) (*listResponse, error) {
	pageSize := req.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	infos, next, err := s.repo.List(ctx, pageSize, req.pageToken)
	if err != nil {
		return nil, err
	}

	resp := &listResponse{nextPageToken: next}
	for _, info := range infos {
		resp.traces = append(resp.traces, traceSummary{
			TraceID:   info.TraceID,
			Size:      info.Size,
			UpdatedAt: info.Updated,
		})
	}
	return resp, nil
}

func (s *csSource) Get(ctx context.Context, traceID string) (*trace.Trace, error) {
	if err := validateTraceID(traceID); err != nil {
		return nil, err
	}
	t, err := s.repo.Load(ctx, traceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, goerr.Wrap(errTraceNotFound, "no trace object", goerr.V("traceID", traceID))
	}
	return t, err
}
