// Package storage persists recorded session traces to Google Cloud Storage.
//
//	repo, err := storage.New(ctx, "my-bucket", storage.WithPrefix("traces/"))
//	rec := trace.New(trace.WithRepository(repo))
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame/trace"
	"google.golang.org/api/iterator"
)

// ErrNotFound is returned by Load when no object exists for the trace ID.
var ErrNotFound = goerr.New("trace object not found")

// Option configures a Repository.
type Option func(*Repository)

// WithPrefix sets the object name prefix. Objects are written to
// {prefix}{trace_id}.json.
func WithPrefix(prefix string) Option {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// WithClient uses an existing Cloud Storage client instead of creating one.
func WithClient(client *storage.Client) Option {
	return func(r *Repository) {
		r.client = client
	}
}

// Repository implements trace.Repository on a Cloud Storage bucket.
type Repository struct {
	bucket string
	prefix string
	client *storage.Client
}

var _ trace.Repository = (*Repository)(nil)

// New creates a Repository. Application default credentials are used unless
// WithClient is given.
func New(ctx context.Context, bucket string, opts ...Option) (*Repository, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	r := &Repository{bucket: bucket}
	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
		}
		r.client = client
	}

	return r, nil
}

// ObjectName returns the object name used for a trace ID.
func (r *Repository) ObjectName(traceID string) string {
	return r.prefix + traceID + ".json"
}

// Save writes the trace as a JSON object.
func (r *Repository) Save(ctx context.Context, t *trace.Trace) error {
	data, err := json.Marshal(t)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal trace", goerr.V("trace_id", t.TraceID))
	}

	objectName := r.ObjectName(t.TraceID)
	w := r.client.Bucket(r.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write trace object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close trace object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}

	return nil
}

// ObjectInfo describes a stored trace from its object metadata.
type ObjectInfo struct {
	TraceID string
	Size    int64
	Updated time.Time
}

// List returns one page of stored traces directly under the prefix and the
// token of the next page, which is empty on the last page.
func (r *Repository) List(ctx context.Context, pageSize int, pageToken string) ([]ObjectInfo, string, error) {
	it := r.client.Bucket(r.bucket).Objects(ctx, &storage.Query{Prefix: r.prefix})
	pager := iterator.NewPager(it, pageSize, pageToken)

	var attrs []*storage.ObjectAttrs
	next, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to list objects",
			goerr.V("bucket", r.bucket),
			goerr.V("prefix", r.prefix),
		)
	}

	infos := make([]ObjectInfo, 0, len(attrs))
	for _, attr := range attrs {
		name := strings.TrimPrefix(attr.Name, r.prefix)
		traceID, ok := strings.CutSuffix(name, ".json")
		if !ok || traceID == "" || strings.Contains(traceID, "/") {
			continue
		}
		infos = append(infos, ObjectInfo{
			TraceID: traceID,
			Size:    attr.Size,
			Updated: attr.Updated,
		})
	}
	return infos, next, nil
}

// Load reads the trace saved for traceID.
func (r *Repository) Load(ctx context.Context, traceID string) (*trace.Trace, error) {
	objectName := r.ObjectName(traceID)
	reader, err := r.client.Bucket(r.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "no trace object",
				goerr.V("bucket", r.bucket),
				goerr.V("object", objectName),
			)
		}
		return nil, goerr.Wrap(err, "failed to read trace object",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read trace data",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}

	var t trace.Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace data",
			goerr.V("bucket", r.bucket),
			goerr.V("object", objectName),
		)
	}
	return &t, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}
