package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sregame/trace"
)

const defaultPageSize = 20

type localSource struct {
	dir string
}

func newLocalSource(dir string) traceSource {
	return &localSource{dir: dir}
}

// List pages through {dir}/*.json in file name order. The page token is the
// last file name of the previous page.
func (s *localSource) List(_ context.Context, req listRequest) (*listResponse, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read directory", goerr.V("dir", s.dir))
	}

	var files []fs.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e)
		}
	}
	slices.SortFunc(files, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	if req.pageToken != "" {
		after, err := decodePageToken(req.pageToken)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid page token")
		}
		start, _ := slices.BinarySearchFunc(files, after, func(e fs.DirEntry, name string) int {
			return strings.Compare(e.Name(), name)
		})
		if start < len(files) && files[start].Name() == after {
			start++
		}
		files = files[start:]
	}

	pageSize := req.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	resp := &listResponse{}
	if len(files) > pageSize {
		resp.nextPageToken = encodePageToken(files[pageSize-1].Name())
		files = files[:pageSize]
	}

	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}
		resp.traces = append(resp.traces, traceSummary{
			TraceID:   strings.TrimSuffix(f.Name(), ".json"),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}

	return resp, nil
}

func (s *localSource) Get(_ context.Context, traceID string) (*trace.Trace, error) {
	if err := validateTraceID(traceID); err != nil {
		return nil, err
	}
	filePath := filepath.Join(s.dir, traceID+".json")

	// #nosec G304
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(errTraceNotFound, "no trace file", goerr.V("traceID", traceID))
		}
		return nil, goerr.Wrap(err, "failed to read trace file", goerr.V("traceID", traceID))
	}

	var t trace.Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to parse trace file", goerr.V("traceID", traceID))
	}

	return &t, nil
}

func encodePageToken(fileName string) string {
	return base64.URLEncoding.EncodeToString([]byte(fileName))
}

func decodePageToken(token string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", goerr.Wrap(err, "failed to decode page token")
	}
	return string(b), nil
}
