package main_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	main "github.com/m-mizutani/sregame/cmd/sregame"
)

func serve(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	s := main.NewServer(main.WithTestSource(main.NewLocalSource("testdata")))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := serve(t, "/api/health")
	gt.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.Equal(t, "ok", resp["status"])
}

func TestHandleListTraces(t *testing.T) {
	t.Run("list all traces", func(t *testing.T) {
		rec := serve(t, "/api/traces")
		gt.Equal(t, http.StatusOK, rec.Code)
		gt.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp main.ListTracesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, 3, len(resp.Traces))
		gt.Equal(t, "", resp.NextPageToken)
	})

	t.Run("with page size", func(t *testing.T) {
		rec := serve(t, "/api/traces?page_size=2")
		gt.Equal(t, http.StatusOK, rec.Code)

		var resp main.ListTracesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, 2, len(resp.Traces))
		gt.True(t, resp.NextPageToken != "")

		rec = serve(t, "/api/traces?page_size=2&page_token="+resp.NextPageToken)
		gt.Equal(t, http.StatusOK, rec.Code)
		var next main.ListTracesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
		gt.Equal(t, 1, len(next.Traces))
		gt.Equal(t, "trace-003", next.Traces[0].TraceID)
	})

	t.Run("invalid page size", func(t *testing.T) {
		gt.Equal(t, http.StatusBadRequest, serve(t, "/api/traces?page_size=abc").Code)
		gt.Equal(t, http.StatusBadRequest, serve(t, "/api/traces?page_size=0").Code)
	})

	t.Run("invalid page token", func(t *testing.T) {
		gt.Equal(t, http.StatusInternalServerError, serve(t, "/api/traces?page_token=%25%25").Code)
	})
}

func TestHandleGetTrace(t *testing.T) {
	t.Run("get existing trace", func(t *testing.T) {
		rec := serve(t, "/api/traces/trace-001")
		gt.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, "trace-001", resp["trace_id"])
	})

	t.Run("get non-existent trace", func(t *testing.T) {
		gt.Equal(t, http.StatusNotFound, serve(t, "/api/traces/nonexistent").Code)
	})

	t.Run("reject traversal", func(t *testing.T) {
		gt.Equal(t, http.StatusBadRequest, serve(t, "/api/traces/a..b").Code)
	})
}

func TestHandleListDialogues(t *testing.T) {
	t.Run("normal dialogue", func(t *testing.T) {
		rec := serve(t, "/api/traces/trace-001/dialogues")
		gt.Equal(t, http.StatusOK, rec.Code)

		var resp main.ListDialoguesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.Equal(t, "trace-001", resp.TraceID)
		gt.A(t, resp.Dialogues).Length(1)

		d := resp.Dialogues[0]
		gt.Equal(t, "Evie", d.NPC)
		gt.Equal(t, "Evie", d.Speaker)
		gt.Equal(t, 3, d.LinesRead)
		gt.Equal(t, 45, d.CharsRead)
		gt.Equal(t, 7.5, d.ReadingSpeed)
		gt.Equal(t, "normal", string(d.Completion))
	})

	t.Run("forced dialogue", func(t *testing.T) {
		rec := serve(t, "/api/traces/trace-003/dialogues")
		gt.Equal(t, http.StatusOK, rec.Code)

		var resp main.ListDialoguesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.A(t, resp.Dialogues).Length(1)
		gt.Equal(t, "forced", string(resp.Dialogues[0].Completion))
		gt.Equal(t, 1, resp.Dialogues[0].LinesRead)
	})

	t.Run("no dialogues", func(t *testing.T) {
		rec := serve(t, "/api/traces/trace-002/dialogues")
		gt.Equal(t, http.StatusOK, rec.Code)

		var resp main.ListDialoguesResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.A(t, resp.Dialogues).Length(0)
	})

	t.Run("missing trace", func(t *testing.T) {
		gt.Equal(t, http.StatusNotFound, serve(t, "/api/traces/nope/dialogues").Code)
	})
}
