package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/m-mizutani/sregame/trace"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listTracesResponse struct {
	Traces        []traceSummary `json:"traces"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (s *server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	pageSize := defaultPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid page_size parameter")
			return
		}
		pageSize = n
	}

	resp, err := s.source.List(r.Context(), listRequest{
		pageSize:  pageSize,
		pageToken: r.URL.Query().Get("page_token"),
	})
	if err != nil {
		slog.Error("failed to list traces", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list traces")
		return
	}

	traces := resp.traces
	if traces == nil {
		traces = []traceSummary{}
	}

	writeJSON(w, http.StatusOK, listTracesResponse{
		Traces:        traces,
		NextPageToken: resp.nextPageToken,
	})
}

// getTrace loads the trace named by the path and writes the error response
// when it cannot.
func (s *server) getTrace(w http.ResponseWriter, r *http.Request) (*trace.Trace, bool) {
	traceID := r.PathValue("id")
	t, err := s.source.Get(r.Context(), traceID)
	switch {
	case err == nil:
		return t, true
	case errors.Is(err, errInvalidTraceID):
		writeError(w, http.StatusBadRequest, "invalid trace ID")
	case errors.Is(err, errTraceNotFound):
		writeError(w, http.StatusNotFound, "trace not found")
	default:
		slog.Error("failed to get trace", slog.Any("error", err), slog.String("traceID", traceID))
		writeError(w, http.StatusInternalServerError, "failed to get trace")
	}
	return nil, false
}

func (s *server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	t, ok := s.getTrace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// dialogueSummary is one dialogue span of a session with the NPC interaction
// that opened it.
type dialogueSummary struct {
	SpanID       string           `json:"span_id"`
	NPC          string           `json:"npc,omitempty"`
	Speaker      string           `json:"speaker"`
	TotalLines   int              `json:"total_lines"`
	LinesRead    int              `json:"lines_read"`
	CharsRead    int              `json:"chars_read"`
	DurationSecs float64          `json:"duration_secs"`
	ReadingSpeed float64          `json:"reading_speed"`
	Completion   trace.Completion `json:"completion"`
}

type listDialoguesResponse struct {
	TraceID   string            `json:"trace_id"`
	Dialogues []dialogueSummary `json:"dialogues"`
}

func (s *server) handleListDialogues(w http.ResponseWriter, r *http.Request) {
	t, ok := s.getTrace(w, r)
	if !ok {
		return
	}

	resp := listDialoguesResponse{TraceID: t.TraceID, Dialogues: []dialogueSummary{}}
	if t.RootSpan != nil {
		resp.Dialogues = collectDialogues(t.RootSpan, "", resp.Dialogues)
	}
	writeJSON(w, http.StatusOK, resp)
}

func collectDialogues(span *trace.Span, npc string, out []dialogueSummary) []dialogueSummary {
	if span.Kind == trace.SpanKindInteraction && span.Interaction != nil {
		npc = span.Interaction.NPCName
	}
	if span.Kind == trace.SpanKindDialogue && span.Dialogue != nil {
		d := span.Dialogue
		out = append(out, dialogueSummary{
			SpanID:       span.SpanID,
			NPC:          npc,
			Speaker:      d.Speaker,
			TotalLines:   d.TotalLines,
			LinesRead:    len(d.Lines),
			CharsRead:    d.CharsRead,
			DurationSecs: d.DurationSecs,
			ReadingSpeed: d.ReadingSpeed,
			Completion:   d.Completion,
		})
	}
	for _, child := range span.Children {
		out = collectDialogues(child, npc, out)
	}
	return out
}
