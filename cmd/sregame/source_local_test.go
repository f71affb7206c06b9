package main_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	main "github.com/m-mizutani/sregame/cmd/sregame"
	"github.com/m-mizutani/sregame/trace"
)

func TestLocalSourceList(t *testing.T) {
	ctx := context.Background()

	t.Run("list all traces", func(t *testing.T) {
		src := main.NewLocalSource("testdata")
		resp := gt.R1(src.List(ctx, 10, "")).NoError(t)
		gt.Equal(t, 3, len(resp.Traces))
		gt.Equal(t, "trace-001", resp.Traces[0].TraceID)
		gt.Equal(t, "trace-002", resp.Traces[1].TraceID)
		gt.Equal(t, "trace-003", resp.Traces[2].TraceID)
		gt.Equal(t, "", resp.NextPageToken)
	})

	t.Run("pagination", func(t *testing.T) {
		src := main.NewLocalSource("testdata")
		resp1 := gt.R1(src.List(ctx, 2, "")).NoError(t)
		gt.Equal(t, 2, len(resp1.Traces))
		gt.True(t, resp1.NextPageToken != "")

		resp2 := gt.R1(src.List(ctx, 2, resp1.NextPageToken)).NoError(t)
		gt.Equal(t, 1, len(resp2.Traces))
		gt.Equal(t, "trace-003", resp2.Traces[0].TraceID)
		gt.Equal(t, "", resp2.NextPageToken)
	})

	t.Run("exact page boundary", func(t *testing.T) {
		src := main.NewLocalSource("testdata")
		resp := gt.R1(src.List(ctx, 3, "")).NoError(t)
		gt.Equal(t, 3, len(resp.Traces))
		gt.Equal(t, "", resp.NextPageToken)
	})

	t.Run("ignores other files", func(t *testing.T) {
		dir := t.TempDir()
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0600))
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
		gt.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0750))

		resp := gt.R1(main.NewLocalSource(dir).List(ctx, 10, "")).NoError(t)
		gt.Equal(t, 1, len(resp.Traces))
		gt.Equal(t, "a", resp.Traces[0].TraceID)
	})

	t.Run("empty directory", func(t *testing.T) {
		resp := gt.R1(main.NewLocalSource(t.TempDir()).List(ctx, 10, "")).NoError(t)
		gt.Equal(t, 0, len(resp.Traces))
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := main.NewLocalSource("/nonexistent").List(ctx, 10, "")
		gt.Error(t, err)
	})

	t.Run("default page size", func(t *testing.T) {
		resp := gt.R1(main.NewLocalSource("testdata").List(ctx, 0, "")).NoError(t)
		gt.Equal(t, 3, len(resp.Traces))
	})
}

func TestLocalSourceGet(t *testing.T) {
	ctx := context.Background()

	t.Run("get existing trace", func(t *testing.T) {
		tr := gt.R1(main.NewLocalSource("testdata").Get(ctx, "trace-001")).NoError(t)
		gt.Equal(t, "trace-001", tr.TraceID)
		gt.Equal(t, "town_of_endgame", tr.Metadata.Map)
		gt.Value(t, tr.RootSpan).NotNil()
		gt.Equal(t, 2, len(tr.RootSpan.Children))

		interaction := tr.RootSpan.Children[1]
		gt.Equal(t, trace.SpanKindInteraction, interaction.Kind)
		gt.Equal(t, "Evie", interaction.Interaction.NPCName)
		gt.Equal(t, trace.CompletionNormal, interaction.Children[0].Dialogue.Completion)
	})

	t.Run("get trace with error status", func(t *testing.T) {
		tr := gt.R1(main.NewLocalSource("testdata").Get(ctx, "trace-002")).NoError(t)
		gt.Equal(t, trace.SpanStatusError, tr.RootSpan.Status)
		gt.Equal(t, "map load failed", tr.RootSpan.Error)
	})

	t.Run("get non-existent trace", func(t *testing.T) {
		_, err := main.NewLocalSource("testdata").Get(ctx, "non-existent")
		gt.Error(t, err)
	})

	t.Run("invalid trace ID", func(t *testing.T) {
		_, err := main.NewLocalSource("testdata").Get(ctx, "../go")
		gt.Error(t, err)
	})

	t.Run("invalid json file", func(t *testing.T) {
		dir := t.TempDir()
		gt.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0600))
		_, err := main.NewLocalSource(dir).Get(ctx, "bad")
		gt.Error(t, err)
	})
}
