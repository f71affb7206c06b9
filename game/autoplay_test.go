package game_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/sregame/game"
	"github.com/m-mizutani/sregame/metrics"
	"github.com/m-mizutani/sregame/trace"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestAutoplay(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)

	frames := game.Run(context.Background(), f.world, game.NewAutoplay(f.world, true), dt, 10000)
	gt.N(t, frames).Greater(0)
	gt.True(t, frames < 10000)
	f.world.Close()
	f.session.End(nil)

	gt.Equal(t, f.handler.starts, 3)
	gt.Equal(t, f.handler.ends, 3)

	completions := map[trace.Completion]int{}
	for _, d := range f.spans(trace.SpanKindDialogue) {
		gt.True(t, d.Ended())
		parent := f.spanByID(d.ParentID)
		gt.Value(t, parent).NotNil()
		gt.Equal(t, parent.Kind, trace.SpanKindInteraction)
		gt.Equal(t, parent.Interaction.NPCName, d.Dialogue.Speaker)
		completions[d.Dialogue.Completion]++
	}
	gt.Equal(t, completions[trace.CompletionNormal], 2)
	gt.Equal(t, completions[trace.CompletionForced], 1)

	ms := f.metrics(t)
	interactions, ok := ms[metrics.InteractionsTotal].Data.(metricdata.Sum[int64])
	gt.True(t, ok)
	var total int64
	for _, dp := range interactions.DataPoints {
		total += dp.Value
	}
	gt.Equal(t, total, int64(3))

	lines, ok := ms[metrics.DialogueLinesRead].Data.(metricdata.Sum[int64])
	gt.True(t, ok)
	total = 0
	for _, dp := range lines.DataPoints {
		total += dp.Value
	}
	// Evie 3, Mando 2, Casey leaves after the first line
	gt.Equal(t, total, int64(6))
}

func TestAutoplayStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := game.Run(ctx, f.world, game.NewAutoplay(f.world, false), dt, 0)
	gt.Equal(t, frames, 0)
}

func TestAutoplayMaxFrames(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)

	frames := game.Run(context.Background(), f.world, game.NewAutoplay(f.world, false), dt, 10)
	gt.Equal(t, frames, 10)
}
