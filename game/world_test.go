package game_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/sregame"
	"github.com/m-mizutani/sregame/game"
	"github.com/m-mizutani/sregame/internal"
	"github.com/m-mizutani/sregame/metrics"
	"github.com/m-mizutani/sregame/trace"
	sdkMetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const dt = game.CharInterval

// countingHandler records spans and counts dialogue start and end calls.
type countingHandler struct {
	*trace.Recorder
	starts int
	ends   int
}

func (h *countingHandler) StartDialogue(ctx context.Context, data *trace.DialogueData) context.Context {
	h.starts++
	return h.Recorder.StartDialogue(ctx, data)
}

func (h *countingHandler) EndDialogue(ctx context.Context, result *trace.DialogueResult) {
	h.ends++
	h.Recorder.EndDialogue(ctx, result)
}

type fixture struct {
	world   *game.World
	handler *countingHandler
	reader  *sdkMetric.ManualReader
	session *sregame.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reader := sdkMetric.NewManualReader()
	mp := sdkMetric.NewMeterProvider(sdkMetric.WithReader(reader))
	reg, err := metrics.New(mp.Meter(metrics.MeterName))
	gt.NoError(t, err)

	h := &countingHandler{Recorder: trace.New()}
	inst := sregame.New(
		sregame.WithTrace(h),
		sregame.WithMetrics(reg),
		sregame.WithLogger(internal.TestLogger()),
	)
	session, err := inst.StartSession(context.Background())
	gt.NoError(t, err)

	return &fixture{
		world:   game.NewWorld(inst, session, game.WithLogger(internal.TestLogger())),
		handler: h,
		reader:  reader,
		session: session,
	}
}

func (f *fixture) loadTown(t *testing.T) {
	t.Helper()
	m, err := game.BuiltinMap("town_of_endgame")
	gt.NoError(t, err)
	gt.NoError(t, f.world.LoadMap(m))
}

func (f *fixture) spans(kind trace.SpanKind) []*trace.Span {
	var out []*trace.Span
	var walk func(*trace.Span)
	walk = func(s *trace.Span) {
		if s.Kind == kind {
			out = append(out, s)
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(f.handler.Trace().RootSpan)
	return out
}

func (f *fixture) spanByID(id string) *trace.Span {
	var found *trace.Span
	var walk func(*trace.Span)
	walk = func(s *trace.Span) {
		if s.SpanID == id {
			found = s
		}
		for _, c := range s.Children {
			walk(c)
		}
	}
	walk(f.handler.Trace().RootSpan)
	return found
}

func (f *fixture) metrics(t *testing.T) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	gt.NoError(t, f.reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func (f *fixture) walkTo(t *testing.T, target game.Vec2) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000 && f.world.Player().Distance(target) > 8; i++ {
		f.world.Tick(ctx, dt, game.Input{Move: target.Sub(f.world.Player())})
	}
	gt.True(t, f.world.Player().Distance(target) <= 8)
}

func (f *fixture) npc(t *testing.T, name string) *game.NPC {
	t.Helper()
	for _, npc := range f.world.NPCs() {
		if npc.Name == name {
			return npc
		}
	}
	t.Fatalf("npc %s not found", name)
	return nil
}

func (f *fixture) talkTo(t *testing.T, name string) {
	t.Helper()
	f.walkTo(t, f.npc(t, name).Pos)
	f.world.Tick(context.Background(), dt, game.Input{Interact: true})
	gt.True(t, f.world.InDialogue())
	gt.Equal(t, f.world.State(), game.StateDialogue)
}

func (f *fixture) waitLine(t *testing.T) {
	t.Helper()
	for i := 0; i < 1000 && !f.world.LineShown(); i++ {
		f.world.Tick(context.Background(), dt, game.Input{})
	}
	gt.True(t, f.world.LineShown())
}

func TestLoadMap(t *testing.T) {
	f := newFixture(t)
	gt.Equal(t, f.world.State(), game.StateLoading)

	f.loadTown(t)
	gt.Equal(t, f.world.State(), game.StatePlaying)
	gt.A(t, f.world.NPCs()).Length(3)
	gt.Equal(t, f.world.Player(), game.Vec2{})
	gt.Equal(t, f.npc(t, "Evie").Pos, game.Vec2{X: -216, Y: -96})

	transitions := f.spans(trace.SpanKindMapTransition)
	gt.A(t, transitions).Length(1)
	gt.Equal(t, transitions[0].MapTransition.From, "")
	gt.Equal(t, transitions[0].MapTransition.To, "town_of_endgame")
	gt.Equal(t, transitions[0].Status, trace.SpanStatusOK)
	gt.True(t, transitions[0].Ended())
}

func TestLoadMapInvalid(t *testing.T) {
	f := newFixture(t)
	err := f.world.LoadMap(&game.MapData{Name: "void"})
	gt.Error(t, err)
	gt.Equal(t, f.world.State(), game.StateLoading)

	transitions := f.spans(trace.SpanKindMapTransition)
	gt.A(t, transitions).Length(1)
	gt.Equal(t, transitions[0].Status, trace.SpanStatusError)
}

func TestMovement(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	ctx := context.Background()

	f.world.Tick(ctx, time.Second, game.Input{Move: game.Vec2{X: 1}})
	gt.Equal(t, f.world.Player(), game.Vec2{X: game.PlayerSpeed})

	f.world.Tick(ctx, time.Second, game.Input{Move: game.Vec2{X: -1, Y: -1}})
	moved := f.world.Player().Distance(game.Vec2{X: game.PlayerSpeed})
	gt.True(t, math.Abs(moved-game.PlayerSpeed) < 1e-9)

	gt.Equal(t, f.world.Frames(), 2)
	gt.Equal(t, f.world.Clock(), 2*time.Second)
}

func TestInteractOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)

	f.world.Tick(context.Background(), dt, game.Input{Interact: true})
	gt.False(t, f.world.InDialogue())
	gt.A(t, f.spans(trace.SpanKindInteraction)).Length(0)
}

func TestProximity(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.walkTo(t, f.npc(t, "Mando").Pos)

	gt.True(t, f.npc(t, "Mando").InRange)
	gt.False(t, f.npc(t, "Evie").InRange)
	gt.False(t, f.npc(t, "Casey").InRange)
}

func TestClosestInRange(t *testing.T) {
	npcs := []*game.NPC{
		{Name: "far", Pos: game.Vec2{X: 60}, Radius: game.InteractRadius},
		{Name: "near", Pos: game.Vec2{X: -20}, Radius: game.InteractRadius},
		{Name: "outside", Pos: game.Vec2{X: 500}, Radius: game.InteractRadius},
	}
	game.UpdateProximity(game.Vec2{}, npcs)
	gt.True(t, npcs[0].InRange)
	gt.True(t, npcs[1].InRange)
	gt.False(t, npcs[2].InRange)

	npc, distance := game.ClosestInRange(game.Vec2{}, npcs)
	gt.Equal(t, npc.Name, "near")
	gt.Equal(t, distance, 20.0)

	game.UpdateProximity(game.Vec2{X: 1000}, npcs)
	npc, _ = game.ClosestInRange(game.Vec2{X: 1000}, npcs)
	gt.Value(t, npc).Nil()
}

func TestDialogueNormalCompletion(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.talkTo(t, "Evie")

	for i := 0; i < 3; i++ {
		f.waitLine(t)
		gt.Equal(t, f.world.DialogueLine(), i)
		f.world.Tick(context.Background(), dt, game.Input{Advance: true})
	}
	gt.False(t, f.world.InDialogue())
	gt.Equal(t, f.world.State(), game.StatePlaying)
	gt.Equal(t, f.world.DialogueLine(), -1)

	interactions := f.spans(trace.SpanKindInteraction)
	gt.A(t, interactions).Length(1)
	gt.Equal(t, interactions[0].Interaction.NPCName, "Evie")
	gt.True(t, interactions[0].Ended())

	dialogues := f.spans(trace.SpanKindDialogue)
	gt.A(t, dialogues).Length(1)
	d := dialogues[0]
	gt.Equal(t, d.ParentID, interactions[0].SpanID)
	gt.True(t, d.Ended())
	gt.Equal(t, d.Dialogue.Speaker, "Evie")
	gt.Equal(t, d.Dialogue.Completion, trace.CompletionNormal)
	gt.Equal(t, d.Dialogue.CharsRead, 45)
	gt.A(t, d.Dialogue.Lines).Length(3)
	gt.N(t, d.Dialogue.DurationSecs).Greater(0)
	gt.True(t, math.Abs(d.Dialogue.ReadingSpeed-45/d.Dialogue.DurationSecs) < 1e-9)

	gt.Equal(t, f.handler.starts, 1)
	gt.Equal(t, f.handler.ends, 1)
}

func TestDialogueSkipLine(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.talkTo(t, "Mando")
	gt.False(t, f.world.LineShown())

	f.world.Tick(context.Background(), dt, game.Input{Advance: true})
	gt.True(t, f.world.LineShown())
	gt.Equal(t, f.world.DialogueLine(), 0)

	f.world.Tick(context.Background(), dt, game.Input{Advance: true})
	gt.Equal(t, f.world.DialogueLine(), 1)
	f.world.Tick(context.Background(), dt, game.Input{Advance: true})
	f.world.Tick(context.Background(), dt, game.Input{Advance: true})
	gt.False(t, f.world.InDialogue())

	d := f.spans(trace.SpanKindDialogue)[0]
	gt.Equal(t, d.Dialogue.Completion, trace.CompletionNormal)
	gt.A(t, d.Dialogue.Lines).Length(2)
	gt.Equal(t, d.Dialogue.CharsRead, len("This is the way.")+len("Keep your pager close. Incidents never sleep."))
}

func TestDialogueEscape(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.talkTo(t, "Evie")
	f.waitLine(t)

	f.world.Tick(context.Background(), dt, game.Input{Escape: true})
	gt.False(t, f.world.InDialogue())
	gt.Equal(t, f.world.State(), game.StatePlaying)

	d := f.spans(trace.SpanKindDialogue)[0]
	gt.Equal(t, d.Dialogue.Completion, trace.CompletionForced)
	gt.Equal(t, d.Dialogue.CharsRead, len("Welcome, hero!!"))
	gt.A(t, d.Dialogue.Lines).Length(1)
	gt.Equal(t, f.handler.ends, 1)
}

func TestCloseEndsOpenDialogue(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.talkTo(t, "Casey")

	f.world.Close()
	f.world.Close()
	gt.False(t, f.world.InDialogue())

	d := f.spans(trace.SpanKindDialogue)[0]
	gt.True(t, d.Ended())
	gt.Equal(t, d.Dialogue.Completion, trace.CompletionForced)
	gt.Equal(t, f.handler.starts, 1)
	gt.Equal(t, f.handler.ends, 1)
}

func TestLoadMapClosesDialogue(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	f.talkTo(t, "Evie")

	m, err := game.BuiltinMap("town_of_endgame")
	gt.NoError(t, err)
	gt.NoError(t, f.world.LoadMap(m))
	gt.False(t, f.world.InDialogue())
	gt.Equal(t, f.handler.ends, 1)

	transitions := f.spans(trace.SpanKindMapTransition)
	gt.A(t, transitions).Length(2)
	gt.Equal(t, transitions[1].MapTransition.From, "town_of_endgame")
}

func TestDialogueWithoutLines(t *testing.T) {
	f := newFixture(t)
	gt.NoError(t, f.world.LoadMap(&game.MapData{
		Name:   "quiet",
		Width:  2,
		Height: 2,
		NPCs: []game.NPCData{
			{Name: "Mute", X: 1, Y: 1, Dialogue: game.DialogueData{Speaker: "Mute"}},
		},
	}))

	f.world.Tick(context.Background(), dt, game.Input{Interact: true})
	gt.False(t, f.world.InDialogue())
	gt.Equal(t, f.world.State(), game.StatePlaying)

	d := f.spans(trace.SpanKindDialogue)[0]
	gt.True(t, d.Ended())
	gt.Equal(t, d.Dialogue.Completion, trace.CompletionNormal)
	gt.Equal(t, d.Dialogue.CharsRead, 0)
}

func TestTickRecordsTiming(t *testing.T) {
	f := newFixture(t)
	f.loadTown(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.world.Tick(ctx, dt, game.Input{})
	}

	ms := f.metrics(t)
	frames, ok := ms[metrics.FrameTime].Data.(metricdata.Histogram[float64])
	gt.True(t, ok)
	gt.A(t, frames.DataPoints).Length(1)
	gt.Equal(t, frames.DataPoints[0].Count, uint64(5))

	systems, ok := ms[metrics.SystemExecutionTime].Data.(metricdata.Histogram[float64])
	gt.True(t, ok)
	names := map[string]uint64{}
	for _, dp := range systems.DataPoints {
		v, _ := dp.Attributes.Value("system")
		names[v.AsString()] = dp.Count
	}
	gt.Equal(t, names["player_movement"], uint64(5))
	gt.Equal(t, names["npc_proximity"], uint64(5))
	gt.Equal(t, names["npc_interaction"], uint64(5))
	_, ok = names["dialogue_typewriter"]
	gt.False(t, ok)
}
