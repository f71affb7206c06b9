// Package metrics holds the fixed set of game instruments and records
// observations against them by name.
package metrics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used for every game instrument.
const MeterName = "sregame"

// Instrument names.
const (
	FrameTime            = "game.frame_time"
	SystemExecutionTime  = "game.system.execution_time"
	DialogueReadingSpeed = "game.dialogue.reading_speed"
	InteractionDuration  = "game.interaction.duration"
	InteractionsTotal    = "game.interactions.total"
	DialogueLinesRead    = "game.dialogue_lines_read"
	MapTransitions       = "game.map_transitions"
)

var (
	// ErrUnknownInstrument is returned by Record for a name outside the fixed set.
	ErrUnknownInstrument = goerr.New("unknown instrument")
	// ErrNegativeCounter is returned when a counter would be decremented.
	ErrNegativeCounter = goerr.New("counter value must not be negative")
	// ErrInvalidCounterValue is returned when a counter increment is not a
	// whole number that fits in int64.
	ErrInvalidCounterValue = goerr.New("counter value must be a finite integer")
)

// Registry owns the seven game instruments. It is safe for concurrent use.
type Registry struct {
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
}

type instrumentDef struct {
	name, desc, unit string
}

var instrumentDefs = []instrumentDef{
	{FrameTime, "Frame rendering time in milliseconds", "ms"},
	{SystemExecutionTime, "System execution time in milliseconds", "ms"},
	{DialogueReadingSpeed, "Characters per second during dialogue reading", "chars/s"},
	{InteractionDuration, "Duration of player interactions in seconds", "s"},
}

var counterDefs = []instrumentDef{
	{InteractionsTotal, "Total number of player interactions", "1"},
	{DialogueLinesRead, "Total number of dialogue lines displayed", "1"},
	{MapTransitions, "Total number of map transitions", "1"},
}

// New creates every instrument on meter. It is called once per process.
func New(meter metric.Meter) (*Registry, error) {
	r := &Registry{
		histograms: make(map[string]metric.Float64Histogram, len(instrumentDefs)),
		counters:   make(map[string]metric.Int64Counter, len(counterDefs)),
	}

	for _, def := range instrumentDefs {
		h, err := meter.Float64Histogram(def.name,
			metric.WithDescription(def.desc),
			metric.WithUnit(def.unit),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create histogram", goerr.V("name", def.name))
		}
		r.histograms[def.name] = h
	}

	for _, def := range counterDefs {
		c, err := meter.Int64Counter(def.name,
			metric.WithDescription(def.desc),
			metric.WithUnit(def.unit),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create counter", goerr.V("name", def.name))
		}
		r.counters[def.name] = c
	}

	return r, nil
}

// Names returns every instrument name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.histograms)+len(r.counters))
	for name := range r.histograms {
		names = append(names, name)
	}
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record adds value to the named instrument. Histograms record the value as
// is; counters are incremented by it and accept only whole numbers. Labels are
// attached as attributes without any cardinality check.
func (r *Registry) Record(ctx context.Context, name string, value float64, labels map[string]string) error {
	opt := metric.WithAttributes(labelAttrs(labels)...)

	if h, ok := r.histograms[name]; ok {
		h.Record(ctx, value, opt)
		return nil
	}

	if c, ok := r.counters[name]; ok {
		if value < 0 {
			return goerr.Wrap(ErrNegativeCounter, "failed to record counter",
				goerr.V("name", name),
				goerr.V("value", value),
			)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) || value >= math.MaxInt64 {
			return goerr.Wrap(ErrInvalidCounterValue, "failed to record counter",
				goerr.V("name", name),
				goerr.V("value", value),
			)
		}
		c.Add(ctx, int64(value), opt)
		return nil
	}

	return goerr.Wrap(ErrUnknownInstrument, "failed to record metric", goerr.V("name", name))
}

// FrameTime records one frame duration in milliseconds.
func (r *Registry) FrameTime(ctx context.Context, d time.Duration) {
	r.histograms[FrameTime].Record(ctx, toMillis(d))
}

// SystemTime records the execution time of a named system in milliseconds.
func (r *Registry) SystemTime(ctx context.Context, system string, d time.Duration) {
	r.histograms[SystemExecutionTime].Record(ctx, toMillis(d),
		metric.WithAttributes(attribute.String("system", system)),
	)
}

// ReadingSpeed records the reading speed of a finished dialogue.
func (r *Registry) ReadingSpeed(ctx context.Context, speaker string, charsPerSec float64) {
	r.histograms[DialogueReadingSpeed].Record(ctx, charsPerSec,
		metric.WithAttributes(attribute.String("speaker", speaker)),
	)
}

// InteractionDuration records how long an interaction lasted, in seconds.
func (r *Registry) InteractionDuration(ctx context.Context, npc string, d time.Duration) {
	r.histograms[InteractionDuration].Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("npc", npc)),
	)
}

// Interaction counts one interaction with an NPC.
func (r *Registry) Interaction(ctx context.Context, npc string) {
	r.counters[InteractionsTotal].Add(ctx, 1,
		metric.WithAttributes(attribute.String("npc", npc)),
	)
}

// LineRead counts one dialogue line shown to completion.
func (r *Registry) LineRead(ctx context.Context, speaker string) {
	r.counters[DialogueLinesRead].Add(ctx, 1,
		metric.WithAttributes(attribute.String("speaker", speaker)),
	)
}

// MapTransition counts one map change.
func (r *Registry) MapTransition(ctx context.Context, from, to string) {
	r.counters[MapTransitions].Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func labelAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
