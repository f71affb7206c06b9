// Package otel provides an OpenTelemetry trace handler for sregame.
//
// It bridges the game's trace events to OpenTelemetry spans, allowing
// integration with any OTel-compatible backend (Jaeger, Tempo, OTLP, etc.).
//
// Basic usage with global TracerProvider:
//
//	inst := sregame.New(sregame.WithTrace(otel.New()))
//
// With explicit TracerProvider:
//
//	inst := sregame.New(sregame.WithTrace(
//	    otel.New(otel.WithTracerProvider(tp)),
//	))
package otel

import (
	"context"

	"github.com/m-mizutani/sregame/trace"
	otelAPI "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/m-mizutani/sregame"
)

// Option is a functional option for configuring the OTel handler.
type Option func(*handler)

// WithTracerProvider sets an explicit TracerProvider.
// If not set, the global TracerProvider is used.
func WithTracerProvider(tp otelTrace.TracerProvider) Option {
	return func(h *handler) {
		h.tracerProvider = tp
	}
}

// handler implements trace.Handler by bridging events to OpenTelemetry spans.
// The parent of every span is taken from the ctx passed to Start*, never
// from an ambient current span.
type handler struct {
	tracerProvider otelTrace.TracerProvider
	tracer         otelTrace.Tracer
}

// New creates a new OTel trace handler.
// If no TracerProvider is specified via options, the global TracerProvider is used.
func New(opts ...Option) trace.Handler {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}

	if h.tracerProvider == nil {
		h.tracerProvider = otelAPI.GetTracerProvider()
	}
	h.tracer = h.tracerProvider.Tracer(tracerName)

	return h
}

func (h *handler) StartSession(ctx context.Context, data *trace.SessionData) context.Context {
	ctx, span := h.tracer.Start(ctx, "game_session",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			sessionStartTimeAttr(data.StartedAt),
			gameVersionAttr(data.Version),
		)
	}
	return ctx
}

func (h *handler) EndSession(ctx context.Context, err error) {
	end(ctx, err)
}

func (h *handler) StartInteraction(ctx context.Context, data *trace.InteractionData) context.Context {
	ctx, span := h.tracer.Start(ctx, "npc.interaction",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			attribute.String("npc.name", data.NPCName),
			attribute.String("interaction.type", data.Type),
			attribute.Float64("interaction.distance", data.Distance),
			elapsedAttr(data.Elapsed),
		)
		span.SetAttributes(positionAttrs(data.Position)...)
	}
	return ctx
}

func (h *handler) EndInteraction(ctx context.Context, err error) {
	end(ctx, err)
}

func (h *handler) StartDialogue(ctx context.Context, data *trace.DialogueData) context.Context {
	ctx, span := h.tracer.Start(ctx, "dialogue.session",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			attribute.String("dialogue.speaker", data.Speaker),
			attribute.Int("dialogue.total_lines", data.TotalLines),
		)
		span.AddEvent(trace.EventDialogueCreated,
			otelTrace.WithAttributes(toAttributes(trace.DialogueCreatedAttrs(data))...),
		)
	}
	return ctx
}

func (h *handler) AddDialogueLine(ctx context.Context, line *trace.LineData) {
	if line == nil {
		return
	}
	span := otelTrace.SpanFromContext(ctx)
	span.AddEvent(trace.EventLineDisplayed,
		otelTrace.WithAttributes(toAttributes(trace.LineAttrs(line))...),
	)
}

func (h *handler) EndDialogue(ctx context.Context, result *trace.DialogueResult) {
	span := otelTrace.SpanFromContext(ctx)
	if result != nil {
		span.SetAttributes(
			attribute.Int("dialogue.chars_read", result.CharsRead),
			attribute.Float64("dialogue.duration_secs", result.DurationSecs),
			attribute.Float64("dialogue.reading_speed", result.ReadingSpeed),
		)
		span.AddEvent(trace.EventDialogueRemoved,
			otelTrace.WithAttributes(toAttributes(trace.DialogueRemovedAttrs(result))...),
		)
	}
	span.End()
}

func (h *handler) StartMapTransition(ctx context.Context, data *trace.MapTransitionData) context.Context {
	ctx, span := h.tracer.Start(ctx, "map.transition",
		otelTrace.WithSpanKind(otelTrace.SpanKindInternal),
	)
	if data != nil {
		span.SetAttributes(
			attribute.String("map.from", data.From),
			attribute.String("map.to", data.To),
			elapsedAttr(data.Elapsed),
		)
		span.SetAttributes(positionAttrs(data.Position)...)
	}
	return ctx
}

func (h *handler) EndMapTransition(ctx context.Context, err error) {
	end(ctx, err)
}

func (h *handler) AddEvent(ctx context.Context, name string, attrs map[string]any) {
	span := otelTrace.SpanFromContext(ctx)
	span.AddEvent(name, otelTrace.WithAttributes(toAttributes(attrs)...))
}

func (h *handler) Finish(_ context.Context) error {
	// OTel spans are exported by the TracerProvider's SpanProcessor.
	// No additional finalization is needed here.
	return nil
}

func end(ctx context.Context, err error) {
	span := otelTrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
