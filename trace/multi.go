package trace

import (
	"context"
	"errors"
)

// multiHandler fans out trace events to multiple Handler implementations.
// Each handler receives its own isolated context to prevent interference
// (e.g., two Recorders sharing the same context key).
type multiHandler struct {
	handlers []Handler
}

// Multi creates a Handler that forwards all events to the given handlers.
// Each handler maintains its own context state, so multiple Recorders
// or any combination of handlers work correctly without interference.
// Nil handlers are skipped.
func Multi(handlers ...Handler) Handler {
	m := &multiHandler{}
	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
	return m
}

// multiCtxKey is the context key for per-handler contexts.
type multiCtxKey struct{}

// getContexts retrieves per-handler contexts from the context.
// If not found, returns the base context for each handler.
func (m *multiHandler) getContexts(ctx context.Context) []context.Context {
	if v, ok := ctx.Value(multiCtxKey{}).([]context.Context); ok && len(v) == len(m.handlers) {
		return v
	}
	ctxs := make([]context.Context, len(m.handlers))
	for i := range ctxs {
		ctxs[i] = ctx
	}
	return ctxs
}

// wrapContexts stores per-handler contexts into a new context.
func (m *multiHandler) wrapContexts(base context.Context, handlerCtxs []context.Context) context.Context {
	return context.WithValue(base, multiCtxKey{}, handlerCtxs)
}

// start runs fn for every handler against its own parent context.
func (m *multiHandler) start(ctx context.Context, fn func(h Handler, ctx context.Context) context.Context) context.Context {
	parentCtxs := m.getContexts(ctx)
	handlerCtxs := make([]context.Context, len(m.handlers))
	for i, h := range m.handlers {
		handlerCtxs[i] = fn(h, parentCtxs[i])
	}
	return m.wrapContexts(ctx, handlerCtxs)
}

func (m *multiHandler) each(ctx context.Context, fn func(h Handler, ctx context.Context)) {
	ctxs := m.getContexts(ctx)
	for i, h := range m.handlers {
		fn(h, ctxs[i])
	}
}

func (m *multiHandler) StartSession(ctx context.Context, data *SessionData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartSession(c, data)
	})
}

func (m *multiHandler) EndSession(ctx context.Context, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndSession(c, err) })
}

func (m *multiHandler) StartInteraction(ctx context.Context, data *InteractionData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartInteraction(c, data)
	})
}

func (m *multiHandler) EndInteraction(ctx context.Context, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndInteraction(c, err) })
}

func (m *multiHandler) StartDialogue(ctx context.Context, data *DialogueData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartDialogue(c, data)
	})
}

func (m *multiHandler) AddDialogueLine(ctx context.Context, line *LineData) {
	m.each(ctx, func(h Handler, c context.Context) { h.AddDialogueLine(c, line) })
}

func (m *multiHandler) EndDialogue(ctx context.Context, result *DialogueResult) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndDialogue(c, result) })
}

func (m *multiHandler) StartMapTransition(ctx context.Context, data *MapTransitionData) context.Context {
	return m.start(ctx, func(h Handler, c context.Context) context.Context {
		return h.StartMapTransition(c, data)
	})
}

func (m *multiHandler) EndMapTransition(ctx context.Context, err error) {
	m.each(ctx, func(h Handler, c context.Context) { h.EndMapTransition(c, err) })
}

func (m *multiHandler) AddEvent(ctx context.Context, name string, attrs map[string]any) {
	m.each(ctx, func(h Handler, c context.Context) { h.AddEvent(c, name, attrs) })
}

func (m *multiHandler) Finish(ctx context.Context) error {
	var errs []error
	for _, h := range m.handlers {
		if err := h.Finish(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
