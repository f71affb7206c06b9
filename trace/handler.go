package trace

import "context"

// Handler is the interface for trace backends.
// Implementations receive lifecycle events from the game and can record,
// export, or forward them as needed.
//
// Every Start method returns a derived context that carries the new span.
// That context is the token callers thread to later events: a child span is
// parented to whatever span the passed context holds at the moment the child
// starts.
type Handler interface {
	// StartSession starts the root session span.
	StartSession(ctx context.Context, data *SessionData) context.Context
	// EndSession ends the root session span.
	EndSession(ctx context.Context, err error)

	// StartInteraction starts a player interaction span.
	StartInteraction(ctx context.Context, data *InteractionData) context.Context
	// EndInteraction ends an interaction span.
	EndInteraction(ctx context.Context, err error)

	// StartDialogue starts a dialogue span.
	StartDialogue(ctx context.Context, data *DialogueData) context.Context
	// AddDialogueLine appends a line event to the dialogue span without ending it.
	AddDialogueLine(ctx context.Context, line *LineData)
	// EndDialogue attaches the final result and ends the dialogue span.
	EndDialogue(ctx context.Context, result *DialogueResult)

	// StartMapTransition starts a map transition span.
	StartMapTransition(ctx context.Context, data *MapTransitionData) context.Context
	// EndMapTransition ends a map transition span.
	EndMapTransition(ctx context.Context, err error)

	// AddEvent adds an event to the current span.
	AddEvent(ctx context.Context, name string, attrs map[string]any)

	// Finish completes the trace and performs any final operations.
	Finish(ctx context.Context) error
}
