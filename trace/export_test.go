package trace

// CurrentSpanFrom exposes the span carried by a context for testing.
var CurrentSpanFrom = currentSpanFrom
