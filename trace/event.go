package trace

// Event names shared by every Handler implementation.
const (
	EventDialogueCreated = "dialogue.resources_created"
	EventLineDisplayed   = "dialogue.line_displayed"
	EventDialogueRemoved = "dialogue.resources_removed"
)

// DialogueCreatedAttrs returns the attributes of the event added when a
// dialogue span starts.
func DialogueCreatedAttrs(data *DialogueData) map[string]any {
	return map[string]any{
		"queue.lines":   data.TotalLines,
		"queue.speaker": data.Speaker,
	}
}

// LineAttrs returns the attributes of a line displayed event.
func LineAttrs(line *LineData) map[string]any {
	return map[string]any{
		"line.index":   line.Index,
		"line.length":  line.Length,
		"line.preview": line.Preview,
	}
}

// DialogueRemovedAttrs returns the attributes of the closing dialogue event.
func DialogueRemovedAttrs(result *DialogueResult) map[string]any {
	return map[string]any{
		"cleanup.type":       string(result.Completion),
		"dialogue.completed": result.Completion == CompletionNormal,
	}
}
