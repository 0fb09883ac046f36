// Package prompt assembles the text sent to a model for one move decision:
// system prompt, board rendering, few-shot examples, history, legal moves,
// retrieved knowledge, and retry feedback, compressed to a character budget.
package prompt

// DefaultSystemPromptID is the registry fallback.
const DefaultSystemPromptID = "default"

// systemPrompts is the built-in registry. Resolution happens once at config
// time; an unknown id falls back to default and the effective id is frozen
// into the resolved config.
var systemPrompts = map[string]string{
	"default": "You are a chess player. You will be shown the current position and " +
		"must choose one move. Reply with exactly one legal move in UCI notation " +
		"(for example e2e4 or e7e8q) and nothing else.",
	"reasoning": "You are a strong chess player. Think through candidate moves, checks, " +
		"captures, and threats before answering, then end your reply with your " +
		"chosen move on its own line in UCI notation (for example e2e4).",
	"terse": "Reply with one legal chess move in UCI notation. No commentary.",
	"coach": "You are a chess coach demonstrating sound, principled play. Pick the move " +
		"a strong teacher would recommend and reply with it in UCI notation only.",
}

// KnownSystemPrompt reports whether an id exists in the registry. The config
// resolver uses this to decide fallback before hashing.
func KnownSystemPrompt(id string) bool {
	_, ok := systemPrompts[id]
	return ok
}

// SystemPrompt returns the text for an id, falling back to default.
func SystemPrompt(id string) string {
	if text, ok := systemPrompts[id]; ok {
		return text
	}
	return systemPrompts[DefaultSystemPromptID]
}

// SystemPromptIDs lists registry ids for diagnostics.
func SystemPromptIDs() []string {
	ids := make([]string, 0, len(systemPrompts))
	for id := range systemPrompts {
		ids = append(ids, id)
	}
	return ids
}
