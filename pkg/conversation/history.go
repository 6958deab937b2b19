package conversation

import "line-work-assistant/pkg/llm"

// Turn is one immutable message in a user's history.
type Turn struct {
	Role string
	Text string
}

func UserTurn(text string) Turn      { return Turn{Role: llm.RoleUser, Text: text} }
func AssistantTurn(text string) Turn { return Turn{Role: llm.RoleAssistant, Text: text} }

// HistoryStore owns per-user turn sequences. Append must add the turns and cut
// the sequence down to the most recent keep entries as one step.
type HistoryStore interface {
	History(userID string) []Turn
	Append(userID string, keep int, turns ...Turn)
}

// Recent returns the last n turns of history, or all of them when n <= 0.
func Recent(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
