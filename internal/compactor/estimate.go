package compactor

import (
	"unicode/utf8"

	"github.com/rcliao/channel-memory/internal/model"
)

// charsPerToken is the fixed character-to-token ratio of the estimate.
const charsPerToken = 4

// EstimateTokens approximates the token cost of text as ceil(chars/4).
// Characters are counted as runes.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// EstimateMessage sums the estimate over every textual field of a message.
func EstimateMessage(m model.Message) int {
	total := EstimateTokens(m.Role) +
		EstimateTokens(m.Name) +
		EstimateTokens(m.Content) +
		EstimateTokens(m.ToolCallID)
	for _, tc := range m.ToolCalls {
		total += estimateToolCall(tc)
	}
	return total
}

// EstimateMessages sums EstimateMessage over a slice.
func EstimateMessages(messages []model.Message) int {
	total := 0
	for i := range messages {
		total += EstimateMessage(messages[i])
	}
	return total
}

func estimateToolCall(tc model.ToolCall) int {
	return EstimateTokens(tc.Type) + EstimateTokens(tc.Function.Name) + EstimateTokens(tc.Function.Arguments)
}
