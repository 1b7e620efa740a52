package compactor

import (
	"github.com/rcliao/channel-memory/internal/model"
)

// Ellipsis marks text that was cut short.
const Ellipsis = "…"

// TrimText returns text unchanged when it fits in maxTokens. Otherwise it
// returns the longest prefix that, followed by an ellipsis, still fits.
// Returns "" when maxTokens <= 0.
func TrimText(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}

	runes := []rune(text)
	lo, hi := 0, len(runes)
	best := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if EstimateTokens(string(runes[:mid])+Ellipsis) <= maxTokens {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == 0 {
		return Ellipsis
	}
	return string(runes[:best]) + Ellipsis
}

// TrimMessage shrinks a message to fit budget tokens.
//
// The header (role, name, tool_call_id) is always kept. If the header alone
// exceeds the budget, the message collapses to a placeholder carrying only
// the header and an ellipsis. Otherwise the remaining budget goes to the
// content first and then to each tool call in order; the first field that
// overflows is truncated and everything after it is dropped.
func TrimMessage(m model.Message, budget int) model.Message {
	out := model.Message{Role: m.Role, Name: m.Name, ToolCallID: m.ToolCallID}
	header := EstimateMessage(out)
	if header > budget {
		out.Content = Ellipsis
		return out
	}
	remaining := budget - header

	cost := EstimateTokens(m.Content)
	if cost > remaining {
		out.Content = TrimText(m.Content, remaining)
		return out
	}
	out.Content = m.Content
	remaining -= cost

	for _, tc := range m.ToolCalls {
		cost := estimateToolCall(tc)
		if cost <= remaining {
			out.ToolCalls = append(out.ToolCalls, tc)
			remaining -= cost
			continue
		}
		fixed := EstimateTokens(tc.Type) + EstimateTokens(tc.Function.Name)
		if fixed < remaining {
			tc.Function.Arguments = TrimText(tc.Function.Arguments, remaining-fixed)
			out.ToolCalls = append(out.ToolCalls, tc)
		}
		break
	}
	return out
}
