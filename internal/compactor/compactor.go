package compactor

import (
	"sort"

	"github.com/rcliao/channel-memory/internal/model"
)

// Stats describes what a Cap call did.
type Stats struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	KeptMessages int  `json:"kept_messages"`
	KeptBlocks   int  `json:"kept_blocks"`
	TrimmedUnit  bool `json:"trimmed_unit"`
}

// Cap returns messages limited to roughly budget tokens. A budget <= 0
// means no limit and returns the input unchanged.
func Cap(messages []model.Message, budget int) []model.Message {
	out, _ := CapWithStats(messages, budget)
	return out
}

// CapWithStats is Cap that also reports what was dropped.
func CapWithStats(messages []model.Message, budget int) ([]model.Message, Stats) {
	stats := Stats{InputTokens: EstimateMessages(messages)}
	if budget <= 0 || len(messages) == 0 {
		stats.OutputTokens = stats.InputTokens
		stats.KeptMessages = len(messages)
		stats.KeptBlocks = len(segmentBlocks(messages))
		return messages, stats
	}

	type kept struct {
		index int
		msg   model.Message
	}
	var result []kept
	used := 0

	keepRange := func(s span) {
		for i := s.start; i < s.end; i++ {
			result = append(result, kept{index: i, msg: messages[i]})
		}
	}

	blocks := segmentBlocks(messages)
	for b := len(blocks) - 1; b >= 0; b-- {
		block := blocks[b]
		cost := EstimateMessages(messages[block.start:block.end])
		if used+cost <= budget {
			keepRange(block)
			used += cost
			stats.KeptBlocks++
			continue
		}

		// First block that does not fit: keep whole units newest first.
		units := bundleUnits(messages[block.start:block.end])
		for u := len(units) - 1; u >= 0; u-- {
			unit := span{start: block.start + units[u].start, end: block.start + units[u].end}
			cost := EstimateMessages(messages[unit.start:unit.end])
			if used+cost <= budget {
				keepRange(unit)
				used += cost
				continue
			}

			// First unit that does not fit: shrink its messages newest first.
			for i := unit.end - 1; i >= unit.start; i-- {
				remaining := budget - used
				if remaining <= 0 {
					break
				}
				trimmed := TrimMessage(messages[i], remaining)
				cost := EstimateMessage(trimmed)
				if cost > remaining {
					break
				}
				result = append(result, kept{index: i, msg: trimmed})
				used += cost
				stats.TrimmedUnit = true
			}
			break
		}
		break
	}

	sort.Slice(result, func(i, j int) bool { return result[i].index < result[j].index })
	out := make([]model.Message, len(result))
	for i, k := range result {
		out[i] = k.msg
	}
	stats.OutputTokens = used
	stats.KeptMessages = len(out)
	return out, stats
}
