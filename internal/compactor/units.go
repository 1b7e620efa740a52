package compactor

import (
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
)

// span is a half-open range [start, end) of indexes into a message slice.
type span struct {
	start int
	end   int
}

// BundleUnits groups messages into atomic units. An assistant message with
// tool calls absorbs the immediately following tool messages that answer one
// of its call ids; scanning stops at the first message that does not. Every
// other message is a unit of its own. Unit order follows message order.
func BundleUnits(messages []model.Message) [][]model.Message {
	spans := bundleUnits(messages)
	units := make([][]model.Message, len(spans))
	for i, s := range spans {
		units[i] = messages[s.start:s.end]
	}
	return units
}

func bundleUnits(messages []model.Message) []span {
	var units []span
	for i := 0; i < len(messages); {
		m := messages[i]
		end := i + 1
		if m.Role == model.RoleAssistant && len(m.ToolCalls) > 0 {
			ids := make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				ids[tc.ID] = true
			}
			for end < len(messages) && messages[end].Role == model.RoleTool && ids[messages[end].ToolCallID] {
				end++
			}
		}
		units = append(units, span{start: i, end: end})
		i = end
	}
	return units
}

// SegmentBlocks splits messages into blocks that each start at a user
// message with non-blank content. Messages preceding the first user turn
// belong to the first block. Without any user turn the whole list is one
// block.
func SegmentBlocks(messages []model.Message) [][]model.Message {
	spans := segmentBlocks(messages)
	blocks := make([][]model.Message, len(spans))
	for i, s := range spans {
		blocks[i] = messages[s.start:s.end]
	}
	return blocks
}

func segmentBlocks(messages []model.Message) []span {
	var starts []int
	for i, m := range messages {
		if m.Role == model.RoleUser && strings.TrimSpace(m.Content) != "" {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		if len(messages) == 0 {
			return nil
		}
		return []span{{start: 0, end: len(messages)}}
	}

	blocks := make([]span, 0, len(starts))
	starts[0] = 0
	for i, start := range starts {
		end := len(messages)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks = append(blocks, span{start: start, end: end})
	}
	return blocks
}
