package compactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/channel-memory/internal/model"
)

func user(content string) model.Message {
	return model.Message{Role: model.RoleUser, Content: content}
}

func assistant(content string) model.Message {
	return model.Message{Role: model.RoleAssistant, Content: content}
}

func toolTurn() []model.Message {
	// costs: 4, 8, 5, 4
	return []model.Message{
		user("run tools"),
		{
			Role: model.RoleAssistant,
			ToolCalls: []model.ToolCall{{
				ID: "c1", Type: "function",
				Function: model.FunctionCall{Name: "lookup", Arguments: "{}"},
			}},
		},
		{Role: model.RoleTool, ToolCallID: "c1", Content: "result one"},
		assistant("done"),
	}
}

func TestCapSingleMessageUnderBudget(t *testing.T) {
	messages := []model.Message{{Role: "user", Content: "hi"}}
	assert.Equal(t, messages, Cap(messages, 10000))
}

func TestCapWithoutBudgetReturnsInput(t *testing.T) {
	messages := toolTurn()
	assert.Equal(t, messages, Cap(messages, 0))
}

func TestCapDropsOldestBlocks(t *testing.T) {
	messages := []model.Message{
		user("first question"),     // 5
		assistant("first answer"),  // 6
		user("second question"),    // 5
		assistant("second answer"), // 7
	}
	got, stats := CapWithStats(messages, 12)
	assert.Equal(t, messages[2:], got)
	assert.Equal(t, 1, stats.KeptBlocks)
	assert.Equal(t, 12, stats.OutputTokens)
}

func TestCapKeepsToolUnitWhole(t *testing.T) {
	messages := toolTurn()
	got := Cap(messages, 17)
	assert.Equal(t, messages[1:], got)
}

func TestCapTrimsOnlyTheBoundaryUnit(t *testing.T) {
	messages := toolTurn()
	got, stats := CapWithStats(messages, 8)
	require.Len(t, got, 2)
	assert.True(t, stats.TrimmedUnit)
	assert.Equal(t, model.RoleTool, got[0].Role)
	assert.Equal(t, "c1", got[0].ToolCallID)
	assert.Equal(t, "result …", got[0].Content)
	assert.Equal(t, assistant("done"), got[1])
}

func TestCapStopsAfterPartialBlock(t *testing.T) {
	messages := append([]model.Message{user("old question"), assistant("old answer")}, toolTurn()...)
	got := Cap(messages, 17)
	// the tool turn block does not fit whole, so nothing older is considered
	assert.Equal(t, messages[3:], got)
}

func TestCapPreservesOrderAndBudget(t *testing.T) {
	var messages []model.Message
	for i := 0; i < 4; i++ {
		messages = append(messages, user("question number one two three"))
		messages = append(messages, toolTurn()[1:]...)
	}
	total := EstimateMessages(messages)
	for budget := 1; budget <= total+5; budget++ {
		got := Cap(messages, budget)
		assert.LessOrEqual(t, EstimateMessages(got), budget, "budget %d", budget)
		assert.True(t, isRoleSubsequence(got, messages), "budget %d: order not preserved", budget)
	}
	assert.Equal(t, messages, Cap(messages, total))
}

func isRoleSubsequence(sub, full []model.Message) bool {
	j := 0
	for _, m := range full {
		if j < len(sub) && sub[j].Role == m.Role && sub[j].ToolCallID == m.ToolCallID {
			j++
		}
	}
	return j == len(sub)
}
