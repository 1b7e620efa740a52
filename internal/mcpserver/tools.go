package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/search"
	"github.com/rcliao/channel-memory/internal/service"
)

// SearchInput is the input schema for the search_history tool.
type SearchInput struct {
	ChannelID       string              `json:"channel_id" jsonschema:"channel to search"`
	ExtraChannelIDs []string            `json:"extra_channel_ids,omitempty" jsonschema:"other channels to search as well"`
	Keywords        []string            `json:"keywords,omitempty" jsonschema:"free-text phrases, each matched as a whole word"`
	Groups          []search.GroupInput `json:"groups,omitempty" jsonschema:"structured keyword groups; used instead of keywords when given"`
	MaxOutputLines  int                 `json:"max_output_lines,omitempty" jsonschema:"maximum rows to return (default from config)"`
}

// SearchOutput is the output schema for the search_history tool.
type SearchOutput struct {
	Items              []ItemOutput              `json:"items"`
	GroupsUsed         []string                  `json:"groups_used"`
	ClusterSize        int                       `json:"cluster_size"`
	ClustersConsidered int                       `json:"clusters_considered"`
	ClustersSelected   int                       `json:"clusters_selected"`
	PrintedRows        int                       `json:"printed_rows"`
	Timeline           map[string][]PeriodOutput `json:"timeline"`
	AlignmentNote      string                    `json:"alignment_note"`
	Error              string                    `json:"error,omitempty"`
}

// ItemOutput is one returned row.
type ItemOutput struct {
	ChannelID string `json:"channel_id"`
	RN        int    `json:"rn"`
	TS        string `json:"ts"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
}

// PeriodOutput is one summarized period.
type PeriodOutput struct {
	StartIdx int    `json:"start_idx"`
	EndIdx   int    `json:"end_idx"`
	StartTS  string `json:"start_ts,omitempty"`
	EndTS    string `json:"end_ts,omitempty"`
	Summary  string `json:"summary"`
}

// HistoryInput is the input schema for the recent_history tool.
type HistoryInput struct {
	ChannelID   string `json:"channel_id" jsonschema:"channel to read"`
	UserTurns   int    `json:"user_turns,omitempty" jsonschema:"go back this many user turns (default 10)"`
	TokenBudget int    `json:"token_budget,omitempty" jsonschema:"cap the result to roughly this many tokens"`
}

// HistoryOutput is the output schema for the recent_history tool.
type HistoryOutput struct {
	Messages     []model.Message `json:"messages"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
}

// PeriodsInput is the input schema for the list_periods tool.
type PeriodsInput struct {
	ChannelID string `json:"channel_id" jsonschema:"channel to list"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum periods to return (default all)"`
}

// PeriodsOutput is the output schema for the list_periods tool.
type PeriodsOutput struct {
	Periods []PeriodOutput `json:"periods"`
}

const defaultUserTurns = 10

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search_history",
		Description: "Search older conversation history by keyword. Returns the best matching " +
			"windows of rows in chronological order, with 'new event' separators across long gaps " +
			"and the summarized timeline periods of each channel.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recent_history",
		Description: "Return the recent messages of a channel back to a number of user turns, capped to a token budget.",
	}, s.handleHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_periods",
		Description: "List the summarized periods of a channel in row order.",
	}, s.handlePeriods)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	req := search.Request{
		ChannelID:       input.ChannelID,
		ExtraChannelIDs: input.ExtraChannelIDs,
		Groups:          input.Groups,
		Keywords:        input.Keywords,
	}
	if input.MaxOutputLines > 0 {
		opts := s.searchOptions
		opts.MaxOutputLines = input.MaxOutputLines
		req.Options = &opts
	}

	resp, err := s.backend.SearchByKeywords(ctx, req)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{
		Items:              make([]ItemOutput, len(resp.Items)),
		GroupsUsed:         make([]string, len(resp.Meta.GroupsUsed)),
		ClusterSize:        resp.Meta.ClusterSize,
		ClustersConsidered: resp.Meta.ClustersConsidered,
		ClustersSelected:   resp.Meta.ClustersSelected,
		PrintedRows:        resp.Meta.PrintedRows,
		Timeline:           make(map[string][]PeriodOutput, len(resp.Meta.Timeline)),
		AlignmentNote:      resp.Meta.AlignmentNote,
		Error:              resp.Error,
	}
	for i, it := range resp.Items {
		out.Items[i] = ItemOutput{
			ChannelID: it.ChannelID,
			RN:        it.RN,
			TS:        formatTS(it.TS),
			Sender:    it.Sender,
			Content:   it.Content,
		}
	}
	for i, g := range resp.Meta.GroupsUsed {
		out.GroupsUsed[i] = g.Base
	}
	for ch, periods := range resp.Meta.Timeline {
		out.Timeline[ch] = periodOutputs(periods)
	}
	return nil, out, nil
}

func (s *Server) handleHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	turns := input.UserTurns
	if turns <= 0 {
		turns = defaultUserTurns
	}
	h, err := s.backend.RecentHistory(ctx, service.HistoryParams{
		ChannelID:   input.ChannelID,
		UserTurns:   turns,
		TokenBudget: input.TokenBudget,
	})
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	messages := h.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	return nil, HistoryOutput{
		Messages:     messages,
		InputTokens:  h.Stats.InputTokens,
		OutputTokens: h.Stats.OutputTokens,
	}, nil
}

func (s *Server) handlePeriods(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PeriodsInput,
) (*mcp.CallToolResult, PeriodsOutput, error) {
	periods, err := s.backend.Periods(ctx, input.ChannelID, input.Limit)
	if err != nil {
		return nil, PeriodsOutput{}, err
	}
	return nil, PeriodsOutput{Periods: periodOutputs(periods)}, nil
}

func periodOutputs(periods []model.Period) []PeriodOutput {
	out := make([]PeriodOutput, len(periods))
	for i, p := range periods {
		out[i] = PeriodOutput{
			StartIdx: p.StartIdx,
			EndIdx:   p.EndIdx,
			StartTS:  formatTS(p.StartTS),
			EndTS:    formatTS(p.EndTS),
			Summary:  p.Summary,
		}
	}
	return out
}

func formatTS(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
