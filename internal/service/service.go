// Package service is the entry point used by the CLI and the MCP server:
// it appends records, serves budgeted history and runs keyword searches
// over one store.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rcliao/channel-memory/internal/compactor"
	"github.com/rcliao/channel-memory/internal/config"
	"github.com/rcliao/channel-memory/internal/llm"
	"github.com/rcliao/channel-memory/internal/logging"
	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
	"github.com/rcliao/channel-memory/internal/search"
	"github.com/rcliao/channel-memory/internal/store"
	"github.com/rcliao/channel-memory/internal/summarizer"
)

// Service wires the store to the summarizer, compactor and search engine.
type Service struct {
	store   store.Store
	rolling *summarizer.Rolling
	engine  *search.Engine
	logger  *slog.Logger
}

// New builds a Service. A nil llm, or summaries disabled in cfg, turns
// rolling summaries off.
func New(st store.Store, sum llm.Summarizer, cfg *config.Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = logging.OrDiscard(logger)
	if !cfg.Summary.Enabled {
		sum = nil
	}
	return &Service{
		store:   st,
		rolling: summarizer.New(st, sum, cfg.Summary.PeriodSize, logger.With("component", "summarizer")),
		engine:  search.NewEngine(st, search.OptionsFromConfig(cfg.Search), logger.With("component", "search")),
		logger:  logger,
	}
}

// AppendResult is the outcome of AppendRecord.
type AppendResult struct {
	Record *model.Record `json:"record"`
	Period *model.Period `json:"period,omitempty"`
}

// AppendRecord stores one record and then gives the rolling summarizer a
// chance to close a period. Summary failures never fail the append.
func (s *Service) AppendRecord(ctx context.Context, p store.AppendParams) (*AppendResult, error) {
	rec, err := s.store.Append(ctx, p)
	if err != nil {
		return nil, err
	}
	return &AppendResult{Record: rec, Period: s.rolling.OnInsert(ctx, rec.ChannelID)}, nil
}

// HistoryParams holds parameters for RecentHistory.
type HistoryParams struct {
	ChannelID string
	UserTurns int
	// TokenBudget caps the result when positive.
	TokenBudget int
}

// History is a budgeted slice of recent messages.
type History struct {
	Messages []model.Message `json:"messages"`
	Stats    compactor.Stats `json:"stats"`
}

// RecentHistory returns the messages back to the UserTurns-th most recent
// user turn, capped to TokenBudget.
func (s *Service) RecentHistory(ctx context.Context, p HistoryParams) (*History, error) {
	if strings.TrimSpace(p.ChannelID) == "" {
		return nil, model.MissingChannel()
	}
	rows, err := s.store.RecentRows(ctx, store.RecentParams{ChannelID: p.ChannelID, UserTurns: p.UserTurns})
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, rowtext.ToMessage(r.Record))
	}

	out, stats := compactor.CapWithStats(messages, p.TokenBudget)
	if out == nil {
		out = []model.Message{}
	}
	return &History{Messages: out, Stats: stats}, nil
}

// PurgeChannel deletes every record and period of a channel.
func (s *Service) PurgeChannel(ctx context.Context, channelID string) (int64, error) {
	n, err := s.store.Purge(ctx, channelID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("channel purged", "channel", channelID, "records", n)
	return n, nil
}

// SearchByKeywords runs a keyword cluster search.
func (s *Service) SearchByKeywords(ctx context.Context, req search.Request) (*search.Response, error) {
	return s.engine.Search(ctx, req)
}

// Periods lists a channel's summarized periods.
func (s *Service) Periods(ctx context.Context, channelID string, limit int) ([]model.Period, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, model.MissingChannel()
	}
	return s.store.Periods(ctx, channelID, limit)
}

// Backfill summarizes every complete period of a channel that is missing.
func (s *Service) Backfill(ctx context.Context, channelID string) (summarizer.BackfillResult, error) {
	if strings.TrimSpace(channelID) == "" {
		return summarizer.BackfillResult{}, model.MissingChannel()
	}
	return s.rolling.Backfill(ctx, channelID)
}

// Channels lists the channels that have records.
func (s *Service) Channels(ctx context.Context) ([]model.ChannelInfo, error) {
	return s.store.ListChannels(ctx)
}
