// Package summarizer materializes rolling period summaries of a channel.
package summarizer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/rcliao/channel-memory/internal/compactor"
	"github.com/rcliao/channel-memory/internal/llm"
	"github.com/rcliao/channel-memory/internal/logging"
	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
	"github.com/rcliao/channel-memory/internal/store"
)

// DefaultPeriodSize is the number of rows covered by one period.
const DefaultPeriodSize = 600

// maxLineTokens bounds each transcript line sent to the model.
const maxLineTokens = 120

// Rolling creates one period each time a channel's row count reaches a
// multiple of the period size.
type Rolling struct {
	store      store.Store
	llm        llm.Summarizer
	periodSize int
	logger     *slog.Logger
	now        func() time.Time
}

// New returns a Rolling summarizer. A nil llm disables summaries.
func New(st store.Store, sum llm.Summarizer, periodSize int, logger *slog.Logger) *Rolling {
	if periodSize <= 0 {
		periodSize = DefaultPeriodSize
	}
	return &Rolling{
		store:      st,
		llm:        sum,
		periodSize: periodSize,
		logger:     logging.OrDiscard(logger),
		now:        time.Now,
	}
}

// PeriodSize returns the configured window size.
func (r *Rolling) PeriodSize() int { return r.periodSize }

// Boundary reports the period that closes at row total, if any.
func Boundary(total, periodSize int) (startIdx, endIdx int, ok bool) {
	if periodSize <= 0 || total <= 0 || total%periodSize != 0 {
		return 0, 0, false
	}
	return total - periodSize + 1, total, true
}

// OnInsert runs after a record was appended to channelID. It returns the
// period it created, or nil. Failures are logged and never returned: the
// boundary simply stays unsummarized until a Backfill.
func (r *Rolling) OnInsert(ctx context.Context, channelID string) *model.Period {
	if r.llm == nil {
		return nil
	}
	log := r.logger.With("channel", channelID)

	total, err := r.store.CountRows(ctx, channelID)
	if err != nil {
		log.Warn("count rows for period", "error", err)
		return nil
	}
	start, end, ok := Boundary(total, r.periodSize)
	if !ok {
		return nil
	}
	log = log.With("start_idx", start, "end_idx", end)

	exists, err := r.store.PeriodExists(ctx, channelID, start, end)
	if err != nil {
		log.Warn("check period", "error", err)
		return nil
	}
	if exists {
		return nil
	}

	p, err := r.Summarize(ctx, channelID, start, end)
	if err != nil {
		log.Warn("summarize period", "error", err)
		return nil
	}
	log.Info("period created", "model", p.Model)
	return p
}

// Summarize builds and stores the period [startIdx, endIdx] of a channel,
// rewriting any period with the same bounds.
func (r *Rolling) Summarize(ctx context.Context, channelID string, startIdx, endIdx int) (*model.Period, error) {
	if r.llm == nil {
		return nil, &model.ConfigError{Field: "llm.provider"}
	}
	rows, err := r.store.RowsInRange(ctx, channelID, startIdx, endIdx)
	if err != nil {
		return nil, err
	}
	if want := endIdx - startIdx + 1; len(rows) != want {
		return nil, fmt.Errorf("period [%d, %d] has %d of %d rows", startIdx, endIdx, len(rows), want)
	}

	summary, err := r.llm.Summarize(ctx, Instructions, Transcript(rows))
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	now := r.now().UTC()
	p := model.Period{
		ChannelID: channelID,
		StartIdx:  startIdx,
		EndIdx:    endIdx,
		StartTS:   rows[0].TS,
		EndTS:     rows[len(rows)-1].TS,
		Summary:   summary,
		Model:     r.llm.Model(),
		Checksum:  Checksum(rows),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.UpsertPeriod(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Checksum hashes the ordered "timestamp|content" lines of rows.
func Checksum(rows []model.Row) string {
	h := blake3.New()
	for _, row := range rows {
		p := rowtext.Parse(row.Payload)
		fmt.Fprintf(h, "%s|%s\n", row.TS.UTC().Format(time.RFC3339Nano), rowtext.Content(p, row.Record))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Transcript renders rows as the model input, one bounded line per row.
func Transcript(rows []model.Row) string {
	opts := rowtext.DefaultOptions()
	var b strings.Builder
	for _, row := range rows {
		ex := rowtext.Extract(row.Record, opts)
		text := strings.Join(strings.Fields(ex.Content), " ")
		text = compactor.TrimText(text, maxLineTokens)
		fmt.Fprintf(&b, "[%s] %s: %s\n", row.TS.UTC().Format(time.RFC3339), ex.Sender, text)
	}
	return b.String()
}
