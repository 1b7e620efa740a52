package summarizer

import (
	"context"

	"github.com/rcliao/channel-memory/internal/model"
)

// BackfillResult counts what a Backfill did.
type BackfillResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Backfill summarizes every complete period of a channel that has no stored
// period yet. Summary failures are logged and counted; store errors and
// cancellation stop the run.
func (r *Rolling) Backfill(ctx context.Context, channelID string) (BackfillResult, error) {
	var res BackfillResult
	if r.llm == nil {
		return res, &model.ConfigError{Field: "llm.provider"}
	}
	total, err := r.store.CountRows(ctx, channelID)
	if err != nil {
		return res, err
	}

	for end := r.periodSize; end <= total; end += r.periodSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := end - r.periodSize + 1

		exists, err := r.store.PeriodExists(ctx, channelID, start, end)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		if _, err := r.Summarize(ctx, channelID, start, end); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			r.logger.Warn("backfill period",
				"channel", channelID, "start_idx", start, "end_idx", end, "error", err)
			res.Failed++
			continue
		}
		res.Created++
	}

	r.logger.Info("backfill finished", "channel", channelID,
		"created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}
