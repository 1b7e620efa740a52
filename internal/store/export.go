package store

import (
	"context"
	"fmt"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
)

// Export holds a channel dump: its records in row order and its periods.
type Export struct {
	Records []model.Row    `json:"records"`
	Periods []model.Period `json:"periods,omitempty"`
}

// ExportChannel returns all records and periods of a channel, or of every
// channel when channelID is empty.
func (s *SQLiteStore) ExportChannel(ctx context.Context, channelID string) (*Export, error) {
	channels := []string{channelID}
	if channelID == "" {
		infos, err := s.ListChannels(ctx)
		if err != nil {
			return nil, err
		}
		channels = channels[:0]
		for _, c := range infos {
			channels = append(channels, c.ChannelID)
		}
	}

	out := &Export{}
	for _, ch := range channels {
		total, err := s.CountRows(ctx, ch)
		if err != nil {
			return nil, err
		}
		rows, err := s.RowsInRange(ctx, ch, 1, total)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rows...)

		periods, err := s.Periods(ctx, ch, 0)
		if err != nil {
			return nil, err
		}
		out.Periods = append(out.Periods, periods...)
	}
	return out, nil
}

// Import stores records and periods from an export. Records whose id already
// exists are skipped. Returns the number of records inserted.
func (s *SQLiteStore) Import(ctx context.Context, exp *Export) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for _, r := range exp.Records {
		if r.ChannelID == "" {
			return 0, model.MissingChannel()
		}
		id := r.ID
		if id == "" {
			id = s.newID(r.TS)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO records (id, channel_id, ts, payload, derived_text, role, turn_id, search_text)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, r.ChannelID, r.TS.UnixMilli(), string(r.Payload),
			nullString(r.DerivedText), nullString(r.Role), nullString(r.TurnID),
			rowtext.SearchText(r.Record))
		if err != nil {
			return 0, fmt.Errorf("import record %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, p := range exp.Periods {
		if err := s.UpsertPeriod(ctx, p); err != nil {
			return imported, err
		}
	}
	return imported, nil
}
