package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/channel-memory/internal/model"
)

func (s *SQLiteStore) PeriodExists(ctx context.Context, channelID string, startIdx, endIdx int) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM timeline_periods WHERE channel_id = ? AND start_idx = ? AND end_idx = ?`,
		channelID, startIdx, endIdx).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check period: %w", err)
	}
	return n > 0, nil
}

// UpsertPeriod writes a period keyed by (channel, start, end). An existing
// row keeps its created_at.
func (s *SQLiteStore) UpsertPeriod(ctx context.Context, p model.Period) error {
	if strings.TrimSpace(p.ChannelID) == "" {
		return model.MissingChannel()
	}
	if p.StartIdx < 1 || p.EndIdx < p.StartIdx {
		return fmt.Errorf("upsert period: invalid bounds [%d, %d]", p.StartIdx, p.EndIdx)
	}

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timeline_periods
			(channel_id, start_idx, end_idx, start_ts, end_ts, summary, model, checksum, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (channel_id, start_idx, end_idx) DO UPDATE SET
			start_ts = excluded.start_ts,
			end_ts = excluded.end_ts,
			summary = excluded.summary,
			model = excluded.model,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at`,
		p.ChannelID, p.StartIdx, p.EndIdx, unixMilli(p.StartTS), unixMilli(p.EndTS),
		p.Summary, nullString(p.Model), nullString(p.Checksum),
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert period: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Periods(ctx context.Context, channelID string, limit int) ([]model.Period, error) {
	query := `SELECT channel_id, start_idx, end_idx, start_ts, end_ts, summary, model, checksum, created_at, updated_at
	          FROM timeline_periods WHERE channel_id = ? ORDER BY start_idx`
	args := []interface{}{channelID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var out []model.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeriod(row scanner) (model.Period, error) {
	var p model.Period
	var startTS, endTS sql.NullInt64
	var modelName, checksum sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ChannelID, &p.StartIdx, &p.EndIdx, &startTS, &endTS,
		&p.Summary, &modelName, &checksum, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}
	if startTS.Valid {
		p.StartTS = time.UnixMilli(startTS.Int64).UTC()
	}
	if endTS.Valid {
		p.EndTS = time.UnixMilli(endTS.Int64).UTC()
	}
	p.Model = modelName.String
	p.Checksum = checksum.String
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return p, nil
}

func unixMilli(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}
