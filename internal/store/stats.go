package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath       string         `json:"db_path"`
	DBSizeBytes  int64          `json:"db_size_bytes"`
	TotalRecords int            `json:"total_records"`
	TotalPeriods int            `json:"total_periods"`
	Channels     []ChannelStats `json:"channels"`
}

// ChannelStats holds per-channel counts.
type ChannelStats struct {
	ChannelID string `json:"channel_id"`
	Records   int    `json:"records"`
	Users     int    `json:"user_turns"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	// DB file size
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&st.TotalRecords); err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM timeline_periods`).Scan(&st.TotalPeriods); err != nil {
		return nil, fmt.Errorf("count periods: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, COUNT(*) AS cnt, SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END)
		FROM records
		GROUP BY channel_id ORDER BY cnt DESC, channel_id`)
	if err != nil {
		return nil, fmt.Errorf("channel stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs ChannelStats
		if err := rows.Scan(&cs.ChannelID, &cs.Records, &cs.Users); err != nil {
			return nil, fmt.Errorf("scan channel stats: %w", err)
		}
		st.Channels = append(st.Channels, cs)
	}

	return st, rows.Err()
}
