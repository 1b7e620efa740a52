package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/channel-memory/internal/model"
)

// ListChannels returns every channel with its row and period counts,
// most recently active first.
func (s *SQLiteStore) ListChannels(ctx context.Context) ([]model.ChannelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.channel_id, COUNT(*) AS cnt, MAX(r.ts) AS last_ts,
		       (SELECT COUNT(*) FROM timeline_periods p WHERE p.channel_id = r.channel_id)
		FROM records r
		GROUP BY r.channel_id
		ORDER BY last_ts DESC, r.channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []model.ChannelInfo
	for rows.Next() {
		var c model.ChannelInfo
		var last sql.NullInt64
		if err := rows.Scan(&c.ChannelID, &c.Rows, &last, &c.Periods); err != nil {
			return nil, err
		}
		if last.Valid {
			c.LastTS = time.UnixMilli(last.Int64).UTC()
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
