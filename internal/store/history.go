package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
)

// RecentRows returns a channel's rows from the timestamp of the Nth most
// recent user turn with non-blank text onward. With fewer user turns, or
// UserTurns <= 0, the whole channel is returned.
func (s *SQLiteStore) RecentRows(ctx context.Context, p RecentParams) ([]model.Row, error) {
	if strings.TrimSpace(p.ChannelID) == "" {
		return nil, model.MissingChannel()
	}

	var cutoff int64
	if p.UserTurns > 0 {
		err := s.db.QueryRowContext(ctx,
			`SELECT ts FROM records
			 WHERE channel_id = ? AND role = ? AND TRIM(COALESCE(derived_text, '')) <> ''
			 ORDER BY ts DESC, seq DESC
			 LIMIT 1 OFFSET ?`,
			p.ChannelID, model.RoleUser, p.UserTurns-1).Scan(&cutoff)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user turn: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, numberedRows+`
		SELECT id, channel_id, ts, payload, derived_text, role, turn_id, rn
		FROM numbered WHERE ts >= ? ORDER BY rn`,
		p.ChannelID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("recent rows: %w", err)
	}
	return collectRows(rows)
}
