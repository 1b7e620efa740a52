package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
)

// HitRows finds rows whose search text contains any of the terms, across the
// given channels. Terms are folded with rowtext.Fold, as the stored text is,
// so the substring test ignores case for any script; callers confirm hits
// with their own matcher.
func (s *SQLiteStore) HitRows(ctx context.Context, p HitParams) ([]model.Row, error) {
	if len(p.ChannelIDs) == 0 {
		return nil, model.MissingChannel()
	}
	if len(p.Terms) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.ChannelIDs)), ", ")
	args := make([]interface{}, 0, len(p.ChannelIDs)+len(p.Terms)+1)
	for _, id := range p.ChannelIDs {
		args = append(args, id)
	}

	var match []string
	for _, term := range p.Terms {
		match = append(match, `instr(COALESCE(search_text, ''), ?) > 0`)
		args = append(args, rowtext.Fold(term))
	}

	query := fmt.Sprintf(`
		WITH numbered AS (
			SELECT id, channel_id, ts, payload, derived_text, role, turn_id, search_text,
			       ROW_NUMBER() OVER (PARTITION BY channel_id ORDER BY ts, seq) AS rn
			FROM records WHERE channel_id IN (%s)
		)
		SELECT id, channel_id, ts, payload, derived_text, role, turn_id, rn
		FROM numbered
		WHERE %s
		ORDER BY channel_id, rn`, placeholders, strings.Join(match, " OR "))

	if p.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, p.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hit rows: %w", err)
	}
	return collectRows(rows)
}
