// Package store provides the channel log storage interface and SQLite implementation.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rcliao/channel-memory/internal/model"
)

// AppendParams holds parameters for appending a record.
type AppendParams struct {
	ChannelID   string
	TS          time.Time // zero means now
	Payload     json.RawMessage
	DerivedText string
	Role        string
	TurnID      string
}

// RecentParams holds parameters for reading recent history.
type RecentParams struct {
	ChannelID string
	UserTurns int // rows back to the Nth most recent user turn; 0 means all
}

// HitParams holds parameters for a keyword hit lookup.
type HitParams struct {
	ChannelIDs []string
	Terms      []string // lower-cased substrings; a row matching any term is a hit
	Limit      int      // 0 means no limit
}

// Store defines the channel log storage interface.
type Store interface {
	// Append persists one record and returns it with its id and timestamp set.
	Append(ctx context.Context, p AppendParams) (*model.Record, error)

	// CountRows returns the number of records in a channel.
	CountRows(ctx context.Context, channelID string) (int, error)

	// RowsInRange returns the rows numbered [startRN, endRN] in a channel.
	RowsInRange(ctx context.Context, channelID string, startRN, endRN int) ([]model.Row, error)

	// LastRows returns the newest n rows of a channel, oldest first.
	LastRows(ctx context.Context, channelID string, n int) ([]model.Row, error)

	// RecentRows returns the rows back to the Nth most recent user turn.
	RecentRows(ctx context.Context, p RecentParams) ([]model.Row, error)

	// HitRows returns candidate rows containing any of the terms.
	HitRows(ctx context.Context, p HitParams) ([]model.Row, error)

	// Purge deletes every record and period of a channel. Returns the
	// number of records deleted.
	Purge(ctx context.Context, channelID string) (int64, error)

	// PeriodExists reports whether a period with exactly these bounds exists.
	PeriodExists(ctx context.Context, channelID string, startIdx, endIdx int) (bool, error)

	// UpsertPeriod creates a period or rewrites the one with the same bounds.
	UpsertPeriod(ctx context.Context, p model.Period) error

	// Periods lists a channel's periods by start index. limit <= 0 means all.
	Periods(ctx context.Context, channelID string, limit int) ([]model.Period, error)

	// ListChannels returns every channel that has records.
	ListChannels(ctx context.Context) ([]model.ChannelInfo, error)

	// Close closes the store.
	Close() error
}
