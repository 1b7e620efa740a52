package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/channel-memory/internal/model"
	"github.com/rcliao/channel-memory/internal/rowtext"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, &model.ConfigError{Field: "db_path"}
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) newID(t time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		channel_id   TEXT NOT NULL,
		ts           INTEGER NOT NULL,
		payload      TEXT NOT NULL,
		derived_text TEXT,
		role         TEXT,
		turn_id      TEXT,
		search_text  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_records_channel_ts ON records(channel_id, ts, seq);
	CREATE INDEX IF NOT EXISTS idx_records_channel_role ON records(channel_id, role);

	CREATE TABLE IF NOT EXISTS timeline_periods (
		channel_id TEXT NOT NULL,
		start_idx  INTEGER NOT NULL,
		end_idx    INTEGER NOT NULL,
		start_ts   INTEGER,
		end_ts     INTEGER,
		summary    TEXT NOT NULL,
		model      TEXT,
		checksum   TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (channel_id, start_idx, end_idx)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.migrateSearchText()
}

// migrateSearchText adds the search_text column to databases created
// before it existed and fills it for rows that lack it.
func (s *SQLiteStore) migrateSearchText() error {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('records') WHERE name = 'search_text'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect records: %w", err)
	}
	if n == 0 {
		if _, err := s.db.Exec(`ALTER TABLE records ADD COLUMN search_text TEXT`); err != nil {
			return fmt.Errorf("add search_text: %w", err)
		}
	}

	rows, err := s.db.Query(
		`SELECT seq, channel_id, payload, derived_text, role FROM records WHERE search_text IS NULL`)
	if err != nil {
		return fmt.Errorf("select unindexed records: %w", err)
	}
	type pending struct {
		seq  int64
		text string
	}
	var todo []pending
	for rows.Next() {
		var (
			seq              int64
			rec              model.Record
			payload          string
			derived, roleCol sql.NullString
		)
		if err := rows.Scan(&seq, &rec.ChannelID, &payload, &derived, &roleCol); err != nil {
			rows.Close()
			return fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.DerivedText = derived.String
		rec.Role = roleCol.String
		todo = append(todo, pending{seq: seq, text: rowtext.SearchText(rec)})
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("select unindexed records: %w", err)
	}
	if len(todo) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range todo {
		if _, err := tx.Exec(`UPDATE records SET search_text = ? WHERE seq = ?`, p.text, p.seq); err != nil {
			return fmt.Errorf("fill search_text: %w", err)
		}
	}
	return tx.Commit()
}

// Append persists one record. The role and derived text are filled from the
// payload when not given.
func (s *SQLiteStore) Append(ctx context.Context, p AppendParams) (*model.Record, error) {
	if strings.TrimSpace(p.ChannelID) == "" {
		return nil, model.MissingChannel()
	}
	if len(p.Payload) == 0 || !json.Valid(p.Payload) {
		return nil, fmt.Errorf("append: payload must be valid JSON")
	}

	ts := p.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC().Truncate(time.Millisecond)

	rec := model.Record{
		ID:          s.newID(ts),
		ChannelID:   p.ChannelID,
		TS:          ts,
		Payload:     p.Payload,
		DerivedText: p.DerivedText,
		Role:        p.Role,
		TurnID:      p.TurnID,
	}
	parsed := rowtext.Parse(p.Payload)
	if rec.Role == "" {
		rec.Role = parsed.Role
	}
	if rec.DerivedText == "" {
		rec.DerivedText = rowtext.Content(parsed, model.Record{})
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, channel_id, ts, payload, derived_text, role, turn_id, search_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ChannelID, ts.UnixMilli(), string(rec.Payload),
		nullString(rec.DerivedText), nullString(rec.Role), nullString(rec.TurnID),
		rowtext.SearchText(rec))
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) CountRows(ctx context.Context, channelID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE channel_id = ?`, channelID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// numberedRows numbers a channel's records by (ts, seq).
const numberedRows = `
	WITH numbered AS (
		SELECT id, channel_id, ts, payload, derived_text, role, turn_id,
		       ROW_NUMBER() OVER (ORDER BY ts, seq) AS rn
		FROM records WHERE channel_id = ?
	)`

func (s *SQLiteStore) RowsInRange(ctx context.Context, channelID string, startRN, endRN int) ([]model.Row, error) {
	if startRN < 1 {
		startRN = 1
	}
	if endRN < startRN {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, numberedRows+`
		SELECT id, channel_id, ts, payload, derived_text, role, turn_id, rn
		FROM numbered WHERE rn BETWEEN ? AND ? ORDER BY rn`,
		channelID, startRN, endRN)
	if err != nil {
		return nil, fmt.Errorf("rows in range: %w", err)
	}
	return collectRows(rows)
}

func (s *SQLiteStore) LastRows(ctx context.Context, channelID string, n int) ([]model.Row, error) {
	total, err := s.CountRows(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if n <= 0 || total == 0 {
		return nil, nil
	}
	return s.RowsInRange(ctx, channelID, total-n+1, total)
}

func (s *SQLiteStore) Purge(ctx context.Context, channelID string) (int64, error) {
	if strings.TrimSpace(channelID) == "" {
		return 0, model.MissingChannel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE channel_id = ?`, channelID)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timeline_periods WHERE channel_id = ?`, channelID); err != nil {
		return 0, fmt.Errorf("delete periods: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(row scanner) (model.Row, error) {
	var r model.Row
	var ts int64
	var payload string
	var derived, role, turnID sql.NullString

	err := row.Scan(&r.ID, &r.ChannelID, &ts, &payload, &derived, &role, &turnID, &r.RN)
	if err != nil {
		return r, err
	}
	r.TS = time.UnixMilli(ts).UTC()
	r.Payload = json.RawMessage(payload)
	r.DerivedText = derived.String
	r.Role = role.String
	r.TurnID = turnID.String
	return r, nil
}

func collectRows(rows *sql.Rows) ([]model.Row, error) {
	defer rows.Close()
	var out []model.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
