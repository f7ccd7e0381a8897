package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jwebster45206/solo-dm/pkg/campaign"
)

// Ledger is the SQLite store for campaign-wide metadata.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if needed) the ledger database at path.
func OpenLedger(path string) (*Ledger, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" || p == "." {
		return nil, errors.New("missing ledger path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
	name TEXT PRIMARY KEY,
	total_sessions INTEGER NOT NULL DEFAULT 0,
	last_played_unix_ms INTEGER NOT NULL DEFAULT 0,
	immediate_context TEXT NOT NULL DEFAULT '',
	visited_locations_json TEXT NOT NULL DEFAULT '[]',
	factions_json TEXT NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS campaign_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	campaign_name TEXT NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL,
	created_at_unix_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_campaign_events_name ON campaign_events(campaign_name, id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Load returns the campaign's metadata, or a fresh State when none is stored.
func (l *Ledger) Load(ctx context.Context, name string) (*campaign.State, error) {
	st := campaign.NewState(name)

	var (
		lastPlayed           int64
		visitedJSON, facJSON string
	)
	err := l.db.QueryRowContext(ctx, `
SELECT total_sessions, last_played_unix_ms, immediate_context, visited_locations_json, factions_json
FROM campaigns WHERE name = ?`, name).Scan(&st.TotalSessions, &lastPlayed, &st.ImmediateContext, &visitedJSON, &facJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign %s: %w", name, err)
	}

	if lastPlayed > 0 {
		st.LastPlayed = time.UnixMilli(lastPlayed)
	}
	if err := json.Unmarshal([]byte(visitedJSON), &st.VisitedLocations); err != nil {
		return nil, fmt.Errorf("failed to decode visited locations: %w", err)
	}
	if err := json.Unmarshal([]byte(facJSON), &st.Factions); err != nil {
		return nil, fmt.Errorf("failed to decode factions: %w", err)
	}
	if st.Factions == nil {
		st.Factions = map[string]*campaign.Faction{}
	}

	rows, err := l.db.QueryContext(ctx, `
SELECT session_id, summary, created_at_unix_ms
FROM campaign_events WHERE campaign_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			ev campaign.Event
			ms int64
		)
		if err := rows.Scan(&ev.SessionID, &ev.Summary, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan campaign event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(ms)
		st.MajorEvents = append(st.MajorEvents, ev)
	}
	return st, rows.Err()
}

// Save upserts the campaign row and appends events not yet stored. The
// stored session count never decreases.
func (l *Ledger) Save(ctx context.Context, st *campaign.State) error {
	if st == nil || st.CampaignName == "" {
		return errors.New("campaign state needs a name")
	}

	visited, err := json.Marshal(st.VisitedLocations)
	if err != nil {
		return err
	}
	if st.VisitedLocations == nil {
		visited = []byte("[]")
	}
	factions, err := json.Marshal(st.Factions)
	if err != nil {
		return err
	}
	if st.Factions == nil {
		factions = []byte("{}")
	}
	var lastPlayed int64
	if !st.LastPlayed.IsZero() {
		lastPlayed = st.LastPlayed.UnixMilli()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO campaigns (name, total_sessions, last_played_unix_ms, immediate_context, visited_locations_json, factions_json)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	total_sessions = MAX(campaigns.total_sessions, excluded.total_sessions),
	last_played_unix_ms = MAX(campaigns.last_played_unix_ms, excluded.last_played_unix_ms),
	immediate_context = excluded.immediate_context,
	visited_locations_json = excluded.visited_locations_json,
	factions_json = excluded.factions_json`,
		st.CampaignName, st.TotalSessions, lastPlayed, st.ImmediateContext, string(visited), string(factions))
	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM campaign_events WHERE campaign_name = ?`, st.CampaignName).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count campaign events: %w", err)
	}
	for _, ev := range st.MajorEvents[min(stored, len(st.MajorEvents)):] {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO campaign_events (campaign_name, session_id, summary, created_at_unix_ms) VALUES (?, ?, ?, ?)`,
			st.CampaignName, ev.SessionID, ev.Summary, ev.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("failed to append campaign event: %w", err)
		}
	}

	return tx.Commit()
}

// Campaign ledger operations

func (f *FileStorage) LoadCampaignState(ctx context.Context, name string) (*campaign.State, error) {
	return f.ledger.Load(ctx, name)
}

func (f *FileStorage) SaveCampaignState(ctx context.Context, st *campaign.State) error {
	if err := f.ledger.Save(ctx, st); err != nil {
		f.logger.Error("Failed to save campaign state", "error", err)
		return err
	}
	return nil
}
