package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal stores events in their own SQLite file through the pure-Go driver.
type SQLiteJournal struct {
	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			created_at INTEGER NOT NULL,
			trade_id TEXT,
			symbol TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("journal schema: %w", err)
		}
	}
	return nil
}

func (j *SQLiteJournal) Append(ctx context.Context, evt Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events(id, type, payload, created_at, trade_id, symbol) VALUES (?, ?, ?, ?, ?, ?)`,
		evt.ID, evt.Type, string(evt.Payload), evt.CreatedAt.UnixMilli(), evt.TradeID, evt.Symbol)
	return err
}

func (j *SQLiteJournal) LoadSince(ctx context.Context, since time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, type, payload, created_at, trade_id, symbol FROM events WHERE created_at >= ? ORDER BY created_at ASC, seq ASC LIMIT ?`,
		since.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			evt     Event
			payload sql.NullString
			tradeID sql.NullString
			symbol  sql.NullString
			created int64
		)
		if err := rows.Scan(&evt.ID, &evt.Type, &payload, &created, &tradeID, &symbol); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			evt.Payload = []byte(payload.String)
		}
		evt.CreatedAt = time.UnixMilli(created)
		evt.TradeID = tradeID.String
		evt.Symbol = symbol.String
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
