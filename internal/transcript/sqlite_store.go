package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cloud-shuttle/wingman/internal/history"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite transcript database at path
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		chat_id     INTEGER NOT NULL,
		chat_title  TEXT NOT NULL,
		provider    TEXT NOT NULL,
		started_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		message_id  INTEGER NOT NULL,
		role        TEXT NOT NULL,
		text        TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL REFERENCES sessions(id),
		trigger_id  INTEGER NOT NULL,
		outcome     TEXT NOT NULL,
		final_text  TEXT NOT NULL,
		resolved_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, recorded_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing transcript schema: %w", err)
	}
	return nil
}

// BeginSession opens a new session row and returns its id
func (s *SQLiteStore) BeginSession(ctx context.Context, chatID int64, chatTitle, provider string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, chat_id, chat_title, provider, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, chatID, chatTitle, provider, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// RecordTurn archives one recorded turn
func (s *SQLiteStore) RecordTurn(ctx context.Context, sessionID string, turn history.Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, message_id, role, text, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, turn.ID, string(turn.Role), turn.Text, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("archiving turn %d: %w", turn.ID, err)
	}
	return nil
}

// RecordDecision archives the resolution of one pending decision
func (s *SQLiteStore) RecordDecision(ctx context.Context, sessionID string, triggerID int64, outcome, finalText string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, session_id, trigger_id, outcome, final_text, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), sessionID, triggerID, outcome, finalText, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("archiving decision for %d: %w", triggerID, err)
	}
	return nil
}

// exportRow is one JSONL line of the export
type exportRow struct {
	SessionID  string `json:"session_id"`
	MessageID  int64  `json:"message_id"`
	Role       string `json:"role"`
	Text       string `json:"text"`
	RecordedAt int64  `json:"recorded_at"`
}

// Export writes all archived turns as JSONL, oldest first
func (s *SQLiteStore) Export(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, message_id, role, text, recorded_at
		FROM turns
		ORDER BY recorded_at ASC, message_id ASC
	`)
	if err != nil {
		return fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	enc := json.NewEncoder(w)
	for rows.Next() {
		var row exportRow
		if err := rows.Scan(&row.SessionID, &row.MessageID, &row.Role, &row.Text, &row.RecordedAt); err != nil {
			return fmt.Errorf("scanning turn: %w", err)
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encoding turn: %w", err)
		}
	}
	return rows.Err()
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
