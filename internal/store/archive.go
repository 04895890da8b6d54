package store

import (
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Archive is the append-only SQLite record of conversation turns across
// sessions. It is strictly supplementary to the JSON snapshot: a turn that
// fails to archive is logged and dropped, never failed.
type Archive struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// ArchivedTurn is one recorded exchange.
type ArchivedTurn struct {
	SessionID  string
	TurnNumber int
	UserInput  string
	Action     string
	Response   string
	ReasonJSON string
	CreatedAt  string
}

// OpenArchive opens (creating if necessary) the turn archive at path.
func OpenArchive(path string, log *zap.Logger) (*Archive, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open turn archive: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS turn_history (
		session_id  TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		user_input  TEXT NOT NULL,
		action      TEXT NOT NULL,
		response    TEXT NOT NULL,
		reason_json TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_turn_history_session ON turn_history(session_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize turn archive schema: %w", err)
	}

	return &Archive{db: db, log: log}, nil
}

// RecordTurn appends one turn. INSERT OR IGNORE keeps replays idempotent.
func (a *Archive) RecordTurn(sessionID string, turnNumber int, userInput, action, response, reasonJSON string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.Exec(
		`INSERT OR IGNORE INTO turn_history (session_id, turn_number, user_input, action, response, reason_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, turnNumber, userInput, action, response, reasonJSON,
	)
	if err != nil {
		a.log.Error("failed to archive turn",
			zap.String("session", sessionID),
			zap.Int("turn", turnNumber),
			zap.Error(err))
		return err
	}
	return nil
}

// History returns the archived turns for a session, oldest first.
func (a *Archive) History(sessionID string, limit int) ([]ArchivedTurn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.Query(
		`SELECT session_id, turn_number, user_input, action, response, reason_json, created_at
		 FROM turn_history
		 WHERE session_id = ?
		 ORDER BY turn_number ASC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []ArchivedTurn
	for rows.Next() {
		var t ArchivedTurn
		if err := rows.Scan(&t.SessionID, &t.TurnNumber, &t.UserInput, &t.Action, &t.Response, &t.ReasonJSON, &t.CreatedAt); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// SessionCounts returns turn counts per archived session.
func (a *Archive) SessionCounts() (map[string]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.Query(
		`SELECT session_id, COUNT(*) FROM turn_history GROUP BY session_id ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			continue
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}
