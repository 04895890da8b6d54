// Package store persists session state. The authoritative record is a JSON
// snapshot of the full context, overwritten atomically after every turn,
// with a timestamped copy appended to a history directory. A SQLite turn
// archive sits alongside it for cross-session browsing.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"certeval/internal/state"
)

const (
	currentSessionFile = "current_session.json"
	historyDirName     = "history"
)

// SessionDocument is the persisted shape of a session. Everything in the
// context is persisted; there are no derived fields excluded.
type SessionDocument struct {
	Timestamp    string             `json:"timestamp"`
	Certificate  state.Certificate  `json:"certificate"`
	Evaluation   state.Evaluation   `json:"evaluation"`
	Conversation state.Conversation `json:"conversation"`
}

// SessionStore reads and writes session snapshots under a single directory.
type SessionStore struct {
	dir        string
	historyDir string
	log        *zap.Logger
	now        func() time.Time
}

// NewSessionStore creates the session directory (and its history
// subdirectory) if needed.
func NewSessionStore(dir string, log *zap.Logger) (*SessionStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	historyDir := filepath.Join(dir, historyDirName)
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &SessionStore{
		dir:        dir,
		historyDir: historyDir,
		log:        log,
		now:        time.Now,
	}, nil
}

func (s *SessionStore) currentPath() string {
	return filepath.Join(s.dir, currentSessionFile)
}

// Save writes the full context to the current-session snapshot and appends
// a timestamped copy to the history directory. The snapshot write is
// tmp-then-rename so a crash never leaves a truncated current session.
func (s *SessionStore) Save(ctx *state.Context) error {
	now := s.now()
	doc := SessionDocument{
		Timestamp:    now.Format(time.RFC3339),
		Certificate:  ctx.Certificate,
		Evaluation:   ctx.Evaluation,
		Conversation: ctx.Conversation,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.log.Error("failed to serialize session", zap.Error(err))
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := s.writeAtomic(s.currentPath(), data); err != nil {
		s.log.Error("failed to save session snapshot", zap.Error(err))
		return err
	}

	// History copies are append-only and never pruned. A failure here is
	// logged but does not fail the save: the authoritative snapshot is
	// already on disk.
	historyPath := filepath.Join(s.historyDir, fmt.Sprintf("session_%s.json", now.Format("20060102_150405")))
	if err := os.WriteFile(historyPath, data, 0o644); err != nil {
		s.log.Warn("failed to write history copy", zap.String("path", historyPath), zap.Error(err))
	}

	s.log.Debug("session saved",
		zap.Int("turns", len(ctx.Conversation.History)),
		zap.Int("fields", len(ctx.Certificate.ExtractedFields)))
	return nil
}

// Load restores a previously saved session into ctx. When no snapshot
// exists the context is returned untouched with no error. A snapshot that
// exists but is missing any persisted section is a load error; state is
// left unmodified in that case.
func (s *SessionStore) Load(ctx *state.Context) error {
	data, err := os.ReadFile(s.currentPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.log.Error("failed to read session snapshot", zap.Error(err))
		return fmt.Errorf("failed to read session snapshot: %w", err)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		s.log.Error("corrupt session snapshot", zap.Error(err))
		return fmt.Errorf("corrupt session snapshot: %w", err)
	}
	for _, key := range []string{"timestamp", "certificate", "evaluation", "conversation"} {
		if _, ok := sections[key]; !ok {
			return fmt.Errorf("session snapshot missing %q section", key)
		}
	}

	var doc SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Error("corrupt session snapshot", zap.Error(err))
		return fmt.Errorf("corrupt session snapshot: %w", err)
	}

	ctx.Certificate = doc.Certificate
	ctx.Evaluation = doc.Evaluation
	ctx.Conversation = doc.Conversation
	if ctx.Certificate.ExtractedFields == nil {
		ctx.Certificate.ExtractedFields = map[string]string{}
	}
	if ctx.Certificate.Confidence == nil {
		ctx.Certificate.Confidence = map[string]float64{}
	}
	if ctx.Evaluation.Criteria == nil {
		ctx.Evaluation.Criteria = map[string]float64{}
	}
	if ctx.Evaluation.Scores == nil {
		ctx.Evaluation.Scores = map[string]float64{}
	}

	s.log.Info("session restored",
		zap.String("saved_at", doc.Timestamp),
		zap.Int("turns", len(ctx.Conversation.History)))
	return nil
}

// Clear removes the current-session snapshot. History copies are kept.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.currentPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Summary describes the saved session for the status command.
type Summary struct {
	Timestamp string
	Exchanges int
	Fields    int
	Criteria  int
}

// Summarize reads the current snapshot and reports its counts. Returns
// (nil, nil) when no session is saved.
func (s *SessionStore) Summarize() (*Summary, error) {
	data, err := os.ReadFile(s.currentPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt session snapshot: %w", err)
	}

	return &Summary{
		Timestamp: doc.Timestamp,
		Exchanges: len(doc.Conversation.History),
		Fields:    len(doc.Certificate.ExtractedFields),
		Criteria:  len(doc.Evaluation.Criteria),
	}, nil
}

// ListSnapshots returns the archived history file names, newest first.
func (s *SessionStore) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(s.historyDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "session_") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place.
func (s *SessionStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}
