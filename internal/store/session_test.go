package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certeval/internal/state"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func populatedContext() *state.Context {
	st := state.New()
	st.Certificate.RawText = "This certifies that Jane Doe earned a GPA of 3.87."
	st.Certificate.ExtractedFields["Name"] = "Jane Doe"
	st.Certificate.ExtractedFields["GPA"] = "3.87"
	st.Certificate.Confidence["Name"] = 0.98
	st.Certificate.Confidence["GPA"] = 0.95
	st.Evaluation.Criteria["GPA"] = 0.5
	st.Evaluation.Criteria["Research"] = 0.5
	st.Evaluation.Scores["GPA"] = 45.0
	st.Evaluation.FinalScore = 60.0
	st.Conversation.LastUserMessage = "score it"
	st.Conversation.LastAgentMessage = "Final score: 60.0/100"
	st.Conversation.LastReason = "scoring requested"
	st.Conversation.PendingConfirmation = true
	st.Conversation.History = []state.Turn{
		{User: "extract it", Agent: "done", Action: "extract_information"},
		{User: "score it", Agent: "Final score: 60.0/100", Action: "rescore"},
	}
	st.Conversation.Reasoning = []state.Reasoning{
		{Decision: "rescore", Reason: "scoring requested", Context: "User said: score it"},
	}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	original := populatedContext()

	require.NoError(t, s.Save(original))

	restored := state.New()
	require.NoError(t, s.Load(restored))

	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("context changed across save/load (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFileIsNoOp(t *testing.T) {
	s := newTestStore(t)

	st := state.New()
	st.Certificate.ExtractedFields["Name"] = "keep me"
	require.NoError(t, s.Load(st))
	assert.Equal(t, "keep me", st.Certificate.ExtractedFields["Name"])
}

func TestLoadMissingSectionIsError(t *testing.T) {
	s := newTestStore(t)

	// A snapshot missing the conversation section must be rejected.
	require.NoError(t, os.WriteFile(s.currentPath(), []byte(
		`{"timestamp": "2026-01-01T00:00:00Z", "certificate": {}, "evaluation": {}}`), 0o644))

	st := state.New()
	st.Certificate.ExtractedFields["Name"] = "untouched"
	err := s.Load(st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversation")
	assert.Equal(t, "untouched", st.Certificate.ExtractedFields["Name"])
}

func TestLoadCorruptSnapshotIsError(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.currentPath(), []byte("{not json"), 0o644))

	err := s.Load(state.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestLoadReinitializesNilMaps(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.currentPath(), []byte(`{
		"timestamp": "2026-01-01T00:00:00Z",
		"certificate": {"raw_text": "text", "extracted_fields": null, "confidence": null},
		"evaluation": {"criteria": null, "scores": null, "final_score": 0},
		"conversation": {}
	}`), 0o644))

	st := state.New()
	require.NoError(t, s.Load(st))
	assert.NotNil(t, st.Certificate.ExtractedFields)
	assert.NotNil(t, st.Certificate.Confidence)
	assert.NotNil(t, st.Evaluation.Criteria)
	assert.NotNil(t, st.Evaluation.Scores)
}

func TestSaveWritesHistoryCopy(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC) }

	require.NoError(t, s.Save(populatedContext()))

	names, err := s.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "session_20260315_103000.json", names[0])
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(populatedContext()))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	st := populatedContext()

	stamps := []time.Time{
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC),
	}
	for _, ts := range stamps {
		now := ts
		s.now = func() time.Time { return now }
		require.NoError(t, s.Save(st))
	}

	names, err := s.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, names, 3)
	assert.Equal(t, "session_20260103_090000.json", names[0])
	assert.Equal(t, "session_20260101_090000.json", names[2])
}

func TestClearRemovesOnlyCurrentSnapshot(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(populatedContext()))
	require.NoError(t, s.Clear())

	_, err := os.Stat(s.currentPath())
	assert.True(t, os.IsNotExist(err))

	names, err := s.ListSnapshots()
	require.NoError(t, err)
	assert.NotEmpty(t, names, "history copies survive a clear")

	// Clearing twice is fine.
	require.NoError(t, s.Clear())
}

func TestSummarize(t *testing.T) {
	s := newTestStore(t)

	summary, err := s.Summarize()
	require.NoError(t, err)
	assert.Nil(t, summary)

	require.NoError(t, s.Save(populatedContext()))
	summary, err = s.Summarize()
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Exchanges)
	assert.Equal(t, 2, summary.Fields)
	assert.Equal(t, 2, summary.Criteria)
}
