package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreate_PinsDefaultModel(t *testing.T) {
	s := NewStore()
	e := s.GetOrCreate("sess-1", "claude-sonnet")
	assert.Equal(t, "claude-sonnet", e.PinnedModel)

	again := s.GetOrCreate("sess-1", "claude-opus")
	assert.Equal(t, "claude-sonnet", again.PinnedModel)
}

func TestStore_RecordResult_DegradesAfterRepeatedFailures(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sess-2", "claude-opus")

	s.RecordResult("sess-2", "claude-opus", false, "timeout", "claude-haiku", true)
	s.RecordResult("sess-2", "claude-opus", false, "timeout", "claude-haiku", true)

	e := s.GetOrCreate("sess-2", "claude-opus")
	assert.Equal(t, "claude-haiku", e.PinnedModel)
	require.Len(t, e.RecentErrors, 2)
}

func TestStore_RecordResult_RestoresAfterRecovery(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sess-3", "claude-opus")
	s.RecordResult("sess-3", "claude-opus", false, "err", "claude-haiku", true)
	s.RecordResult("sess-3", "claude-opus", false, "err", "claude-haiku", true)
	require.Equal(t, "claude-haiku", s.GetOrCreate("sess-3", "claude-opus").PinnedModel)

	for i := 0; i < restoreAfterSuccesses; i++ {
		s.RecordResult("sess-3", "claude-haiku", true, "", "claude-haiku", true)
	}
	assert.Equal(t, "claude-opus", s.GetOrCreate("sess-3", "claude-opus").PinnedModel)
}

func TestStore_RecordResult_DefersRestorationWhileOriginalUnavailable(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sess-4", "claude-opus")
	s.RecordResult("sess-4", "claude-opus", false, "err", "claude-haiku", true)
	s.RecordResult("sess-4", "claude-opus", false, "err", "claude-haiku", true)
	require.Equal(t, "claude-haiku", s.GetOrCreate("sess-4", "claude-opus").PinnedModel)

	// Reaches the recovery threshold, but the original model is still
	// unavailable: restoration must not happen yet.
	for i := 0; i < restoreAfterSuccesses; i++ {
		s.RecordResult("sess-4", "claude-haiku", true, "", "claude-haiku", false)
	}
	e := s.GetOrCreate("sess-4", "claude-opus")
	assert.Equal(t, "claude-haiku", e.PinnedModel)
	assert.True(t, e.Degraded())

	// Once the original model becomes available, the next success restores it.
	s.RecordResult("sess-4", "claude-haiku", true, "", "claude-haiku", true)
	assert.Equal(t, "claude-opus", s.GetOrCreate("sess-4", "claude-opus").PinnedModel)
}

func TestStore_SweepExpired(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("old", "m")
	s.entries["old"].LastSeen = time.Now().Add(-sessionTimeout - time.Minute)
	s.GetOrCreate("fresh", "m")

	removed := s.SweepExpired(time.Now())
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}
