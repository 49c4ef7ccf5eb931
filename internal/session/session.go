// Package session implements the per-session model pin: once a session has
// been routed to a model it stays pinned to that model for causal
// consistency within the conversation, degrading to a healthier model after
// repeated failures and restoring the original pin once that model recovers.
package session

import (
	"sync"
	"time"

	"github.com/bright8192/ClawRouter/internal/logging"
)

const (
	// degradeAfterErrors is how many recent consecutive errors on the
	// pinned model trigger a switch to a fallback model.
	degradeAfterErrors = 2
	// restoreAfterSuccesses is how many consecutive successes the session
	// must record while degraded (i.e. on its fallback model) before it is
	// restored to its original pin.
	restoreAfterSuccesses = 3
	// recentErrorsCap bounds the ring of recently observed errors kept per
	// session for diagnostics.
	recentErrorsCap = 5
	// sessionTimeout is how long a session may go unreferenced before the
	// periodic sweep reclaims it.
	sessionTimeout = 30 * time.Minute
)

// degradation records that a session's pin was overridden, and tracks
// progress toward restoring it.
type degradation struct {
	originalModel      string
	fallbackModel       string
	consecutiveRestores int
}

// Entry is one session's routing state.
type Entry struct {
	SessionID         string
	PinnedModel       string
	LastTier          string
	LastSeen          time.Time
	ConsecutiveErrors int
	RecentErrors      []string
	degraded          *degradation
}

// Degraded reports whether this session's pin currently differs from its
// originally assigned model due to a failure-driven degradation episode.
func (e *Entry) Degraded() bool {
	return e.degraded != nil
}

// OriginalModel returns the model this session was pinned to before its
// current degradation episode, or "" if the session isn't degraded.
func (e *Entry) OriginalModel() string {
	if e.degraded == nil {
		return ""
	}
	return e.degraded.originalModel
}

// Store holds every live session entry. Safe for concurrent use; a single
// instance is shared process-wide.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewStore builds an empty session store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// GetOrCreate returns the session's entry, pinning it to defaultModel on
// first use.
func (s *Store) GetOrCreate(sessionID, defaultModel string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		e = &Entry{
			SessionID:   sessionID,
			PinnedModel: defaultModel,
			LastSeen:    time.Now(),
		}
		s.entries[sessionID] = e
	}
	return e
}

// RecordResult folds a routing outcome back into the session: on success it
// resets the error streak and, if the session is currently degraded,
// advances the restoration counter. On failure it advances the error streak
// and degrades to fallbackModel once degradeAfterErrors is reached.
// originalModelAvailable reports whether the session's pre-degradation model
// is currently available per the health tracker — restoration is gated on
// it per §4.6, since this package holds no direct reference to health.
func (s *Store) RecordResult(sessionID, modelUsed string, success bool, errMsg, fallbackModel string, originalModelAvailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return
	}
	e.LastSeen = time.Now()

	if success {
		e.ConsecutiveErrors = 0
		if e.degraded != nil {
			e.degraded.consecutiveRestores++
			if e.degraded.consecutiveRestores >= restoreAfterSuccesses {
				if originalModelAvailable {
					logging.WithComponent("session").Info().
						Str("session", sessionID).
						Str("restored_to", e.degraded.originalModel).
						Msg("session pin restored after recovery")
					e.PinnedModel = e.degraded.originalModel
					e.degraded = nil
				} else {
					logging.WithComponent("session").Debug().
						Str("session", sessionID).
						Str("original_model", e.degraded.originalModel).
						Msg("recovery threshold reached but original model still unavailable; deferring restoration")
					e.degraded.consecutiveRestores = restoreAfterSuccesses - 1
				}
			}
		}
		return
	}

	e.ConsecutiveErrors++
	if e.degraded != nil {
		e.degraded.consecutiveRestores = 0
	}
	e.RecentErrors = append(e.RecentErrors, errMsg)
	if len(e.RecentErrors) > recentErrorsCap {
		e.RecentErrors = e.RecentErrors[len(e.RecentErrors)-recentErrorsCap:]
	}

	if e.ConsecutiveErrors >= degradeAfterErrors && e.degraded == nil && fallbackModel != "" && fallbackModel != modelUsed {
		e.degraded = &degradation{originalModel: e.PinnedModel, fallbackModel: fallbackModel}
		logging.WithComponent("session").Warn().
			Str("session", sessionID).
			Str("from", e.PinnedModel).
			Str("to", fallbackModel).
			Msg("session pin degraded after repeated failures")
		e.PinnedModel = fallbackModel
		e.ConsecutiveErrors = 0
	}
}

// Peek returns the session's entry without creating one or mutating
// LastSeen, for callers that need to inspect state (e.g. checking
// degradation) without counting as activity.
func (s *Store) Peek(sessionID string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sessionID]
	return e, ok
}

// SetLastTier records the most recently observed classification tier for a
// session.
func (s *Store) SetLastTier(sessionID, tier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		e.LastTier = tier
	}
}

// SweepExpired removes sessions not referenced within sessionTimeout,
// returning the number removed. Intended to be called from the periodic
// maintenance sweep.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.LastSeen) > sessionTimeout {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions, for operational stats.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
