package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bright8192/ClawRouter/internal/cache"
	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/fingerprint"
	"github.com/bright8192/ClawRouter/internal/session"
)

func TestScheduler_StartStop(t *testing.T) {
	sessions := session.NewStore()
	scoreCache, err := cache.New(16, time.Minute)
	require.NoError(t, err)

	s := NewScheduler(sessions, scoreCache)
	s.Start()
	s.Stop()
}

func TestScheduler_NilCacheIsSafe(t *testing.T) {
	sessions := session.NewStore()
	s := NewScheduler(sessions, nil)
	s.Start()
	s.Stop()
}

func TestScheduler_SweepRemovesExpiredState(t *testing.T) {
	sessions := session.NewStore()
	sessions.GetOrCreate("sess", "claude-haiku")

	scoreCache, err := cache.New(16, time.Millisecond)
	require.NoError(t, err)

	s := NewScheduler(sessions, scoreCache)
	defer s.Stop()

	fp := fingerprint.Compute("hello", "")
	scoreCache.Put(fp, classify.TierSimple, 0.1, 0.9, 0.0, classify.TierBoundaries{
		SimpleMedium: 0.3, MediumComplex: 0.55, ComplexReasoning: 0.8,
	})
	time.Sleep(5 * time.Millisecond)

	removed := scoreCache.SweepExpired()
	require.Equal(t, 1, removed)
}
