package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/fingerprint"
)

var testBoundaries = classify.TierBoundaries{
	SimpleMedium:     0.30,
	MediumComplex:    0.55,
	ComplexReasoning: 0.80,
}

func TestCache_PutGet(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)

	fp := fingerprint.Compute("hello", "")
	c.Put(fp, classify.TierSimple, 0.1, 0.9, 0.0, testBoundaries)

	entry, found, jitterApplied := c.Get(fp)
	require.True(t, found)
	assert.False(t, jitterApplied)
	assert.Equal(t, classify.TierSimple, entry.Tier)
	assert.Equal(t, 1, entry.HitCount)
}

func TestCache_Expiry(t *testing.T) {
	c, err := New(16, time.Millisecond)
	require.NoError(t, err)

	fp := fingerprint.Compute("hello", "")
	c.Put(fp, classify.TierSimple, 0.1, 0.9, 0.0, testBoundaries)
	time.Sleep(5 * time.Millisecond)

	_, found, _ := c.Get(fp)
	assert.False(t, found)
}

func TestCache_JitterLockPinsToModeTier(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)

	fp := fingerprint.Compute("boundary prompt", "")
	tiers := []classify.Tier{
		classify.TierMedium, classify.TierComplex, classify.TierMedium,
		classify.TierComplex, classify.TierMedium,
	}
	var entry *CachedScore
	for _, tr := range tiers {
		entry = c.Put(fp, tr, 0.55, 0.6, 0.0, testBoundaries)
	}

	mode, pinned := entry.JitterLocked()
	require.True(t, pinned)
	assert.Equal(t, classify.TierMedium, mode)

	// The last cached tier is already MEDIUM, the locked mode, so Get has
	// nothing to substitute.
	got, found, jitterApplied := c.Get(fp)
	require.True(t, found)
	assert.False(t, jitterApplied)
	assert.Equal(t, classify.TierMedium, got.Tier)
}

func TestCache_NoJitterLockWithStableTier(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)

	fp := fingerprint.Compute("stable prompt", "")
	var entry *CachedScore
	for i := 0; i < jitterWindow; i++ {
		entry = c.Put(fp, classify.TierSimple, 0.0, 0.95, 0.0, testBoundaries)
	}

	_, pinned := entry.JitterLocked()
	assert.False(t, pinned)
}

func TestCache_ShouldUseCachedTier_WithinFuzzyWidthOfBoundary(t *testing.T) {
	c, err := New(16, time.Minute)
	require.NoError(t, err)

	fp := fingerprint.Compute("close to boundary", "")
	entry := c.Put(fp, classify.TierMedium, 0.29, 0.6, 0.0, testBoundaries)

	assert.True(t, entry.ShouldUseCachedTier(classify.TierSimple, 0.05))
	assert.False(t, entry.ShouldUseCachedTier(classify.TierMedium, 0.05))
}

func TestCache_SweepExpiredRemovesStaleEntries(t *testing.T) {
	c, err := New(16, time.Millisecond)
	require.NoError(t, err)

	fp := fingerprint.Compute("hello", "")
	c.Put(fp, classify.TierSimple, 0.1, 0.9, 0.0, testBoundaries)
	time.Sleep(5 * time.Millisecond)

	removed := c.SweepExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}
