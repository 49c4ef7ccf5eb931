// Package cache implements the score cache: an LRU+TTL store keyed by
// request fingerprint that remembers a classifier's last scoring result,
// plus the "jitter lock" that pins the served tier to the mode of recently
// observed tiers when a fingerprint's score keeps landing near a boundary.
package cache

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/fingerprint"
)

const (
	// jitterWindow is how many of the most recent tier observations for a
	// fingerprint are kept to detect oscillation.
	jitterWindow = 5
	// jitterThreshold is how many of the most recent tiers are checked for
	// agreement: if they are not all equal, the cache considers the
	// fingerprint "jittering" and pins it to the modal tier of the
	// jitterWindow instead of trusting the latest classification.
	jitterThreshold = 3
)

// CachedScore is one entry in the score cache.
type CachedScore struct {
	Tier             classify.Tier
	Score            float64
	Confidence       float64
	AgenticScore     float64
	CachedAt         time.Time
	HitCount         int
	DistanceToBoundary float64
	BoundaryName     classify.BoundaryName
	LastTier         classify.Tier

	recentTiers []classify.Tier // ring of up to jitterWindow most recent tiers
	jitterLock  *classify.Tier  // set once the window is judged to be jittering
}

// Cache is the process-wide score cache. It is safe for concurrent use.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[fingerprint.Fingerprint, *CachedScore]
	ttl time.Duration
}

// New builds a score cache holding up to capacity entries, each valid for
// ttl after insertion.
func New(capacity int, ttl time.Duration) (*Cache, error) {
	l, err := lru.New[fingerprint.Fingerprint, *CachedScore](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl}, nil
}

// Get returns the cached score for fp if present and not expired,
// refreshing its LRU access order and hit count. If a jitter lock is
// active for this fingerprint and the locked tier differs from the cached
// tier, the returned entry's tier is substituted with the locked tier and
// its confidence clamped to at least 0.7; jitterApplied reports whether
// that substitution happened.
func (c *Cache) Get(fp fingerprint.Fingerprint) (entry *CachedScore, found, jitterApplied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.lru.Get(fp)
	if !ok {
		return nil, false, false
	}
	if time.Since(raw.CachedAt) > c.ttl {
		c.lru.Remove(fp)
		return nil, false, false
	}
	raw.HitCount++

	if raw.jitterLock != nil && *raw.jitterLock != raw.Tier {
		substituted := *raw
		substituted.Tier = *raw.jitterLock
		substituted.Confidence = math.Max(raw.Confidence, 0.7)
		return &substituted, true, true
	}
	return raw, true, false
}

// Put records a new classification result for fp: the tier/score/
// confidence/agentic score, the distance from score to the nearest tier
// boundary and that boundary's name, and appends to the fingerprint's
// recent-tier history for jitter detection.
func (c *Cache) Put(fp fingerprint.Fingerprint, tier classify.Tier, score, confidence, agenticScore float64, boundaries classify.TierBoundaries) *CachedScore {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, _ := c.lru.Peek(fp)
	var recent []classify.Tier
	var lastTier classify.Tier
	if existing != nil {
		recent = existing.recentTiers
		lastTier = existing.Tier
	}
	recent = append(recent, tier)
	if len(recent) > jitterWindow {
		recent = recent[len(recent)-jitterWindow:]
	}

	dist, boundaryName := nearestBoundary(score, boundaries)

	entry := &CachedScore{
		Tier:               tier,
		Score:              score,
		Confidence:         confidence,
		AgenticScore:       agenticScore,
		CachedAt:           time.Now(),
		DistanceToBoundary: dist,
		BoundaryName:       boundaryName,
		LastTier:           lastTier,
		recentTiers:        recent,
	}
	entry.jitterLock = computeJitterLock(recent)
	c.lru.Add(fp, entry)
	return entry
}

// nearestBoundary returns the absolute distance from score to the closest
// of the three tier boundaries, and that boundary's label.
func nearestBoundary(score float64, b classify.TierBoundaries) (float64, classify.BoundaryName) {
	boundaries := []struct {
		dist float64
		name classify.BoundaryName
	}{
		{math.Abs(score - b.SimpleMedium), classify.BoundarySimpleMedium},
		{math.Abs(score - b.MediumComplex), classify.BoundaryMediumComplex},
		{math.Abs(score - b.ComplexReasoning), classify.BoundaryComplexReasoning},
	}
	best := boundaries[0]
	for _, cand := range boundaries[1:] {
		if cand.dist < best.dist {
			best = cand
		}
	}
	return best.dist, best.name
}

// computeJitterLock inspects the observed tiers for a fingerprint (up to
// jitterWindow of them): when the last jitterThreshold tiers are not all
// equal, classification is oscillating and the modal (most-frequent) tier
// in the window is installed as the lock. Returns nil when fewer than
// jitterThreshold tiers have been observed or the last ones agree.
func computeJitterLock(recent []classify.Tier) *classify.Tier {
	if len(recent) < jitterThreshold {
		return nil
	}
	last := recent[len(recent)-jitterThreshold:]
	stable := true
	for _, t := range last[1:] {
		if t != last[0] {
			stable = false
			break
		}
	}
	if stable {
		return nil
	}
	seen := make(map[classify.Tier]int, jitterWindow)
	for _, t := range recent {
		seen[t]++
	}

	var mode classify.Tier
	best := -1
	for t, n := range seen {
		if n > best || (n == best && t.Rank() < mode.Rank()) {
			mode, best = t, n
		}
	}
	return &mode
}

// ShouldUseCachedTier implements the fuzzy-boundary cache-honoring rule the
// orchestrator applies after reclassifying a cache hit's fingerprint: the
// cached tier should be kept when the newly computed tier disagrees with it
// but the cached entry's score sat within fuzzyWidth of a boundary.
func (entry *CachedScore) ShouldUseCachedTier(newTier classify.Tier, fuzzyWidth float64) bool {
	if entry == nil {
		return false
	}
	return newTier != entry.Tier && entry.DistanceToBoundary < fuzzyWidth
}

// JitterLocked reports whether a jitter lock is currently installed for
// this entry and, if so, the locked tier.
func (entry *CachedScore) JitterLocked() (classify.Tier, bool) {
	if entry == nil || entry.jitterLock == nil {
		return classify.TierSimple, false
	}
	return *entry.jitterLock, true
}

// Len reports the number of live entries, for operational stats.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge clears the cache entirely, including every jitter lock.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// SweepExpired removes every entry whose TTL has elapsed, returning the
// number removed. Intended for the periodic maintenance tick; Get also
// lazily expires entries on access, so this call is an eagerness knob
// rather than a correctness requirement.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, fp := range c.lru.Keys() {
		entry, ok := c.lru.Peek(fp)
		if !ok {
			continue
		}
		if time.Since(entry.CachedAt) > c.ttl {
			c.lru.Remove(fp)
			removed++
		}
	}
	return removed
}
