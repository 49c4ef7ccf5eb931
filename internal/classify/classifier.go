package classify

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bright8192/ClawRouter/internal/fingerprint"
	"github.com/bright8192/ClawRouter/internal/logging"
)

const (
	historySoftCap    = 1000
	historyCleanupPct = 0.01
	historyTTL        = 5 * time.Minute
)

// historyEntry is the last tier observed for a given fingerprint, used to
// apply hysteresis against rapid re-classification of near-duplicate
// requests.
type historyEntry struct {
	tier      Tier
	score     float64
	updatedAt time.Time
}

// Classifier scores prompts across fifteen weighted dimensions and maps the
// result to a difficulty tier. It keeps a small per-fingerprint history so
// that a request whose raw score sits right on a tier boundary doesn't
// flip-flop between two adjacent tiers call to call (the Schmitt-trigger
// behavior described for the scoring pipeline).
type Classifier struct {
	mu      sync.Mutex
	history map[fingerprint.Fingerprint]historyEntry
	rng     *rand.Rand
}

// NewClassifier constructs an empty Classifier. A single instance is meant
// to be shared process-wide; all methods are safe for concurrent use.
func NewClassifier() *Classifier {
	return &Classifier{
		history: make(map[fingerprint.Fingerprint]historyEntry),
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Classify scores prompt+system against cfg and returns the weighted tier
// decision. fp is the caller's precomputed fingerprint (see the fingerprint
// package); estimatedTokens is ceil((len(system)+len(prompt))/4) or an
// upstream token-counter's result, at the caller's discretion.
func (c *Classifier) Classify(prompt, system string, estimatedTokens int, cfg ScoringConfig, fp fingerprint.Fingerprint) ScoringResult {
	full := strings.ToLower(system + " " + prompt)
	user := strings.ToLower(prompt)

	in := dimensionInput{
		full:            full,
		user:            user,
		rawUser:         prompt,
		estimatedTokens: estimatedTokens,
		cfg:             cfg,
	}

	scores := make([]DimensionScore, 0, len(allDimensionScorers))
	for _, scorer := range allDimensionScorers {
		scores = append(scores, scorer(in))
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Name < scores[j].Name })

	var weighted float64
	signals := make([]string, 0, len(scores))
	for _, ds := range scores {
		weighted += ds.Score * cfg.DimensionWeights[ds.Name]
		if ds.Signal != "" {
			signals = append(signals, ds.Signal)
		}
	}

	agentic := agenticScoreOf(scores)

	reasoningHits := matchCount(user, cfg.Keywords.ReasoningMarkers)
	if reasoningHits >= 2 {
		t := TierReasoning
		dist := distanceToBoundary(weighted, cfg.TierBoundaries, t)
		confidence := math.Max(sigmoid(cfg.ConfidenceSteepness*dist), 0.85)
		c.remember(fp, t, weighted)
		return ScoringResult{
			WeightedScore: weighted,
			Tier:          &t,
			Confidence:    confidence,
			Signals:       signals,
			AgenticScore:  agentic,
		}
	}

	natural := TierForScore(weighted, cfg.TierBoundaries)
	tier := c.applyHysteresis(fp, natural, weighted, cfg)

	// When hysteresis overrode the naturally computed tier, weighted doesn't
	// actually fall within tier's range, so distanceToBoundary would return a
	// bogus (often negative) value. Per the fuzzy-region rule, use the fixed
	// FuzzyWidth as the distance instead.
	var dist float64
	if tier != natural {
		dist = cfg.FuzzyWidth
	} else {
		dist = distanceToBoundary(weighted, cfg.TierBoundaries, tier)
	}
	confidence := sigmoid(cfg.ConfidenceSteepness * dist)

	c.remember(fp, tier, weighted)

	result := ScoringResult{
		WeightedScore: weighted,
		Tier:          &tier,
		Confidence:    confidence,
		Signals:       signals,
		AgenticScore:  agentic,
	}
	if confidence < cfg.ConfidenceThreshold {
		result.Tier = nil
	}
	return result
}

// agenticScoreOf extracts the agenticTask dimension's raw score, one of
// {0, 0.2, 0.6, 1.0}, for the orchestrator's agentic-mode override.
func agenticScoreOf(scores []DimensionScore) float64 {
	for _, ds := range scores {
		if ds.Name == "agenticTask" {
			return ds.Score
		}
	}
	return 0
}

// TierForScore maps a weighted score to a tier using the three ordered
// boundaries, with no hysteresis applied. Exported so callers that
// re-derive a score after the fact — e.g. the adaptive weight manager's
// post-hoc adjustment — can re-map it to a tier without re-running the full
// classification pass.
func TierForScore(score float64, b TierBoundaries) Tier {
	switch {
	case score < b.SimpleMedium:
		return TierSimple
	case score < b.MediumComplex:
		return TierMedium
	case score < b.ComplexReasoning:
		return TierComplex
	default:
		return TierReasoning
	}
}

// distanceToBoundary returns how far score sits from the nearest boundary
// that bounds the given tier, used to calibrate confidence: a score deep
// inside a tier's range is far more confident than one that just crossed.
func distanceToBoundary(score float64, b TierBoundaries, t Tier) float64 {
	switch t {
	case TierSimple:
		return b.SimpleMedium - score
	case TierMedium:
		return math.Min(score-b.SimpleMedium, b.MediumComplex-score)
	case TierComplex:
		return math.Min(score-b.MediumComplex, b.ComplexReasoning-score)
	default:
		return score - b.ComplexReasoning
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// applyHysteresis pins the tier to the previously observed tier for this
// fingerprint when the new score sits within FuzzyWidth of the boundary the
// previous tier sat on the far side of — the Schmitt-trigger behavior that
// keeps near-duplicate requests from oscillating across a boundary.
func (c *Classifier) applyHysteresis(fp fingerprint.Fingerprint, candidate Tier, score float64, cfg ScoringConfig) Tier {
	c.mu.Lock()
	prev, ok := c.history[fp]
	c.mu.Unlock()
	if !ok || prev.tier == candidate {
		return candidate
	}

	boundaries := []float64{cfg.TierBoundaries.SimpleMedium, cfg.TierBoundaries.MediumComplex, cfg.TierBoundaries.ComplexReasoning}
	for _, boundary := range boundaries {
		if math.Abs(score-boundary) <= cfg.FuzzyWidth {
			return prev.tier
		}
	}
	return candidate
}

// remember records the tier decision for fp and opportunistically trims the
// history map: a hard cap of historySoftCap entries (oldest-by-timestamp
// evicted first) plus a 1% chance per call of sweeping TTL-expired entries.
func (c *Classifier) remember(fp fingerprint.Fingerprint, t Tier, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.history[fp] = historyEntry{tier: t, score: score, updatedAt: now}

	if c.rng.Float64() < historyCleanupPct {
		c.sweepExpiredLocked(now)
	}
	if len(c.history) > historySoftCap {
		c.evictOldestLocked()
	}
}

func (c *Classifier) sweepExpiredLocked(now time.Time) {
	removed := 0
	for fp, e := range c.history {
		if now.Sub(e.updatedAt) > historyTTL {
			delete(c.history, fp)
			removed++
		}
	}
	if removed > 0 {
		logging.WithComponent("classifier").Debug().Int("removed", removed).Msg("swept expired score history entries")
	}
}

func (c *Classifier) evictOldestLocked() {
	var oldestFP fingerprint.Fingerprint
	var oldestAt time.Time
	first := true
	for fp, e := range c.history {
		if first || e.updatedAt.Before(oldestAt) {
			oldestFP, oldestAt = fp, e.updatedAt
			first = false
		}
	}
	if !first {
		delete(c.history, oldestFP)
	}
}

// HistoryLen reports the current size of the score history map, for tests
// and operational stats.
func (c *Classifier) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}
