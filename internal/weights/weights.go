// Package weights implements the adaptive weight manager: it tracks
// per-dimension and per-tier routing outcomes (latency, cost, success) as
// exponential moving averages and periodically nudges each dimension's
// configured weight within a bounded multiplicative factor, so dimensions
// that correlate with good outcomes gain influence over time.
package weights

import (
	"strings"
	"sync"

	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/logging"
	"github.com/bright8192/ClawRouter/internal/metrics"
)

const (
	// emaAlpha smooths latency/cost/success observations.
	emaAlpha = 0.3
	// adjustmentInterval is how many recorded feedback calls accumulate
	// before the manager recomputes adjustment factors.
	adjustmentInterval = 10
	// minFactor and maxFactor bound the multiplicative adjustment applied
	// to a dimension's configured weight.
	minFactor = 0.8
	maxFactor = 1.2
)

// signalPrefixes maps a classification signal's leading word(s) to the
// dimension name that produced it, so recorded feedback — which carries
// human-readable signals like "code (function, class)" — can be folded
// back into the per-dimension performance trackers that drove it.
var signalPrefixes = []struct {
	prefix    string
	dimension string
}{
	{"code", "codePresence"},
	{"reasoning", "reasoningMarkers"},
	{"technical", "technicalTerms"},
	{"creative", "creativeMarkers"},
	{"simple", "simpleIndicators"},
	{"multi-step", "multiStepPatterns"},
	{"multi-question", "questionComplexity"},
	{"imperative", "imperativeVerbs"},
	{"constrained", "constraintCount"},
	{"structured-output", "outputFormat"},
	{"referential", "referenceComplexity"},
	{"negation", "negationComplexity"},
	{"domain-specific", "domainSpecificity"},
	{"agentic", "agenticTask"},
	{"short prompt", "tokenCount"},
	{"long prompt", "tokenCount"},
}

// ResolveDimension maps a classification signal string to the dimension
// name that emitted it, via the fixed prefix table above. The second return
// value is false for unrecognized signals.
func ResolveDimension(signal string) (string, bool) {
	for _, entry := range signalPrefixes {
		if strings.HasPrefix(signal, entry.prefix) {
			return entry.dimension, true
		}
	}
	return "", false
}

// Feedback is one observed routing outcome, reported back to the manager
// after a request completes.
type Feedback struct {
	Tier       classify.Tier
	Dimensions []string // dimension names whose signal fired for this request
	LatencyMS  float64
	CostUSD    float64
	Success    bool
}

// dimensionPerformance tracks the EMA performance signal for one dimension.
type dimensionPerformance struct {
	emaLatency float64
	emaCost    float64
	emaSuccess float64
	factor     float64
	samples    int
}

// tierPerformance tracks the same EMA signals aggregated per tier, used for
// operational stats rather than weight adjustment.
type tierPerformance struct {
	emaLatency float64
	emaCost    float64
	emaSuccess float64
	samples    int
}

// Manager owns the live dimension weights and their adjustment state. A
// single instance is shared process-wide.
type Manager struct {
	mu              sync.Mutex
	baseWeights     map[string]float64
	dimPerformance  map[string]*dimensionPerformance
	tierPerformance map[classify.Tier]*tierPerformance
	callsSinceAdjust int
}

// NewManager seeds the manager from a classifier configuration's base
// dimension weights.
func NewManager(baseWeights map[string]float64) *Manager {
	m := &Manager{
		baseWeights:     make(map[string]float64, len(baseWeights)),
		dimPerformance:  make(map[string]*dimensionPerformance, len(baseWeights)),
		tierPerformance: make(map[classify.Tier]*tierPerformance, 4),
	}
	for name, w := range baseWeights {
		m.baseWeights[name] = w
		m.dimPerformance[name] = &dimensionPerformance{factor: 1.0}
	}
	return m
}

// RecordFeedback folds one routing outcome into the EMA trackers for every
// dimension that fired, and for the decision's tier. Every adjustmentInterval
// calls it recomputes adjustment factors.
func (m *Manager) RecordFeedback(fb Feedback) {
	m.mu.Lock()
	defer m.mu.Unlock()

	successVal := 0.0
	if fb.Success {
		successVal = 1.0
	}

	for _, name := range fb.Dimensions {
		dp, ok := m.dimPerformance[name]
		if !ok {
			dp = &dimensionPerformance{factor: 1.0}
			m.dimPerformance[name] = dp
		}
		dp.update(fb.LatencyMS, fb.CostUSD, successVal)
	}

	tp, ok := m.tierPerformance[fb.Tier]
	if !ok {
		tp = &tierPerformance{}
		m.tierPerformance[fb.Tier] = tp
	}
	tp.update(fb.LatencyMS, fb.CostUSD, successVal)

	m.callsSinceAdjust++
	if m.callsSinceAdjust >= adjustmentInterval {
		m.callsSinceAdjust = 0
		m.recomputeFactorsLocked()
	}
}

func (dp *dimensionPerformance) update(latencyMS, costUSD, success float64) {
	if dp.samples == 0 {
		dp.emaLatency, dp.emaCost, dp.emaSuccess = latencyMS, costUSD, success
	} else {
		dp.emaLatency = emaAlpha*latencyMS + (1-emaAlpha)*dp.emaLatency
		dp.emaCost = emaAlpha*costUSD + (1-emaAlpha)*dp.emaCost
		dp.emaSuccess = emaAlpha*success + (1-emaAlpha)*dp.emaSuccess
	}
	dp.samples++
}

func (tp *tierPerformance) update(latencyMS, costUSD, success float64) {
	if tp.samples == 0 {
		tp.emaLatency, tp.emaCost, tp.emaSuccess = latencyMS, costUSD, success
	} else {
		tp.emaLatency = emaAlpha*latencyMS + (1-emaAlpha)*tp.emaLatency
		tp.emaCost = emaAlpha*costUSD + (1-emaAlpha)*tp.emaCost
		tp.emaSuccess = emaAlpha*success + (1-emaAlpha)*tp.emaSuccess
	}
	tp.samples++
}

// performanceScore folds latency, cost, and success into a single [0,1]
// composite: p = 0.3*latencyScore + 0.3*costScore + 0.4*success. Latency and
// cost are normalized against a soft reference ceiling so that lower is
// better and the composite stays within range for typical values.
func performanceScore(dp *dimensionPerformance) float64 {
	const refLatencyMS = 10000.0
	const refCostUSD = 0.1

	latencyScore := clamp01(1 - dp.emaLatency/refLatencyMS)
	costScore := clamp01(1 - dp.emaCost/refCostUSD)
	return 0.3*latencyScore + 0.3*costScore + 0.4*dp.emaSuccess
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// recomputeFactorsLocked nudges every dimension's adjustment factor toward
// a value reflecting its recent composite performance score, clamped to
// [minFactor, maxFactor]. Dimensions with too few samples are left at their
// current factor.
func (m *Manager) recomputeFactorsLocked() {
	for _, dp := range m.dimPerformance {
		if dp.samples < 5 {
			continue
		}
		p := performanceScore(dp)
		// Map p in [0,1] onto [minFactor, maxFactor].
		target := minFactor + p*(maxFactor-minFactor)
		dp.factor = clampFactor(emaAlpha*target + (1-emaAlpha)*dp.factor)
	}
	metrics.AdaptiveWeightAdjustments.Inc()
	logging.WithComponent("weights").Debug().Msg("recomputed adaptive weight factors")
}

func clampFactor(f float64) float64 {
	if f < minFactor {
		return minFactor
	}
	if f > maxFactor {
		return maxFactor
	}
	return f
}

// GetAllWeights returns the current effective weight for every dimension:
// base weight times its adjustment factor.
func (m *Manager) GetAllWeights() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.baseWeights))
	for name, base := range m.baseWeights {
		factor := 1.0
		if dp, ok := m.dimPerformance[name]; ok {
			factor = dp.factor
		}
		out[name] = base * factor
	}
	return out
}

// ApplyTo scales a raw weighted classifier score by the mean of all current
// adjustment factors. This is the single chokepoint through which adaptive
// weighting affects a classification result; callers that need the
// pre-adjustment score should keep their own copy of rawScore.
func (m *Manager) ApplyTo(rawScore float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.dimPerformance) == 0 {
		return rawScore
	}
	var sum float64
	for _, dp := range m.dimPerformance {
		sum += dp.factor
	}
	mean := sum / float64(len(m.dimPerformance))
	return rawScore * mean
}
