// Package health tracks per-model operational health: success rate, EMA
// latency, a bounded recent-latency window for percentile estimates, and a
// cooldown/recovery state machine that takes a model out of rotation after
// repeated consecutive errors or a sustained latency/success-rate
// degradation, and verifies a recovering model's success rate before
// restoring it to full service.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/bright8192/ClawRouter/internal/logging"
	"github.com/bright8192/ClawRouter/internal/metrics"
)

const (
	latencyEMAAlpha    = 0.3
	latencyHistorySize = 100

	// maxConsecutiveErrors consecutive failures force a model into cooldown.
	maxConsecutiveErrors = 3
	// cooldownDuration is how long a model is taken out of rotation after
	// tripping the consecutive-error threshold or aging out of unhealthy.
	cooldownDuration = 5 * time.Minute
	// latencyThresholdMs is the p95-latency ceiling above which a model is
	// considered degraded even with an otherwise healthy success rate.
	latencyThresholdMs = 30_000.0

	healthyThreshold  = 0.95
	degradedThreshold = 0.80

	// recoveryThreshold and recoveryRequests gate an early exit from
	// cooldown: if a model keeps receiving feedback while nominally
	// cooling down and clears this bar, it's promoted to degraded without
	// waiting out the rest of the cooldown window.
	recoveryThreshold = 0.90
	recoveryRequests  = 5

	// unhealthyAutoCooldownMinRequests is how many total requests an
	// unhealthy model must have accrued before low success rate alone (as
	// opposed to a burst of consecutive errors) trips cooldown.
	unhealthyAutoCooldownMinRequests = 10
)

// State is a model's current operational health state.
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateUnhealthy
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateUnhealthy:
		return "unhealthy"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Record is one model's tracked health state.
type Record struct {
	Model               string
	State               State
	TotalRequests       int
	SuccessfulRequests  int
	ConsecutiveErrors   int
	ErrorTypes          map[string]int
	EMALatencyMS        float64
	CooldownUntil       time.Time
	CooldownReason      string
	LastRequest         time.Time
	LastSuccess         time.Time
	latencies           *RingBuffer[float64]
	recentSinceCooldown int
	successSinceCooldown int
}

// SuccessRate returns the cumulative success rate over every request this
// model has ever served.
func (r *Record) SuccessRate() float64 {
	if r.TotalRequests == 0 {
		return 1.0
	}
	return float64(r.SuccessfulRequests) / float64(r.TotalRequests)
}

// P95LatencyMS returns the 95th percentile of the buffered recent-latency
// samples, or 0 if there are none yet.
func (r *Record) P95LatencyMS() float64 {
	samples := r.latencies.GetAll()
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	idx := int(0.95 * float64(len(sorted)-1))
	return sorted[idx]
}

// Tracker owns the health records for every known model. Safe for
// concurrent use; a single instance is shared process-wide.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*Record)}
}

func (t *Tracker) recordFor(model string) *Record {
	r, ok := t.records[model]
	if !ok {
		r = &Record{
			Model:      model,
			State:      StateHealthy,
			ErrorTypes: make(map[string]int),
			latencies:  NewRingBuffer[float64](latencyHistorySize),
		}
		t.records[model] = r
	}
	return r
}

// RecordSuccess folds a successful call's latency into model's EMA and
// history, then recomputes its status.
func (t *Tracker) RecordSuccess(model string, latencyMS float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.recordFor(model)
	now := time.Now()
	r.latencies.Push(latencyMS)
	if r.EMALatencyMS == 0 {
		r.EMALatencyMS = latencyMS
	} else {
		r.EMALatencyMS = latencyEMAAlpha*latencyMS + (1-latencyEMAAlpha)*r.EMALatencyMS
	}
	r.TotalRequests++
	r.SuccessfulRequests++
	r.ConsecutiveErrors = 0
	r.LastRequest = now
	r.LastSuccess = now
	if r.State == StateCooldown {
		r.recentSinceCooldown++
		r.successSinceCooldown++
	}

	t.recomputeLocked(r, now)
}

// RecordError folds a failed call (tagged with its error kind, e.g.
// "timeout", "server_5xx") into model's consecutive-error count and
// recomputes its status.
func (t *Tracker) RecordError(model, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.recordFor(model)
	now := time.Now()
	r.TotalRequests++
	r.ConsecutiveErrors++
	r.LastRequest = now
	if kind == "" {
		kind = "other"
	}
	r.ErrorTypes[kind]++
	if r.State == StateCooldown {
		r.recentSinceCooldown++
	}

	t.recomputeLocked(r, now)
}

// recomputeLocked applies the status transition rules in the order the
// specification fixes: cooldown (with an early-recovery escape hatch) takes
// precedence over the consecutive-error trip, which takes precedence over
// the latency-threshold check, which takes precedence over the plain
// success-rate bands. Callers must hold t.mu.
func (t *Tracker) recomputeLocked(r *Record, now time.Time) {
	switch {
	case !r.CooldownUntil.IsZero() && now.Before(r.CooldownUntil):
		if r.recentSinceCooldown >= recoveryRequests &&
			float64(r.successSinceCooldown)/float64(r.recentSinceCooldown) >= recoveryThreshold {
			t.transition(r, StateDegraded)
			r.CooldownUntil = time.Time{}
			r.CooldownReason = ""
			r.recentSinceCooldown, r.successSinceCooldown = 0, 0
			return
		}
		t.transition(r, StateCooldown)

	case r.ConsecutiveErrors >= maxConsecutiveErrors:
		r.CooldownUntil = now.Add(cooldownDuration)
		r.CooldownReason = "consecutive errors"
		r.recentSinceCooldown, r.successSinceCooldown = 0, 0
		t.transition(r, StateCooldown)

	case r.P95LatencyMS() > latencyThresholdMs:
		t.transition(r, StateDegraded)

	default:
		rate := r.SuccessRate()
		switch {
		case rate >= healthyThreshold:
			t.transition(r, StateHealthy)
		case rate >= degradedThreshold:
			t.transition(r, StateDegraded)
		default:
			t.transition(r, StateUnhealthy)
			if r.TotalRequests >= unhealthyAutoCooldownMinRequests {
				r.CooldownUntil = now.Add(cooldownDuration)
				r.CooldownReason = "sustained low success rate"
				r.recentSinceCooldown, r.successSinceCooldown = 0, 0
				t.transition(r, StateCooldown)
			}
		}
	}
}

func (t *Tracker) transition(r *Record, to State) {
	if r.State == to {
		return
	}
	logging.WithComponent("health").Info().
		Str("model", r.Model).
		Str("from", r.State.String()).
		Str("to", to.String()).
		Msg("model health state transition")
	r.State = to
	metrics.ModelHealthState.WithLabelValues(r.Model).Set(float64(to))
}

// IsAvailable reports whether model may currently receive new requests.
// Per invariant I3, a cooldown model is unavailable until now reaches
// CooldownUntil, at which point it downgrades to degraded (never straight
// back to healthy) and becomes available. An unknown model is available by
// default.
func (t *Tracker) IsAvailable(model string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.recordFor(model)
	if r.State == StateCooldown {
		now := time.Now()
		if !r.CooldownUntil.IsZero() && !now.Before(r.CooldownUntil) {
			t.transition(r, StateDegraded)
			r.CooldownUntil = time.Time{}
			r.CooldownReason = ""
			r.recentSinceCooldown, r.successSinceCooldown = 0, 0
			return true
		}
		return false
	}
	return r.State != StateUnhealthy
}

// GetBestModel picks the healthiest model among candidates: available
// models are ranked by status priority (healthy before degraded), then by
// success rate descending (rates within 0.05 of each other are treated as
// tied), then by ascending EMA latency. It returns false if none of the
// candidates are available.
func (t *Tracker) GetBestModel(candidates []string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	type ranked struct {
		model      string
		rank       int
		successRate float64
		latency    float64
	}
	var pool []ranked
	for _, model := range candidates {
		r := t.recordFor(model)
		available, rank := t.availabilityLocked(r)
		if !available {
			continue
		}
		pool = append(pool, ranked{model: model, rank: rank, successRate: r.SuccessRate(), latency: r.EMALatencyMS})
	}
	if len(pool) == 0 {
		return "", false
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if diff := a.successRate - b.successRate; diff > 0.05 || diff < -0.05 {
			return a.successRate > b.successRate
		}
		return a.latency < b.latency
	})
	return pool[0].model, true
}

// availabilityLocked reports whether r may be selected right now (applying
// the same cooldown-expiry downgrade as IsAvailable) and its status-priority
// rank (0=healthy best). Callers must hold t.mu.
func (t *Tracker) availabilityLocked(r *Record) (available bool, rank int) {
	if r.State == StateCooldown {
		now := time.Now()
		if !r.CooldownUntil.IsZero() && !now.Before(r.CooldownUntil) {
			t.transition(r, StateDegraded)
			r.CooldownUntil = time.Time{}
			r.CooldownReason = ""
			r.recentSinceCooldown, r.successSinceCooldown = 0, 0
		} else {
			return false, 3
		}
	}
	switch r.State {
	case StateHealthy:
		return true, 0
	case StateDegraded:
		return true, 1
	default:
		return false, 2
	}
}

// Snapshot returns a shallow copy of a model's current health record, for
// operational stats and tests.
func (t *Tracker) Snapshot(model string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.recordFor(model)
}
