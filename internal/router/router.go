// Package router composes the fingerprinter, classifier, score cache,
// adaptive weight manager, model health tracker, and session store into the
// single entry point callers use to route a prompt: Orchestrator.Route.
package router

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bright8192/ClawRouter/internal/cache"
	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/fingerprint"
	"github.com/bright8192/ClawRouter/internal/health"
	"github.com/bright8192/ClawRouter/internal/logging"
	"github.com/bright8192/ClawRouter/internal/maintenance"
	"github.com/bright8192/ClawRouter/internal/metrics"
	"github.com/bright8192/ClawRouter/internal/routerconfig"
	"github.com/bright8192/ClawRouter/internal/session"
	"github.com/bright8192/ClawRouter/internal/weights"
)

// reStructuredOutput detects a system prompt asking for machine-readable
// output, per the structured-output override in the orchestrator design.
var reStructuredOutput = regexp.MustCompile(`(?i)json|structured|schema`)

// Request is one prompt to be routed.
type Request struct {
	Prompt             string
	System             string
	SessionID          string
	ConversationTokens int  // total tokens already in the conversation, for the large-context override
	StructuredOutput   bool // caller requested a structured (JSON/YAML/table) response
	AgenticMode        bool // caller is operating in an agentic/tool-use loop
}

// Decision is the outcome of a single Route call. The orchestrator expects
// the caller to hand the same Decision back to RecordRoutingFeedback once
// the upstream call completes — its Signals are what closes the loop into
// per-dimension adaptive-weight feedback.
type Decision struct {
	DecisionID   string
	SessionID    string
	Tier         classify.Tier
	Model        string
	Confidence   float64
	Method       string // always "rules" — no learned model is consulted
	Reasoning    string
	Signals      []string
	CacheHit     bool
	JitterLocked bool
	Overrides    []string
	ClassifiedAt time.Time
	Duration     time.Duration
}

// ObservedOutcome is what callers report back after a routed request
// completes: the upstream call's success/failure, latency, cost, token
// counts, and (on failure) an errorType from the fixed taxonomy in §7
// (timeout, rate_limit, server_5xx, auth, payment_required, canceled,
// other).
type ObservedOutcome struct {
	Success      bool
	LatencyMS    float64
	CostUSD      float64
	InputTokens  int
	OutputTokens int
	ErrorType    string
}

// Stats is a snapshot of cumulative orchestration counters.
type Stats struct {
	TotalRequests      int64
	CacheHits          int64
	CacheMisses        int64
	JitterLocks        int64
	AmbiguousDefaults  int64
	AgenticOverrides   int64
	LargeContextOverrides int64
	StructuredOverrides   int64
	AverageConfidence  float64
}

// Orchestrator is the process-wide route orchestrator. A single instance is
// meant to be shared across all incoming requests.
type Orchestrator struct {
	cfg        *routerconfig.Config
	classifier *classify.Classifier
	scoreCache *cache.Cache
	weights    *weights.Manager
	health     *health.Tracker
	sessions   *session.Store
	scheduler  *maintenance.Scheduler

	mu    sync.Mutex
	stats Stats
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithHealthTracker overrides the default model health tracker, primarily
// for tests.
func WithHealthTracker(t *health.Tracker) Option {
	return func(o *Orchestrator) { o.health = t }
}

// WithSessionStore overrides the default session store, primarily for
// tests.
func WithSessionStore(s *session.Store) Option {
	return func(o *Orchestrator) { o.sessions = s }
}

// New builds an Orchestrator from a validated router configuration.
func New(cfg *routerconfig.Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scoreCache, err := cache.New(cfg.ScoreCacheCapacity, time.Duration(cfg.ScoreCacheTTLSec)*time.Second)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:        cfg,
		classifier: classify.NewClassifier(),
		scoreCache: scoreCache,
		weights:    weights.NewManager(cfg.ScoringConfig().DimensionWeights),
		health:     health.NewTracker(),
		sessions:   session.NewStore(),
	}
	for _, opt := range opts {
		opt(o)
	}

	o.scheduler = maintenance.NewScheduler(o.sessions, o.scoreCache)
	o.scheduler.Start()

	return o, nil
}

// Close stops the orchestrator's background maintenance sweep (session
// timeout and score-cache TTL expiry). Safe to call once after the
// orchestrator is no longer in use.
func (o *Orchestrator) Close() {
	if o.scheduler != nil {
		o.scheduler.Stop()
	}
}

// Route classifies req and returns the full routing decision: tier, target
// model, confidence, and which overrides fired.
func (o *Orchestrator) Route(req Request) *Decision {
	start := time.Now()
	log := logging.WithComponent("router")

	fp := fingerprint.Compute(req.Prompt, req.System)
	estimatedTokens := estimateTokens(req.Prompt, req.System)

	tier, confidence, signals, agenticScore, cacheHit, jitterLocked := o.classifyWithCache(req.Prompt, req.System, estimatedTokens, fp)

	overrides := make([]string, 0, 4)
	reasoningParts := make([]string, 0, 2)

	// Step 5 — agentic mode selection only swaps which tier→model table is
	// consulted later; it does not by itself move the tier.
	agenticMode := req.AgenticMode || agenticScore >= 0.75

	// Step 6 — large-context override forces COMPLEX and skips every other
	// tier adjustment below.
	largeContext := estimatedTokens > o.cfg.Overrides.MaxTokensForceComplex
	if largeContext {
		forced := classify.TierComplex
		tier = &forced
		confidence = 0.95
		overrides = append(overrides, "large-context")
		reasoningParts = append(reasoningParts, fmt.Sprintf("Input exceeds %d tokens", o.cfg.Overrides.MaxTokensForceComplex))
		o.bump(func(s *Stats) { s.LargeContextOverrides++ })
	} else {
		if tier == nil {
			def, _ := classify.ParseTier(o.cfg.Overrides.AmbiguousDefaultTier)
			tier = &def
			confidence = 0.5
			overrides = append(overrides, "ambiguous-default")
			reasoningParts = append(reasoningParts, "ambiguous classification, using configured default tier")
			o.bump(func(s *Stats) { s.AmbiguousDefaults++ })
		}

		// Step 7 — structured-output override: system prompt asks for
		// JSON/structured/schema output below the configured minimum tier.
		structuredMinTier, _ := classify.ParseTier(o.cfg.Overrides.StructuredOutputMinTier)
		if (req.StructuredOutput || reStructuredOutput.MatchString(req.System)) && tier.Rank() < structuredMinTier.Rank() {
			tier = &structuredMinTier
			overrides = append(overrides, "structured-output")
			reasoningParts = append(reasoningParts, "structured output requested")
			o.bump(func(s *Stats) { s.StructuredOverrides++ })
		}
	}

	if agenticMode {
		overrides = append(overrides, "agentic-mode")
		o.bump(func(s *Stats) { s.AgenticOverrides++ })
	}

	model, healthOverride := o.selectModel(*tier, req, largeContext, agenticMode)
	if healthOverride {
		overrides = append(overrides, "health-override")
	}

	if len(reasoningParts) == 0 {
		reasoningParts = append(reasoningParts, fmt.Sprintf("classified %s by weighted dimension score", tier.String()))
	}

	decision := &Decision{
		DecisionID:   uuid.NewString(),
		SessionID:    req.SessionID,
		Tier:         *tier,
		Model:        model,
		Confidence:   confidence,
		Method:       "rules",
		Reasoning:    strings.Join(reasoningParts, "; "),
		Signals:      signals,
		CacheHit:     cacheHit,
		JitterLocked: jitterLocked,
		Overrides:    overrides,
		ClassifiedAt: start,
		Duration:     time.Since(start),
	}

	metrics.RoutingDecisions.WithLabelValues(tier.String(), model).Inc()
	metrics.ClassificationDuration.Observe(decision.Duration.Seconds())

	o.mu.Lock()
	o.stats.TotalRequests++
	total := float64(o.stats.TotalRequests)
	o.stats.AverageConfidence = (o.stats.AverageConfidence*(total-1) + confidence) / total
	o.mu.Unlock()

	log.Debug().
		Str("decision_id", decision.DecisionID).
		Str("tier", tier.String()).
		Str("model", model).
		Bool("cache_hit", cacheHit).
		Msg("routed request")

	return decision
}

// classifyWithCache always runs the full classifier — classification is
// CPU-bound and non-suspending (§5), so the cache is a stabilizer layered on
// top of a fresh result, never a shortcut that skips classification. The
// cache lookup is consulted twice: first for jitter-lock substitution, then
// (after classifying) to honor the cached tier when the fresh tier disagrees
// but the cached entry sat within the fuzzy boundary width (step 9). The
// fresh result is always written back with Put, so the cache, the jitter
// window, and the classifier's own scoreHistory all stay current on every
// request, cache hit or miss.
func (o *Orchestrator) classifyWithCache(prompt, system string, estimatedTokens int, fp fingerprint.Fingerprint) (tier *classify.Tier, confidence float64, signals []string, agenticScore float64, cacheHit, jitterLocked bool) {
	cfg := o.cfg.ScoringConfig()
	cfg.DimensionWeights = o.weights.GetAllWeights()

	cached, cacheHit, jitterApplied := o.scoreCache.Get(fp)
	if cacheHit {
		metrics.ScoreCacheHits.Inc()
		o.bump(func(s *Stats) { s.CacheHits++ })
	} else {
		metrics.ScoreCacheMisses.Inc()
		o.bump(func(s *Stats) { s.CacheMisses++ })
	}
	if jitterApplied {
		jitterLocked = true
		metrics.JitterLockEngaged.Inc()
		o.bump(func(s *Stats) { s.JitterLocks++ })
	}

	result := o.classifier.Classify(prompt, system, estimatedTokens, cfg, fp)

	adjustedScore := o.weights.ApplyTo(result.WeightedScore)
	resolvedTier := result.Tier
	if resolvedTier != nil && adjustedScore != result.WeightedScore {
		adjusted := classify.TierForScore(adjustedScore, cfg.TierBoundaries)
		resolvedTier = &adjusted
	}
	resolvedConfidence := result.Confidence

	// Step 9 — fuzzy boundary honoring cache: if the fresh tier disagrees
	// with the cached one but the cached entry sat within the fuzzy
	// boundary width, keep the cached tier and boost confidence.
	if cacheHit && resolvedTier != nil && cached.ShouldUseCachedTier(*resolvedTier, cfg.FuzzyWidth) {
		cachedTier := cached.Tier
		resolvedTier = &cachedTier
		resolvedConfidence = math.Max(cached.Confidence, 0.7)
	}

	// Jitter lock, if engaged, wins over both the fresh and the fuzzy-cache
	// tier: it represents a deliberate pin against an oscillating boundary.
	if jitterApplied {
		lockedTier, _ := cached.JitterLocked()
		resolvedTier = &lockedTier
		resolvedConfidence = math.Max(resolvedConfidence, 0.7)
	}

	// An ambiguous (nil) result is cached under the tier its adjusted score
	// falls in, so the entry and its jitter window still record this request.
	cacheTier := resolvedTier
	if cacheTier == nil {
		natural := classify.TierForScore(adjustedScore, cfg.TierBoundaries)
		cacheTier = &natural
	}
	o.scoreCache.Put(fp, *cacheTier, adjustedScore, resolvedConfidence, result.AgenticScore, cfg.TierBoundaries)

	return resolvedTier, resolvedConfidence, result.Signals, result.AgenticScore, cacheHit, jitterLocked
}

// selectModel resolves tier to a concrete model name (step 10): it asks the
// health tracker to pick the healthiest candidate among the tier's primary
// and fallback models — from the agentic table when agenticMode and one is
// configured — and reports health-override when that pick isn't the
// primary. A large-context request narrows the candidate list to models
// whose configured context window can hold the conversation. If a session
// id is present (step 11), an existing pin is honored unless the session is
// degraded or the pinned model is unavailable.
func (o *Orchestrator) selectModel(tier classify.Tier, req Request, largeContext, agenticMode bool) (model string, healthOverride bool) {
	table := o.cfg.TierTableFor(tier.String(), agenticMode)
	candidates := make([]string, 0, 1+len(table.Fallbacks))

	addCandidate := func(entry routerconfig.ModelEntry) {
		if entry.Name == "" {
			return
		}
		if largeContext && entry.MaxContextTokens > 0 && entry.MaxContextTokens < req.ConversationTokens {
			return
		}
		candidates = append(candidates, entry.Name)
	}
	addCandidate(table.Primary)
	for _, fb := range table.Fallbacks {
		addCandidate(fb)
	}
	if len(candidates) == 0 {
		// Large-context override filtered out everything; fall back to the
		// unfiltered candidate set rather than returning no model at all.
		candidates = append(candidates, table.Primary.Name)
		for _, fb := range table.Fallbacks {
			candidates = append(candidates, fb.Name)
		}
	}

	best, ok := o.health.GetBestModel(candidates)
	if !ok {
		// Per §7: no tier fallback is available — name the primary anyway
		// and let the next round of feedback cool it down.
		best = table.Primary.Name
	}
	healthOverride = best != table.Primary.Name

	if req.SessionID == "" {
		return best, healthOverride
	}

	entry := o.sessions.GetOrCreate(req.SessionID, best)
	if !entry.Degraded() && o.health.IsAvailable(entry.PinnedModel) {
		entry.LastTier = tier.String()
		return entry.PinnedModel, entry.PinnedModel != table.Primary.Name
	}
	return best, healthOverride
}

// RecordRoutingFeedback closes the loop: it feeds latency/cost/success back
// into the adaptive weight manager, the model health tracker, and (when a
// session is present) the session store's degradation logic. decision must
// be the same *Decision Route returned for this request — its Signals
// resolve to dimension names via weights.ResolveDimension.
func (o *Orchestrator) RecordRoutingFeedback(decision *Decision, observed ObservedOutcome) {
	successLabel := "false"
	if observed.Success {
		successLabel = "true"
	}
	metrics.RoutingFeedbackRecorded.WithLabelValues(successLabel).Inc()

	dimensions := make([]string, 0, len(decision.Signals))
	for _, signal := range decision.Signals {
		if name, ok := weights.ResolveDimension(signal); ok {
			dimensions = append(dimensions, name)
		}
	}

	o.weights.RecordFeedback(weights.Feedback{
		Tier:       decision.Tier,
		Dimensions: dimensions,
		LatencyMS:  observed.LatencyMS,
		CostUSD:    observed.CostUSD,
		Success:    observed.Success,
	})

	// Per §7, auth and payment_required failures are not the model's
	// fault and must not trip cooldown — they're surfaced to the caller
	// unchanged and skip health bookkeeping entirely.
	notModelFault := observed.ErrorType == "auth" || observed.ErrorType == "payment_required"
	switch {
	case observed.Success:
		o.health.RecordSuccess(decision.Model, observed.LatencyMS)
	case !notModelFault:
		o.health.RecordError(decision.Model, observed.ErrorType)
	}

	if decision.SessionID != "" {
		table := o.cfg.Tiers[decision.Tier.String()]
		candidates := make([]string, 0, 1+len(table.Fallbacks))
		if table.Primary.Name != "" {
			candidates = append(candidates, table.Primary.Name)
		}
		for _, fb := range table.Fallbacks {
			candidates = append(candidates, fb.Name)
		}
		fallback, _ := o.health.GetBestModel(candidates)

		originalModelAvailable := true
		if entry, ok := o.sessions.Peek(decision.SessionID); ok && entry.Degraded() {
			originalModelAvailable = o.health.IsAvailable(entry.OriginalModel())
		}
		o.sessions.RecordResult(decision.SessionID, decision.Model, observed.Success, observed.ErrorType, fallback, originalModelAvailable)
	}
}

// GetRouterStats returns a snapshot of cumulative orchestration counters.
func (o *Orchestrator) GetRouterStats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

func (o *Orchestrator) bump(f func(*Stats)) {
	o.mu.Lock()
	f(&o.stats)
	o.mu.Unlock()
}

// estimateTokens approximates token count as ceil(chars/4) over the
// combined system+prompt text, consistent with the fingerprint package's
// length bucketing.
func estimateTokens(prompt, system string) int {
	chars := len(prompt) + len(system)
	return (chars + 3) / 4
}
