package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/routerconfig"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	cfg := routerconfig.Default()
	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func TestRoute_SimpleGreeting(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "hi there, thanks"})
	assert.Equal(t, classify.TierSimple, decision.Tier)
	assert.Equal(t, "claude-haiku", decision.Model)
	assert.Equal(t, "rules", decision.Method)
}

func TestRoute_CachesSecondIdenticalRequest(t *testing.T) {
	o := newTestOrchestrator(t)
	first := o.Route(Request{Prompt: "explain how this distributed algorithm handles concurrency"})
	assert.False(t, first.CacheHit)

	second := o.Route(Request{Prompt: "explain how this distributed algorithm handles concurrency"})
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Tier, second.Tier)
}

func TestRoute_AgenticModeUsesAgenticTableWithoutForcingTier(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "hi there", AgenticMode: true})
	assert.Contains(t, decision.Overrides, "agentic-mode")
	assert.Equal(t, classify.TierSimple, decision.Tier)
}

func TestRoute_StructuredOutputOverrideBumpsTier(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "hi there", StructuredOutput: true})
	assert.Contains(t, decision.Overrides, "structured-output")
	assert.GreaterOrEqual(t, decision.Tier.Rank(), classify.TierMedium.Rank())
}

func TestRoute_StructuredOutputDetectedFromSystemPrompt(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "hi there", System: "Respond using the provided JSON schema."})
	assert.Contains(t, decision.Overrides, "structured-output")
}

func TestRoute_LargeContextForcesComplexAndSkipsOtherOverrides(t *testing.T) {
	o := newTestOrchestrator(t)
	hugePrompt := make([]byte, 450_000)
	for i := range hugePrompt {
		hugePrompt[i] = 'a'
	}
	decision := o.Route(Request{Prompt: string(hugePrompt)})
	assert.Equal(t, classify.TierComplex, decision.Tier)
	assert.Contains(t, decision.Overrides, "large-context")
	assert.NotContains(t, decision.Overrides, "ambiguous-default")
	assert.Contains(t, decision.Reasoning, "exceeds")
	assert.GreaterOrEqual(t, decision.Confidence, 0.95)
}

func TestRoute_SessionPinStaysAcrossCalls(t *testing.T) {
	o := newTestOrchestrator(t)
	first := o.Route(Request{Prompt: "review this pull request", SessionID: "sess-1"})
	second := o.Route(Request{Prompt: "now look at another file", SessionID: "sess-1"})
	assert.Equal(t, first.Model, second.Model)
}

func TestRecordRoutingFeedback_DegradesSessionAfterFailures(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "write a function to parse this JSON", SessionID: "sess-2"})

	for i := 0; i < 2; i++ {
		o.RecordRoutingFeedback(decision, ObservedOutcome{Success: false, ErrorType: "server_5xx"})
	}

	next := o.Route(Request{Prompt: "continue with the same json task", SessionID: "sess-2"})
	assert.NotEqual(t, decision.Model, next.Model)
}

func TestRecordRoutingFeedback_AuthErrorDoesNotTripCooldown(t *testing.T) {
	o := newTestOrchestrator(t)
	decision := o.Route(Request{Prompt: "hi there"})

	for i := 0; i < 5; i++ {
		o.RecordRoutingFeedback(decision, ObservedOutcome{Success: false, ErrorType: "auth"})
	}

	assert.True(t, o.health.IsAvailable(decision.Model))
}

func TestGetRouterStats_TracksTotalRequests(t *testing.T) {
	o := newTestOrchestrator(t)
	o.Route(Request{Prompt: "hello"})
	o.Route(Request{Prompt: "hi again"})

	stats := o.GetRouterStats()
	assert.Equal(t, int64(2), stats.TotalRequests)
}
