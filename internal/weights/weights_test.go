package weights

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bright8192/ClawRouter/internal/classify"
)

func baseWeights() map[string]float64 {
	return map[string]float64{
		"codePresence":     0.15,
		"reasoningMarkers": 0.18,
	}
}

func TestManager_GetAllWeights_InitiallyUnadjusted(t *testing.T) {
	m := NewManager(baseWeights())
	weights := m.GetAllWeights()
	assert.Equal(t, 0.15, weights["codePresence"])
	assert.Equal(t, 0.18, weights["reasoningMarkers"])
}

func TestManager_RecordFeedback_AdjustsAfterInterval(t *testing.T) {
	m := NewManager(baseWeights())

	for i := 0; i < adjustmentInterval; i++ {
		m.RecordFeedback(Feedback{
			Tier:       classify.TierComplex,
			Dimensions: []string{"codePresence"},
			LatencyMS:  100,
			CostUSD:    0.001,
			Success:    true,
		})
	}

	weights := m.GetAllWeights()
	require.Contains(t, weights, "codePresence")
	assert.GreaterOrEqual(t, weights["codePresence"], 0.15*minFactor)
	assert.LessOrEqual(t, weights["codePresence"], 0.15*maxFactor)
}

func TestManager_ApplyTo_NoAdjustmentYetIsIdentity(t *testing.T) {
	m := NewManager(baseWeights())
	got := m.ApplyTo(0.42)
	assert.InDelta(t, 0.42, got, 1e-9)
}

func TestClampFactor_Bounds(t *testing.T) {
	assert.Equal(t, minFactor, clampFactor(0.1))
	assert.Equal(t, maxFactor, clampFactor(5))
	assert.Equal(t, 1.0, clampFactor(1.0))
}
