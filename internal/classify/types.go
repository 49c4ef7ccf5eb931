// Package classify implements the weighted multi-dimensional prompt
// classifier: it scores a prompt across fifteen lexical/structural
// dimensions and maps the weighted result onto one of four difficulty
// tiers, with hysteresis against a prior tier to resist boundary jitter.
package classify

import "sort"

// Tier is a coarse difficulty band used to select a target model.
type Tier int

const (
	// TierSimple is the lowest-difficulty band.
	TierSimple Tier = iota
	TierMedium
	TierComplex
	TierReasoning
)

// allTiers lists tiers in rank order, SIMPLE first.
var allTiers = []Tier{TierSimple, TierMedium, TierComplex, TierReasoning}

// String returns the canonical upper-case tier name.
func (t Tier) String() string {
	switch t {
	case TierSimple:
		return "SIMPLE"
	case TierMedium:
		return "MEDIUM"
	case TierComplex:
		return "COMPLEX"
	case TierReasoning:
		return "REASONING"
	default:
		return "UNKNOWN"
	}
}

// Rank returns the tier's position in the total order (0..3).
func (t Tier) Rank() int {
	return int(t)
}

// ParseTier converts a canonical tier name back to a Tier. The second
// return value is false for unrecognized names.
func ParseTier(name string) (Tier, bool) {
	for _, t := range allTiers {
		if t.String() == name {
			return t, true
		}
	}
	return TierSimple, false
}

// DimensionScore is the scored output of a single classification dimension.
type DimensionScore struct {
	Name   string
	Score  float64 // in [-1, 1]
	Signal string  // short human-readable debug string, may be empty
}

// ScoringResult is the output of a full classification pass.
type ScoringResult struct {
	WeightedScore float64
	Tier          *Tier // nil means ambiguous; orchestrator substitutes a default
	Confidence    float64
	Signals       []string
	AgenticScore  float64 // one of {0, 0.2, 0.6, 1.0}
}

// TierBoundaries is the ordered triple of score thresholds that separate
// SIMPLE|MEDIUM|COMPLEX|REASONING.
type TierBoundaries struct {
	SimpleMedium   float64
	MediumComplex  float64
	ComplexReasoning float64
}

// Ordered reports whether the boundaries are strictly increasing, as
// required by the data model.
func (b TierBoundaries) Ordered() bool {
	return b.SimpleMedium < b.MediumComplex && b.MediumComplex < b.ComplexReasoning
}

// BoundaryName identifies one of the three tier boundaries by label.
type BoundaryName string

const (
	BoundarySimpleMedium    BoundaryName = "simple-medium"
	BoundaryMediumComplex   BoundaryName = "medium-complex"
	BoundaryComplexReasoning BoundaryName = "complex-reasoning"
)

// TokenCountThresholds bounds the tokenCount dimension.
type TokenCountThresholds struct {
	Simple  int
	Complex int
}

// KeywordLists holds the ordered, normalized (lowercased) keyword list for
// every keyword-driven dimension. Each list is immutable once built.
type KeywordLists struct {
	ReasoningMarkers  []string
	TechnicalTerms    []string
	CreativeMarkers   []string
	SimpleIndicators  []string
	QuestionWords     []string // CJK "how" words for questionComplexity
	ImperativeVerbs   []string
	ConstraintWords   []string
	OutputFormatWords []string
	ReferenceWords    []string
	NegationWords     []string
	DomainWords       []string
	AgenticVerbs      []string
	TechnicalCodeKeywords []string // code-presence keyword list (distinct from structural markers)
}

// ScoringConfig is the full, validated configuration for a classification
// pass: dimension weights, tier boundaries, keyword lists, token
// thresholds, and confidence calibration parameters.
type ScoringConfig struct {
	DimensionWeights     map[string]float64
	TierBoundaries       TierBoundaries
	Keywords             KeywordLists
	TokenCountThresholds TokenCountThresholds
	ConfidenceSteepness  float64
	ConfidenceThreshold  float64
	FuzzyWidth           float64
}

// WeightSum returns the sum of all configured dimension weights.
func (c ScoringConfig) WeightSum() float64 {
	var sum float64
	for _, w := range c.DimensionWeights {
		sum += w
	}
	return sum
}

// Validate enforces invariant I5 (weights must sum to a positive number)
// and basic structural sanity (ordered boundaries, valid thresholds).
func (c ScoringConfig) Validate() error {
	if c.WeightSum() <= 0 {
		return &ConfigError{Field: "scoring.dimensionWeights", Reason: "weights must sum to a positive number"}
	}
	if !c.TierBoundaries.Ordered() {
		return &ConfigError{Field: "scoring.tierBoundaries", Reason: "boundaries must be strictly increasing"}
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold >= 1 {
		return &ConfigError{Field: "scoring.confidenceThreshold", Reason: "must be in (0, 1)"}
	}
	if c.TokenCountThresholds.Simple >= c.TokenCountThresholds.Complex {
		return &ConfigError{Field: "scoring.tokenCountThresholds", Reason: "simple threshold must be below complex threshold"}
	}
	return nil
}

// ConfigError is a structured construction-time validation failure naming
// the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "classify: invalid config field " + e.Field + ": " + e.Reason
}

// DefaultScoringConfig returns the reference configuration from the
// specification: default weights, boundaries (0.0, 0.18, 0.40), token
// thresholds (50, 500), steepness 12, threshold 0.7, fuzzy width 0.05.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		DimensionWeights: map[string]float64{
			"tokenCount":           0.08,
			"codePresence":         0.15,
			"reasoningMarkers":     0.18,
			"technicalTerms":       0.10,
			"creativeMarkers":      0.05,
			"simpleIndicators":     0.02,
			"multiStepPatterns":    0.12,
			"questionComplexity":   0.05,
			"imperativeVerbs":      0.03,
			"constraintCount":      0.04,
			"outputFormat":         0.03,
			"referenceComplexity":  0.02,
			"negationComplexity":   0.01,
			"domainSpecificity":    0.02,
			"agenticTask":          0.04,
		},
		TierBoundaries: TierBoundaries{
			SimpleMedium:     0.0,
			MediumComplex:    0.18,
			ComplexReasoning: 0.40,
		},
		Keywords:            defaultKeywordLists(),
		TokenCountThresholds: TokenCountThresholds{Simple: 50, Complex: 500},
		ConfidenceSteepness: 12,
		ConfidenceThreshold: 0.7,
		FuzzyWidth:          0.05,
	}
}

// dimensionNames returns the fifteen canonical dimension names in sorted
// order.
func dimensionNames() []string {
	names := []string{
		"tokenCount", "codePresence", "reasoningMarkers", "technicalTerms",
		"creativeMarkers", "simpleIndicators", "multiStepPatterns",
		"questionComplexity", "imperativeVerbs", "constraintCount",
		"outputFormat", "referenceComplexity", "negationComplexity",
		"domainSpecificity", "agenticTask",
	}
	sort.Strings(names)
	return names
}
