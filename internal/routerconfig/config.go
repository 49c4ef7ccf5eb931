// Package routerconfig loads and validates the router's on-disk
// configuration: dimension weights, tier boundaries, keyword lists,
// override thresholds, and the tier-to-model table, following the same
// viper-backed YAML loading and mapstructure/yaml dual-tag convention used
// elsewhere in the tree.
package routerconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bright8192/ClawRouter/internal/classify"
)

// ModelEntry names a concrete model to route a tier to, with its cost and
// context-window characteristics used by the large-context override.
type ModelEntry struct {
	Name            string  `mapstructure:"name" yaml:"name"`
	MaxContextTokens int    `mapstructure:"max_context_tokens" yaml:"max_context_tokens"`
	CostPerMTokUSD  float64 `mapstructure:"cost_per_mtok_usd" yaml:"cost_per_mtok_usd"`
}

// TierTable maps each tier name to its primary model and ordered fallbacks.
type TierTable struct {
	Primary   ModelEntry   `mapstructure:"primary" yaml:"primary"`
	Fallbacks []ModelEntry `mapstructure:"fallbacks" yaml:"fallbacks"`
}

// Overrides holds the threshold knobs for the orchestrator's non-classifier
// routing overrides.
type Overrides struct {
	MaxTokensForceComplex   int    `mapstructure:"max_tokens_force_complex" yaml:"max_tokens_force_complex"`
	StructuredOutputMinTier string `mapstructure:"structured_output_min_tier" yaml:"structured_output_min_tier"`
	AmbiguousDefaultTier    string `mapstructure:"ambiguous_default_tier" yaml:"ambiguous_default_tier"`
}

// ScoringSection is the YAML-facing mirror of classify.ScoringConfig.
type ScoringSection struct {
	DimensionWeights     map[string]float64 `mapstructure:"dimension_weights" yaml:"dimension_weights"`
	SimpleMedium         float64            `mapstructure:"simple_medium_boundary" yaml:"simple_medium_boundary"`
	MediumComplex        float64            `mapstructure:"medium_complex_boundary" yaml:"medium_complex_boundary"`
	ComplexReasoning     float64            `mapstructure:"complex_reasoning_boundary" yaml:"complex_reasoning_boundary"`
	TokenCountSimple     int                `mapstructure:"token_count_simple" yaml:"token_count_simple"`
	TokenCountComplex    int                `mapstructure:"token_count_complex" yaml:"token_count_complex"`
	ConfidenceSteepness  float64            `mapstructure:"confidence_steepness" yaml:"confidence_steepness"`
	ConfidenceThreshold  float64            `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	FuzzyWidth           float64            `mapstructure:"fuzzy_width" yaml:"fuzzy_width"`
}

// Config is the full router configuration.
type Config struct {
	Scoring   ScoringSection       `mapstructure:"scoring" yaml:"scoring"`
	Tiers     map[string]TierTable `mapstructure:"tiers" yaml:"tiers"`
	// AgenticTiers is the parallel tier→model table consulted instead of
	// Tiers when the request is in agentic mode (tool-use loop or a high
	// agenticTask dimension score), biasing toward models that hold up
	// over long tool chains. Nil entries fall back to Tiers.
	AgenticTiers map[string]TierTable `mapstructure:"agentic_tiers" yaml:"agentic_tiers"`
	Overrides    Overrides            `mapstructure:"overrides" yaml:"overrides"`

	ScoreCacheCapacity int `mapstructure:"score_cache_capacity" yaml:"score_cache_capacity"`
	ScoreCacheTTLSec   int `mapstructure:"score_cache_ttl_sec" yaml:"score_cache_ttl_sec"`
}

// TierTableFor returns the tier table to use for tier, preferring the
// agentic table when agenticMode is set and an entry for this tier exists
// there.
func (c *Config) TierTableFor(tierName string, agenticMode bool) TierTable {
	if agenticMode {
		if table, ok := c.AgenticTiers[tierName]; ok {
			return table
		}
	}
	return c.Tiers[tierName]
}

// ConfigError is a structured construction-time validation failure naming
// the offending field, mirroring classify.ConfigError.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "routerconfig: invalid field " + e.Field + ": " + e.Reason
}

// Default returns the reference router configuration: default classifier
// scoring config plus a conservative four-tier model table.
func Default() *Config {
	sc := classify.DefaultScoringConfig()
	return &Config{
		Scoring: ScoringSection{
			DimensionWeights:    sc.DimensionWeights,
			SimpleMedium:        sc.TierBoundaries.SimpleMedium,
			MediumComplex:       sc.TierBoundaries.MediumComplex,
			ComplexReasoning:    sc.TierBoundaries.ComplexReasoning,
			TokenCountSimple:    sc.TokenCountThresholds.Simple,
			TokenCountComplex:   sc.TokenCountThresholds.Complex,
			ConfidenceSteepness: sc.ConfidenceSteepness,
			ConfidenceThreshold: sc.ConfidenceThreshold,
			FuzzyWidth:          sc.FuzzyWidth,
		},
		Tiers: map[string]TierTable{
			"SIMPLE":    {Primary: ModelEntry{Name: "claude-haiku", MaxContextTokens: 200000, CostPerMTokUSD: 0.25}},
			"MEDIUM":    {Primary: ModelEntry{Name: "claude-sonnet", MaxContextTokens: 200000, CostPerMTokUSD: 3.00}, Fallbacks: []ModelEntry{{Name: "claude-haiku", MaxContextTokens: 200000, CostPerMTokUSD: 0.25}}},
			"COMPLEX":   {Primary: ModelEntry{Name: "claude-sonnet", MaxContextTokens: 200000, CostPerMTokUSD: 3.00}, Fallbacks: []ModelEntry{{Name: "claude-opus", MaxContextTokens: 200000, CostPerMTokUSD: 15.00}}},
			"REASONING": {Primary: ModelEntry{Name: "claude-opus", MaxContextTokens: 200000, CostPerMTokUSD: 15.00}, Fallbacks: []ModelEntry{{Name: "claude-sonnet", MaxContextTokens: 200000, CostPerMTokUSD: 3.00}}},
		},
		AgenticTiers: map[string]TierTable{
			"SIMPLE":    {Primary: ModelEntry{Name: "claude-haiku", MaxContextTokens: 200000, CostPerMTokUSD: 0.25}},
			"MEDIUM":    {Primary: ModelEntry{Name: "claude-sonnet", MaxContextTokens: 200000, CostPerMTokUSD: 3.00}},
			"COMPLEX":   {Primary: ModelEntry{Name: "claude-opus", MaxContextTokens: 200000, CostPerMTokUSD: 15.00}, Fallbacks: []ModelEntry{{Name: "claude-sonnet", MaxContextTokens: 200000, CostPerMTokUSD: 3.00}}},
			"REASONING": {Primary: ModelEntry{Name: "claude-opus", MaxContextTokens: 200000, CostPerMTokUSD: 15.00}},
		},
		Overrides: Overrides{
			MaxTokensForceComplex:   100000,
			StructuredOutputMinTier: "MEDIUM",
			AmbiguousDefaultTier:    "MEDIUM",
		},
		ScoreCacheCapacity: 10000,
		ScoreCacheTTLSec:   600,
	}
}

// Load reads the router configuration from path, applying CLAWROUTER_*
// environment overrides, creating a default file when none exists. The
// path follows the same tilde-expansion convention as the rest of the tree.
func Load(path string) (*Config, error) {
	path = expandPath(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("routerconfig: create config dir: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, fmt.Errorf("routerconfig: write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLAWROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("routerconfig: read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("routerconfig: unmarshal config: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string) error {
	out, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ScoringConfig converts the YAML-facing scoring section into a
// classify.ScoringConfig (it does not validate it; see Validate), filling
// in default keyword lists (the keyword
// lists themselves are not user-configurable in this version).
func (c *Config) ScoringConfig() classify.ScoringConfig {
	base := classify.DefaultScoringConfig()
	sc := classify.ScoringConfig{
		DimensionWeights: c.Scoring.DimensionWeights,
		TierBoundaries: classify.TierBoundaries{
			SimpleMedium:     c.Scoring.SimpleMedium,
			MediumComplex:    c.Scoring.MediumComplex,
			ComplexReasoning: c.Scoring.ComplexReasoning,
		},
		Keywords: base.Keywords,
		TokenCountThresholds: classify.TokenCountThresholds{
			Simple:  c.Scoring.TokenCountSimple,
			Complex: c.Scoring.TokenCountComplex,
		},
		ConfidenceSteepness: c.Scoring.ConfidenceSteepness,
		ConfidenceThreshold: c.Scoring.ConfidenceThreshold,
		FuzzyWidth:          c.Scoring.FuzzyWidth,
	}
	if len(sc.DimensionWeights) == 0 {
		sc.DimensionWeights = base.DimensionWeights
	}
	return sc
}

// Validate checks the configuration for internal consistency: a valid
// scoring section, every tier naming a non-empty primary model, and sane
// cache sizing.
func (c *Config) Validate() error {
	if err := c.ScoringConfig().Validate(); err != nil {
		return err
	}
	for _, tierName := range []string{"SIMPLE", "MEDIUM", "COMPLEX", "REASONING"} {
		table, ok := c.Tiers[tierName]
		if !ok || table.Primary.Name == "" {
			return &ConfigError{Field: "tiers." + tierName, Reason: "must name a primary model"}
		}
	}
	if _, ok := classify.ParseTier(c.Overrides.StructuredOutputMinTier); !ok {
		return &ConfigError{Field: "overrides.structured_output_min_tier", Reason: "must be a valid tier name"}
	}
	if _, ok := classify.ParseTier(c.Overrides.AmbiguousDefaultTier); !ok {
		return &ConfigError{Field: "overrides.ambiguous_default_tier", Reason: "must be a valid tier name"}
	}
	for tierName, table := range c.AgenticTiers {
		if table.Primary.Name == "" {
			return &ConfigError{Field: "agentic_tiers." + tierName, Reason: "must name a primary model"}
		}
	}
	if c.ScoreCacheCapacity <= 0 {
		return &ConfigError{Field: "score_cache_capacity", Reason: "must be positive"}
	}
	if c.ScoreCacheTTLSec <= 0 {
		return &ConfigError{Field: "score_cache_ttl_sec", Reason: "must be positive"}
	}
	if c.Overrides.MaxTokensForceComplex <= 0 {
		return &ConfigError{Field: "overrides.max_tokens_force_complex", Reason: "must be positive"}
	}
	return nil
}
