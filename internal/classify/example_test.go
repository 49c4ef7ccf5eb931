package classify_test

import (
	"fmt"

	"github.com/bright8192/ClawRouter/internal/classify"
	"github.com/bright8192/ClawRouter/internal/fingerprint"
)

// ExampleClassifier_Classify demonstrates classifying a simple prompt.
func ExampleClassifier_Classify() {
	c := classify.NewClassifier()
	cfg := classify.DefaultScoringConfig()

	prompt := "hi there, quick question"
	fp := fingerprint.Compute(prompt, "")
	result := c.Classify(prompt, "", 6, cfg, fp)

	fmt.Printf("Tier: %s\n", result.Tier)

	// Output:
	// Tier: SIMPLE
}

// ExampleClassifier_Classify_reasoning demonstrates the reasoning-keyword
// override that forces the REASONING tier regardless of the weighted score.
func ExampleClassifier_Classify_reasoning() {
	c := classify.NewClassifier()
	cfg := classify.DefaultScoringConfig()

	prompt := "Prove step by step why this sorting algorithm is correct."
	fp := fingerprint.Compute(prompt, "")
	result := c.Classify(prompt, "", 30, cfg, fp)

	fmt.Printf("Tier: %s\n", result.Tier)

	// Output:
	// Tier: REASONING
}
