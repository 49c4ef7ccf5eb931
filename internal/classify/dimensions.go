package classify

import (
	"regexp"
	"strings"

	"github.com/bright8192/ClawRouter/internal/fingerprint"
)

// dimensionInput bundles everything a single dimension scorer needs. "full"
// is the lowercased concatenation of system+" "+prompt; "user" is the
// lowercased user prompt alone (reasoningMarkers and questionComplexity
// operate on user only, per spec 4.2).
type dimensionInput struct {
	full            string
	user            string
	rawUser         string // original case, for question-mark counting
	estimatedTokens int
	cfg             ScoringConfig
}

// matchCount returns how many distinct entries of keywords occur in
// haystack as a case-insensitive substring.
func matchCount(haystack string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

var (
	reImperative = regexp.MustCompile(`(?i)\b(write|create|build|implement|generate|make|add|remove|delete|update|fix|configure)\b`)

	multiStepRegexes = []*regexp.Regexp{
		regexp.MustCompile(`\b\d+\.\s`),
		regexp.MustCompile(`\b\d+\)\s`),
		regexp.MustCompile(`(?i)\bstep\s+\d+\b`),
		regexp.MustCompile(`第\s*\d+\s*步`),
		regexp.MustCompile(`步骤`),
		regexp.MustCompile(`(?i)\bfirstly\b.*\bsecondly\b`),
		regexp.MustCompile(`(?i)\bfollowing\s+steps\b`),
	}
)

func scoreTokenCount(in dimensionInput) DimensionScore {
	switch {
	case in.estimatedTokens < in.cfg.TokenCountThresholds.Simple:
		return DimensionScore{Name: "tokenCount", Score: -1, Signal: "short prompt"}
	case in.estimatedTokens > in.cfg.TokenCountThresholds.Complex:
		return DimensionScore{Name: "tokenCount", Score: 1, Signal: "long prompt"}
	default:
		return DimensionScore{Name: "tokenCount", Score: 0}
	}
}

func scoreCodePresence(in dimensionInput) DimensionScore {
	_, markerHits := fingerprint.HasCodeMarkers(in.full)
	kwHits := matchCount(in.full, in.cfg.Keywords.TechnicalCodeKeywords)
	total := markerHits + kwHits
	switch {
	case total >= 2:
		return DimensionScore{Name: "codePresence", Score: 1.0, Signal: "code (function, class)"}
	case total >= 1:
		return DimensionScore{Name: "codePresence", Score: 0.5, Signal: "code"}
	default:
		return DimensionScore{Name: "codePresence", Score: 0}
	}
}

func scoreReasoningMarkers(in dimensionInput) DimensionScore {
	n := matchCount(in.user, in.cfg.Keywords.ReasoningMarkers)
	switch {
	case n >= 2:
		return DimensionScore{Name: "reasoningMarkers", Score: 1.0, Signal: "reasoning"}
	case n >= 1:
		return DimensionScore{Name: "reasoningMarkers", Score: 0.7, Signal: "reasoning"}
	default:
		return DimensionScore{Name: "reasoningMarkers", Score: 0}
	}
}

func scoreTechnicalTerms(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.TechnicalTerms)
	switch {
	case n >= 4:
		return DimensionScore{Name: "technicalTerms", Score: 1.0, Signal: "technical"}
	case n >= 2:
		return DimensionScore{Name: "technicalTerms", Score: 0.5, Signal: "technical"}
	default:
		return DimensionScore{Name: "technicalTerms", Score: 0}
	}
}

func scoreCreativeMarkers(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.CreativeMarkers)
	switch {
	case n >= 2:
		return DimensionScore{Name: "creativeMarkers", Score: 0.7, Signal: "creative"}
	case n >= 1:
		return DimensionScore{Name: "creativeMarkers", Score: 0.5, Signal: "creative"}
	default:
		return DimensionScore{Name: "creativeMarkers", Score: 0}
	}
}

func scoreSimpleIndicators(in dimensionInput) DimensionScore {
	if matchCount(in.full, in.cfg.Keywords.SimpleIndicators) > 0 {
		return DimensionScore{Name: "simpleIndicators", Score: -1.0, Signal: "simple"}
	}
	return DimensionScore{Name: "simpleIndicators", Score: 0}
}

func scoreMultiStepPatterns(in dimensionInput) DimensionScore {
	for _, re := range multiStepRegexes {
		if re.MatchString(in.full) {
			return DimensionScore{Name: "multiStepPatterns", Score: 0.5, Signal: "multi-step"}
		}
	}
	return DimensionScore{Name: "multiStepPatterns", Score: 0}
}

func scoreQuestionComplexity(in dimensionInput) DimensionScore {
	count := strings.Count(in.rawUser, "?") + strings.Count(in.rawUser, "？")
	if count > 3 {
		return DimensionScore{Name: "questionComplexity", Score: 0.5, Signal: "multi-question"}
	}
	if count == 0 && matchCount(in.user, in.cfg.Keywords.QuestionWords) >= 2 {
		return DimensionScore{Name: "questionComplexity", Score: 0.5, Signal: "multi-question"}
	}
	return DimensionScore{Name: "questionComplexity", Score: 0}
}

func scoreImperativeVerbs(in dimensionInput) DimensionScore {
	n := len(reImperative.FindAllString(in.full, -1))
	switch {
	case n >= 2:
		return DimensionScore{Name: "imperativeVerbs", Score: 0.5, Signal: "imperative"}
	case n >= 1:
		return DimensionScore{Name: "imperativeVerbs", Score: 0.3, Signal: "imperative"}
	default:
		return DimensionScore{Name: "imperativeVerbs", Score: 0}
	}
}

func scoreConstraintCount(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.ConstraintWords)
	switch {
	case n >= 3:
		return DimensionScore{Name: "constraintCount", Score: 0.7, Signal: "constrained"}
	case n >= 1:
		return DimensionScore{Name: "constraintCount", Score: 0.3, Signal: "constrained"}
	default:
		return DimensionScore{Name: "constraintCount", Score: 0}
	}
}

func scoreOutputFormat(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.OutputFormatWords)
	switch {
	case n >= 2:
		return DimensionScore{Name: "outputFormat", Score: 0.7, Signal: "structured-output"}
	case n >= 1:
		return DimensionScore{Name: "outputFormat", Score: 0.4, Signal: "structured-output"}
	default:
		return DimensionScore{Name: "outputFormat", Score: 0}
	}
}

func scoreReferenceComplexity(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.ReferenceWords)
	switch {
	case n >= 2:
		return DimensionScore{Name: "referenceComplexity", Score: 0.5, Signal: "referential"}
	case n >= 1:
		return DimensionScore{Name: "referenceComplexity", Score: 0.3, Signal: "referential"}
	default:
		return DimensionScore{Name: "referenceComplexity", Score: 0}
	}
}

func scoreNegationComplexity(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.NegationWords)
	switch {
	case n >= 3:
		return DimensionScore{Name: "negationComplexity", Score: 0.5, Signal: "negation"}
	case n >= 2:
		return DimensionScore{Name: "negationComplexity", Score: 0.3, Signal: "negation"}
	default:
		return DimensionScore{Name: "negationComplexity", Score: 0}
	}
}

func scoreDomainSpecificity(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.DomainWords)
	switch {
	case n >= 2:
		return DimensionScore{Name: "domainSpecificity", Score: 0.8, Signal: "domain-specific"}
	case n >= 1:
		return DimensionScore{Name: "domainSpecificity", Score: 0.5, Signal: "domain-specific"}
	default:
		return DimensionScore{Name: "domainSpecificity", Score: 0}
	}
}

func scoreAgenticTask(in dimensionInput) DimensionScore {
	n := matchCount(in.full, in.cfg.Keywords.AgenticVerbs)
	switch {
	case n >= 4:
		return DimensionScore{Name: "agenticTask", Score: 1.0, Signal: "agentic"}
	case n >= 3:
		return DimensionScore{Name: "agenticTask", Score: 0.6, Signal: "agentic"}
	case n >= 1:
		return DimensionScore{Name: "agenticTask", Score: 0.2, Signal: "agentic"}
	default:
		return DimensionScore{Name: "agenticTask", Score: 0}
	}
}

// allDimensionScorers lists all fifteen dimension scorers, in the table
// order from spec 4.2.
var allDimensionScorers = []func(dimensionInput) DimensionScore{
	scoreTokenCount,
	scoreCodePresence,
	scoreReasoningMarkers,
	scoreTechnicalTerms,
	scoreCreativeMarkers,
	scoreSimpleIndicators,
	scoreMultiStepPatterns,
	scoreQuestionComplexity,
	scoreImperativeVerbs,
	scoreConstraintCount,
	scoreOutputFormat,
	scoreReferenceComplexity,
	scoreNegationComplexity,
	scoreDomainSpecificity,
	scoreAgenticTask,
}
