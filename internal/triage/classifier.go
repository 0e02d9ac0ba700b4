package triage

import (
	"strings"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Classifier assigns a tier, confidence score, and category to ticket
// text using keyword-frequency heuristics. It is a pure function of
// its inputs and the configured keyword sets: it never fails and never
// calls out.
type Classifier struct {
	tier1Words   []string
	tier2Words   []string
	complexWords []string
	categories   []config.CategoryKeywords
}

// NewClassifier builds a classifier from the triage configuration.
func NewClassifier(cfg config.TriageConfig) *Classifier {
	return &Classifier{
		tier1Words:   lowered(cfg.Tier1Keywords),
		tier2Words:   lowered(cfg.Tier2Keywords),
		complexWords: lowered(cfg.ComplexKeywords),
		categories:   loweredCategories(cfg.Categories),
	}
}

// Classify maps subject and description to a triage verdict. Each
// keyword counts at most once, on presence. Complex keywords win over
// tier-2 over tier-1; with no match at all the ticket defaults to the
// most conservative bucket (complex, 0.5) so ambiguity biases toward
// human review.
func (c *Classifier) Classify(subject, description string) domain.Classification {
	text := strings.ToLower(subject + " " + description)

	tier1Count := countMatches(text, c.tier1Words)
	tier2Count := countMatches(text, c.tier2Words)
	complexCount := countMatches(text, c.complexWords)

	var tier domain.Tier
	var confidence float64
	switch {
	case complexCount > 0:
		tier = domain.TierComplex
		confidence = min(0.9, 0.5+0.1*float64(complexCount))
	case tier2Count > 0:
		tier = domain.TierTwo
		confidence = min(0.8, 0.6+0.1*float64(tier2Count))
	case tier1Count > 0:
		tier = domain.TierOne
		confidence = min(0.7, 0.5+0.1*float64(tier1Count))
	default:
		tier = domain.TierComplex
		confidence = 0.5
	}

	return domain.Classification{
		Tier:       tier,
		Confidence: confidence,
		Category:   c.findCategory(text),
	}
}

// findCategory walks the ordered category mapping; the first category
// with any keyword present wins.
func (c *Classifier) findCategory(text string) string {
	for _, cat := range c.categories {
		for _, kw := range cat.Keywords {
			if strings.Contains(text, kw) {
				return cat.Name
			}
		}
	}
	return "general"
}

func countMatches(text string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	return count
}

func lowered(keywords []string) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = strings.ToLower(kw)
	}
	return out
}

func loweredCategories(categories []config.CategoryKeywords) []config.CategoryKeywords {
	out := make([]config.CategoryKeywords, len(categories))
	for i, cat := range categories {
		out[i] = config.CategoryKeywords{Name: cat.Name, Keywords: lowered(cat.Keywords)}
	}
	return out
}
