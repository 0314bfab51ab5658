package marketctx

import (
	"strings"

	"polymarket-watch/internal/domain"
)

// Keyword sets for deriving a category from a market question when the
// metadata feed supplies none. Checked in descending consequence order;
// first match wins.
var (
	regimeChangeKeywords = []string{
		"coup", "regime change", "overthrow", "revolution", "uprising",
		"rebellion", "insurgency", "assassination", "assassinate",
	}
	militaryKeywords = []string{
		"war", "invasion", "military action", "armed conflict", "strike",
		"nuclear", "ceasefire", "missile", "troops",
	}
	geopoliticsKeywords = []string{
		"sanction", "embargo", "treaty", "summit", "nato", "annex",
		"border", "blockade",
	}
	electionsKeywords = []string{
		"election", "vote", "ballot", "referendum", "impeach", "resign",
		"prime minister", "president", "chancellor",
	}
	legalKeywords = []string{
		"indictment", "indicted", "arrest", "trial", "conviction",
		"sentenced", "charges", "prosecution", "sec",
	}
)

// CategorizeQuestion derives a market category from its question text.
// Matching is substring-based on the lowercased question, like the
// sensitivity ranking the alerting system started with.
func CategorizeQuestion(question string) domain.Category {
	text := strings.ToLower(question)

	switch {
	case containsAny(text, regimeChangeKeywords):
		return domain.CategoryRegimeChange
	case containsAny(text, militaryKeywords):
		return domain.CategoryMilitary
	case containsAny(text, geopoliticsKeywords):
		return domain.CategoryGeopolitics
	case containsAny(text, electionsKeywords):
		return domain.CategoryElections
	case containsAny(text, legalKeywords):
		return domain.CategoryLegal
	default:
		return domain.CategoryOther
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
