// Package classification implements deterministic keyword scoring of
// transaction descriptions against taxonomy candidates.
package classification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/mosaic-money/internal/model"
)

// Scoring constants for keyword matches.
const (
	BaseScore         = 0.35
	CoverageWeight    = 0.55
	PhraseBonus       = 0.20
	ConflictMargin    = 0.05
	NonExpenseScore   = 0.20
	ConflictAuditSize = 3
)

// Engine scores candidates against a description. It holds no state and is
// safe for concurrent use.
type Engine struct{}

// NewEngine creates a deterministic classification engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Classify produces the deterministic result for req.
func (e *Engine) Classify(req model.ClassificationRequest) model.DeterministicResult {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return model.DeterministicResult{
			Confidence:    0,
			RationaleCode: model.ReasonMissingDescription,
			Rationale:     "Transaction has no description to match against the taxonomy.",
		}
	}

	// The rules only know expense subcategories.
	if !req.Amount.IsNegative() {
		return model.DeterministicResult{
			Confidence:    model.RoundConfidence(NonExpenseScore),
			RationaleCode: model.ReasonNonExpenseAmount,
			Rationale:     fmt.Sprintf("Amount %s is not an expense; keyword rules only cover expenses.", req.Amount.StringFixed(2)),
		}
	}

	ranked := e.Rank(description, req.Candidates)
	if len(ranked) == 0 {
		return model.DeterministicResult{
			Confidence:    0,
			RationaleCode: model.ReasonNoRuleMatch,
			Rationale:     "No candidate subcategory shares a keyword with the description.",
		}
	}

	top := ranked[0]
	if len(ranked) > 1 && model.ConfidenceGap(top.Confidence, ranked[1].Confidence) <= ConflictMargin {
		keep := ranked
		if len(keep) > ConflictAuditSize {
			keep = keep[:ConflictAuditSize]
		}
		rationale := fmt.Sprintf("Candidates %q (%.4f) and %q (%.4f) are within %.2f of each other.",
			top.Name, top.Confidence, ranked[1].Name, ranked[1].Confidence, ConflictMargin)
		return model.DeterministicResult{
			Confidence:    top.Confidence,
			RationaleCode: model.ReasonConflictingRules,
			Rationale:     rationale,
			IsConflict:    true,
			Candidates:    keep,
		}
	}

	return model.DeterministicResult{
		ProposedSubcategoryID: model.SubcategoryPtr(top.SubcategoryID),
		Confidence:            top.Confidence,
		RationaleCode:         model.ReasonKeywordMatch,
		Rationale:             fmt.Sprintf("Matched keywords %s to %q.", strings.Join(top.MatchedTokens, ", "), top.Name),
		Candidates:            ranked,
	}
}

// Rank scores every candidate that shares at least one token with the
// description, ordered by score descending then name ascending.
func (e *Engine) Rank(description string, candidates []model.Candidate) []model.RankedCandidate {
	descTokens := Tokenize(description)
	if len(descTokens) == 0 {
		return nil
	}
	descSet := make(map[string]struct{}, len(descTokens))
	for _, tok := range descTokens {
		descSet[tok] = struct{}{}
	}
	normalizedDesc := strings.Join(descTokens, " ")

	var ranked []model.RankedCandidate
	for _, cand := range candidates {
		candTokens := unique(Tokenize(cand.Name))
		if len(candTokens) == 0 {
			continue
		}

		var matched []string
		for _, tok := range candTokens {
			if _, ok := descSet[tok]; ok {
				matched = append(matched, tok)
			}
		}
		if len(matched) == 0 {
			continue
		}

		score := BaseScore + CoverageWeight*(float64(len(matched))/float64(len(candTokens)))
		if containsPhrase(normalizedDesc, NormalizePhrase(cand.Name)) {
			score += PhraseBonus
		}

		ranked = append(ranked, model.RankedCandidate{
			SubcategoryID: cand.SubcategoryID,
			Name:          cand.Name,
			Confidence:    model.RoundConfidence(score),
			MatchedTokens: matched,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Name < ranked[j].Name
	})

	return ranked
}

func unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
