package catalog_matcher

import (
	"sort"
	"strings"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

// MatchClass partitions scored candidates.
type MatchClass string

const (
	// ClassExact: every constraint stated in the query is satisfied.
	ClassExact MatchClass = "exact"
	// ClassDeviating: substance matches but some stated constraint does not.
	ClassDeviating MatchClass = "deviating"
)

// CandidateAttributes are the attributes the matcher read from a product.
type CandidateAttributes struct {
	Substance string    `json:"substance,omitempty"`
	Purity    *Purity   `json:"purity,omitempty"`
	Quantity  *Quantity `json:"quantity,omitempty"`
}

// MatchResult is one ranked catalog product.
type MatchResult struct {
	Product    *catalog.Product    `json:"product"`
	Score      float64             `json:"score"`
	Class      MatchClass          `json:"class"`
	Attributes CandidateAttributes `json:"attributes"`
	Breakdown  Breakdown           `json:"breakdown"`
}

// Classify returns the class of a scored candidate, or false when the
// candidate is dropped (score 0).
func Classify(q *Query, b Breakdown) (MatchClass, bool) {
	if b.Total <= 0 || !b.SubstanceMatched {
		return "", false
	}
	if q.Purity != nil && !b.PurityMatched {
		return ClassDeviating, true
	}
	if q.Quantity != nil && !b.QuantityMatched {
		return ClassDeviating, true
	}
	return ClassExact, true
}

// SortResults orders by score descending, then name case-insensitively, then id.
func SortResults(results []MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		an, bn := strings.ToLower(a.Product.Name), strings.ToLower(b.Product.Name)
		if an != bn {
			return an < bn
		}
		return a.Product.ID < b.Product.ID
	})
}

// Partition splits results by class and sorts each bucket.
func Partition(results []MatchResult) (exact, deviating []MatchResult) {
	exact = make([]MatchResult, 0)
	deviating = make([]MatchResult, 0)
	for _, r := range results {
		switch r.Class {
		case ClassExact:
			exact = append(exact, r)
		case ClassDeviating:
			deviating = append(deviating, r)
		}
	}
	SortResults(exact)
	SortResults(deviating)
	return exact, deviating
}
