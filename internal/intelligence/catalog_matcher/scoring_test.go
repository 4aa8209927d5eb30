package catalog_matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

func newTestScorer() *Scorer {
	return NewScorer(DefaultConfig(), newTestDictionary())
}

func scoreOf(s *Scorer, query string, p *catalog.Product) Breakdown {
	return s.Score(s.PrepareQuery(query), s.PrepareCandidate(p))
}

func TestScorer_PrepareQuery(t *testing.T) {
	s := newTestScorer()
	q := s.PrepareQuery("Toluene HPLC Plus >=99,9 % 2,5 L")

	assert.Equal(t, "toluene hplc plus ≥99,9 % 2,5 l", q.Normalized)
	assert.Equal(t, "Toluol", q.Substance)
	require.NotNil(t, q.Purity)
	assert.InDelta(t, 99.9, q.Purity.Value, 1e-9)
	require.NotNil(t, q.Quantity)
	assert.Equal(t, Quantity{Value: 2.5, Unit: catalog.UnitLiter}, *q.Quantity)
}

func TestScorer_PrepareCandidate_StructuredColumnsWin(t *testing.T) {
	s := newTestScorer()
	c := s.PrepareCandidate(&catalog.Product{
		ID: "1", Name: "Toluol 98% 1 l",
		Quantity: catalog.Float(2.5), Unit: catalog.UnitLiter, Purity: catalog.Float(99.95),
	})
	require.NotNil(t, c.Purity)
	assert.InDelta(t, 99.95, c.Purity.Value, 1e-9)
	require.NotNil(t, c.Quantity)
	assert.Equal(t, Quantity{Value: 2.5, Unit: catalog.UnitLiter}, *c.Quantity)

	c = s.PrepareCandidate(&catalog.Product{ID: "2", Name: "Toluol 98% 1 l", Quantity: catalog.Float(5)})
	require.NotNil(t, c.Quantity)
	assert.Equal(t, Quantity{Value: 1, Unit: catalog.UnitLiter}, *c.Quantity, "quantity without unit falls back to the name")
}

func TestScorer_NoQuerySubstanceScoresZero(t *testing.T) {
	s := newTestScorer()
	b := scoreOf(s, "Wasser ≥99% 1 l", &catalog.Product{ID: "1", Name: "Wasser ≥99% 1 l"})
	assert.Equal(t, Breakdown{}, b)
}

func TestScorer_CandidateWithoutSubstanceScoresZero(t *testing.T) {
	s := newTestScorer()
	b := scoreOf(s, "Toluol ≥99% 1 l", &catalog.Product{ID: "1", Name: "Methanol ≥99% 1 l"})
	assert.Equal(t, 0.0, b.Total)
	assert.False(t, b.SubstanceMatched)
	assert.Equal(t, 0.0, b.Fuzzy, "fuzzy similarity never rescues an irrelevant candidate")
}

func TestScorer_IdenticalTextScoresOne(t *testing.T) {
	s := newTestScorer()
	b := scoreOf(s, "Toluol HPLC Plus ≥99.9% 1 l", &catalog.Product{ID: "1", Name: "Toluol HPLC Plus ≥99.9% 1 l"})
	assert.Equal(t, 1.0, b.Total)
	assert.True(t, b.SubstanceMatched)
	assert.True(t, b.PurityMatched)
	assert.True(t, b.QuantityMatched)
}

func TestScorer_SynonymInCandidate(t *testing.T) {
	s := newTestScorer()
	b := scoreOf(s, "Toluol 1 l", &catalog.Product{ID: "1", Name: "Methylbenzol 1000 ml"})
	assert.True(t, b.SubstanceMatched)
	assert.True(t, b.QuantityMatched)
}

func TestScorer_ScoreWithinBounds(t *testing.T) {
	s := newTestScorer()
	queries := []string{"Toluol", "Toluol 1 l", "Toluol ≥99%", "MeOH 500 ml", "Aceton HPLC 2,5 l", "", "xyz"}
	names := []string{"Toluol", "Toluol techn. 98% 1 l", "Methanol HPLC 99.8% 1 l", "Aceton ≥99,5% 2,5 l", "Wasser"}
	for _, q := range queries {
		for i, n := range names {
			b := scoreOf(s, q, &catalog.Product{ID: string(rune('a' + i)), Name: n})
			assert.GreaterOrEqual(t, b.Total, 0.0)
			assert.LessOrEqual(t, b.Total, 1.0)
		}
	}
}

func TestScorer_SatisfiedConstraintNeverRanksLower(t *testing.T) {
	s := newTestScorer()
	query := "Toluol ≥99.5% 1 l"

	pure := scoreOf(s, query, &catalog.Product{ID: "1", Name: "Toluol zur Analyse ≥99.9% 1 l"})
	impure := scoreOf(s, query, &catalog.Product{ID: "2", Name: "Toluol 98% 1 l"})
	assert.True(t, pure.PurityMatched)
	assert.False(t, impure.PurityMatched)
	assert.Greater(t, pure.Total, impure.Total)

	sized := scoreOf(s, query, &catalog.Product{ID: "3", Name: "Toluol technisch 99,9% 1000 ml"})
	unsized := scoreOf(s, query, &catalog.Product{ID: "4", Name: "Toluol 99,9% 5 l"})
	assert.True(t, sized.QuantityMatched)
	assert.False(t, unsized.QuantityMatched)
	assert.Greater(t, sized.Total, unsized.Total)
}

func TestScorer_MissingPurityIsNeutral(t *testing.T) {
	s := newTestScorer()
	b := scoreOf(s, "Toluol ≥99%", &catalog.Product{ID: "1", Name: "Toluol 1 l"})
	assert.True(t, b.SubstanceMatched)
	assert.False(t, b.PurityMatched)
	assert.Equal(t, 0.0, b.Purity)
}
