package catalog_matcher

import (
	"math"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

// Query is a prepared search request. It is derived once per search and
// never mutated afterwards.
type Query struct {
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	Substance  string    `json:"substance,omitempty"`
	Purity     *Purity   `json:"purity,omitempty"`
	Quantity   *Quantity `json:"quantity,omitempty"`
}

// HasSubstance reports whether the query resolved a base substance.
func (q *Query) HasSubstance() bool { return q.Substance != "" }

// Candidate is a catalog product prepared for scoring.
type Candidate struct {
	Product    *catalog.Product
	Normalized string
	Purity     *Purity
	Quantity   *Quantity
}

// Breakdown lists the contribution of every scoring term.
type Breakdown struct {
	Substance float64 `json:"substance"`
	Purity    float64 `json:"purity"`
	Quantity  float64 `json:"quantity"`
	Fuzzy     float64 `json:"fuzzy"`
	Total     float64 `json:"total"`

	SubstanceMatched bool `json:"substance_matched"`
	PurityMatched    bool `json:"purity_matched"`
	QuantityMatched  bool `json:"quantity_matched"`
}

// Scorer computes the relevance of a candidate for a query.
type Scorer struct {
	cfg  Config
	dict *SynonymDictionary
}

// NewScorer creates a Scorer over dict.
func NewScorer(cfg Config, dict *SynonymDictionary) *Scorer {
	return &Scorer{cfg: cfg, dict: dict}
}

// PrepareQuery normalises raw and extracts the query attributes.
func (s *Scorer) PrepareQuery(raw string) *Query {
	n := Normalize(raw)
	q := &Query{Raw: raw, Normalized: n}
	if sub, ok := s.dict.ResolveNormalized(n); ok {
		q.Substance = sub
	}
	if p, ok := ExtractPurity(n, s.cfg); ok {
		q.Purity = &p
	}
	if qty, ok := ExtractQuantity(n); ok {
		q.Quantity = &qty
	}
	return q
}

// PrepareCandidate normalises the product name and collects its attributes.
// Structured columns take precedence over values found in the name.
func (s *Scorer) PrepareCandidate(p *catalog.Product) *Candidate {
	n := Normalize(p.Name)
	c := &Candidate{Product: p, Normalized: n}

	if p.Purity != nil {
		c.Purity = &Purity{Value: *p.Purity}
	} else if pur, ok := ExtractPurity(n, s.cfg); ok {
		c.Purity = &pur
	}

	if p.HasStructuredQuantity() {
		c.Quantity = &Quantity{Value: *p.Quantity, Unit: p.Unit}
	} else if qty, ok := ExtractQuantity(n); ok {
		c.Quantity = &qty
	}
	return c
}

// Score evaluates the terms in fixed order. Without a query substance, or
// when the candidate does not mention it, the score is 0 and no further term
// is evaluated.
func (s *Scorer) Score(q *Query, c *Candidate) Breakdown {
	var b Breakdown
	w := s.cfg.Weights

	if !q.HasSubstance() || !s.dict.Mentions(q.Substance, c.Normalized) {
		return b
	}
	b.SubstanceMatched = true
	b.Substance = w.Substance

	if q.Purity != nil && c.Purity != nil && c.Purity.Value >= q.Purity.Value {
		b.PurityMatched = true
		b.Purity = w.Purity
	}

	if q.Quantity != nil && c.Quantity != nil &&
		Comparable(q.Quantity.Value, q.Quantity.Unit, c.Quantity.Value, c.Quantity.Unit, s.cfg.Epsilon) {
		b.QuantityMatched = true
		b.Quantity = w.Quantity
	}

	b.Fuzzy = SimilarityRatio(q.Normalized, c.Normalized) * w.FuzzyMax

	b.Total = math.Min(round4(b.Substance+b.Purity+b.Quantity+b.Fuzzy), 1.0)
	return b
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
