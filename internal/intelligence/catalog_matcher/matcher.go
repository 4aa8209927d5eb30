package catalog_matcher

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// SearchRequest is the caller's request. Quantity and Unit, when given,
// override the values found in Query.
type SearchRequest struct {
	Query    string        `json:"query"`
	Quantity *float64      `json:"quantity,omitempty"`
	Unit     *catalog.Unit `json:"unit,omitempty"`
}

// ResultSet is the outcome of one search.
type ResultSet struct {
	Query     *Query        `json:"query"`
	Exact     []MatchResult `json:"exact"`
	Deviating []MatchResult `json:"deviating"`

	// Evaluated counts scored candidates, Skipped invalid rows and Dropped
	// candidates scoring 0.
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
	Dropped   int `json:"dropped"`

	Took time.Duration `json:"took"`
}

// Len returns the number of ranked results.
func (r *ResultSet) Len() int { return len(r.Exact) + len(r.Deviating) }

// Matcher runs searches over a catalog. It holds no per-query state and is
// safe for concurrent use.
type Matcher struct {
	cfg    Config
	logger logging.Logger
}

// NewMatcher validates cfg and returns a Matcher.
func NewMatcher(cfg Config, logger logging.Logger) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Matcher{cfg: cfg, logger: logger.Named("catalog_matcher")}, nil
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config { return m.cfg }

type slotState uint8

const (
	slotEmpty slotState = iota
	slotSkipped
	slotDropped
	slotRanked
)

type slot struct {
	state  slotState
	result MatchResult
}

// Search ranks products against req using dict. A nil or empty dictionary is
// a configuration error; an empty catalog yields an empty ResultSet. Invalid
// rows are skipped and counted.
func (m *Matcher) Search(ctx context.Context, req SearchRequest, products []*catalog.Product, dict *SynonymDictionary) (*ResultSet, error) {
	start := time.Now()
	if dict.Len() == 0 {
		return nil, errors.New(errors.ErrCodeDictionaryEmpty, "synonym dictionary is empty")
	}
	if err := validateOverrides(req); err != nil {
		return nil, err
	}

	scorer := NewScorer(m.cfg, dict)
	q := scorer.PrepareQuery(req.Query)
	applyOverrides(q, req)

	rs := &ResultSet{Query: q, Exact: []MatchResult{}, Deviating: []MatchResult{}}
	if len(products) == 0 {
		rs.Took = time.Since(start)
		return rs, nil
	}

	slots := make([]slot, len(products))
	if q.HasSubstance() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.cfg.workers())
		for i := range products {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[i] = m.evaluate(scorer, q, products[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "search cancelled")
		}
	} else {
		for i, p := range products {
			if p.Validate() != nil {
				slots[i].state = slotSkipped
				continue
			}
			slots[i].state = slotDropped
		}
	}

	ranked := make([]MatchResult, 0, len(products))
	for _, s := range slots {
		switch s.state {
		case slotSkipped:
			rs.Skipped++
			continue
		case slotDropped:
			rs.Dropped++
		case slotRanked:
			ranked = append(ranked, s.result)
		}
		rs.Evaluated++
	}
	rs.Exact, rs.Deviating = Partition(ranked)
	rs.Took = time.Since(start)

	m.logger.Debug("search completed",
		logging.String("query", q.Normalized),
		logging.String("substance", q.Substance),
		logging.Int("exact", len(rs.Exact)),
		logging.Int("deviating", len(rs.Deviating)),
		logging.Int("skipped", rs.Skipped),
		logging.Duration("took", rs.Took),
	)
	return rs, nil
}

func (m *Matcher) evaluate(scorer *Scorer, q *Query, p *catalog.Product) slot {
	if err := p.Validate(); err != nil {
		m.logger.Debug("skipping catalog row", logging.Err(err))
		return slot{state: slotSkipped}
	}
	c := scorer.PrepareCandidate(p)
	b := scorer.Score(q, c)
	class, ok := Classify(q, b)
	if !ok {
		return slot{state: slotDropped}
	}
	return slot{
		state: slotRanked,
		result: MatchResult{
			Product: p,
			Score:   b.Total,
			Class:   class,
			Attributes: CandidateAttributes{
				Substance: q.Substance,
				Purity:    c.Purity,
				Quantity:  c.Quantity,
			},
			Breakdown: b,
		},
	}
}

func validateOverrides(req SearchRequest) error {
	if req.Quantity != nil {
		v := *req.Quantity
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return errors.New(errors.ErrCodeQueryInvalid, "quantity must be a positive number")
		}
	}
	if req.Unit != nil && !req.Unit.IsValid() {
		return errors.New(errors.ErrCodeQueryInvalid, "unit outside vocabulary").WithDetail("unit=" + string(*req.Unit))
	}
	return nil
}

// applyOverrides merges explicit quantity and unit into the query. An
// explicit value combines with the other half found in the text; a quantity
// without any unit adds no constraint.
func applyOverrides(q *Query, req SearchRequest) {
	if req.Quantity == nil && req.Unit == nil {
		return
	}
	var value float64
	var unit catalog.Unit
	if q.Quantity != nil {
		value, unit = q.Quantity.Value, q.Quantity.Unit
	}
	if req.Quantity != nil {
		value = *req.Quantity
	}
	if req.Unit != nil {
		unit = *req.Unit
	}
	if value <= 0 || unit == "" {
		q.Quantity = nil
		return
	}
	q.Quantity = &Quantity{Value: value, Unit: unit}
}
