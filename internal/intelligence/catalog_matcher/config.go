package catalog_matcher

import (
	"math"
	"runtime"

	"github.com/turtacn/reagent-match/pkg/errors"
)

// Default weight split. The sum is the full score budget of 1.0.
const (
	DefaultSubstanceWeight = 0.50
	DefaultPurityWeight    = 0.25
	DefaultQuantityWeight  = 0.15
	DefaultFuzzyMaxWeight  = 0.10

	// DefaultEpsilon is the absolute tolerance for quantity comparison.
	DefaultEpsilon = 0.01

	// DefaultHighGradePurity is the minimum purity assumed for grade
	// keywords such as "HPLC" when no numeric purity is written.
	DefaultHighGradePurity = 99.9
)

// DefaultHighGradeKeywords are grade markers implying DefaultHighGradePurity.
var DefaultHighGradeKeywords = []string{"hplc"}

// Weights is the score budget split between the scoring terms.
type Weights struct {
	Substance float64 `mapstructure:"substance" json:"substance" yaml:"substance"`
	Purity    float64 `mapstructure:"purity" json:"purity" yaml:"purity"`
	Quantity  float64 `mapstructure:"quantity" json:"quantity" yaml:"quantity"`
	FuzzyMax  float64 `mapstructure:"fuzzy_max" json:"fuzzy_max" yaml:"fuzzy_max"`
}

// Budget returns the sum of all weights.
func (w Weights) Budget() float64 {
	return w.Substance + w.Purity + w.Quantity + w.FuzzyMax
}

// Config tunes the matcher.
type Config struct {
	Weights Weights `mapstructure:"weights" json:"weights" yaml:"weights"`

	// Epsilon is the absolute tolerance used when comparing quantities.
	Epsilon float64 `mapstructure:"epsilon" json:"epsilon" yaml:"epsilon"`

	// HighGradeKeywords imply HighGradePurity when no numeric purity is found.
	// An empty list disables the policy.
	HighGradeKeywords []string `mapstructure:"high_grade_keywords" json:"high_grade_keywords" yaml:"high_grade_keywords"`
	HighGradePurity   float64  `mapstructure:"high_grade_purity" json:"high_grade_purity" yaml:"high_grade_purity"`

	// Concurrency bounds the number of candidates scored in parallel.
	// Zero means GOMAXPROCS.
	Concurrency int `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns the baseline matcher configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Substance: DefaultSubstanceWeight,
			Purity:    DefaultPurityWeight,
			Quantity:  DefaultQuantityWeight,
			FuzzyMax:  DefaultFuzzyMaxWeight,
		},
		Epsilon:           DefaultEpsilon,
		HighGradeKeywords: append([]string(nil), DefaultHighGradeKeywords...),
		HighGradePurity:   DefaultHighGradePurity,
	}
}

// Validate checks the weight budget and tolerances. A satisfied purity or
// quantity constraint must outweigh any fuzzy difference, so both weights
// must be at least FuzzyMax.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"substance": w.Substance, "purity": w.Purity, "quantity": w.Quantity, "fuzzy_max": w.FuzzyMax,
	} {
		if v < 0 || math.IsNaN(v) {
			return errors.New(errors.ErrCodeMatcherConfigInvalid, "weight must be non-negative").WithDetail(name)
		}
	}
	if w.Substance <= 0 {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "substance weight must be positive")
	}
	if w.Budget() > 1.0+1e-9 {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "weight budget exceeds 1.0")
	}
	if w.Purity < w.FuzzyMax || w.Quantity < w.FuzzyMax {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "purity and quantity weights must be at least fuzzy_max")
	}
	if c.Epsilon <= 0 || math.IsNaN(c.Epsilon) {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "epsilon must be positive")
	}
	if len(c.HighGradeKeywords) > 0 && (c.HighGradePurity <= 0 || c.HighGradePurity > 100) {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "high_grade_purity must be within (0, 100]")
	}
	if c.Concurrency < 0 {
		return errors.New(errors.ErrCodeMatcherConfigInvalid, "concurrency must not be negative")
	}
	return nil
}

func (c Config) workers() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}
