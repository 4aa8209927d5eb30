package catalog_matcher

import (
	"math"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

type unitPair struct {
	from, to catalog.Unit
}

// conversionFactors multiplies a value in from to obtain the value in to.
var conversionFactors = map[unitPair]float64{
	{catalog.UnitMilliliter, catalog.UnitLiter}:      0.001,
	{catalog.UnitLiter, catalog.UnitMilliliter}:      1000,
	{catalog.UnitGram, catalog.UnitKilogram}:         0.001,
	{catalog.UnitKilogram, catalog.UnitGram}:         1000,
	{catalog.UnitMilliliter, catalog.UnitMilliliter}: 1,
	{catalog.UnitLiter, catalog.UnitLiter}:           1,
	{catalog.UnitGram, catalog.UnitGram}:             1,
	{catalog.UnitKilogram, catalog.UnitKilogram}:     1,
}

// Convert expresses q (in from) in unit to. It returns false when the units
// measure different dimensions or are not in the vocabulary.
func Convert(q float64, from, to catalog.Unit) (float64, bool) {
	f, ok := conversionFactors[unitPair{from, to}]
	if !ok {
		return 0, false
	}
	return q * f, true
}

// Comparable reports whether q1 u1 and q2 u2 denote the same amount within
// the absolute tolerance eps, measured in u1. Volume and mass never compare.
func Comparable(q1 float64, u1 catalog.Unit, q2 float64, u2 catalog.Unit, eps float64) bool {
	if u1 == u2 {
		return u1.IsValid() && math.Abs(q1-q2) < eps
	}
	c, ok := Convert(q2, u2, u1)
	if !ok {
		return false
	}
	return math.Abs(q1-c) < eps
}
