// Package catalog holds the read-only domain model of a chemical product
// catalog: product listings and the substance synonym table used to resolve
// free-text names to a canonical base substance.
package catalog

import (
	"math"
	"strings"

	"github.com/turtacn/reagent-match/pkg/errors"
)

// Unit is a quantity unit understood by the matcher.
type Unit string

const (
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
)

// Dimension groups units that can be converted into one another.
type Dimension string

const (
	DimensionNone   Dimension = ""
	DimensionVolume Dimension = "volume"
	DimensionMass   Dimension = "mass"
)

// Units lists the supported unit vocabulary in display order.
var Units = []Unit{UnitMilliliter, UnitLiter, UnitGram, UnitKilogram}

// ParseUnit maps a raw unit cell ("L", " ml ", "Kg") onto the vocabulary.
func ParseUnit(s string) (Unit, bool) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if u.IsValid() {
		return u, true
	}
	return "", false
}

// IsValid reports whether u is one of the supported units.
func (u Unit) IsValid() bool {
	switch u {
	case UnitMilliliter, UnitLiter, UnitGram, UnitKilogram:
		return true
	}
	return false
}

// Dimension returns the physical dimension of u.
func (u Unit) Dimension() Dimension {
	switch u {
	case UnitMilliliter, UnitLiter:
		return DimensionVolume
	case UnitGram, UnitKilogram:
		return DimensionMass
	}
	return DimensionNone
}

func (u Unit) String() string { return string(u) }

// Product is a single catalog listing. Name is the unstructured display
// string; Quantity, Unit and Purity are optional pre-structured columns.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Quantity   *float64          `json:"quantity,omitempty"`
	Unit       Unit              `json:"unit,omitempty"`
	Purity     *float64          `json:"purity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Validate reports whether the product can take part in matching.
func (p *Product) Validate() error {
	if p == nil {
		return errors.New(errors.ErrCodeSourceMalformed, "product is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return errors.New(errors.ErrCodeSourceMalformed, "product id is empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New(errors.ErrCodeSourceMalformed, "product name is empty").WithDetail("id=" + p.ID)
	}
	if p.Unit != "" && !p.Unit.IsValid() {
		return errors.New(errors.ErrCodeSourceMalformed, "unit outside vocabulary").
			WithDetail("id=" + p.ID + " unit=" + string(p.Unit))
	}
	if p.Quantity != nil && (math.IsNaN(*p.Quantity) || math.IsInf(*p.Quantity, 0) || *p.Quantity <= 0) {
		return errors.New(errors.ErrCodeSourceMalformed, "quantity must be a positive number").WithDetail("id=" + p.ID)
	}
	if p.Purity != nil && (math.IsNaN(*p.Purity) || *p.Purity < 0 || *p.Purity > 100) {
		return errors.New(errors.ErrCodeSourceMalformed, "purity must be within [0, 100]").WithDetail("id=" + p.ID)
	}
	return nil
}

// HasStructuredQuantity reports whether both quantity and unit columns are set.
func (p *Product) HasStructuredQuantity() bool {
	return p.Quantity != nil && p.Unit != ""
}

// SynonymRow is one (canonical, synonym) pair as stored by a synonym source.
// Synonym may be empty for a substance registered without alternatives.
type SynonymRow struct {
	Canonical string `json:"canonical"`
	Synonym   string `json:"synonym,omitempty"`
}

// SplitSynonymCell turns a ";"-separated synonym cell into rows for canonical.
// A blank cell still yields one row so the canonical name is registered.
func SplitSynonymCell(canonical, cell string) []SynonymRow {
	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return nil
	}
	var rows []SynonymRow
	for _, s := range strings.Split(cell, ";") {
		if s = strings.TrimSpace(s); s != "" {
			rows = append(rows, SynonymRow{Canonical: canonical, Synonym: s})
		}
	}
	if len(rows) == 0 {
		rows = append(rows, SynonymRow{Canonical: canonical})
	}
	return rows
}

// Float is a convenience for building optional numeric fields.
func Float(v float64) *float64 { return &v }
