package catalog_matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

func TestExtractPurity(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		text string
		want Purity
		ok   bool
	}{
		{"comparator and comma decimal", "toluol ≥99,9%", Purity{Value: 99.9}, true},
		{"comparator with space", "toluol ≥ 99.5", Purity{Value: 99.5}, true},
		{"percent only", "toluol techn. 98%", Purity{Value: 98}, true},
		{"percent with space", "aceton 99,5 %", Purity{Value: 99.5}, true},
		{"bare number is not purity", "toluol 2,5 l", Purity{}, false},
		{"comparator before quantity", "toluol ≥2,5 l", Purity{}, false},
		{"above hundred", "toluol 150%", Purity{}, false},
		{"long number", "toluol 1234%", Purity{}, false},
		{"grade keyword", "toluol hplc 1 l", Purity{Value: DefaultHighGradePurity, Assumed: true}, true},
		{"numeric beats keyword", "toluol hplc 99.8% 1 l", Purity{Value: 99.8}, true},
		{"nothing", "toluol", Purity{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractPurity(tt.text, cfg)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			assert.Equal(t, tt.want.Assumed, got.Assumed)
		})
	}
}

func TestExtractPurity_KeywordPolicyDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighGradeKeywords = nil

	_, ok := ExtractPurity("toluol hplc", cfg)
	assert.False(t, ok)
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		text string
		want Quantity
		ok   bool
	}{
		{"toluol 2,5 l", Quantity{2.5, catalog.UnitLiter}, true},
		{"toluol 2.5l", Quantity{2.5, catalog.UnitLiter}, true},
		{"toluol 500ml", Quantity{500, catalog.UnitMilliliter}, true},
		{"aceton 1 kg", Quantity{1, catalog.UnitKilogram}, true},
		{"natriumchlorid 250 g", Quantity{250, catalog.UnitGram}, true},
		{"toluol ≥99,9% 1 l", Quantity{1, catalog.UnitLiter}, true},
		{"toluol hplc, ≥99,9%, 2,5 l", Quantity{2.5, catalog.UnitLiter}, true},
		{"1 lab 2 g", Quantity{2, catalog.UnitGram}, true},
		{"methanol 5 liter", Quantity{}, false},
		{"toluol", Quantity{}, false},
		{"toluol 0 l", Quantity{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractQuantity(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			assert.Equal(t, tt.want.Unit, got.Unit)
		})
	}
}

func TestExtractors_OnNormalizedCatalogNames(t *testing.T) {
	n := Normalize("Toluol HPLC, >=99,9 %, 2,5 L")

	p, ok := ExtractPurity(n, DefaultConfig())
	assert.True(t, ok)
	assert.InDelta(t, 99.9, p.Value, 1e-9)

	q, ok := ExtractQuantity(n)
	assert.True(t, ok)
	assert.Equal(t, Quantity{Value: 2.5, Unit: catalog.UnitLiter}, q)
}
