package catalog_matcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

// Purity is a minimum purity in percent.
type Purity struct {
	Value float64 `json:"value"`
	// Assumed is set when the value came from a grade keyword rather than a
	// written number.
	Assumed bool `json:"assumed,omitempty"`
}

// Quantity is an amount in one of the supported units.
type Quantity struct {
	Value float64      `json:"value"`
	Unit  catalog.Unit `json:"unit"`
}

var (
	// purityPattern: optional comparator, number with optional decimal part,
	// optional percent sign.
	purityPattern = regexp.MustCompile(`(≥ ?)?(\d+(?:[.,]\d+)?) ?(%)?`)

	// quantityPattern: number with optional decimal part, optional space,
	// unit, then a word boundary.
	quantityPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?) ?(ml|kg|l|g)\b`)

	// unitPrefixPattern detects a unit directly after a number.
	unitPrefixPattern = regexp.MustCompile(`^ ?(ml|kg|l|g)\b`)
)

// ExtractPurity returns the minimum purity written in normalized text. A
// number counts only when it carries a comparator or a percent sign, is not
// followed by a unit and does not exceed 100. Without a numeric purity, a
// configured high-grade keyword yields cfg.HighGradePurity flagged Assumed.
func ExtractPurity(normalized string, cfg Config) (Purity, bool) {
	for _, m := range purityPattern.FindAllStringSubmatchIndex(normalized, -1) {
		hasComparator := m[2] >= 0
		hasPercent := m[6] >= 0
		if !hasComparator && !hasPercent {
			continue
		}
		numStart, numEnd := m[4], m[5]
		if numStart > 0 && isNumberRune(normalized[numStart-1]) {
			continue
		}
		if !hasPercent && unitPrefixPattern.MatchString(normalized[numEnd:]) {
			continue
		}
		v, ok := parseDecimal(normalized[numStart:numEnd])
		if !ok || v > 100 {
			continue
		}
		return Purity{Value: v}, true
	}
	for _, kw := range cfg.HighGradeKeywords {
		kw = Normalize(kw)
		if kw != "" && strings.Contains(normalized, kw) {
			return Purity{Value: cfg.HighGradePurity, Assumed: true}, true
		}
	}
	return Purity{}, false
}

// ExtractQuantity returns the first amount+unit written in normalized text.
func ExtractQuantity(normalized string) (Quantity, bool) {
	for _, m := range quantityPattern.FindAllStringSubmatchIndex(normalized, -1) {
		numStart, numEnd := m[2], m[3]
		if numStart > 0 && isNumberRune(normalized[numStart-1]) {
			continue
		}
		v, ok := parseDecimal(normalized[numStart:numEnd])
		if !ok || v <= 0 {
			continue
		}
		unit, ok := catalog.ParseUnit(normalized[m[4]:m[5]])
		if !ok {
			continue
		}
		return Quantity{Value: v, Unit: unit}, true
	}
	return Quantity{}, false
}

// parseDecimal parses a number using either "." or "," as decimal separator.
func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isNumberRune(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == ','
}
