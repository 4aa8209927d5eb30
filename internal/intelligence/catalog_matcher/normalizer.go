// Package catalog_matcher ranks catalog listings against a free-text chemical
// product request. It canonicalises text, resolves the base substance through
// a synonym dictionary, extracts purity and quantity, scores every candidate
// and partitions the result into exact and deviating matches.
package catalog_matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ComparatorToken is the single canonical form of "at least" (≥, >=, ⩾, >).
const ComparatorToken = "≥"

const comparatorRune = '≥'

// maxNormalizePasses bounds the fixed-point loop in Normalize.
const maxNormalizePasses = 4

var comparatorReplacer = strings.NewReplacer(
	">=", ComparatorToken,
	"=>", ComparatorToken,
	"⩾", ComparatorToken,
	"≧", ComparatorToken,
	">", ComparatorToken,
)

// Normalize canonicalises free text for matching. It is total, pure and
// idempotent: Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	out := normalizeOnce(text)
	for i := 0; i < maxNormalizePasses; i++ {
		next := normalizeOnce(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func normalizeOnce(text string) string {
	s := norm.NFKC.String(text)
	s = strings.ToLower(s)
	s = comparatorReplacer.Replace(s)

	var sb strings.Builder
	sb.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = sb.Len() > 0
			continue
		case allowedRune(r):
		default:
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func allowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '%', '.', ',', '-', comparatorRune:
		return true
	}
	return false
}
