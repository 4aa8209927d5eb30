// Package csvfile reads product catalogs and synonym tables from delimited
// text files. The parsers are shared with the object-storage source, which
// serves the same formats from a bucket.
package csvfile

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// Columns pins header names. An empty field falls back to the aliases below.
type Columns struct {
	ID        string
	Name      string
	Quantity  string
	Unit      string
	Purity    string
	Canonical string
	Synonyms  string
}

// Options controls parsing.
type Options struct {
	Delimiter rune
	Columns   Columns
}

// DefaultOptions returns comma separated parsing with header auto-detection.
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

var (
	idAliases        = []string{"id", "code", "artikelnummer", "sku"}
	nameAliases      = []string{"name", "produkt", "product", "bezeichnung"}
	quantityAliases  = []string{"menge", "quantity", "qty"}
	unitAliases      = []string{"einheit", "unit"}
	purityAliases    = []string{"reinheit", "purity"}
	canonicalAliases = []string{"name", "canonical", "substanz", "substance"}
	synonymAliases   = []string{"synonyme", "synonyms", "synonym"}
)

type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	rec, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeSourceMalformed, "missing header row")
		}
		return nil, errors.Wrap(err, errors.ErrCodeSourceMalformed, "failed to read header row")
	}
	h := make(header, len(rec))
	for i, col := range rec {
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(col))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h, nil
}

// index returns the position of the pinned column, or of the first alias
// present in the header.
func (h header) index(pinned string, aliases []string) (int, bool) {
	if pinned != "" {
		i, ok := h[strings.ToLower(strings.TrimSpace(pinned))]
		return i, ok
	}
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i, true
		}
	}
	return -1, false
}

func newReader(r io.Reader, opts Options) *csv.Reader {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseProducts reads a product catalog. Rows are returned in file order;
// rows with missing identifiers or units outside the vocabulary are kept so
// the matcher can skip and count them. Unreadable numeric cells are left
// unset and the value is preserved under Attributes.
func ParseProducts(r io.Reader, opts Options) ([]*catalog.Product, error) {
	cr := newReader(r, opts)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	idIdx, ok := h.index(opts.Columns.ID, idAliases)
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceMalformed, "catalog header has no id column")
	}
	nameIdx, ok := h.index(opts.Columns.Name, nameAliases)
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceMalformed, "catalog header has no name column")
	}
	qtyIdx, _ := h.index(opts.Columns.Quantity, quantityAliases)
	unitIdx, _ := h.index(opts.Columns.Unit, unitAliases)
	purityIdx, _ := h.index(opts.Columns.Purity, purityAliases)

	known := map[int]bool{idIdx: true, nameIdx: true, qtyIdx: true, unitIdx: true, purityIdx: true}
	extra := make(map[int]string)
	for name, i := range h {
		if !known[i] && name != "" {
			extra[i] = name
		}
	}

	var products []*catalog.Product
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceMalformed, "failed to read catalog row").
				WithDetail("line " + strconv.Itoa(line))
		}
		if blankRecord(rec) {
			continue
		}

		p := &catalog.Product{
			ID:   cell(rec, idIdx),
			Name: cell(rec, nameIdx),
		}
		attrs := make(map[string]string)
		if raw := cell(rec, qtyIdx); raw != "" {
			if v, ok := parseNumber(raw); ok {
				p.Quantity = &v
			} else {
				attrs["quantity"] = raw
			}
		}
		if raw := cell(rec, unitIdx); raw != "" {
			if u, ok := catalog.ParseUnit(raw); ok {
				p.Unit = u
			} else {
				p.Unit = catalog.Unit(strings.ToLower(raw))
			}
		}
		if raw := cell(rec, purityIdx); raw != "" {
			if v, ok := parseNumber(raw); ok {
				p.Purity = &v
			} else {
				attrs["purity"] = raw
			}
		}
		for i, name := range extra {
			if v := cell(rec, i); v != "" {
				attrs[name] = v
			}
		}
		if len(attrs) > 0 {
			p.Attributes = attrs
		}
		products = append(products, p)
	}
	return products, nil
}

// ParseSynonyms reads a synonym table. Synonym cells hold ";"-separated
// lists; row order is registration order.
func ParseSynonyms(r io.Reader, opts Options) ([]catalog.SynonymRow, error) {
	cr := newReader(r, opts)
	h, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	canonIdx, ok := h.index(opts.Columns.Canonical, canonicalAliases)
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceMalformed, "synonym header has no canonical name column")
	}
	synIdx, _ := h.index(opts.Columns.Synonyms, synonymAliases)

	var rows []catalog.SynonymRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSourceMalformed, "failed to read synonym row").
				WithDetail("line " + strconv.Itoa(line))
		}
		rows = append(rows, catalog.SplitSynonymCell(cell(rec, canonIdx), cell(rec, synIdx))...)
	}
	return rows, nil
}

// parseNumber accepts cells such as "99,5", "≥ 99.5 %" or "500".
func parseNumber(raw string) (float64, bool) {
	s := strings.NewReplacer("≥", "", ">=", "", ">", "", "%", "", " ", "").Replace(raw)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func blankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
