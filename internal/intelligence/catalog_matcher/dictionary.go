package catalog_matcher

import (
	"strings"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

// SynonymEntry is one substance of the dictionary as registered.
type SynonymEntry struct {
	Canonical string   `json:"canonical"`
	Synonyms  []string `json:"synonyms"`
}

// SynonymConflict records a synonym dropped because an earlier substance
// already claimed the same normalised text.
type SynonymConflict struct {
	Synonym  string `json:"synonym"`
	Owner    string `json:"owner"`
	Rejected string `json:"rejected"`
}

type dictEntry struct {
	canonical string
	synonyms  []string
	// tokens holds the normalised canonical name followed by the normalised
	// synonyms, deduplicated, in registration order.
	tokens []string
}

// SynonymDictionary maps canonical substance names to their synonyms. It is
// immutable once built and safe for concurrent reads.
type SynonymDictionary struct {
	entries []*dictEntry
	byKey   map[string]*dictEntry
	// byToken maps every claimed token to its owning entry.
	byToken map[string]*dictEntry
}

// Len returns the number of registered substances.
func (d *SynonymDictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the registered substances in registration order.
func (d *SynonymDictionary) Entries() []SynonymEntry {
	if d == nil {
		return nil
	}
	out := make([]SynonymEntry, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, SynonymEntry{Canonical: e.canonical, Synonyms: append([]string(nil), e.synonyms...)})
	}
	return out
}

// Lookup returns the entry whose canonical name equals name after
// normalisation.
func (d *SynonymDictionary) Lookup(name string) (SynonymEntry, bool) {
	if d == nil {
		return SynonymEntry{}, false
	}
	e, ok := d.byKey[Normalize(name)]
	if !ok {
		return SynonymEntry{}, false
	}
	return SynonymEntry{Canonical: e.canonical, Synonyms: append([]string(nil), e.synonyms...)}, true
}

// Resolve normalises text and returns the canonical display name of the first
// registered substance whose name or any synonym occurs in it. Text equal to a
// registered name or synonym resolves to its owner directly.
func (d *SynonymDictionary) Resolve(text string) (string, bool) {
	return d.ResolveNormalized(Normalize(text))
}

// ResolveNormalized is Resolve for text that is already normalised.
func (d *SynonymDictionary) ResolveNormalized(normalized string) (string, bool) {
	if d == nil || normalized == "" {
		return "", false
	}
	if e, ok := d.byToken[normalized]; ok {
		return e.canonical, true
	}
	for _, e := range d.entries {
		if e.mentionedIn(normalized) {
			return e.canonical, true
		}
	}
	return "", false
}

// Mentions reports whether the substance registered as canonical, or any of
// its synonyms, occurs in normalizedText.
func (d *SynonymDictionary) Mentions(canonical, normalizedText string) bool {
	if d == nil {
		return false
	}
	e, ok := d.byKey[Normalize(canonical)]
	if !ok {
		return false
	}
	return e.mentionedIn(normalizedText)
}

func (e *dictEntry) mentionedIn(normalized string) bool {
	for _, tok := range e.tokens {
		if strings.Contains(normalized, tok) {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Builder
// ─────────────────────────────────────────────────────────────────────────────

// DictionaryBuilder assembles a SynonymDictionary from rows in registration
// order. Rows for an already known canonical name merge into that entry.
type DictionaryBuilder struct {
	entries   []*dictEntry
	byKey     map[string]*dictEntry
	owners    map[string]*dictEntry
	conflicts []SynonymConflict
}

// NewDictionaryBuilder creates an empty builder.
func NewDictionaryBuilder() *DictionaryBuilder {
	return &DictionaryBuilder{
		byKey:  make(map[string]*dictEntry),
		owners: make(map[string]*dictEntry),
	}
}

// Add registers canonical with the given synonyms. Blank names are ignored.
func (b *DictionaryBuilder) Add(canonical string, synonyms ...string) *DictionaryBuilder {
	canonical = strings.TrimSpace(canonical)
	key := Normalize(canonical)
	if key == "" {
		return b
	}
	e, ok := b.byKey[key]
	if !ok {
		e = &dictEntry{canonical: canonical}
		b.entries = append(b.entries, e)
		b.byKey[key] = e
		b.claim(e, key, canonical)
	}
	for _, s := range synonyms {
		s = strings.TrimSpace(s)
		tok := Normalize(s)
		if tok == "" {
			continue
		}
		if b.claim(e, tok, s) {
			e.synonyms = append(e.synonyms, s)
		}
	}
	return b
}

// AddRows registers every row in order.
func (b *DictionaryBuilder) AddRows(rows []catalog.SynonymRow) *DictionaryBuilder {
	for _, r := range rows {
		if r.Synonym == "" {
			b.Add(r.Canonical)
			continue
		}
		b.Add(r.Canonical, r.Synonym)
	}
	return b
}

// claim attaches tok to e. A token owned by another entry is recorded as a
// conflict; the entry's own canonical token is always kept.
func (b *DictionaryBuilder) claim(e *dictEntry, tok, raw string) bool {
	owner, taken := b.owners[tok]
	switch {
	case taken && owner == e:
		return false
	case taken:
		b.conflicts = append(b.conflicts, SynonymConflict{Synonym: raw, Owner: owner.canonical, Rejected: e.canonical})
		if Normalize(e.canonical) != tok {
			return false
		}
	default:
		b.owners[tok] = e
	}
	e.tokens = append(e.tokens, tok)
	return true
}

// Conflicts returns the synonyms dropped so far.
func (b *DictionaryBuilder) Conflicts() []SynonymConflict {
	return append([]SynonymConflict(nil), b.conflicts...)
}

// Build returns an immutable dictionary snapshot of the builder state.
func (b *DictionaryBuilder) Build() *SynonymDictionary {
	d := &SynonymDictionary{
		entries: make([]*dictEntry, 0, len(b.entries)),
		byKey:   make(map[string]*dictEntry, len(b.entries)),
		byToken: make(map[string]*dictEntry, len(b.owners)),
	}
	copies := make(map[*dictEntry]*dictEntry, len(b.entries))
	for _, e := range b.entries {
		c := &dictEntry{
			canonical: e.canonical,
			synonyms:  append([]string(nil), e.synonyms...),
			tokens:    append([]string(nil), e.tokens...),
		}
		d.entries = append(d.entries, c)
		d.byKey[Normalize(c.canonical)] = c
		copies[e] = c
	}
	for tok, owner := range b.owners {
		d.byToken[tok] = copies[owner]
	}
	// A canonical name always resolves to itself, even when an earlier entry
	// claimed the same text as a synonym.
	for key, c := range d.byKey {
		d.byToken[key] = c
	}
	return d
}

// NewSynonymDictionary builds a dictionary from rows and reports conflicts.
func NewSynonymDictionary(rows []catalog.SynonymRow) (*SynonymDictionary, []SynonymConflict) {
	b := NewDictionaryBuilder().AddRows(rows)
	return b.Build(), b.Conflicts()
}
