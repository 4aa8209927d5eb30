package catalog_matcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

func newTestDictionary() *SynonymDictionary {
	return NewDictionaryBuilder().
		Add("Toluol", "Toluene", "Methylbenzol").
		Add("Methanol", "MeOH").
		Add("Aceton", "Acetone", "2-Propanon").
		Build()
}

func TestSynonymDictionary_Resolve(t *testing.T) {
	d := newTestDictionary()

	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Toluol HPLC 1 l", "Toluol", true},
		{"TOLUENE for synthesis", "Toluol", true},
		{"methylbenzol", "Toluol", true},
		{"MeOH 99%", "Methanol", true},
		{"2-Propanon techn.", "Aceton", true},
		{"Wasser 1 l", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := d.Resolve(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestSynonymDictionary_CanonicalAndSynonymsResolveToCanonical(t *testing.T) {
	d := newTestDictionary()
	for _, e := range d.Entries() {
		got, ok := d.Resolve(e.Canonical)
		require.True(t, ok)
		assert.Equal(t, e.Canonical, got)
		for _, s := range e.Synonyms {
			got, ok := d.Resolve(s)
			require.True(t, ok, s)
			assert.Equal(t, e.Canonical, got, s)
		}
	}
}

func TestSynonymDictionary_FirstMatchInRegistrationOrder(t *testing.T) {
	ethanolFirst := NewDictionaryBuilder().Add("Ethanol").Add("Methanol").Build()
	got, _ := ethanolFirst.Resolve("Methanol HPLC")
	assert.Equal(t, "Ethanol", got, "methanol contains ethanol")

	got, _ = ethanolFirst.Resolve("Methanol")
	assert.Equal(t, "Methanol", got, "exact name resolves to itself")

	methanolFirst := NewDictionaryBuilder().Add("Methanol").Add("Ethanol").Build()
	got, _ = methanolFirst.Resolve("Methanol HPLC")
	assert.Equal(t, "Methanol", got)
}

func TestSynonymDictionary_Mentions(t *testing.T) {
	d := newTestDictionary()
	assert.True(t, d.Mentions("Toluol", "toluene hplc 1 l"))
	assert.True(t, d.Mentions("toluol", "toluol"))
	assert.False(t, d.Mentions("Toluol", "methanol hplc"))
	assert.False(t, d.Mentions("Benzol", "benzol"))

	var nilDict *SynonymDictionary
	assert.False(t, nilDict.Mentions("Toluol", "toluol"))
	assert.Equal(t, 0, nilDict.Len())
}

func TestDictionaryBuilder_MergesRepeatedCanonical(t *testing.T) {
	d := NewDictionaryBuilder().Add("Toluol", "Toluene").Add(" toluol ", "Methylbenzol", "Toluene").Build()

	require.Equal(t, 1, d.Len())
	e, ok := d.Lookup("TOLUOL")
	require.True(t, ok)
	assert.Equal(t, "Toluol", e.Canonical)
	assert.Equal(t, []string{"Toluene", "Methylbenzol"}, e.Synonyms)
}

func TestDictionaryBuilder_ConflictingSynonymKeepsFirstOwner(t *testing.T) {
	b := NewDictionaryBuilder().Add("Toluol", "Toluene").Add("Benzol", "toluene")
	d := b.Build()

	assert.Equal(t, []SynonymConflict{{Synonym: "toluene", Owner: "Toluol", Rejected: "Benzol"}}, b.Conflicts())
	got, _ := d.Resolve("Toluene")
	assert.Equal(t, "Toluol", got)

	e, ok := d.Lookup("Benzol")
	require.True(t, ok)
	assert.Empty(t, e.Synonyms)
}

func TestDictionaryBuilder_CanonicalCollidingWithEarlierSynonym(t *testing.T) {
	b := NewDictionaryBuilder().Add("Aceton", "Propanon").Add("Propanon")
	d := b.Build()

	assert.Len(t, b.Conflicts(), 1)
	got, _ := d.Resolve("Propanon")
	assert.Equal(t, "Propanon", got)
}

func TestDictionaryBuilder_IgnoresBlankNames(t *testing.T) {
	d := NewDictionaryBuilder().Add("  ").Add("Toluol", " ", "").Build()
	require.Equal(t, 1, d.Len())
	assert.Empty(t, d.Entries()[0].Synonyms)
}

func TestNewSynonymDictionary_FromRows(t *testing.T) {
	rows := append(catalog.SplitSynonymCell("Toluol", "Toluene;Methylbenzol"), catalog.SynonymRow{Canonical: "Methanol"})
	d, conflicts := NewSynonymDictionary(rows)

	assert.Empty(t, conflicts)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []SynonymEntry{
		{Canonical: "Toluol", Synonyms: []string{"Toluene", "Methylbenzol"}},
		{Canonical: "Methanol", Synonyms: []string{}},
	}, normaliseEmpty(d.Entries()))
}

func TestSynonymDictionary_ConcurrentReads(t *testing.T) {
	d := newTestDictionary()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, ok := d.Resolve("Toluene 1 l")
				assert.True(t, ok)
				assert.Equal(t, "Toluol", got)
			}
		}()
	}
	wg.Wait()
}

func normaliseEmpty(entries []SynonymEntry) []SynonymEntry {
	for i := range entries {
		if entries[i].Synonyms == nil {
			entries[i].Synonyms = []string{}
		}
	}
	return entries
}
