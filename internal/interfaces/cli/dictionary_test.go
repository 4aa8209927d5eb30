package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

func TestDictionaryLookup_Found(t *testing.T) {
	stdout, _, err := run(t, catalogArgs("-o", "json", "dictionary", "lookup", "METHYLBENZOL")...)
	require.NoError(t, err)

	var res matching.Resolution
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.Found)
	assert.Equal(t, "Toluol", res.Canonical)
	assert.Contains(t, res.Synonyms, "Toluene")
}

func TestDictionaryLookup_NotFound(t *testing.T) {
	stdout, _, err := run(t, catalogArgs("dictionary", "lookup", "Wasser")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "not found")
}

func TestDictionaryList(t *testing.T) {
	stdout, _, err := run(t, catalogArgs("dictionary", "list")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Toluol: Toluene")
	assert.Contains(t, stdout, "Ethanol")
	assert.Contains(t, stdout, "3 substances")

	stdout, _, err = run(t, catalogArgs("-o", "table", "dictionary", "list")...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUBSTANCE")
	assert.Contains(t, stdout, "Methanol")
}

func TestCatalogCheck(t *testing.T) {
	stdout, _, err := run(t, catalogArgs("-o", "json", "catalog", "check")...)
	require.NoError(t, err)

	var report CheckReport
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 6, report.Total)
	require.Len(t, report.Invalid, 2)
	assert.Equal(t, "X-1", report.Invalid[0].ID)
	assert.Equal(t, 5, report.Invalid[0].Row)
	assert.Equal(t, "B-1", report.Invalid[1].ID)
	assert.Contains(t, report.Invalid[1].Reason, "unit")
}

func TestCheckCatalog_AllValid(t *testing.T) {
	report := checkCatalog([]*catalog.Product{{ID: "1", Name: "Toluol 1 l"}})
	assert.Empty(t, report.Invalid)
	assert.Contains(t, report.String(), "1 of 1 rows valid")
}

func TestCatalogImport_NothingToImport(t *testing.T) {
	_, _, err := run(t, catalogArgs("catalog", "import", "--skip-products", "--skip-synonyms")...)
	assert.Error(t, err)
}
