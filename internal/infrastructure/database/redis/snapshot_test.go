package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
)

type countingProducts struct {
	calls    int
	products []*catalog.Product
}

func (c *countingProducts) ListProducts(context.Context) ([]*catalog.Product, error) {
	c.calls++
	return c.products, nil
}

type countingSynonyms struct {
	calls int
	rows  []catalog.SynonymRow
}

func (c *countingSynonyms) ListSynonyms(context.Context) ([]catalog.SynonymRow, error) {
	c.calls++
	return c.rows, nil
}

func newTestCache(t *testing.T) (Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, nil, WithoutJitter()), mr
}

func TestCachedProductRepository(t *testing.T) {
	cache, mr := newTestCache(t)
	src := &countingProducts{products: []*catalog.Product{
		{ID: "T-1", Name: "Toluol 1 L", Quantity: catalog.Float(1), Unit: catalog.UnitLiter},
		{ID: "T-2", Name: "Toluene HPLC", Attributes: map[string]string{"grade": "hplc"}},
	}}
	repo := NewCachedProductRepository(src, cache, time.Minute, nil)
	ctx := context.Background()

	first, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	second, err := repo.ListProducts(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.0, *second[0].Quantity)
	assert.Equal(t, "hplc", second[1].Attributes["grade"])
	assert.True(t, mr.Exists("reagentmatch:catalog:products"))

	require.NoError(t, repo.Invalidate(ctx))
	_, err = repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedSynonymRepository(t *testing.T) {
	cache, _ := newTestCache(t)
	src := &countingSynonyms{rows: []catalog.SynonymRow{
		{Canonical: "Toluol", Synonym: "Toluene"},
		{Canonical: "Ethanol"},
	}}
	repo := NewCachedSynonymRepository(src, cache, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rows, err := repo.ListSynonyms(ctx)
		require.NoError(t, err)
		assert.Equal(t, src.rows, rows)
	}
	assert.Equal(t, 1, src.calls)

	require.NoError(t, repo.Invalidate(ctx))
	_, err := repo.ListSynonyms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}
