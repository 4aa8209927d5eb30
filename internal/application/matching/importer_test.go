package matching

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/pkg/errors"
)

type MockProductStore struct {
	MockProductRepository
}

func (m *MockProductStore) ReplaceProducts(ctx context.Context, products []*catalog.Product) error {
	return m.Called(ctx, products).Error(0)
}

type MockSynonymStore struct {
	MockSynonymRepository
}

func (m *MockSynonymStore) ReplaceSynonyms(ctx context.Context, rows []catalog.SynonymRow) error {
	return m.Called(ctx, rows).Error(0)
}

func TestImporter_Import(t *testing.T) {
	src := new(MockProductRepository)
	syn := new(MockSynonymRepository)
	src.On("ListProducts", mock.Anything).Return(testCatalog(), nil)
	syn.On("ListSynonyms", mock.Anything).Return(testSynonyms(), nil)

	products := new(MockProductStore)
	synonyms := new(MockSynonymStore)
	products.On("ReplaceProducts", mock.Anything, testCatalog()).Return(nil)
	synonyms.On("ReplaceSynonyms", mock.Anything, testSynonyms()).Return(nil)

	res, err := NewImporter(src, syn, nil).Import(context.Background(), products, synonyms)
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Products: 4, Invalid: 1, Synonyms: 4}, res)

	products.AssertExpectations(t)
	synonyms.AssertExpectations(t)
}

func TestImporter_ProductsOnly(t *testing.T) {
	src := new(MockProductRepository)
	syn := new(MockSynonymRepository)
	src.On("ListProducts", mock.Anything).Return([]*catalog.Product{}, nil)

	products := new(MockProductStore)
	products.On("ReplaceProducts", mock.Anything, mock.Anything).Return(nil)

	res, err := NewImporter(src, syn, nil).Import(context.Background(), products, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Synonyms)
	syn.AssertNotCalled(t, "ListSynonyms", mock.Anything)
}

func TestImporter_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewImporter(nil, nil, nil).Import(ctx, nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	src := new(MockProductRepository)
	src.On("ListProducts", mock.Anything).Return(nil, stderrors.New("no such file"))
	_, err = NewImporter(src, nil, nil).Import(ctx, new(MockProductStore), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCatalogUnavailable))

	syn := new(MockSynonymRepository)
	syn.On("ListSynonyms", mock.Anything).Return(testSynonyms(), nil)
	store := new(MockSynonymStore)
	store.On("ReplaceSynonyms", mock.Anything, mock.Anything).
		Return(errors.New(errors.ErrCodeDatabaseError, "failed to commit transaction"))
	_, err = NewImporter(nil, syn, nil).Import(ctx, nil, store)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}
