package catalog

import "context"

// ProductRepository supplies the catalog rows to be matched. Implementations
// return rows in source order; row level faults are left for the matcher to
// skip.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]*Product, error)
}

// SynonymRepository supplies the synonym table in registration order.
type SynonymRepository interface {
	ListSynonyms(ctx context.Context) ([]SynonymRow, error)
}

// ProductStore is a ProductRepository that can also be rewritten wholesale,
// as done when importing a catalog file into a database.
type ProductStore interface {
	ProductRepository
	ReplaceProducts(ctx context.Context, products []*Product) error
}

// SynonymStore is the writable counterpart of SynonymRepository.
type SynonymStore interface {
	SynonymRepository
	ReplaceSynonyms(ctx context.Context, rows []SynonymRow) error
}
