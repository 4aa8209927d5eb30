package matching

import (
	"context"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// ImportResult reports what an import wrote.
type ImportResult struct {
	Products int `json:"products"`
	Invalid  int `json:"invalid"`
	Synonyms int `json:"synonyms"`
}

// Importer copies a catalog from read-only sources (usually CSV files) into
// writable stores such as the PostgreSQL tables.
type Importer struct {
	products catalog.ProductRepository
	synonyms catalog.SynonymRepository
	logger   logging.Logger
}

func NewImporter(products catalog.ProductRepository, synonyms catalog.SynonymRepository, logger logging.Logger) *Importer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Importer{products: products, synonyms: synonyms, logger: logger.Named("importer")}
}

// Import replaces the content of both stores. Invalid product rows are
// written as well and only counted; they are skipped at search time. Either
// store may be nil to import one side only.
func (i *Importer) Import(ctx context.Context, products catalog.ProductStore, synonyms catalog.SynonymStore) (*ImportResult, error) {
	if products == nil && synonyms == nil {
		return nil, errors.New(errors.ErrCodeValidation, "no import target")
	}
	res := &ImportResult{}

	if products != nil {
		rows, err := i.products.ListProducts(ctx)
		if err != nil {
			return nil, ensureCode(err, errors.ErrCodeCatalogUnavailable, "failed to read catalog")
		}
		for _, p := range rows {
			if p.Validate() != nil {
				res.Invalid++
			}
		}
		if err := products.ReplaceProducts(ctx, rows); err != nil {
			return nil, err
		}
		res.Products = len(rows)
	}

	if synonyms != nil {
		rows, err := i.synonyms.ListSynonyms(ctx)
		if err != nil {
			return nil, ensureCode(err, errors.ErrCodeSynonymsUnavailable, "failed to read synonyms")
		}
		if err := synonyms.ReplaceSynonyms(ctx, rows); err != nil {
			return nil, err
		}
		res.Synonyms = len(rows)
	}

	i.logger.Info("catalog imported",
		logging.Int("products", res.Products),
		logging.Int("invalid", res.Invalid),
		logging.Int("synonyms", res.Synonyms),
	)
	return res, nil
}
