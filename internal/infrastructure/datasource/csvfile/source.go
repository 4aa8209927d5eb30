package csvfile

import (
	"context"
	"os"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// ProductSource implements catalog.ProductRepository over a local file.
type ProductSource struct {
	path   string
	opts   Options
	logger logging.Logger
}

// NewProductSource returns a source reading path on every call.
func NewProductSource(path string, opts Options, logger logging.Logger) *ProductSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ProductSource{path: path, opts: opts, logger: logger.Named("csv_products")}
}

// Path returns the file the source reads.
func (s *ProductSource) Path() string { return s.path }

// ListProducts reads and parses the catalog file.
func (s *ProductSource) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "catalog load cancelled")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to open catalog file").WithDetail(s.path)
	}
	defer f.Close()

	products, err := ParseProducts(f, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to parse catalog file").WithDetail(s.path)
	}
	s.logger.Debug("catalog file loaded",
		logging.String("path", s.path),
		logging.Int("rows", len(products)),
	)
	return products, nil
}

// SynonymSource implements catalog.SynonymRepository over a local file.
type SynonymSource struct {
	path   string
	opts   Options
	logger logging.Logger
}

// NewSynonymSource returns a source reading path on every call.
func NewSynonymSource(path string, opts Options, logger logging.Logger) *SynonymSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SynonymSource{path: path, opts: opts, logger: logger.Named("csv_synonyms")}
}

// Path returns the file the source reads.
func (s *SynonymSource) Path() string { return s.path }

// ListSynonyms reads and parses the synonym file.
func (s *SynonymSource) ListSynonyms(ctx context.Context) ([]catalog.SynonymRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "synonym load cancelled")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to open synonym file").WithDetail(s.path)
	}
	defer f.Close()

	rows, err := ParseSynonyms(f, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to parse synonym file").WithDetail(s.path)
	}
	s.logger.Debug("synonym file loaded",
		logging.String("path", s.path),
		logging.Int("rows", len(rows)),
	)
	return rows, nil
}

var (
	_ catalog.ProductRepository = (*ProductSource)(nil)
	_ catalog.SynonymRepository = (*SynonymSource)(nil)
)
