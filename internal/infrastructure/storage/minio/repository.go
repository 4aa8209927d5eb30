package minio

import (
	"context"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/datasource/csvfile"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// ProductObjectSource reads a catalog CSV object from the bucket.
type ProductObjectSource struct {
	client *MinIOClient
	object string
	opts   csvfile.Options
	logger logging.Logger
}

// NewProductObjectSource returns a catalog.ProductRepository over object.
func NewProductObjectSource(client *MinIOClient, object string, opts csvfile.Options, logger logging.Logger) *ProductObjectSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ProductObjectSource{client: client, object: object, opts: opts, logger: logger.Named("minio_products")}
}

func (s *ProductObjectSource) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	rc, info, err := s.client.Open(ctx, s.object)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to fetch catalog object").WithDetail(s.object)
	}
	defer rc.Close()

	products, err := csvfile.ParseProducts(rc, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogUnavailable, "failed to parse catalog object").WithDetail(s.object)
	}
	s.logger.Debug("catalog object loaded",
		logging.String("object", s.object),
		logging.String("etag", info.ETag),
		logging.Int64("size", info.Size),
		logging.Int("rows", len(products)),
	)
	return products, nil
}

// SynonymObjectSource reads a synonym CSV object from the bucket.
type SynonymObjectSource struct {
	client *MinIOClient
	object string
	opts   csvfile.Options
	logger logging.Logger
}

// NewSynonymObjectSource returns a catalog.SynonymRepository over object.
func NewSynonymObjectSource(client *MinIOClient, object string, opts csvfile.Options, logger logging.Logger) *SynonymObjectSource {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SynonymObjectSource{client: client, object: object, opts: opts, logger: logger.Named("minio_synonyms")}
}

func (s *SynonymObjectSource) ListSynonyms(ctx context.Context) ([]catalog.SynonymRow, error) {
	rc, info, err := s.client.Open(ctx, s.object)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to fetch synonym object").WithDetail(s.object)
	}
	defer rc.Close()

	rows, err := csvfile.ParseSynonyms(rc, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSynonymsUnavailable, "failed to parse synonym object").WithDetail(s.object)
	}
	s.logger.Debug("synonym object loaded",
		logging.String("object", s.object),
		logging.String("etag", info.ETag),
		logging.Int("rows", len(rows)),
	)
	return rows, nil
}

var (
	_ catalog.ProductRepository = (*ProductObjectSource)(nil)
	_ catalog.SynonymRepository = (*SynonymObjectSource)(nil)
)
