// Package matching is the application service in front of the catalog
// matcher. It owns the loaded catalog snapshot and turns caller requests into
// matcher searches.
package matching

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/reagent-match/internal/domain/catalog"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/prometheus"
	matcher "github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
	"github.com/turtacn/reagent-match/pkg/errors"
)

// Service defines the matching operations exposed to the CLI and HTTP layers.
type Service interface {
	Search(ctx context.Context, input *SearchInput) (*SearchOutput, error)
	Resolve(ctx context.Context, text string) (*Resolution, error)
	Reload(ctx context.Context) (*ReloadResult, error)
	Snapshot() *Snapshot
	Ready() bool
}

// SearchInput is a catalog search request. Unit is the raw unit string and is
// validated against the unit vocabulary. Limit caps the total number of
// results; zero means no cap.
type SearchInput struct {
	Query    string   `json:"query"`
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// SearchOutput is the ranked answer to a SearchInput.
type SearchOutput struct {
	Query           *matcher.Query        `json:"query"`
	Exact           []matcher.MatchResult `json:"exact"`
	Deviating       []matcher.MatchResult `json:"deviating"`
	Evaluated       int                   `json:"evaluated"`
	Skipped         int                   `json:"skipped"`
	Dropped         int                   `json:"dropped"`
	Truncated       bool                  `json:"truncated"`
	TookMillis      float64               `json:"took_ms"`
	SnapshotVersion string                `json:"snapshot_version"`
}

// Resolution is the dictionary answer for a free-text substance name.
type Resolution struct {
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Canonical  string   `json:"canonical,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Found      bool     `json:"found"`
}

// ReloadResult summarises a snapshot rebuild.
type ReloadResult struct {
	Version    string                    `json:"version"`
	Products   int                       `json:"products"`
	Substances int                       `json:"substances"`
	Conflicts  []matcher.SynonymConflict `json:"conflicts,omitempty"`
	LoadedAt   time.Time                 `json:"loaded_at"`
}

// Snapshot is an immutable view of the catalog and dictionary used by
// searches. It is replaced as a whole on reload.
type Snapshot struct {
	Version    string
	Products   []*catalog.Product
	Dictionary *matcher.SynonymDictionary
	Conflicts  []matcher.SynonymConflict
	LoadedAt   time.Time
}

// Invalidator drops cached source data before a reload.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Option customises the service.
type Option func(*serviceImpl)

// WithMetrics records search and reload metrics.
func WithMetrics(m *prometheus.MatchMetrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

// WithInvalidators registers caches flushed at the start of every reload.
func WithInvalidators(inv ...Invalidator) Option {
	return func(s *serviceImpl) { s.invalidators = append(s.invalidators, inv...) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) { s.now = now }
}

type serviceImpl struct {
	products     catalog.ProductRepository
	synonyms     catalog.SynonymRepository
	matcher      *matcher.Matcher
	logger       logging.Logger
	metrics      *prometheus.MatchMetrics
	invalidators []Invalidator
	now          func() time.Time

	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
}

// NewService creates the matching service. The snapshot is empty until the
// first successful Reload.
func NewService(products catalog.ProductRepository, synonyms catalog.SynonymRepository, m *matcher.Matcher, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		products: products,
		synonyms: synonyms,
		matcher:  m,
		logger:   logger.Named("matching"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceImpl) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *serviceImpl) Ready() bool {
	return s.snapshot.Load() != nil
}

func (s *serviceImpl) Search(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	req, err := input.toRequest()
	if err != nil {
		return nil, err
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeSnapshotNotLoaded, "catalog snapshot not loaded")
	}

	start := s.now()
	rs, err := s.matcher.Search(ctx, req, snap.Products, snap.Dictionary)
	took := s.now().Sub(start)
	if err != nil {
		s.recordSearch(took, nil, err)
		s.logger.Warn("search failed", logging.String("query", input.Query), logging.Err(err))
		return nil, err
	}
	s.recordSearch(took, rs, nil)

	out := &SearchOutput{
		Query:           rs.Query,
		Exact:           rs.Exact,
		Deviating:       rs.Deviating,
		Evaluated:       rs.Evaluated,
		Skipped:         rs.Skipped,
		Dropped:         rs.Dropped,
		TookMillis:      float64(rs.Took.Microseconds()) / 1000,
		SnapshotVersion: snap.Version,
	}
	out.applyLimit(input.Limit)

	s.logger.Info("search served",
		logging.String("query", input.Query),
		logging.String("substance", rs.Query.Substance),
		logging.Int("exact", len(out.Exact)),
		logging.Int("deviating", len(out.Deviating)),
		logging.Int("skipped", out.Skipped),
	)
	return out, nil
}

func (s *serviceImpl) recordSearch(took time.Duration, rs *matcher.ResultSet, err error) {
	if s.metrics == nil {
		return
	}
	if rs == nil {
		s.metrics.RecordSearch(took, 0, 0, 0, err)
		return
	}
	s.metrics.RecordSearch(took, len(rs.Exact), len(rs.Deviating), rs.Skipped, nil)
}

func (in *SearchInput) toRequest() (matcher.SearchRequest, error) {
	if in == nil || strings.TrimSpace(in.Query) == "" {
		return matcher.SearchRequest{}, errors.New(errors.ErrCodeQueryInvalid, "query must not be empty")
	}
	if in.Limit < 0 {
		return matcher.SearchRequest{}, errors.New(errors.ErrCodeQueryInvalid, "limit must not be negative")
	}
	req := matcher.SearchRequest{Query: in.Query, Quantity: in.Quantity}
	if strings.TrimSpace(in.Unit) != "" {
		u, ok := catalog.ParseUnit(in.Unit)
		if !ok {
			return matcher.SearchRequest{}, errors.New(errors.ErrCodeQueryInvalid, "unknown unit").WithDetail(in.Unit)
		}
		req.Unit = &u
	}
	return req, nil
}

// applyLimit keeps the first limit results, exact ones first.
func (o *SearchOutput) applyLimit(limit int) {
	if limit <= 0 || len(o.Exact)+len(o.Deviating) <= limit {
		return
	}
	o.Truncated = true
	if len(o.Exact) >= limit {
		o.Exact = o.Exact[:limit]
		o.Deviating = o.Deviating[:0]
		return
	}
	o.Deviating = o.Deviating[:limit-len(o.Exact)]
}

func (s *serviceImpl) Resolve(_ context.Context, text string) (*Resolution, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeQueryInvalid, "text must not be empty")
	}
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, errors.New(errors.ErrCodeSnapshotNotLoaded, "catalog snapshot not loaded")
	}
	res := &Resolution{Input: text, Normalized: matcher.Normalize(text)}
	canonical, ok := snap.Dictionary.Resolve(text)
	if !ok {
		return res, nil
	}
	res.Found = true
	res.Canonical = canonical
	if entry, ok := snap.Dictionary.Lookup(canonical); ok {
		res.Synonyms = entry.Synonyms
	}
	return res, nil
}

// Reload rebuilds the snapshot from the repositories. On failure the
// previous snapshot stays active.
func (s *serviceImpl) Reload(ctx context.Context) (*ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation failed", logging.Err(err))
		}
	}

	snap, err := s.load(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordReload(0, 0, err)
		}
		s.logger.Error("catalog reload failed", logging.Err(err))
		return nil, err
	}
	s.snapshot.Store(snap)
	if s.metrics != nil {
		s.metrics.RecordReload(len(snap.Products), snap.Dictionary.Len(), nil)
	}

	for _, c := range snap.Conflicts {
		s.logger.Warn("synonym claimed by another substance",
			logging.String("synonym", c.Synonym),
			logging.String("owner", c.Owner),
			logging.String("rejected", c.Rejected),
		)
	}
	s.logger.Info("catalog snapshot loaded",
		logging.String("version", snap.Version),
		logging.Int("products", len(snap.Products)),
		logging.Int("substances", snap.Dictionary.Len()),
	)
	return &ReloadResult{
		Version:    snap.Version,
		Products:   len(snap.Products),
		Substances: snap.Dictionary.Len(),
		Conflicts:  snap.Conflicts,
		LoadedAt:   snap.LoadedAt,
	}, nil
}

func (s *serviceImpl) load(ctx context.Context) (*Snapshot, error) {
	var (
		products []*catalog.Product
		rows     []catalog.SynonymRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.ListProducts(gctx)
		return ensureCode(err, errors.ErrCodeCatalogUnavailable, "failed to load catalog")
	})
	g.Go(func() error {
		var err error
		rows, err = s.synonyms.ListSynonyms(gctx)
		return ensureCode(err, errors.ErrCodeSynonymsUnavailable, "failed to load synonyms")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dict, conflicts := matcher.NewSynonymDictionary(rows)
	if dict.Len() == 0 {
		return nil, errors.New(errors.ErrCodeDictionaryEmpty, "synonym source contains no substances")
	}
	return &Snapshot{
		Version:    uuid.NewString(),
		Products:   products,
		Dictionary: dict,
		Conflicts:  conflicts,
		LoadedAt:   s.now().UTC(),
	}, nil
}

// ensureCode wraps err with code unless it already carries it.
func ensureCode(err error, code errors.ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	if errors.IsCode(err, code) {
		return err
	}
	return errors.Wrap(err, code, msg)
}
