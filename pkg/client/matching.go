package client

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/reagent-match/pkg/errors"
)

// Match classes.
const (
	ClassExact     = "exact"
	ClassDeviating = "deviating"
)

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	// Quantity and Unit override the amount found in Query.
	Quantity *float64 `json:"quantity,omitempty"`
	Unit     string   `json:"unit,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type Purity struct {
	Value   float64 `json:"value"`
	Assumed bool    `json:"assumed,omitempty"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// QueryInfo is the server's reading of the search text.
type QueryInfo struct {
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	Substance  string    `json:"substance,omitempty"`
	Purity     *Purity   `json:"purity,omitempty"`
	Quantity   *Quantity `json:"quantity,omitempty"`
}

type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Quantity   *float64          `json:"quantity,omitempty"`
	Unit       string            `json:"unit,omitempty"`
	Purity     *float64          `json:"purity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attributes are the values the matcher read from a product.
type Attributes struct {
	Substance string    `json:"substance,omitempty"`
	Purity    *Purity   `json:"purity,omitempty"`
	Quantity  *Quantity `json:"quantity,omitempty"`
}

// Breakdown lists the score contributions of a match.
type Breakdown struct {
	Substance        float64 `json:"substance"`
	Purity           float64 `json:"purity"`
	Quantity         float64 `json:"quantity"`
	Fuzzy            float64 `json:"fuzzy"`
	Total            float64 `json:"total"`
	SubstanceMatched bool    `json:"substance_matched"`
	PurityMatched    bool    `json:"purity_matched"`
	QuantityMatched  bool    `json:"quantity_matched"`
}

type Match struct {
	Product    Product    `json:"product"`
	Score      float64    `json:"score"`
	Class      string     `json:"class"`
	Attributes Attributes `json:"attributes"`
	Breakdown  Breakdown  `json:"breakdown"`
}

type SearchResponse struct {
	Query           QueryInfo `json:"query"`
	Exact           []Match   `json:"exact"`
	Deviating       []Match   `json:"deviating"`
	Evaluated       int       `json:"evaluated"`
	Skipped         int       `json:"skipped"`
	Dropped         int       `json:"dropped"`
	Truncated       bool      `json:"truncated"`
	TookMillis      float64   `json:"took_ms"`
	SnapshotVersion string    `json:"snapshot_version"`
}

// Best returns the top exact match, falling back to the top deviating one.
func (r *SearchResponse) Best() (Match, bool) {
	if len(r.Exact) > 0 {
		return r.Exact[0], true
	}
	if len(r.Deviating) > 0 {
		return r.Deviating[0], true
	}
	return Match{}, false
}

type Resolution struct {
	Input      string   `json:"input"`
	Normalized string   `json:"normalized"`
	Canonical  string   `json:"canonical,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
	Found      bool     `json:"found"`
}

type Substance struct {
	Canonical string   `json:"canonical"`
	Synonyms  []string `json:"synonyms"`
}

// Conflict is a synonym claimed by two substances; Owner kept it.
type Conflict struct {
	Synonym  string `json:"synonym"`
	Owner    string `json:"owner"`
	Rejected string `json:"rejected"`
}

type Dictionary struct {
	Version   string      `json:"version"`
	Entries   []Substance `json:"entries"`
	Conflicts []Conflict  `json:"conflicts,omitempty"`
}

type CatalogInfo struct {
	Version    string    `json:"version"`
	Products   int       `json:"products"`
	Substances int       `json:"substances"`
	Conflicts  int       `json:"conflicts"`
	LoadedAt   time.Time `json:"loaded_at"`
}

type ReloadResult struct {
	Version    string     `json:"version"`
	Products   int        `json:"products"`
	Substances int        `json:"substances"`
	Conflicts  []Conflict `json:"conflicts,omitempty"`
	LoadedAt   time.Time  `json:"loaded_at"`
}

// Search ranks catalog products for req.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.ErrCodeQueryInvalid, "query is required")
	}
	var out SearchResponse
	if err := c.post(ctx, "/api/v1/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resolve looks up the canonical substance mentioned in text.
func (c *Client) Resolve(ctx context.Context, text string) (*Resolution, error) {
	var out Resolution
	if err := c.get(ctx, "/api/v1/substances/resolve?q="+url.QueryEscape(text), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Substances lists the loaded synonym dictionary.
func (c *Client) Substances(ctx context.Context) (*Dictionary, error) {
	var out Dictionary
	if err := c.get(ctx, "/api/v1/substances", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Catalog describes the active catalog snapshot.
func (c *Client) Catalog(ctx context.Context) (*CatalogInfo, error) {
	var out CatalogInfo
	if err := c.get(ctx, "/api/v1/catalog", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload asks the server to rebuild its snapshot from the sources.
func (c *Client) Reload(ctx context.Context) (*ReloadResult, error) {
	var out ReloadResult
	if err := c.post(ctx, "/api/v1/catalog/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readiness is the body of GET /readyz.
type Readiness struct {
	Status     string                     `json:"status"`
	Snapshot   string                     `json:"snapshot"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ready probes /readyz once, without retries. A not-ready server yields
// an *APIError with status 503.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	once := *c
	once.retryMax = 0
	var out Readiness
	if err := once.get(ctx, "/readyz", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
