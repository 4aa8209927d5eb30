package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/reagent-match/internal/application/matching"
	"github.com/turtacn/reagent-match/internal/infrastructure/monitoring/logging"
	matcher "github.com/turtacn/reagent-match/internal/intelligence/catalog_matcher"
)

// MatchHandler exposes the matching service over HTTP.
type MatchHandler struct {
	svc    matching.Service
	logger logging.Logger
}

func NewMatchHandler(svc matching.Service, logger logging.Logger) *MatchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MatchHandler{svc: svc, logger: logger}
}

// Search handles POST /api/v1/search with a JSON SearchInput body.
func (h *MatchHandler) Search(c *gin.Context) {
	var input matching.SearchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBadRequest(c, "invalid request body", err)
		return
	}
	h.search(c, &input)
}

// SearchQuery handles GET /api/v1/search?q=&quantity=&unit=&limit=.
func (h *MatchHandler) SearchQuery(c *gin.Context) {
	input := matching.SearchInput{
		Query: c.Query("q"),
		Unit:  c.Query("unit"),
	}
	if v := c.Query("quantity"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeBadRequest(c, "quantity must be a number", err)
			return
		}
		input.Quantity = &q
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(c, "limit must be an integer", err)
			return
		}
		input.Limit = n
	}
	h.search(c, &input)
}

func (h *MatchHandler) search(c *gin.Context, input *matching.SearchInput) {
	out, err := h.svc.Search(c.Request.Context(), input)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Resolve handles GET /api/v1/substances/resolve?q=.
func (h *MatchHandler) Resolve(c *gin.Context) {
	res, err := h.svc.Resolve(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DictionaryResponse lists the loaded substances.
type DictionaryResponse struct {
	Version   string                    `json:"version"`
	Entries   []matcher.SynonymEntry    `json:"entries"`
	Conflicts []matcher.SynonymConflict `json:"conflicts,omitempty"`
}

// Substances handles GET /api/v1/substances.
func (h *MatchHandler) Substances(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DictionaryResponse{
		Version:   snap.Version,
		Entries:   snap.Dictionary.Entries(),
		Conflicts: snap.Conflicts,
	})
}

// CatalogResponse describes the active snapshot.
type CatalogResponse struct {
	Version    string    `json:"version"`
	Products   int       `json:"products"`
	Substances int       `json:"substances"`
	Conflicts  int       `json:"conflicts"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Catalog handles GET /api/v1/catalog.
func (h *MatchHandler) Catalog(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, CatalogResponse{
		Version:    snap.Version,
		Products:   len(snap.Products),
		Substances: snap.Dictionary.Len(),
		Conflicts:  len(snap.Conflicts),
		LoadedAt:   snap.LoadedAt,
	})
}

// Reload handles POST /api/v1/catalog/reload.
func (h *MatchHandler) Reload(c *gin.Context) {
	res, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		writeAppError(c, err)
		return
	}
	h.logger.Info("catalog reloaded via API",
		logging.String("version", res.Version),
		logging.Int("products", res.Products),
	)
	c.JSON(http.StatusOK, res)
}

func (h *MatchHandler) snapshot(c *gin.Context) (*matching.Snapshot, bool) {
	snap := h.svc.Snapshot()
	if snap == nil {
		writeAppError(c, errSnapshotNotLoaded)
		return nil, false
	}
	return snap, true
}
