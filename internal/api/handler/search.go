package handler

import (
	"net/http"
	"strconv"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

type SearchResponse struct {
	Results []model.TrackItem `json:"results"`
}

// SearchHandler proxies the upstream catalog and enriches the results.
type SearchHandler struct {
	catalog repository.MusicCatalog
	enrich  usecase.EnrichService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(catalog repository.MusicCatalog, enrich usecase.EnrichService) *SearchHandler {
	return &SearchHandler{catalog: catalog, enrich: enrich}
}

// Get handles GET /v1/search?q=&filter=&limit=&include_streams=
func (h *SearchHandler) Get(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		Error(w, http.StatusBadRequest, "missing_query", "Query parameter q is required")
		return
	}

	filter := r.URL.Query().Get("filter")

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxSearchLimit)
	}

	includeStreams := r.URL.Query().Get("include_streams") == "true"

	items, err := h.catalog.Search(r.Context(), query, filter, limit)
	if err != nil {
		Error(w, http.StatusBadGateway, "search_failed", "The music catalog is unavailable")
		return
	}

	enriched := h.enrich.EnrichItems(r.Context(), items, includeStreams)

	JSON(w, http.StatusOK, SearchResponse{Results: enriched})
}
