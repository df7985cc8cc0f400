package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// FavoriteHandler serves a user's favorite products.
type FavoriteHandler struct {
	service *service.FavoriteService
	logger  *slog.Logger
}

// NewFavoriteHandler creates a new favorite HTTP handler.
func NewFavoriteHandler(svc *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		service: svc,
		logger:  logger,
	}
}

// ToggleFavoriteRequest is the JSON body for toggling a favorite.
type ToggleFavoriteRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// Toggle handles POST /api/v1/me/favorites/toggle
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleFavoriteRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Toggle(r.Context(), principal(r).UserID, req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// List handles GET /api/v1/me/favorites
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := httputil.PageParams(r)

	favorites, total, err := h.service.List(r.Context(), principal(r).UserID, page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(favorites, total, page, perPage))
}
