package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// RatingHandler serves the rating ledger.
type RatingHandler struct {
	service *service.RatingService
	logger  *slog.Logger
}

// NewRatingHandler creates a new rating HTTP handler.
func NewRatingHandler(svc *service.RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		service: svc,
		logger:  logger,
	}
}

// RatingRequest is the JSON body for submitting or editing a rating.
type RatingRequest struct {
	Score   int    `json:"score" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// Submit handles POST /api/v1/products/{id}/ratings
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RatingRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Submit(r.Context(), principal(r).UserID, id.String(), service.RatingInput{
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, result)
}

// Update handles PUT /api/v1/products/{id}/ratings
func (h *RatingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RatingRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.service.Update(r.Context(), principal(r).UserID, id.String(), service.RatingInput{
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// ListForProduct handles GET /api/v1/products/{id}/ratings
func (h *RatingHandler) ListForProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	page, perPage := httputil.PageParams(r)

	ratings, total, err := h.service.ListForProduct(r.Context(), id.String(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(ratings, total, page, perPage))
}

// ListMine handles GET /api/v1/me/ratings
func (h *RatingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ratings, err := h.service.ListByUser(r.Context(), principal(r).UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, ratings)
}
