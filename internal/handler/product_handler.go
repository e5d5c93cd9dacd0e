package handler

import (
	"net/http"
	"strconv"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler handles storefront catalogue requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// Home handles GET /.
func (h *ProductHandler) Home(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Home(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Shop handles GET /shop?sort=&page=&limit=. Missing page and limit fall
// back to the service defaults.
func (h *ProductHandler) Shop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := queryInt(q.Get("page"))
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid page parameter", h.logger)
		return
	}
	limit, ok := queryInt(q.Get("limit"))
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid limit parameter", h.logger)
		return
	}

	shop, err := h.service.Shop(r.Context(), q.Get("sort"), page, limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, shop)
}

// Detail handles GET /product/{id}.
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// queryInt parses an optional integer query value; empty means zero.
func queryInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
