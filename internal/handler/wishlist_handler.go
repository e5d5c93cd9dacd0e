package handler

import (
	"context"
	"net/http"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WishlistHandler handles the user's saved products.
type WishlistHandler struct {
	service service.WishlistService
	logger  zerolog.Logger
}

// NewWishlistHandler creates a new wishlist handler.
func NewWishlistHandler(service service.WishlistService, logger zerolog.Logger) *WishlistHandler {
	return &WishlistHandler{
		service: service,
		logger:  logger.With().Str("handler", "wishlist").Logger(),
	}
}

// List handles GET /wishlist.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wishlist": items})
}

// Add handles POST /wishlist/{productId}.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.service.Add, "Product added to wishlist.")
}

// Remove handles DELETE /wishlist/{productId}.
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.service.Remove, "Product removed from wishlist.")
}

// Clear handles DELETE /wishlist.
func (h *WishlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), userID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Wishlist cleared."})
}

func (h *WishlistHandler) change(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, userID, productID uuid.UUID) error, message string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathUUID(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	if err := apply(r.Context(), userID, productID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: message})
}
