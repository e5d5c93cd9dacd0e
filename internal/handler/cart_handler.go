package handler

import (
	"net/http"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles the user's cart and coupon quotes.
type CartHandler struct {
	cart    service.CartService
	coupons service.CouponService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(cart service.CartService, coupons service.CouponService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		coupons: coupons,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// View handles GET /cart.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.cart.View(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Add handles POST /cart/{productId}. An empty body adds a single unit.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathUUID(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	req := model.CartItemRequest{Quantity: 1}
	if _, ok := decodeOptionalJSON(w, r, &req, h.logger); !ok {
		return
	}

	if err := h.cart.Add(r.Context(), userID, productID, req.Quantity); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Product added to cart."})
}

// Update handles PATCH /cart/{productId}.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathUUID(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	var req model.CartItemRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := h.cart.Update(r.Context(), userID, productID, req.Quantity); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Cart updated."})
}

// Remove handles DELETE /cart/{productId}.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathUUID(r, "productId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	if err := h.cart.Remove(r.Context(), userID, productID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Product removed from cart."})
}

// ApplyCoupon handles POST /cart/applyCoupon. The quote does not change the
// cart or any later order.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.ApplyCouponRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	quote, err := h.coupons.Apply(r.Context(), userID, req.Code)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
