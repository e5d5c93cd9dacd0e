package handler

import (
	"errors"
	"net/http"

	"threadloom/internal/middleware"
	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	msgCODPlaced       = "Order placed successfully. Payment will be collected upon delivery."
	msgPlaceFailed     = "Error placing order"
	msgPayPalFailed    = "Error processing PayPal payment"
	msgOrderNotFound   = "Order not found."
	msgOrderIsNotFound = "Order is not found."
	msgServerError     = "Server Error"
	msgItemCancelled   = "Product cancelled successfully."
	msgPaymentRetry    = "Payment was cancelled. You can retry the payment from your orders."
)

// PlaceOrderResponse is returned for cash on delivery orders.
type PlaceOrderResponse struct {
	Status  bool      `json:"status"`
	OrderID uuid.UUID `json:"orderId"`
	Message string    `json:"message"`
}

// ApprovalResponse sends the buyer on to the payment provider.
type ApprovalResponse struct {
	ApprovalURL string `json:"approvalUrl"`
}

// PaymentSuccessResponse confirms a paid order.
type PaymentSuccessResponse struct {
	Success bool         `json:"success"`
	OrderID uuid.UUID    `json:"orderId"`
	Order   *model.Order `json:"order"`
}

// PaymentCancelResponse reports an abandoned payment the buyer may retry.
type PaymentCancelResponse struct {
	Success bool         `json:"success"`
	OrderID uuid.UUID    `json:"orderId"`
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Order   *model.Order `json:"order"`
}

// MessageResponse is a bare success acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OrderHandler handles checkout, placement, payment callbacks and the
// buyer's order pages.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles GET /order/checkout.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Checkout(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load checkout")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgInternal, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// PlaceOrder handles POST /order/placeOrder.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.PlaceOrderRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	placed, err := h.service.PlaceOrder(r.Context(), userID, &req)
	middleware.RecordOrderOperation(middleware.OpPlaceOrder, err == nil)
	if err != nil {
		h.writePlaceError(w, err)
		return
	}

	if placed.ApprovalURL != "" {
		writeJSON(w, http.StatusOK, ApprovalResponse{ApprovalURL: placed.ApprovalURL})
		return
	}

	writeJSON(w, http.StatusOK, PlaceOrderResponse{
		Status:  true,
		OrderID: placed.Order.ID,
		Message: msgCODPlaced,
	})
}

func (h *OrderHandler) writePlaceError(w http.ResponseWriter, err error) {
	var perr *service.PaymentError
	if errors.As(err, &perr) {
		h.logger.Error().Err(perr.Err).Msg("payment provider rejected order")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Code:    model.ErrCodePaymentProvider,
			Message: msgPayPalFailed,
			Error:   perr.Error(),
		})
		return
	}

	de, ok := model.AsDomainError(err)
	if !ok {
		h.logger.Error().Err(err).Msg("failed to place order")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgPlaceFailed, h.logger)
		return
	}

	status := statusByCode[de.Code]
	if de.Code == model.ErrCodeProductNotFound {
		status = http.StatusBadRequest
	}
	if status == 0 {
		status = http.StatusBadRequest
	}
	writeError(w, status, de.Code, de.Message, h.logger)
}

// PaymentSuccess handles GET /order/paymentSuccess/{orderId}?paymentId&PayerID,
// the provider's return redirect.
func (h *OrderHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderId")
	if !ok {
		middleware.RecordOrderOperation(middleware.OpPaymentSuccess, false)
		writeError(w, http.StatusBadRequest, model.ErrCodeOrderNotFound, msgOrderIsNotFound, h.logger)
		return
	}

	q := r.URL.Query()
	order, err := h.service.PaymentSuccess(r.Context(), orderID, q.Get("paymentId"), q.Get("PayerID"))
	middleware.RecordOrderOperation(middleware.OpPaymentSuccess, err == nil)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeError(w, http.StatusBadRequest, model.ErrCodeOrderNotFound, msgOrderIsNotFound, h.logger)
			return
		}
		h.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to confirm payment")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgServerError, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, PaymentSuccessResponse{Success: true, OrderID: order.ID, Order: order})
}

// PaymentCancel handles GET /order/paymentCancel/{orderId}.
func (h *OrderHandler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderId")
	if !ok {
		middleware.RecordOrderOperation(middleware.OpPaymentCancel, false)
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, msgOrderNotFound, h.logger)
		return
	}

	order, err := h.service.PaymentCancel(r.Context(), orderID)
	middleware.RecordOrderOperation(middleware.OpPaymentCancel, err == nil)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, msgOrderNotFound, h.logger)
			return
		}
		h.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to load cancelled order")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgServerError, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, PaymentCancelResponse{
		Success: true,
		OrderID: order.ID,
		Status:  "retry",
		Message: msgPaymentRetry,
		Order:   order,
	})
}

// Detail handles GET /order/{id}.
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, "id")
}

// Confirmation handles GET /order/confirmation/{orderId}.
func (h *OrderHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, "orderId")
}

func (h *OrderHandler) show(w http.ResponseWriter, r *http.Request, param string) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := pathUUID(r, param)
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, msgOrderNotFound, h.logger)
			return
		}
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// CancelItem handles PATCH and POST /order/cancel/{orderId}/{itemId}. The
// body may carry an optional reason.
func (h *OrderHandler) CancelItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	orderID, okOrder := pathUUID(r, "orderId")
	itemID, okItem := pathUUID(r, "itemId")
	if !okOrder || !okItem {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order or item ID format", h.logger)
		return
	}

	var req model.CancelItemRequest
	if _, ok := decodeOptionalJSON(w, r, &req, h.logger); !ok {
		return
	}

	err := h.service.CancelItem(r.Context(), userID, orderID, itemID, req.Reason)
	middleware.RecordOrderOperation(middleware.OpCancelItem, err == nil)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, msgOrderNotFound, h.logger)
		case errors.Is(err, model.ErrOrderItemNotFound):
			writeError(w, http.StatusNotFound, model.ErrCodeOrderItemNotFound, model.ErrOrderItemNotFound.Message, h.logger)
		default:
			h.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to cancel item")
			writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "Server error.", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msgItemCancelled})
}

// History handles GET /order/history.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.service.ListUserOrders(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
