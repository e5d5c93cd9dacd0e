package handler

import (
	"net/http"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/rs/zerolog"
)

// AddressHandler handles the user's address book.
type AddressHandler struct {
	service service.AddressService
	logger  zerolog.Logger
}

// NewAddressHandler creates a new address handler.
func NewAddressHandler(service service.AddressService, logger zerolog.Logger) *AddressHandler {
	return &AddressHandler{
		service: service,
		logger:  logger.With().Str("handler", "address").Logger(),
	}
}

// List handles GET /address.
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	addresses, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addresses})
}

// Add handles POST /address.
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	var req model.AddressRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	address, err := h.service.Add(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, address)
}
