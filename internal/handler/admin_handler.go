package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"threadloom/internal/model"
	"threadloom/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxImageBytes bounds product image uploads.
const maxImageBytes = 5 << 20

// AdminHandler handles the API-key protected back office.
type AdminHandler struct {
	orders   service.OrderService
	products service.ProductService
	coupons  service.CouponService
	logger   zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(orders service.OrderService, products service.ProductService, coupons service.CouponService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		orders:   orders,
		products: products,
		coupons:  coupons,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

// OrderList handles GET /admin/orderList?page&limit.
func (h *AdminHandler) OrderList(w http.ResponseWriter, r *http.Request) {
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

	orders, err := h.orders.ListOrders(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus handles PATCH /admin/orderList/{orderId}/status.
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(r, "orderId")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return
	}

	var req model.UpdateOrderStatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Categories handles GET /admin/category.
func (h *AdminHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": categories})
}

// CreateCategory handles POST /admin/category.
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCategoryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	category, err := h.products.CreateCategory(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// EditCategory handles PUT /admin/category/{id}.
func (h *AdminHandler) EditCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid category ID format", h.logger)
		return
	}

	var req model.CreateCategoryRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	category, err := h.products.UpdateCategory(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// SetCategoryListing handles PATCH /admin/category/{id}.
func (h *AdminHandler) SetCategoryListing(w http.ResponseWriter, r *http.Request) {
	h.setListing(w, r, h.products.SetCategoryUnlisted)
}

// AddCategoryOffer handles PUT /admin/category/{id}/offer.
func (h *AdminHandler) AddCategoryOffer(w http.ResponseWriter, r *http.Request) {
	h.addOffer(w, r, h.products.SetCategoryOffer)
}

// RemoveCategoryOffer handles DELETE /admin/category/{id}/offer.
func (h *AdminHandler) RemoveCategoryOffer(w http.ResponseWriter, r *http.Request) {
	h.removeOffer(w, r, h.products.SetCategoryOffer)
}

// Products handles GET /admin/products.
func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// CreateProduct handles POST /admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	product, err := h.products.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// SetProductListing handles PATCH /admin/products/{id}.
func (h *AdminHandler) SetProductListing(w http.ResponseWriter, r *http.Request) {
	h.setListing(w, r, h.products.SetUnlisted)
}

// AddProductOffer handles PUT /admin/products/{id}/offer.
func (h *AdminHandler) AddProductOffer(w http.ResponseWriter, r *http.Request) {
	h.addOffer(w, r, h.products.SetOffer)
}

// RemoveProductOffer handles DELETE /admin/products/{id}/offer.
func (h *AdminHandler) RemoveProductOffer(w http.ResponseWriter, r *http.Request) {
	h.removeOffer(w, r, h.products.SetOffer)
}

// UploadProductImage handles POST /admin/products/{id}/image with a
// multipart "image" field.
func (h *AdminHandler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid product ID format", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse multipart form")
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "image upload must be multipart/form-data under 5MB", h.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "image file is required", h.logger)
		return
	}
	defer file.Close()

	contentType, err := sniffContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read uploaded image")
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, msgInternal, h.logger)
		return
	}

	product, err := h.products.UploadImage(r.Context(), id, contentType, file)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Coupons handles GET /admin/coupons.
func (h *AdminHandler) Coupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coupons": coupons})
}

// CreateCoupon handles POST /admin/coupons.
func (h *AdminHandler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCouponRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	coupon, err := h.coupons.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, coupon)
}

// DeleteCoupon handles DELETE /admin/coupons/{id}.
func (h *AdminHandler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid coupon ID format", h.logger)
		return
	}

	if err := h.coupons.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Coupon deleted."})
}

func (h *AdminHandler) setListing(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID, unlisted bool) error) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid ID format", h.logger)
		return
	}

	var req model.ListingRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := apply(r.Context(), id, *req.Unlisted); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Listing updated."})
}

type offerFunc func(ctx context.Context, id uuid.UUID, percent int) error

func (h *AdminHandler) addOffer(w http.ResponseWriter, r *http.Request, apply offerFunc) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid ID format", h.logger)
		return
	}

	var req model.OfferRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	if err := apply(r.Context(), id, req.Percent); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Offer added."})
}

func (h *AdminHandler) removeOffer(w http.ResponseWriter, r *http.Request, apply offerFunc) {
	id, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid ID format", h.logger)
		return
	}

	if err := apply(r.Context(), id, 0); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Offer removed."})
}

// sniffContentType trusts a specific declared type and otherwise detects it
// from the first bytes, rewinding the file afterwards.
func sniffContentType(file io.ReadSeeker, declared string) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
