package handler

import (
	"context"
	"io"
	"net/http"

	"threadloom/internal/model"
	"threadloom/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// withParams attaches chi URL parameters to the request.
func withParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser marks the request as coming from a logged-in user.
func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(session.WithUserID(r.Context(), userID))
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*model.CheckoutView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutView), args.Error(1)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *model.PlaceOrderRequest) (*model.PlacedOrder, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlacedOrder), args.Error(1)
}

func (m *MockOrderService) PaymentSuccess(ctx context.Context, orderID uuid.UUID, paymentID, payerID string) (*model.Order, error) {
	args := m.Called(ctx, orderID, paymentID, payerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) PaymentCancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) CancelItem(ctx context.Context, userID, orderID, itemID uuid.UUID, reason string) error {
	args := m.Called(ctx, userID, orderID, itemID, reason)
	return args.Error(0)
}

func (m *MockOrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, page, limit int) (*model.OrderPage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderPage), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Home(ctx context.Context) (*model.HomePage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HomePage), args.Error(1)
}

func (m *MockProductService) Shop(ctx context.Context, sort string, page, limit int) (*model.ShopPage, error) {
	args := m.Called(ctx, sort, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShopPage), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) ListAll(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	args := m.Called(ctx, id, unlisted)
	return args.Error(0)
}

func (m *MockProductService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.ReadSeeker) (*model.Product, error) {
	args := m.Called(ctx, id, contentType, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) ListCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockProductService) CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockProductService) SetCategoryUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error {
	args := m.Called(ctx, id, unlisted)
	return args.Error(0)
}

func (m *MockProductService) SetOffer(ctx context.Context, id uuid.UUID, percent int) error {
	args := m.Called(ctx, id, percent)
	return args.Error(0)
}

func (m *MockProductService) UpdateCategory(ctx context.Context, id uuid.UUID, req *model.CreateCategoryRequest) (*model.Category, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Category), args.Error(1)
}

func (m *MockProductService) SetCategoryOffer(ctx context.Context, id uuid.UUID, percent int) error {
	args := m.Called(ctx, id, percent)
	return args.Error(0)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) View(ctx context.Context, userID uuid.UUID) (*model.CartView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartView), args.Error(1)
}

func (m *MockCartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockCartService) Update(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *MockCartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

// MockWishlistService is a mock implementation of WishlistService.
type MockWishlistService struct {
	mock.Mock
}

func (m *MockWishlistService) List(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WishlistItem), args.Error(1)
}

func (m *MockWishlistService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockWishlistService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

func (m *MockWishlistService) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockCouponService is a mock implementation of CouponService.
type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) List(ctx context.Context) ([]model.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Coupon), args.Error(1)
}

func (m *MockCouponService) Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Coupon), args.Error(1)
}

func (m *MockCouponService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCouponService) Apply(ctx context.Context, userID uuid.UUID, code string) (*model.CouponQuote, error) {
	args := m.Called(ctx, userID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CouponQuote), args.Error(1)
}

// MockAddressService is a mock implementation of AddressService.
type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) List(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Address), args.Error(1)
}

func (m *MockAddressService) Add(ctx context.Context, userID uuid.UUID, req *model.AddressRequest) (*model.Address, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Address), args.Error(1)
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockUserService) ResendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.User), args.String(1), args.Error(2)
}
