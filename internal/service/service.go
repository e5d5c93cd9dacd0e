package service

import (
	"context"
	"errors"
	"io"

	"threadloom/internal/model"
	"threadloom/internal/payment"

	"github.com/google/uuid"
)

// ProductService defines storefront catalogue and admin catalogue operations.
type ProductService interface {
	// Home returns listed products and all categories.
	Home(ctx context.Context) (*model.HomePage, error)

	// Shop returns a sorted page of listed products.
	Shop(ctx context.Context, sort string, page, limit int) (*model.ShopPage, error)

	// GetByID returns a product or model.ErrProductNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	ListAll(ctx context.Context) ([]model.Product, error)
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error

	// UploadImage stores the image and records its URL on the product.
	UploadImage(ctx context.Context, id uuid.UUID, contentType string, body io.ReadSeeker) (*model.Product, error)

	// SetOffer sets a product's own offer percentage; zero removes it.
	SetOffer(ctx context.Context, id uuid.UUID, percent int) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *model.CreateCategoryRequest) (*model.Category, error)
	SetCategoryUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error

	// SetCategoryOffer sets the offer for every product in the category;
	// zero removes it.
	SetCategoryOffer(ctx context.Context, id uuid.UUID, percent int) error
}

// OrderService defines checkout, placement, payment callback and order
// management operations.
type OrderService interface {
	// Checkout returns the user's cart lines, total and addresses.
	Checkout(ctx context.Context, userID uuid.UUID) (*model.CheckoutView, error)

	// PlaceOrder validates and persists an order. For PayPal orders the
	// result carries the approval URL; provider failures are *PaymentError.
	PlaceOrder(ctx context.Context, userID uuid.UUID, req *model.PlaceOrderRequest) (*model.PlacedOrder, error)

	// PaymentSuccess marks the order paid and clears its owner's cart.
	PaymentSuccess(ctx context.Context, orderID uuid.UUID, paymentID, payerID string) (*model.Order, error)

	// PaymentCancel loads the order without changing it.
	PaymentCancel(ctx context.Context, orderID uuid.UUID) (*model.Order, error)

	// GetOrder returns an order owned by the user.
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*model.Order, error)

	// CancelItem cancels a single line of the user's order.
	CancelItem(ctx context.Context, userID, orderID, itemID uuid.UUID, reason string) error

	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListOrders(ctx context.Context, page, limit int) (*model.OrderPage, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.Order, error)
}

// CartService defines cart operations.
type CartService interface {
	View(ctx context.Context, userID uuid.UUID) (*model.CartView, error)
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Update(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

// WishlistService defines wishlist operations.
type WishlistService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CouponService defines coupon administration and cart discount quotes.
type CouponService interface {
	List(ctx context.Context) ([]model.Coupon, error)
	Create(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Apply quotes the discount of code against the user's cart.
	Apply(ctx context.Context, userID uuid.UUID, code string) (*model.CouponQuote, error)
}

// AddressService defines address book operations.
type AddressService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	Add(ctx context.Context, userID uuid.UUID, req *model.AddressRequest) (*model.Address, error)
}

// UserService defines registration, OTP verification and login.
type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	VerifyOTP(ctx context.Context, req *model.VerifyOTPRequest) error
	ResendOTP(ctx context.Context, email string) error

	// Login returns the signed session token for a verified, unblocked user.
	Login(ctx context.Context, req *model.LoginRequest) (*model.User, string, error)
}

// PaymentError wraps a failed payment provider call.
type PaymentError struct {
	Err error
}

// Error returns the provider's own message when it supplied one.
func (e *PaymentError) Error() string {
	var perr *payment.Error
	if errors.As(e.Err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return e.Err.Error()
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}
