package repository

import (
	"context"
	"errors"

	"threadloom/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOrderNumberTaken is returned by CreateOrder when the display number
// already belongs to another order.
var ErrOrderNumberTaken = errors.New("order number already taken")

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves products ordered and paginated by the filter.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)

	// Count returns the number of products, optionally listed ones only.
	Count(ctx context.Context, listedOnly bool) (int, error)

	// GetByID retrieves a single product by its ID. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)

	Create(ctx context.Context, product *model.Product) error
	SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error

	// SetOffer stores the product's own offer percentage; zero removes it.
	SetOffer(ctx context.Context, id uuid.UUID, percent int) error
}

// CategoryRepository defines the interface for category data access operations.
type CategoryRepository interface {
	List(ctx context.Context, listedOnly bool) ([]model.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)

	// Create returns model.ErrCategoryExists for duplicate names.
	Create(ctx context.Context, category *model.Category) error

	// Update stores a new name and description. Returns
	// model.ErrCategoryExists when the name is taken.
	Update(ctx context.Context, category *model.Category) error
	SetUnlisted(ctx context.Context, id uuid.UUID, unlisted bool) error
	SetOffer(ctx context.Context, id uuid.UUID, percent int) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	// Returns ErrOrderNumberTaken if the order number is in use.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items, their products and the
	// owning user. Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByUser returns a user's orders, newest first, with items.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error)

	// List returns a page of all orders, newest first, and the total count.
	List(ctx context.Context, limit, offset int) ([]model.Order, int, error)

	// MarkPaid sets status paid and the payment id; payerID is stored only
	// when non-nil.
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID, payerID *string) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error

	// CancelItem marks one item of the order cancelled. Returns
	// model.ErrOrderItemNotFound if the item is not on the order.
	CancelItem(ctx context.Context, orderID, itemID uuid.UUID, reason *string) error
}

// CartRepository defines the interface for cart data access operations.
type CartRepository interface {
	// ListByUser returns the user's cart lines with their products.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.CartItem, error)

	// Upsert adds quantity to an existing line or inserts a new one.
	Upsert(ctx context.Context, item *model.CartItem) error

	// UpdateQuantity returns model.ErrProductNotFound if the line is absent.
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

// AddressRepository defines the interface for address book data access.
type AddressRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	Create(ctx context.Context, address *model.Address) error
}

// UserRepository defines the interface for user account data access.
type UserRepository interface {
	// Create returns model.ErrEmailExists or model.ErrMobileExists when the
	// unique constraints are violated.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByMobile(ctx context.Context, mobile string) (*model.User, error)
	MarkVerified(ctx context.Context, email string) error
}

// WishlistRepository defines the interface for wishlist data access.
type WishlistRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error)

	// Add is idempotent for an already saved product.
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	List(ctx context.Context) ([]model.Coupon, error)
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// Create returns model.ErrCouponExists for duplicate codes.
	Create(ctx context.Context, coupon *model.Coupon) error

	// Delete returns model.ErrCouponNotFound if nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error
}

// uniqueViolation reports whether err is a unique constraint violation and,
// if so, which constraint it hit.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func foreignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
