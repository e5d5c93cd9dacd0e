package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxItemQuantity bounds the quantity of a single cart or order line.
const MaxItemQuantity = 1000

// CartItem is a product waiting in a user's cart. Price is the unit price
// captured when the product was added; totals use the product's current
// price when it is loaded.
type CartItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	Product   *Product  `json:"product,omitempty"`
}

// UnitPrice returns the price the line is charged at.
func (c CartItem) UnitPrice() float64 {
	if c.Product != nil {
		return c.Product.Price
	}
	return c.Price
}

// CartLine is a cart item with its computed subtotal.
type CartLine struct {
	CartItem
	Subtotal float64 `json:"subtotal"`
}

// CartView is the cart page payload.
type CartView struct {
	Items      []CartLine `json:"cartItems"`
	TotalPrice float64    `json:"totalPrice"`
}

// CartItemRequest carries the quantity for add/update operations.
type CartItemRequest struct {
	Quantity int `json:"quantity"`
}

// WishlistItem is a product saved for later.
type WishlistItem struct {
	UserID    uuid.UUID `json:"userId"`
	ProductID uuid.UUID `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
	Product   *Product  `json:"product,omitempty"`
}
