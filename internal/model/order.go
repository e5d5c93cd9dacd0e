package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the overall state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a storable order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ItemStatus is the state of a single order line.
type ItemStatus string

const (
	ItemStatusPlaced    ItemStatus = "placed"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// PaymentMethod is how the buyer settles the order.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// ParsePaymentMethod accepts only the supported payment methods.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentMethodCOD, PaymentMethodPayPal:
		return PaymentMethod(s), nil
	}
	return "", ErrInvalidPaymentMethod
}

// Order represents a placed customer order.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"userId"`
	OrderNumber      string          `json:"orderNumber"`
	DeliveryAddress  AddressSnapshot `json:"deliveryAddress"`
	TotalAmount      float64         `json:"totalAmount"`
	ExpectedDelivery time.Time       `json:"expectedDelivery"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentID        *string         `json:"paymentId,omitempty"`
	PayerID          *string         `json:"payerId,omitempty"`
	Status           OrderStatus     `json:"status"`
	Items            []OrderItem     `json:"items"`
	User             *UserSummary    `json:"user,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// OrderItem represents a line item in an order.
type OrderItem struct {
	ID                 uuid.UUID  `json:"id"`
	OrderID            uuid.UUID  `json:"-"`
	ProductID          uuid.UUID  `json:"productId"`
	Position           int        `json:"-"`
	Quantity           int        `json:"quantity"`
	Price              float64    `json:"price"`
	Total              float64    `json:"total"`
	Status             ItemStatus `json:"orderStatus"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	Product            *Product   `json:"product,omitempty"`
}

// PlaceOrderRequest represents the request payload for placing an order.
type PlaceOrderRequest struct {
	Items         []PlaceOrderItem `json:"items"`
	Total         Amount           `json:"total"`
	AddressID     string           `json:"addressId"`
	PaymentMethod string           `json:"paymentMethod"`
}

// PlaceOrderItem represents a single line in a placement request.
type PlaceOrderItem struct {
	ProductID ProductRef `json:"productId"`
	Quantity  int        `json:"quantity"`
	Price     Amount     `json:"price"`
}

// PlacedOrder is the outcome of a successful placement. ApprovalURL is set
// only for orders that continue at the payment provider.
type PlacedOrder struct {
	Order       *Order
	ApprovalURL string
}

// CancelItemRequest optionally carries the buyer's reason.
type CancelItemRequest struct {
	Reason string `json:"reason"`
}

// UpdateOrderStatusRequest is the admin payload for changing an order status.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderPage is a page of orders for the admin list.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	Limit       int     `json:"limit"`
}

// CheckoutView holds everything the checkout page shows.
type CheckoutView struct {
	CartItems  []CartLine `json:"cartItems"`
	TotalPrice float64    `json:"totalPrice"`
	Addresses  []Address  `json:"address"`
}
