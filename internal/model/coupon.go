package model

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a percentage discount code.
type Coupon struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	MaxDiscount     float64   `json:"maxDiscount"`
	MinPurchase     float64   `json:"minPurchase"`
	ExpiresAt       time.Time `json:"expiresAt"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateCouponRequest is the admin payload for a new coupon.
type CreateCouponRequest struct {
	Code            string    `json:"code" validate:"required,alphanum,min=4,max=20"`
	DiscountPercent int       `json:"discountPercent" validate:"min=1,max=90"`
	MaxDiscount     float64   `json:"maxDiscount" validate:"gt=0"`
	MinPurchase     float64   `json:"minPurchase" validate:"gte=0"`
	ExpiresAt       time.Time `json:"expiresAt" validate:"required"`
}

// ApplyCouponRequest names the code to apply to the cart.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// CouponQuote is the discounted cart total for a coupon.
type CouponQuote struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}
