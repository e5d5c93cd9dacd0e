package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a storefront account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"isVerified"`
	IsBlocked    bool      `json:"isBlocked"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the owner reference expanded on order pages.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Mobile string    `json:"mobile"`
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Mobile   string `json:"mobile" validate:"required,numeric,min=10,max=15"`
	Password string `json:"password" validate:"required,min=8"`
}

// VerifyOTPRequest carries the six OTP digits as the form submits them.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP1  string `json:"otp1"`
	OTP2  string `json:"otp2"`
	OTP3  string `json:"otp3"`
	OTP4  string `json:"otp4"`
	OTP5  string `json:"otp5"`
	OTP6  string `json:"otp6"`
}

// Digits returns the submitted digits in order.
func (r *VerifyOTPRequest) Digits() []string {
	return []string{r.OTP1, r.OTP2, r.OTP3, r.OTP4, r.OTP5, r.OTP6}
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RedirectResponse tells the storefront where to go next.
type RedirectResponse struct {
	Status bool   `json:"status"`
	URL    string `json:"url"`
}
