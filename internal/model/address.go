package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is an entry in a user's address book.
type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Snapshot copies the address into the frozen form stored on an order.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		AddressID:  a.ID,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// AddressSnapshot is the delivery address as it was when the order was placed.
// Later edits to the address book do not affect it.
type AddressSnapshot struct {
	AddressID  uuid.UUID `json:"addressId"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
}

// AddressRequest is the payload for adding an address.
type AddressRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Phone      string `json:"phone" validate:"required,min=7,max=15"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required"`
}
