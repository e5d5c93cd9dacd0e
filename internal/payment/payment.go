// Package payment creates hosted payments with an external provider and
// exposes the approval link the buyer is redirected to.
package payment

import (
	"context"
	"errors"
	"fmt"
)

// Provider creates payments awaiting buyer approval.
type Provider interface {
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*Payment, error)
}

// CreatePaymentRequest mirrors the PayPal v1 payment resource.
type CreatePaymentRequest struct {
	Intent       string        `json:"intent"`
	Payer        Payer         `json:"payer"`
	RedirectURLs RedirectURLs  `json:"redirect_urls"`
	Transactions []Transaction `json:"transactions"`
}

// Payer identifies how and by whom a payment is funded.
type Payer struct {
	PaymentMethod string     `json:"payment_method"`
	PayerInfo     *PayerInfo `json:"payer_info,omitempty"`
}

// PayerInfo is returned once the provider knows the buyer.
type PayerInfo struct {
	PayerID string `json:"payer_id,omitempty"`
	Email   string `json:"email,omitempty"`
}

// RedirectURLs are where the buyer lands after approving or cancelling.
type RedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

// Transaction is a single charge with its itemised breakdown.
type Transaction struct {
	Amount      Amount   `json:"amount"`
	Description string   `json:"description,omitempty"`
	ItemList    ItemList `json:"item_list"`
}

// Amount is a decimal string total in a currency.
type Amount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

// ItemList holds the transaction line items.
type ItemList struct {
	Items []Item `json:"items"`
}

// Item is one line item. Price is a decimal string.
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
}

// Link is a HATEOAS link on a payment.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Payment is the provider's view of a created payment.
type Payment struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Payer Payer  `json:"payer"`
	Links []Link `json:"links"`
}

const approvalRel = "approval_url"

// ApprovalURL returns the href of the approval_url link.
func (p *Payment) ApprovalURL() (string, bool) {
	for _, l := range p.Links {
		if l.Rel == approvalRel {
			return l.Href, true
		}
	}
	return "", false
}

// PayerID returns the payer id when the provider supplied one.
func (p *Payment) PayerID() string {
	if p.Payer.PayerInfo == nil {
		return ""
	}
	return p.Payer.PayerInfo.PayerID
}

// MaxDescriptionLength is the longest item description PayPal accepts.
const MaxDescriptionLength = 127

// TruncateDescription cuts s to MaxDescriptionLength runes.
func TruncateDescription(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxDescriptionLength {
		return s
	}
	return string(runes[:MaxDescriptionLength])
}

// Error is returned for failed provider calls.
type Error struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal: %s: %s (status %d)", e.Name, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("paypal: %s (status %d)", e.Message, e.StatusCode)
}

// ErrNoApprovalURL is returned when a created payment carries no approval link.
var ErrNoApprovalURL = errors.New("paypal: payment has no approval_url link")
