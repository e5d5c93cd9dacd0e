package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeValidation           = "VALIDATION_FAILED"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
	ErrCodeAddressNotFound      = "ADDRESS_NOT_FOUND"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeOrderItemNotFound    = "ORDER_ITEM_NOT_FOUND"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound     = "CATEGORY_NOT_FOUND"
	ErrCodeInvalidPayment       = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeEmptyOrder           = "EMPTY_ORDER"
	ErrCodePriceMismatch        = "PRICE_MISMATCH"
	ErrCodeTotalMismatch        = "TOTAL_MISMATCH"
	ErrCodeInvalidOrderStatus   = "INVALID_ORDER_STATUS"
	ErrCodePaymentProvider      = "PAYMENT_PROVIDER_ERROR"
	ErrCodeEmailExists          = "EMAIL_EXISTS"
	ErrCodeMobileExists         = "MOBILE_EXISTS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeNotVerified          = "ACCOUNT_NOT_VERIFIED"
	ErrCodeBlocked              = "ACCOUNT_BLOCKED"
	ErrCodeInvalidOTPFormat     = "INVALID_OTP_FORMAT"
	ErrCodeInvalidOTP           = "INVALID_OTP"
	ErrCodeCouponNotFound       = "COUPON_NOT_FOUND"
	ErrCodeCouponExists         = "COUPON_EXISTS"
	ErrCodeCouponExpired        = "COUPON_EXPIRED"
	ErrCodeCouponMinPurchase    = "COUPON_MIN_PURCHASE"
	ErrCodeCategoryExists       = "CATEGORY_EXISTS"
	ErrCodeEmptyCart            = "EMPTY_CART"
	ErrCodeInvalidImage         = "INVALID_IMAGE"
	ErrCodeInvalidOffer         = "INVALID_OFFER"
	ErrCodeOTPAttempts          = "OTP_ATTEMPTS_EXCEEDED"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError unwraps err into a *DomainError if it carries one.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrAddressNotFound      = NewDomainError(ErrCodeAddressNotFound, "Address not found.")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found.")
	ErrOrderItemNotFound    = NewDomainError(ErrCodeOrderItemNotFound, "Item not found.")
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrCategoryNotFound     = NewDomainError(ErrCodeCategoryNotFound, "Category not found")
	ErrInvalidPaymentMethod = NewDomainError(ErrCodeInvalidPayment, "Invalid payment method.")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be between 1 and 1000")
	ErrEmptyOrder           = NewDomainError(ErrCodeEmptyOrder, "Order must contain at least one item")
	ErrPriceMismatch        = NewDomainError(ErrCodePriceMismatch, "Submitted price does not match the current product price")
	ErrTotalMismatch        = NewDomainError(ErrCodeTotalMismatch, "Submitted total does not match the order total")
	ErrInvalidOrderStatus   = NewDomainError(ErrCodeInvalidOrderStatus, "Invalid order status")
	ErrEmailExists          = NewDomainError(ErrCodeEmailExists, "Email Already Exists. Please Use a Different Email.")
	ErrMobileExists         = NewDomainError(ErrCodeMobileExists, "Phone Number Already Exists. Please Use a Different Phone Number.")
	ErrUserNotFound         = NewDomainError(ErrCodeUserNotFound, "Email does not exist.")
	ErrInvalidCredentials   = NewDomainError(ErrCodeInvalidCredentials, "Email and Password is incorrect.")
	ErrAccountNotVerified   = NewDomainError(ErrCodeNotVerified, "Your account is not verified yet.")
	ErrAccountBlocked       = NewDomainError(ErrCodeBlocked, "Your account is blocked.")
	ErrInvalidOTPFormat     = NewDomainError(ErrCodeInvalidOTPFormat, "Invalid OTP format.")
	ErrInvalidOTP           = NewDomainError(ErrCodeInvalidOTP, "Invalid OTP.")
	ErrCouponNotFound       = NewDomainError(ErrCodeCouponNotFound, "Coupon not found.")
	ErrCouponExists         = NewDomainError(ErrCodeCouponExists, "Coupon code already exists.")
	ErrCouponExpired        = NewDomainError(ErrCodeCouponExpired, "Coupon has expired.")
	ErrCouponMinPurchase    = NewDomainError(ErrCodeCouponMinPurchase, "Cart total is below the coupon's minimum purchase.")
	ErrCategoryExists       = NewDomainError(ErrCodeCategoryExists, "Category already exists.")
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Your cart is empty.")
	ErrInvalidImage         = NewDomainError(ErrCodeInvalidImage, "Image must be a JPEG, PNG, WebP or GIF file.")
	ErrInvalidOffer         = NewDomainError(ErrCodeInvalidOffer, "Offer must be between 1 and 90 percent.")
	ErrOTPAttemptsExceeded  = NewDomainError(ErrCodeOTPAttempts, "Too many incorrect attempts. Please request a new OTP.")
)
