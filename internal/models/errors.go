package models

import (
	"errors"
	"fmt"
)

// Common order, payment and claim errors
var (
	// Catalog errors
	ErrSKUNotFound = errors.New("sku not found")
	ErrSKUDisabled = errors.New("sku is disabled")
	ErrOutOfRange  = errors.New("principal or leverage out of range")

	// Quote errors
	ErrQuoteExpired = errors.New("quote expired")
	ErrQuoteInvalid = errors.New("quote voucher invalid")

	// Order errors
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotPending   = errors.New("order is not pending")
	ErrInvalidTransition = errors.New("invalid order state transition")

	// Payment proof errors
	ErrTokenMismatch      = errors.New("token does not match configured USDC contract")
	ErrRecipientMismatch  = errors.New("recipient does not match vault address")
	ErrAmountInsufficient = errors.New("transfer amount below order premium")
	ErrAmountMismatch     = errors.New("transfer amount does not equal order premium")
	ErrDuplicateTx        = errors.New("transaction hash already bound to another order")
	ErrProofNotFound      = errors.New("payment proof not found")

	// Claim errors
	ErrClaimNotFound       = errors.New("claim not found")
	ErrOrderNotPaid        = errors.New("order is not paid")
	ErrClaimExists         = errors.New("claim already filed for order")
	ErrAmountExceedsPayout = errors.New("amount exceeds order payout cap")

	// Exchange adapter errors
	ErrUnsupportedExchange = errors.New("unsupported exchange")
	ErrUpstreamFailed      = errors.New("exchange request failed")
	ErrUpstreamTimeout     = errors.New("exchange request timed out")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ServiceError is a structured error carrying a stable code and context details.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error codes returned to HTTP clients
const (
	// Catalog error codes
	ErrCodeSKUNotFound = "SKU_NOT_FOUND"
	ErrCodeOutOfRange  = "OUT_OF_RANGE"

	// Quote error codes
	ErrCodeQuoteExpired = "QUOTE_EXPIRED"
	ErrCodeQuoteInvalid = "QUOTE_INVALID"

	// Order error codes
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeOrderNotPending   = "ORDER_NOT_PENDING"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"

	// Payment proof error codes
	ErrCodeTokenMismatch      = "TOKEN_MISMATCH"
	ErrCodeRecipientMismatch  = "RECIPIENT_MISMATCH"
	ErrCodeAmountInsufficient = "AMOUNT_INSUFFICIENT"
	ErrCodeDuplicateTx        = "DUPLICATE_TX"
	ErrCodeProofNotFound      = "PROOF_NOT_FOUND"

	// Claim error codes
	ErrCodeClaimNotFound       = "CLAIM_NOT_FOUND"
	ErrCodeOrderNotPaid        = "ORDER_NOT_PAID"
	ErrCodeClaimExists         = "CLAIM_EXISTS"
	ErrCodeAmountExceedsPayout = "AMOUNT_EXCEEDS_PAYOUT"

	// Exchange error codes
	ErrCodeUnsupportedExchange = "UNSUPPORTED_EXCHANGE"
	ErrCodeUpstreamFailed      = "UPSTREAM_FAILED"
	ErrCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"

	// System error codes
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeConfigError      = "CONFIGURATION_ERROR"
)

// Common error constructors

func NewSKUNotFoundError(skuID string) *ServiceError {
	return NewServiceError(ErrCodeSKUNotFound, "SKU not found or disabled", ErrSKUNotFound).
		WithDetail("sku_id", skuID)
}

func NewOutOfRangeError(field, bounds string) *ServiceError {
	return NewServiceError(ErrCodeOutOfRange, "Input outside SKU bounds", ErrOutOfRange).
		WithDetail("field", field).
		WithDetail("bounds", bounds)
}

func NewQuoteExpiredError(idempotencyKey string) *ServiceError {
	return NewServiceError(ErrCodeQuoteExpired, "Quote has expired", ErrQuoteExpired).
		WithDetail("idempotency_key", idempotencyKey)
}

func NewOrderNotFoundError(orderID string) *ServiceError {
	return NewServiceError(ErrCodeOrderNotFound, "Order not found", ErrOrderNotFound).
		WithDetail("order_id", orderID)
}

func NewDuplicateTxError(txHash string) *ServiceError {
	return NewServiceError(ErrCodeDuplicateTx, "Transaction already bound to another order", ErrDuplicateTx).
		WithDetail("tx_hash", txHash)
}

func NewValidationError(field, message string) *ServiceError {
	return NewServiceError(ErrCodeValidationFailed, "Validation failed", ErrValidationFailed).
		WithDetail("field", field).
		WithDetail("message", message)
}

func NewUpstreamError(exchange string, cause error) *ServiceError {
	return NewServiceError(ErrCodeUpstreamFailed, "Exchange request failed", cause).
		WithDetail("exchange", exchange)
}

func NewDatabaseError(operation string, cause error) *ServiceError {
	return NewServiceError(ErrCodeDatabaseError, "Database operation failed", cause).
		WithDetail("operation", operation)
}
