package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus represents the payment leg of an order
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Order is the durable record of a purchased (or pending) coverage product.
// Orders are append-only: they transition state but are never deleted.
type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	SKUID          string          `json:"sku_id" db:"sku_id"`
	Principal      decimal.Decimal `json:"principal" db:"principal"`
	Leverage       decimal.Decimal `json:"leverage" db:"leverage"`
	Wallet         string          `json:"wallet" db:"wallet"`
	PremiumUSDC    decimal.Decimal `json:"premium_usdc" db:"premium_usdc"`
	PayoutUSDC     decimal.Decimal `json:"payout_usdc" db:"payout_usdc"`
	FeeRatio       decimal.Decimal `json:"fee_ratio" db:"fee_ratio"`
	PayoutRatio    decimal.Decimal `json:"payout_ratio" db:"payout_ratio"`
	IdempotencyKey string          `json:"idempotency_key" db:"idempotency_key"`
	QuoteExpiresAt time.Time       `json:"quote_expires_at" db:"quote_expires_at"`
	PaymentMethod  string          `json:"payment_method" db:"payment_method"`
	PaymentTx      *string         `json:"payment_tx,omitempty" db:"payment_tx"`
	PaymentStatus  PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentProofID *uuid.UUID      `json:"payment_proof_id,omitempty" db:"payment_proof_id"`
	OrderRef       *string         `json:"order_ref,omitempty" db:"order_ref"`
	Exchange       *string         `json:"exchange,omitempty" db:"exchange"`
	Pair           *string         `json:"pair,omitempty" db:"pair"`
	Status         OrderStatus     `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// QuoteExpired reports whether the quote backing this order has lapsed.
func (o *Order) QuoteExpired(now time.Time) bool {
	return !now.Before(o.QuoteExpiresAt)
}

// CreateOrderRequest is the body of POST /orders. The voucher is the signed
// quote returned by the preview endpoint; the explicit fields must match it.
type CreateOrderRequest struct {
	Voucher        string          `json:"voucher"`
	SKUID          string          `json:"skuId"`
	Principal      decimal.Decimal `json:"principal"`
	Leverage       decimal.Decimal `json:"leverage"`
	Wallet         string          `json:"wallet"`
	PremiumUSDC    decimal.Decimal `json:"premiumUSDC"`
	IdempotencyKey string          `json:"idempotencyKey"`
	PaymentMethod  string          `json:"paymentMethod"`
	OrderRef       *string         `json:"orderRef,omitempty"`
	Exchange       *string         `json:"exchange,omitempty"`
	Pair           *string         `json:"pair,omitempty"`
}

// OrderResponse is the envelope for single-order endpoints.
type OrderResponse struct {
	OK    bool   `json:"ok"`
	Order *Order `json:"order"`
}
