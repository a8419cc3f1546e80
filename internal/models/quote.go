package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a time-bounded premium/payout offer. Quotes are never persisted;
// the signed voucher round-trips every field needed to create the order.
type Quote struct {
	IdempotencyKey string          `json:"idempotency_key"`
	SKUID          string          `json:"sku_id"`
	Principal      decimal.Decimal `json:"principal"`
	Leverage       decimal.Decimal `json:"leverage"`
	FeeRatio       decimal.Decimal `json:"fee_ratio"`
	PayoutRatio    decimal.Decimal `json:"payout_ratio"`
	PremiumUSDC    decimal.Decimal `json:"premium_usdc"`
	PayoutUSDC     decimal.Decimal `json:"payout_usdc"`
	Wallet         string          `json:"wallet"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// Expired reports whether the quote validity window has passed.
func (q *Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// PreviewRequest is the body of POST /orders/preview.
type PreviewRequest struct {
	SKUID     string          `json:"skuId"`
	Principal decimal.Decimal `json:"principal"`
	Leverage  decimal.Decimal `json:"leverage"`
	Wallet    string          `json:"wallet"`
}

// PreviewResponse pairs the quote with its SKU and the signed voucher the
// client must echo back on order creation.
type PreviewResponse struct {
	OK      bool   `json:"ok"`
	Quote   *Quote `json:"quote"`
	SKU     *SKU   `json:"sku"`
	Voucher string `json:"voucher"`
}
