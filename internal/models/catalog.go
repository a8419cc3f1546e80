package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingFormula holds the per-SKU parameters the quote engine interpolates
// between. Ratios are fractions of principal, not percentages.
type PricingFormula struct {
	FeeCap          decimal.Decimal `json:"fee_cap" yaml:"fee_cap" db:"fee_cap"`
	PayoutFloor     decimal.Decimal `json:"payout_floor" yaml:"payout_floor" db:"payout_floor"`
	PayoutCap       decimal.Decimal `json:"payout_cap" yaml:"payout_cap" db:"payout_cap"`
	QuoteTTLSeconds int             `json:"quote_ttl_seconds" yaml:"quote_ttl_seconds" db:"quote_ttl_seconds"`
}

// SKU is an immutable catalog entry describing one insurance product.
// Rows are seeded from configuration at startup and read-only afterwards.
type SKU struct {
	ID           string          `json:"id" yaml:"id" db:"id"`
	Code         string          `json:"code" yaml:"code" db:"code"`
	Enabled      bool            `json:"enabled" yaml:"enabled" db:"enabled"`
	LeverageMin  decimal.Decimal `json:"leverage_min" yaml:"leverage_min" db:"leverage_min"`
	LeverageMax  decimal.Decimal `json:"leverage_max" yaml:"leverage_max" db:"leverage_max"`
	PrincipalMin decimal.Decimal `json:"principal_min" yaml:"principal_min" db:"principal_min"`
	PrincipalMax decimal.Decimal `json:"principal_max" yaml:"principal_max" db:"principal_max"`
	PayoutCapUSD decimal.Decimal `json:"payout_cap_usd" yaml:"payout_cap_usd" db:"payout_cap_usd"`
	Pricing      PricingFormula  `json:"pricing" yaml:"pricing"`
	CreatedAt    time.Time       `json:"created_at" yaml:"-" db:"created_at"`
}

// InLeverageRange reports whether leverage falls inside the SKU bounds.
func (s *SKU) InLeverageRange(leverage decimal.Decimal) bool {
	return leverage.GreaterThanOrEqual(s.LeverageMin) && leverage.LessThanOrEqual(s.LeverageMax)
}

// InPrincipalRange reports whether principal falls inside the SKU bounds.
func (s *SKU) InPrincipalRange(principal decimal.Decimal) bool {
	return principal.GreaterThanOrEqual(s.PrincipalMin) && principal.LessThanOrEqual(s.PrincipalMax)
}

// QuoteTTL returns the quote validity window for this SKU.
func (s *SKU) QuoteTTL() time.Duration {
	return time.Duration(s.Pricing.QuoteTTLSeconds) * time.Second
}
