package quote

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// usdcScale is the USDC minor-unit precision premiums are rounded to.
const usdcScale = 6

// Catalog is the read surface the engine needs over the SKU store.
type Catalog interface {
	GetSKU(id string) (*models.SKU, error)
}

// Engine computes time-bounded premium/payout quotes from SKU pricing
// formulas. The engine is pure: it never persists anything, so a quote only
// exists as the signed voucher handed back to the client.
type Engine struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewEngine creates a new quote engine
func NewEngine(catalog Catalog, logger *zap.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		logger:  logger,
	}
}

// Preview computes a quote for a SKU + principal + leverage + wallet
// combination. A fresh idempotency key is generated per call.
func (e *Engine) Preview(skuID string, principal, leverage decimal.Decimal, wallet string) (*models.Quote, *models.SKU, error) {
	sku, err := e.catalog.GetSKU(skuID)
	if err != nil {
		return nil, nil, models.NewSKUNotFoundError(skuID)
	}
	if !sku.Enabled {
		return nil, nil, models.NewSKUNotFoundError(skuID)
	}

	if !sku.InLeverageRange(leverage) {
		return nil, nil, models.NewOutOfRangeError("leverage",
			fmt.Sprintf("[%s, %s]", sku.LeverageMin, sku.LeverageMax))
	}
	if !sku.InPrincipalRange(principal) {
		return nil, nil, models.NewOutOfRangeError("principal",
			fmt.Sprintf("[%s, %s]", sku.PrincipalMin, sku.PrincipalMax))
	}

	feeRatio, payoutRatio := e.ratios(sku, leverage)

	premium := principal.Mul(feeRatio).Round(usdcScale)
	payout := decimal.Min(principal.Mul(payoutRatio), sku.PayoutCapUSD).Round(usdcScale)

	now := time.Now().UTC()
	q := &models.Quote{
		IdempotencyKey: uuid.NewString(),
		SKUID:          sku.ID,
		Principal:      principal,
		Leverage:       leverage,
		FeeRatio:       feeRatio,
		PayoutRatio:    payoutRatio,
		PremiumUSDC:    premium,
		PayoutUSDC:     payout,
		Wallet:         wallet,
		CreatedAt:      now,
		ExpiresAt:      now.Add(sku.QuoteTTL()),
	}

	e.logger.Debug("Quote computed",
		zap.String("sku_id", sku.ID),
		zap.String("idempotency_key", q.IdempotencyKey),
		zap.String("premium_usdc", premium.String()),
		zap.String("payout_usdc", payout.String()),
	)

	return q, sku, nil
}

// ratios interpolates the fee and payout ratios across the SKU leverage band.
// Higher leverage means riskier cover: the fee ratio rises toward fee_cap and
// the payout ratio falls from payout_cap toward payout_floor. Both are clamped
// to the formula bounds unconditionally, whatever the interpolation yields.
func (e *Engine) ratios(sku *models.SKU, leverage decimal.Decimal) (feeRatio, payoutRatio decimal.Decimal) {
	p := sku.Pricing

	band := sku.LeverageMax.Sub(sku.LeverageMin)
	var position decimal.Decimal
	if band.IsPositive() {
		position = leverage.Sub(sku.LeverageMin).Div(band)
	} else {
		position = decimal.NewFromInt(1)
	}

	// Fee starts at a quarter of the cap and grows linearly to the cap.
	floorShare := decimal.NewFromFloat(0.25)
	feeRatio = p.FeeCap.Mul(floorShare.Add(decimal.NewFromInt(1).Sub(floorShare).Mul(position)))
	payoutRatio = p.PayoutCap.Sub(p.PayoutCap.Sub(p.PayoutFloor).Mul(position))

	feeRatio = clamp(feeRatio, decimal.Zero, p.FeeCap)
	payoutRatio = clamp(payoutRatio, p.PayoutFloor, p.PayoutCap)
	return feeRatio, payoutRatio
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
