package quote

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

func testSKU() models.SKU {
	return models.SKU{
		ID:           "liq-shield-btc-std",
		Code:         "BTC-STD",
		Enabled:      true,
		LeverageMin:  decimal.NewFromInt(5),
		LeverageMax:  decimal.NewFromInt(50),
		PrincipalMin: decimal.NewFromInt(50),
		PrincipalMax: decimal.NewFromInt(5000),
		PayoutCapUSD: decimal.NewFromInt(2500),
		Pricing: models.PricingFormula{
			FeeCap:          decimal.RequireFromString("0.15"),
			PayoutFloor:     decimal.RequireFromString("0.1"),
			PayoutCap:       decimal.RequireFromString("0.5"),
			QuoteTTLSeconds: 600,
		},
	}
}

func newTestEngine(skus ...models.SKU) *Engine {
	if len(skus) == 0 {
		skus = []models.SKU{testSKU()}
	}
	return NewEngine(NewStaticCatalog(skus), zap.NewNop())
}

func TestPreviewWithinFormulaBounds(t *testing.T) {
	engine := newTestEngine()
	principal := decimal.NewFromInt(200)

	q, sku, err := engine.Preview("liq-shield-btc-std", principal, decimal.NewFromInt(20), "0xabc")
	require.NoError(t, err)
	require.Equal(t, "liq-shield-btc-std", sku.ID)

	// Premium can never exceed principal * feeCap.
	maxPremium := principal.Mul(sku.Pricing.FeeCap)
	require.True(t, q.PremiumUSDC.IsPositive())
	require.True(t, q.PremiumUSDC.LessThanOrEqual(maxPremium),
		"premium %s exceeds cap %s", q.PremiumUSDC, maxPremium)

	// Payout stays inside [principal*floor, principal*cap].
	require.True(t, q.PayoutUSDC.GreaterThanOrEqual(principal.Mul(sku.Pricing.PayoutFloor)))
	require.True(t, q.PayoutUSDC.LessThanOrEqual(principal.Mul(sku.Pricing.PayoutCap)))

	require.NotEmpty(t, q.IdempotencyKey)
	require.True(t, q.ExpiresAt.After(q.CreatedAt))
}

func TestPreviewRatiosMonotonicInLeverage(t *testing.T) {
	engine := newTestEngine()
	principal := decimal.NewFromInt(1000)

	low, _, err := engine.Preview("liq-shield-btc-std", principal, decimal.NewFromInt(5), "0xabc")
	require.NoError(t, err)
	high, _, err := engine.Preview("liq-shield-btc-std", principal, decimal.NewFromInt(50), "0xabc")
	require.NoError(t, err)

	// Higher leverage is riskier: fee up, payout down.
	require.True(t, high.FeeRatio.GreaterThan(low.FeeRatio))
	require.True(t, high.PayoutRatio.LessThan(low.PayoutRatio))
	require.True(t, high.PayoutRatio.GreaterThanOrEqual(decimal.RequireFromString("0.1")))
	require.True(t, high.FeeRatio.LessThanOrEqual(decimal.RequireFromString("0.15")))
}

func TestPreviewPayoutBoundByCapUSD(t *testing.T) {
	sku := testSKU()
	sku.PayoutCapUSD = decimal.NewFromInt(100)
	engine := newTestEngine(sku)

	q, _, err := engine.Preview(sku.ID, decimal.NewFromInt(5000), decimal.NewFromInt(5), "0xabc")
	require.NoError(t, err)
	require.True(t, q.PayoutUSDC.Equal(decimal.NewFromInt(100)),
		"payout %s should be clamped to cap", q.PayoutUSDC)
}

func TestPreviewRejectsOutOfRange(t *testing.T) {
	engine := newTestEngine()

	_, _, err := engine.Preview("liq-shield-btc-std", decimal.NewFromInt(200), decimal.NewFromInt(100), "0xabc")
	requireCode(t, err, models.ErrCodeOutOfRange)

	_, _, err = engine.Preview("liq-shield-btc-std", decimal.NewFromInt(10), decimal.NewFromInt(20), "0xabc")
	requireCode(t, err, models.ErrCodeOutOfRange)

	// Boundary values are inside the range.
	_, _, err = engine.Preview("liq-shield-btc-std", decimal.NewFromInt(50), decimal.NewFromInt(5), "0xabc")
	require.NoError(t, err)
	_, _, err = engine.Preview("liq-shield-btc-std", decimal.NewFromInt(5000), decimal.NewFromInt(50), "0xabc")
	require.NoError(t, err)
}

func TestPreviewRejectsUnknownOrDisabledSKU(t *testing.T) {
	disabled := testSKU()
	disabled.ID = "liq-shield-off"
	disabled.Enabled = false
	engine := newTestEngine(testSKU(), disabled)

	_, _, err := engine.Preview("no-such-sku", decimal.NewFromInt(200), decimal.NewFromInt(20), "0xabc")
	requireCode(t, err, models.ErrCodeSKUNotFound)

	_, _, err = engine.Preview("liq-shield-off", decimal.NewFromInt(200), decimal.NewFromInt(20), "0xabc")
	requireCode(t, err, models.ErrCodeSKUNotFound)
}

func TestPreviewPremiumScale(t *testing.T) {
	engine := newTestEngine()

	q, _, err := engine.Preview("liq-shield-btc-std", decimal.RequireFromString("333.333333"), decimal.NewFromInt(17), "0xabc")
	require.NoError(t, err)
	require.LessOrEqual(t, int32(-q.PremiumUSDC.Exponent()), int32(6), "premium must fit USDC precision")
	require.LessOrEqual(t, int32(-q.PayoutUSDC.Exponent()), int32(6), "payout must fit USDC precision")
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *models.ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %T", err)
	require.Equal(t, code, svcErr.Code)
}
