package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/quote"
	"github.com/liqpass/liqpass-backend/internal/store"
)

const (
	testSigningSecret = "0123456789abcdef0123456789abcdef"
	testWallet        = "0x1111111111111111111111111111111111111111"
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

func newTestOrderService(t *testing.T) (*OrderService, *store.MemoryStore, *quote.Signer) {
	t.Helper()
	st := store.NewMemoryStore()
	logger := zap.NewNop()
	engine := quote.NewEngine(quote.NewStaticCatalog([]models.SKU{testSKU()}), logger)
	signer := quote.NewSigner(testSigningSecret, "liqpass-backend")
	svc := NewOrderService(st, engine, signer, nil, logger)
	return svc, st, signer
}

func previewVoucher(t *testing.T, svc *OrderService) *models.PreviewResponse {
	t.Helper()
	resp, err := svc.Preview(&models.PreviewRequest{
		SKUID:     "liq-shield-btc-std",
		Principal: decimal.NewFromInt(200),
		Leverage:  decimal.NewFromInt(20),
		Wallet:    testWallet,
	})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.NotEmpty(t, resp.Voucher)
	return resp
}

func TestCreateOrderFromVoucher(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	preview := previewVoucher(t, svc)

	order, created, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		Voucher: preview.Voucher,
	})
	require.NoError(t, err)
	require.True(t, created)

	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, preview.Quote.IdempotencyKey, order.IdempotencyKey)
	require.True(t, order.PremiumUSDC.Equal(preview.Quote.PremiumUSDC))
	require.True(t, order.PayoutUSDC.Equal(preview.Quote.PayoutUSDC))
	require.Equal(t, testWallet, order.Wallet)
	require.Equal(t, "usdc", order.PaymentMethod)
}

func TestCreateOrderReplayReturnsSameOrder(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	preview := previewVoucher(t, svc)
	req := &models.CreateOrderRequest{Voucher: preview.Voucher}

	first, created, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateOrderConcurrentSameKey(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	preview := previewVoucher(t, svc)

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		orderIDs = make(map[uuid.UUID]int)
		creates  int
		errs     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, created, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
				Voucher: preview.Voucher,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			orderIDs[order.ID]++
			if created {
				creates++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)

	require.Len(t, orderIDs, 1, "all callers must observe the same order")
	require.Equal(t, 1, creates, "exactly one call may report creation")
}

func TestCreateOrderExpiredVoucher(t *testing.T) {
	svc, st, signer := newTestOrderService(t)

	now := time.Now().UTC()
	expired := &models.Quote{
		IdempotencyKey: uuid.NewString(),
		SKUID:          "liq-shield-btc-std",
		Principal:      decimal.NewFromInt(200),
		Leverage:       decimal.NewFromInt(20),
		FeeRatio:       decimal.RequireFromString("0.1"),
		PayoutRatio:    decimal.RequireFromString("0.3"),
		PremiumUSDC:    decimal.NewFromInt(20),
		PayoutUSDC:     decimal.NewFromInt(60),
		Wallet:         testWallet,
		CreatedAt:      now.Add(-20 * time.Minute),
		ExpiresAt:      now.Add(-10 * time.Minute),
	}
	voucher, err := signer.Sign(expired)
	require.NoError(t, err)

	_, _, err = svc.CreateOrder(context.Background(), &models.CreateOrderRequest{Voucher: voucher})
	requireServiceCode(t, err, models.ErrCodeQuoteExpired)

	// No order row may exist after the rejection.
	_, err = st.GetOrderByIdempotencyKey(context.Background(), expired.IdempotencyKey)
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestCreateOrderCrossCheckMismatch(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	preview := previewVoucher(t, svc)

	_, _, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		Voucher:     preview.Voucher,
		PremiumUSDC: preview.Quote.PremiumUSDC.Add(decimal.NewFromInt(1)),
	})
	requireServiceCode(t, err, models.ErrCodeQuoteInvalid)

	_, _, err = svc.CreateOrder(context.Background(), &models.CreateOrderRequest{
		Voucher: preview.Voucher,
		Wallet:  "0x2222222222222222222222222222222222222222",
	})
	requireServiceCode(t, err, models.ErrCodeQuoteInvalid)
}

func TestCancelOrderTransitions(t *testing.T) {
	svc, _, _ := newTestOrderService(t)
	preview := previewVoucher(t, svc)

	order, _, err := svc.CreateOrder(context.Background(), &models.CreateOrderRequest{Voucher: preview.Voucher})
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	// Cancelled orders are immutable.
	_, err = svc.CancelOrder(context.Background(), order.ID)
	requireServiceCode(t, err, models.ErrCodeOrderNotPending)

	_, err = svc.CancelOrder(context.Background(), uuid.New())
	requireServiceCode(t, err, models.ErrCodeOrderNotFound)
}

func TestExpireStaleOrders(t *testing.T) {
	svc, st, _ := newTestOrderService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := seedOrder(t, st, func(o *models.Order) {
		o.QuoteExpiresAt = now.Add(-time.Minute)
	})
	fresh := seedOrder(t, st, func(o *models.Order) {
		o.QuoteExpiresAt = now.Add(10 * time.Minute)
	})
	paid := seedOrder(t, st, func(o *models.Order) {
		o.QuoteExpiresAt = now.Add(-time.Minute)
		o.Status = models.OrderStatusPaid
		o.PaymentStatus = models.PaymentStatusPaid
	})

	count, err := svc.ExpireStaleOrders(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	got, err := st.GetOrder(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusExpired, got.Status)

	got, err = st.GetOrder(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, got.Status)

	// Paid orders are never expired by the sweeper.
	got, err = st.GetOrder(ctx, paid.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, got.Status)
}

// seedOrder inserts a pending order directly, bypassing the voucher path.
func seedOrder(t *testing.T, st *store.MemoryStore, mutate func(*models.Order)) *models.Order {
	t.Helper()
	now := time.Now().UTC()
	order := &models.Order{
		ID:             uuid.New(),
		SKUID:          "liq-shield-btc-std",
		Principal:      decimal.NewFromInt(200),
		Leverage:       decimal.NewFromInt(20),
		Wallet:         testWallet,
		PremiumUSDC:    decimal.NewFromInt(30),
		PayoutUSDC:     decimal.NewFromInt(100),
		FeeRatio:       decimal.RequireFromString("0.15"),
		PayoutRatio:    decimal.RequireFromString("0.5"),
		IdempotencyKey: uuid.NewString(),
		QuoteExpiresAt: now.Add(10 * time.Minute),
		PaymentMethod:  "usdc",
		PaymentStatus:  models.PaymentStatusPending,
		Status:         models.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mutate != nil {
		mutate(order)
	}
	inserted, created, err := st.InsertOrder(context.Background(), order)
	require.NoError(t, err)
	require.True(t, created)
	return inserted
}

func requireServiceCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *models.ServiceError
	require.True(t, errors.As(err, &svcErr), "expected ServiceError, got %T: %v", err, err)
	require.Equal(t, code, svcErr.Code)
}
