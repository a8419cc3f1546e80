package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/events"
	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/quote"
	"github.com/liqpass/liqpass-backend/internal/store"
)

// OrderService owns the quote preview and order lifecycle operations.
type OrderService struct {
	store     store.Store
	engine    *quote.Engine
	signer    *quote.Signer
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st store.Store, engine *quote.Engine, signer *quote.Signer, publisher *events.Publisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		store:     st,
		engine:    engine,
		signer:    signer,
		publisher: publisher,
		logger:    logger,
	}
}

// Preview computes a quote and signs it into a voucher. Nothing is persisted;
// the voucher is the only artifact and carries everything order creation needs.
func (s *OrderService) Preview(req *models.PreviewRequest) (*models.PreviewResponse, error) {
	if err := validatePreviewRequest(req); err != nil {
		return nil, err
	}

	q, sku, err := s.engine.Preview(req.SKUID, req.Principal, req.Leverage, req.Wallet)
	if err != nil {
		return nil, err
	}

	voucher, err := s.signer.Sign(q)
	if err != nil {
		s.logger.Error("Failed to sign quote voucher", zap.Error(err))
		return nil, models.NewServiceError(models.ErrCodeConfigError, "Failed to issue quote voucher", err)
	}

	return &models.PreviewResponse{
		OK:      true,
		Quote:   q,
		SKU:     sku,
		Voucher: voucher,
	}, nil
}

// CreateOrder turns a previously issued quote voucher into a durable order.
// The voucher is the source of truth for pricing: the request's explicit
// fields must echo it exactly or the call is rejected. Creation is idempotent
// on the quote's idempotency key, so any number of retries, concurrent or
// not, yield exactly one order. The bool result reports whether this call
// created the row.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, bool, error) {
	if req.Voucher == "" {
		return nil, false, models.NewValidationError("voucher", "voucher is required")
	}

	q, err := s.signer.Verify(req.Voucher)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC()
	if q.Expired(now) {
		return nil, false, models.NewQuoteExpiredError(q.IdempotencyKey)
	}

	if err := s.crossCheck(req, q); err != nil {
		return nil, false, err
	}

	order := &models.Order{
		ID:             uuid.New(),
		SKUID:          q.SKUID,
		Principal:      q.Principal,
		Leverage:       q.Leverage,
		Wallet:         q.Wallet,
		PremiumUSDC:    q.PremiumUSDC,
		PayoutUSDC:     q.PayoutUSDC,
		FeeRatio:       q.FeeRatio,
		PayoutRatio:    q.PayoutRatio,
		IdempotencyKey: q.IdempotencyKey,
		QuoteExpiresAt: q.ExpiresAt,
		PaymentMethod:  paymentMethodOrDefault(req.PaymentMethod),
		PaymentStatus:  models.PaymentStatusPending,
		OrderRef:       req.OrderRef,
		Exchange:       req.Exchange,
		Pair:           req.Pair,
		Status:         models.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, wasNew, err := s.store.InsertOrder(ctx, order)
	if err != nil {
		return nil, false, models.NewDatabaseError("insert order", err)
	}

	if wasNew {
		s.publisher.OrderCreated(created)
	} else {
		s.logger.Info("Order creation replayed",
			zap.String("order_id", created.ID.String()),
			zap.String("idempotency_key", created.IdempotencyKey),
		)
	}
	return created, wasNew, nil
}

// GetOrder retrieves an order by id
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, models.NewOrderNotFoundError(id.String())
		}
		return nil, models.NewDatabaseError("get order", err)
	}
	return order, nil
}

// CancelOrder cancels a pending order. Paid, expired and already-cancelled
// orders are immutable.
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.store.CancelOrder(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOrderNotFound):
			return nil, models.NewOrderNotFoundError(id.String())
		case errors.Is(err, models.ErrInvalidTransition):
			return nil, models.NewServiceError(models.ErrCodeOrderNotPending,
				"Order is not pending", models.ErrOrderNotPending).
				WithDetail("order_id", id.String()).
				WithDetail("status", string(order.Status))
		default:
			return nil, models.NewDatabaseError("cancel order", err)
		}
	}

	s.publisher.OrderCancelled(order)
	return order, nil
}

// ExpireStaleOrders retires every pending order whose quote window lapsed.
func (s *OrderService) ExpireStaleOrders(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	count, err := s.store.ExpireStaleOrders(ctx, now)
	if err != nil {
		return 0, models.NewDatabaseError("expire stale orders", err)
	}
	if count > 0 {
		s.logger.Info("Expired stale orders", zap.Int64("count", count))
		s.publisher.OrdersExpired(count, now)
	}
	return count, nil
}

// RunExpirySweeper periodically expires stale orders until ctx is cancelled.
func (s *OrderService) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Order expiry sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Order expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.ExpireStaleOrders(ctx); err != nil {
				s.logger.Error("Expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// crossCheck rejects a request whose explicit fields disagree with the signed
// voucher. A mismatch means the client is trying to buy something other than
// what was quoted.
func (s *OrderService) crossCheck(req *models.CreateOrderRequest, q *models.Quote) error {
	if req.SKUID != "" && req.SKUID != q.SKUID {
		return voucherMismatch("skuId")
	}
	if !req.Principal.IsZero() && !req.Principal.Equal(q.Principal) {
		return voucherMismatch("principal")
	}
	if !req.Leverage.IsZero() && !req.Leverage.Equal(q.Leverage) {
		return voucherMismatch("leverage")
	}
	if req.Wallet != "" && !strings.EqualFold(req.Wallet, q.Wallet) {
		return voucherMismatch("wallet")
	}
	if !req.PremiumUSDC.IsZero() && !req.PremiumUSDC.Equal(q.PremiumUSDC) {
		return voucherMismatch("premiumUSDC")
	}
	if req.IdempotencyKey != "" && req.IdempotencyKey != q.IdempotencyKey {
		return voucherMismatch("idempotencyKey")
	}
	return nil
}

func voucherMismatch(field string) error {
	return models.NewServiceError(models.ErrCodeQuoteInvalid,
		"Request does not match quoted voucher", models.ErrQuoteInvalid).
		WithDetail("field", field)
}

func paymentMethodOrDefault(method string) string {
	if method == "" {
		return "usdc"
	}
	return method
}

func validatePreviewRequest(req *models.PreviewRequest) error {
	if req.SKUID == "" {
		return models.NewValidationError("skuId", "sku id is required")
	}
	if !req.Principal.IsPositive() {
		return models.NewValidationError("principal", "principal must be positive")
	}
	if !req.Leverage.IsPositive() {
		return models.NewValidationError("leverage", "leverage must be positive")
	}
	if req.Wallet == "" {
		return models.NewValidationError("wallet", "wallet is required")
	}
	return nil
}
