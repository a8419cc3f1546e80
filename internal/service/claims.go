package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/events"
	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/store"
)

// ClaimService owns the claim lifecycle: filing against a paid order, the
// review decision, and the payout leg.
type ClaimService struct {
	store     store.Store
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewClaimService creates a new claim service
func NewClaimService(st store.Store, publisher *events.Publisher, logger *zap.Logger) *ClaimService {
	return &ClaimService{
		store:     st,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateClaim files a claim against a paid order. The order must be paid,
// the claimed amount must not exceed the order's payout ceiling, and at most
// one claim may ever exist per order.
func (s *ClaimService) CreateClaim(ctx context.Context, req *models.CreateClaimRequest) (*models.ClaimRecord, error) {
	if err := validateClaimRequest(req); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, models.NewOrderNotFoundError(req.OrderID.String())
		}
		return nil, models.NewDatabaseError("get order", err)
	}

	if order.Status != models.OrderStatusPaid {
		return nil, models.NewServiceError(models.ErrCodeOrderNotPaid,
			"Order has no active coverage", models.ErrOrderNotPaid).
			WithDetail("order_id", order.ID.String()).
			WithDetail("status", string(order.Status))
	}
	if !strings.EqualFold(req.WalletAddress, order.Wallet) {
		return nil, models.NewValidationError("walletAddress", "wallet does not own this order")
	}
	if req.AmountUSDC.GreaterThan(order.PayoutUSDC) {
		return nil, models.NewServiceError(models.ErrCodeAmountExceedsPayout,
			"Claimed amount exceeds order payout ceiling", models.ErrAmountExceedsPayout).
			WithDetail("amount_usdc", req.AmountUSDC.String()).
			WithDetail("payout_usdc", order.PayoutUSDC.String())
	}

	if existing, err := s.store.GetClaimByOrder(ctx, order.ID); err == nil {
		return nil, models.NewServiceError(models.ErrCodeClaimExists,
			"A claim is already filed for this order", models.ErrClaimExists).
			WithDetail("order_id", order.ID.String()).
			WithDetail("claim_id", existing.ID.String())
	} else if !errors.Is(err, models.ErrClaimNotFound) {
		return nil, models.NewDatabaseError("get claim by order", err)
	}

	now := time.Now().UTC()
	claim := &models.ClaimRecord{
		ID:            uuid.New(),
		OrderID:       order.ID,
		UserID:        req.UserID,
		WalletAddress: req.WalletAddress,
		ClaimType:     claimTypeOrDefault(req.ClaimType),
		Status:        models.ClaimStatusSubmitted,
		AmountUSDC:    req.AmountUSDC,
		Description:   req.Description,
		EvidenceFiles: req.EvidenceFiles,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.InsertClaim(ctx, claim); err != nil {
		if errors.Is(err, models.ErrClaimExists) {
			return nil, models.NewServiceError(models.ErrCodeClaimExists,
				"A claim is already filed for this order", err).
				WithDetail("order_id", order.ID.String())
		}
		return nil, models.NewDatabaseError("insert claim", err)
	}

	s.publisher.ClaimFiled(claim)
	return claim, nil
}

// GetClaim retrieves a claim by id
func (s *ClaimService) GetClaim(ctx context.Context, id uuid.UUID) (*models.ClaimRecord, error) {
	claim, err := s.store.GetClaim(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return nil, claimNotFound(id)
		}
		return nil, models.NewDatabaseError("get claim", err)
	}
	return claim, nil
}

// ListClaimsByWallet lists claims filed by a wallet, newest first
func (s *ClaimService) ListClaimsByWallet(ctx context.Context, wallet string) ([]models.ClaimRecord, error) {
	claims, err := s.store.ListClaimsByWallet(ctx, wallet)
	if err != nil {
		return nil, models.NewDatabaseError("list claims", err)
	}
	return claims, nil
}

// StartReview moves a submitted claim into review.
func (s *ClaimService) StartReview(ctx context.Context, id uuid.UUID) (*models.ClaimRecord, error) {
	claim, err := s.store.TransitionClaim(ctx, id,
		[]models.ClaimStatus{models.ClaimStatusSubmitted},
		models.ClaimStatusUnderReview, nil)
	if err != nil {
		return nil, s.transitionError(id, err)
	}

	s.publisher.ClaimDecided(claim)
	return claim, nil
}

// DecideClaim records the review outcome for a claim. Decision must be
// "approved" or "rejected" and the claim must still be reviewable.
func (s *ClaimService) DecideClaim(ctx context.Context, id uuid.UUID, decision string, reviewNotes *string) (*models.ClaimRecord, error) {
	var target models.ClaimStatus
	switch decision {
	case string(models.ClaimStatusApproved):
		target = models.ClaimStatusApproved
	case string(models.ClaimStatusRejected):
		target = models.ClaimStatusRejected
	default:
		return nil, models.NewValidationError("decision", `decision must be "approved" or "rejected"`)
	}

	claim, err := s.store.TransitionClaim(ctx, id,
		[]models.ClaimStatus{models.ClaimStatusSubmitted, models.ClaimStatusUnderReview},
		target, reviewNotes)
	if err != nil {
		return nil, s.transitionError(id, err)
	}

	s.logger.Info("Claim decided",
		zap.String("claim_id", id.String()),
		zap.String("decision", decision),
	)
	s.publisher.ClaimDecided(claim)
	return claim, nil
}

// RecordPayout marks an approved claim paid. The payout amount defaults to
// the approved claim amount and may never exceed it.
func (s *ClaimService) RecordPayout(ctx context.Context, id uuid.UUID, txHash string, amount *decimal.Decimal) (*models.ClaimRecord, error) {
	if txHash == "" {
		return nil, models.NewValidationError("payoutTxHash", "payout transaction hash is required")
	}

	claim, err := s.store.GetClaim(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrClaimNotFound) {
			return nil, claimNotFound(id)
		}
		return nil, models.NewDatabaseError("get claim", err)
	}

	payout := claim.AmountUSDC
	if amount != nil {
		if amount.GreaterThan(claim.AmountUSDC) {
			return nil, models.NewServiceError(models.ErrCodeAmountExceedsPayout,
				"Payout exceeds approved claim amount", models.ErrAmountExceedsPayout).
				WithDetail("payout_usdc", amount.String()).
				WithDetail("approved_usdc", claim.AmountUSDC.String())
		}
		payout = *amount
	}

	updated, err := s.store.RecordClaimPayout(ctx, id, txHash, payout)
	if err != nil {
		return nil, s.transitionError(id, err)
	}

	s.publisher.ClaimPaid(updated)
	return updated, nil
}

// CancelClaim withdraws a claim that has not yet reached a decision.
func (s *ClaimService) CancelClaim(ctx context.Context, id uuid.UUID) (*models.ClaimRecord, error) {
	claim, err := s.store.TransitionClaim(ctx, id,
		[]models.ClaimStatus{models.ClaimStatusPending, models.ClaimStatusSubmitted, models.ClaimStatusUnderReview},
		models.ClaimStatusCancelled, nil)
	if err != nil {
		return nil, s.transitionError(id, err)
	}

	s.publisher.ClaimDecided(claim)
	return claim, nil
}

func (s *ClaimService) transitionError(id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, models.ErrClaimNotFound):
		return claimNotFound(id)
	case errors.Is(err, models.ErrInvalidTransition):
		return models.NewServiceError(models.ErrCodeInvalidTransition,
			"Claim cannot transition from its current status", err).
			WithDetail("claim_id", id.String())
	default:
		return models.NewDatabaseError("transition claim", err)
	}
}

func claimNotFound(id uuid.UUID) error {
	return models.NewServiceError(models.ErrCodeClaimNotFound,
		"Claim not found", models.ErrClaimNotFound).
		WithDetail("claim_id", id.String())
}

func claimTypeOrDefault(claimType string) string {
	if claimType == "" {
		return "liquidation"
	}
	return claimType
}

func validateClaimRequest(req *models.CreateClaimRequest) error {
	if req.OrderID == uuid.Nil {
		return models.NewValidationError("orderId", "order id is required")
	}
	if req.WalletAddress == "" {
		return models.NewValidationError("walletAddress", "wallet address is required")
	}
	if !req.AmountUSDC.IsPositive() {
		return models.NewValidationError("amountUSDC", "amount must be positive")
	}
	return nil
}
