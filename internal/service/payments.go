package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/config"
	"github.com/liqpass/liqpass-backend/internal/events"
	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/store"
)

// PaymentService reconciles payment proofs against orders. A proof passes
// validation synchronously (token, recipient, amount, uniqueness) and is
// persisted pending; the chain watcher confirms it once the transfer is
// final on chain.
type PaymentService struct {
	store     store.Store
	chain     config.ChainConfig
	payments  config.PaymentsConfig
	publisher *events.Publisher
	logger    *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(st store.Store, chain config.ChainConfig, payments config.PaymentsConfig, publisher *events.Publisher, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:     st,
		chain:     chain,
		payments:  payments,
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitProof validates and records a payment proof for an order. Replaying
// the same transaction hash against the same order returns the existing
// proof; binding it to a different order is rejected. The order itself is
// untouched here: it transitions to paid only when the proof confirms.
func (s *PaymentService) SubmitProof(ctx context.Context, req *models.SubmitProofRequest) (*models.PaymentProof, error) {
	if err := s.validateProofRequest(req); err != nil {
		return nil, err
	}

	order, err := s.store.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return nil, models.NewOrderNotFoundError(req.OrderID.String())
		}
		return nil, models.NewDatabaseError("get order", err)
	}

	// Replay of a proof this order already carries.
	if existing, err := s.store.GetProofByTxHash(ctx, req.TxHash); err == nil {
		if existing.OrderID == order.ID {
			return existing, nil
		}
		return nil, models.NewDuplicateTxError(req.TxHash)
	} else if !errors.Is(err, models.ErrProofNotFound) {
		return nil, models.NewDatabaseError("get proof by tx hash", err)
	}

	if order.Status != models.OrderStatusPending {
		return nil, models.NewServiceError(models.ErrCodeOrderNotPending,
			"Order is not awaiting payment", models.ErrOrderNotPending).
			WithDetail("order_id", order.ID.String()).
			WithDetail("status", string(order.Status))
	}
	if order.QuoteExpired(time.Now().UTC()) {
		return nil, models.NewQuoteExpiredError(order.IdempotencyKey)
	}

	if err := s.reconcile(req, order); err != nil {
		return nil, err
	}

	amountUSDC := req.AmountMinUnit.Shift(-s.chain.TokenDecimals)
	proof := &models.PaymentProof{
		ID:            uuid.New(),
		OrderID:       order.ID,
		ChainID:       req.ChainID,
		Token:         req.Token,
		FromAddr:      req.FromAddr,
		ToAddr:        req.ToAddr,
		AmountMinUnit: req.AmountMinUnit,
		AmountUSDC:    amountUSDC,
		TxHash:        req.TxHash,
		BlockNumber:   req.BlockNumber,
		Status:        models.ProofStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.InsertProof(ctx, proof); err != nil {
		if errors.Is(err, models.ErrDuplicateTx) {
			// Lost an insert race. Resolve it the same way as the pre-check.
			existing, lookupErr := s.store.GetProofByTxHash(ctx, req.TxHash)
			if lookupErr == nil && existing.OrderID == order.ID {
				return existing, nil
			}
			return nil, models.NewDuplicateTxError(req.TxHash)
		}
		return nil, models.NewDatabaseError("insert proof", err)
	}
	return proof, nil
}

// ConfirmProof marks a proof confirmed and its order paid atomically. Invoked
// by the chain watcher once the transfer has enough confirmations, or
// directly in deployments that trust the submitted proof.
func (s *PaymentService) ConfirmProof(ctx context.Context, proofID uuid.UUID, blockNumber *uint64) (*models.PaymentProof, *models.Order, error) {
	proof, order, err := s.store.ConfirmProofAndMarkPaid(ctx, proofID, blockNumber)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrProofNotFound):
			return nil, nil, models.NewServiceError(models.ErrCodeProofNotFound,
				"Payment proof not found", err).WithDetail("proof_id", proofID.String())
		case errors.Is(err, models.ErrOrderNotPending):
			return nil, nil, models.NewServiceError(models.ErrCodeOrderNotPending,
				"Order is no longer awaiting payment", err).WithDetail("proof_id", proofID.String())
		case errors.Is(err, models.ErrInvalidTransition):
			return nil, nil, models.NewServiceError(models.ErrCodeInvalidTransition,
				"Proof is not pending", err).WithDetail("proof_id", proofID.String())
		default:
			return nil, nil, models.NewDatabaseError("confirm proof", err)
		}
	}

	s.publisher.PaymentConfirmed(proof, order)
	return proof, order, nil
}

// RejectProof marks a pending proof rejected after on-chain verification
// found it does not describe a real, matching transfer.
func (s *PaymentService) RejectProof(ctx context.Context, proofID uuid.UUID, reason string) error {
	proof, err := s.store.GetProof(ctx, proofID)
	if err != nil {
		return models.NewDatabaseError("get proof", err)
	}

	if err := s.store.RejectProof(ctx, proofID); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return models.NewServiceError(models.ErrCodeInvalidTransition,
				"Proof is not pending", err).WithDetail("proof_id", proofID.String())
		}
		return models.NewDatabaseError("reject proof", err)
	}

	s.logger.Warn("Payment proof rejected",
		zap.String("proof_id", proofID.String()),
		zap.String("tx_hash", proof.TxHash),
		zap.String("reason", reason),
	)
	proof.Status = models.ProofStatusRejected
	s.publisher.PaymentRejected(proof, reason)
	return nil
}

// GetProof retrieves a payment proof by id
func (s *PaymentService) GetProof(ctx context.Context, id uuid.UUID) (*models.PaymentProof, error) {
	proof, err := s.store.GetProof(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrProofNotFound) {
			return nil, models.NewServiceError(models.ErrCodeProofNotFound,
				"Payment proof not found", err).WithDetail("proof_id", id.String())
		}
		return nil, models.NewDatabaseError("get proof", err)
	}
	return proof, nil
}

// reconcile checks the declared transfer against the order and platform
// configuration: right token for the chain, right recipient, enough value.
func (s *PaymentService) reconcile(req *models.SubmitProofRequest, order *models.Order) error {
	expectedToken, ok := s.chain.USDCContracts[req.ChainID]
	if !ok {
		return models.NewServiceError(models.ErrCodeTokenMismatch,
			"No USDC contract configured for chain", models.ErrTokenMismatch).
			WithDetail("chain_id", req.ChainID)
	}
	if !sameAddress(req.Token, expectedToken) {
		return models.NewServiceError(models.ErrCodeTokenMismatch,
			"Token is not the configured USDC contract", models.ErrTokenMismatch).
			WithDetail("token", req.Token).
			WithDetail("expected", expectedToken)
	}

	if !sameAddress(req.ToAddr, s.payments.VaultAddress) {
		return models.NewServiceError(models.ErrCodeRecipientMismatch,
			"Recipient is not the platform vault", models.ErrRecipientMismatch).
			WithDetail("to_addr", req.ToAddr).
			WithDetail("vault", s.payments.VaultAddress)
	}

	amountUSDC := req.AmountMinUnit.Shift(-s.chain.TokenDecimals)
	switch s.payments.AmountMatch {
	case config.AmountMatchMinimum:
		if amountUSDC.LessThan(order.PremiumUSDC) {
			return amountError(amountUSDC, order.PremiumUSDC, models.ErrAmountInsufficient)
		}
	default:
		// Exact match is the default and the strictest policy.
		if !amountUSDC.Equal(order.PremiumUSDC) {
			return amountError(amountUSDC, order.PremiumUSDC, models.ErrAmountMismatch)
		}
	}
	return nil
}

func (s *PaymentService) validateProofRequest(req *models.SubmitProofRequest) error {
	if req.OrderID == uuid.Nil {
		return models.NewValidationError("orderId", "order id is required")
	}
	if req.TxHash == "" {
		return models.NewValidationError("txHash", "transaction hash is required")
	}
	if !strings.HasPrefix(req.TxHash, "0x") || len(req.TxHash) != 66 {
		return models.NewValidationError("txHash", "transaction hash must be a 0x-prefixed 32-byte hex string")
	}
	if !common.IsHexAddress(req.Token) {
		return models.NewValidationError("token", "token must be a hex address")
	}
	if !common.IsHexAddress(req.FromAddr) {
		return models.NewValidationError("fromAddr", "sender must be a hex address")
	}
	if !common.IsHexAddress(req.ToAddr) {
		return models.NewValidationError("toAddr", "recipient must be a hex address")
	}
	if !req.AmountMinUnit.IsPositive() {
		return models.NewValidationError("amountMinUnit", "amount must be positive")
	}
	return nil
}

func amountError(got, want decimal.Decimal, cause error) error {
	return models.NewServiceError(models.ErrCodeAmountInsufficient,
		"Transfer amount does not satisfy order premium", cause).
		WithDetail("amount_usdc", got.String()).
		WithDetail("premium_usdc", want.String())
}

func sameAddress(a, b string) bool {
	return common.HexToAddress(a) == common.HexToAddress(b)
}
