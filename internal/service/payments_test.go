package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/config"
	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/store"
)

const (
	testChainID   = int64(42161)
	testUSDC      = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	testVault     = "0x3333333333333333333333333333333333333333"
	testSender    = "0x4444444444444444444444444444444444444444"
	premiumAmount = 30 // matches seedOrder's PremiumUSDC
)

func newTestPaymentService(t *testing.T, policy config.AmountMatchPolicy) (*PaymentService, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewPaymentService(st,
		config.ChainConfig{
			ChainID:       testChainID,
			Confirmations: 12,
			TokenDecimals: 6,
			USDCContracts: map[int64]string{testChainID: testUSDC},
		},
		config.PaymentsConfig{
			VaultAddress: testVault,
			AmountMatch:  policy,
		},
		nil, zap.NewNop())
	return svc, st
}

func testTxHash(seed string) string {
	return "0x" + strings.Repeat(seed, 64/len(seed))[:64]
}

func proofRequest(orderID uuid.UUID, txSeed string, minUnits int64) *models.SubmitProofRequest {
	return &models.SubmitProofRequest{
		OrderID:       orderID,
		ChainID:       testChainID,
		Token:         testUSDC,
		FromAddr:      testSender,
		ToAddr:        testVault,
		AmountMinUnit: decimal.NewFromInt(minUnits),
		TxHash:        testTxHash(txSeed),
	}
}

func TestSubmitProofExactMatch(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	order := seedOrder(t, st, nil)

	proof, err := svc.SubmitProof(context.Background(), proofRequest(order.ID, "a", premiumAmount*1_000_000))
	require.NoError(t, err)
	require.Equal(t, models.ProofStatusPending, proof.Status)
	require.True(t, proof.AmountUSDC.Equal(decimal.NewFromInt(premiumAmount)))

	// Submission alone never flips the order.
	got, err := st.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, got.Status)
}

func TestSubmitProofAmountPolicies(t *testing.T) {
	ctx := context.Background()

	// Exact: below and above both rejected, order untouched.
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	order := seedOrder(t, st, nil)

	_, err := svc.SubmitProof(ctx, proofRequest(order.ID, "b", premiumAmount*1_000_000-1))
	requireServiceCode(t, err, models.ErrCodeAmountInsufficient)
	_, err = svc.SubmitProof(ctx, proofRequest(order.ID, "c", premiumAmount*1_000_000+5))
	requireServiceCode(t, err, models.ErrCodeAmountInsufficient)

	got, err := st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, got.Status)

	// Minimum: overpay accepted, underpay rejected.
	svc, st = newTestPaymentService(t, config.AmountMatchMinimum)
	order = seedOrder(t, st, nil)

	_, err = svc.SubmitProof(ctx, proofRequest(order.ID, "d", premiumAmount*1_000_000-1))
	requireServiceCode(t, err, models.ErrCodeAmountInsufficient)

	proof, err := svc.SubmitProof(ctx, proofRequest(order.ID, "e", premiumAmount*1_000_000+5))
	require.NoError(t, err)
	require.Equal(t, models.ProofStatusPending, proof.Status)
}

func TestSubmitProofTokenAndRecipientChecks(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	order := seedOrder(t, st, nil)
	ctx := context.Background()

	wrongToken := proofRequest(order.ID, "1", premiumAmount*1_000_000)
	wrongToken.Token = "0x5555555555555555555555555555555555555555"
	_, err := svc.SubmitProof(ctx, wrongToken)
	requireServiceCode(t, err, models.ErrCodeTokenMismatch)

	wrongChain := proofRequest(order.ID, "2", premiumAmount*1_000_000)
	wrongChain.ChainID = 1
	_, err = svc.SubmitProof(ctx, wrongChain)
	requireServiceCode(t, err, models.ErrCodeTokenMismatch)

	wrongVault := proofRequest(order.ID, "3", premiumAmount*1_000_000)
	wrongVault.ToAddr = testSender
	_, err = svc.SubmitProof(ctx, wrongVault)
	requireServiceCode(t, err, models.ErrCodeRecipientMismatch)

	// Same address, different checksum casing, still matches.
	lowered := proofRequest(order.ID, "4", premiumAmount*1_000_000)
	lowered.Token = strings.ToLower(testUSDC)
	_, err = svc.SubmitProof(ctx, lowered)
	require.NoError(t, err)
}

func TestSubmitProofDuplicateTx(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	first := seedOrder(t, st, nil)
	second := seedOrder(t, st, nil)
	ctx := context.Background()

	proof, err := svc.SubmitProof(ctx, proofRequest(first.ID, "f", premiumAmount*1_000_000))
	require.NoError(t, err)

	// Replaying the same hash against the same order is idempotent.
	replayed, err := svc.SubmitProof(ctx, proofRequest(first.ID, "f", premiumAmount*1_000_000))
	require.NoError(t, err)
	require.Equal(t, proof.ID, replayed.ID)

	// Binding it to a different order is not.
	_, err = svc.SubmitProof(ctx, proofRequest(second.ID, "f", premiumAmount*1_000_000))
	requireServiceCode(t, err, models.ErrCodeDuplicateTx)
}

func TestSubmitProofOrderStateGuards(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	ctx := context.Background()

	expired := seedOrder(t, st, func(o *models.Order) {
		o.QuoteExpiresAt = time.Now().UTC().Add(-time.Minute)
	})
	_, err := svc.SubmitProof(ctx, proofRequest(expired.ID, "9", premiumAmount*1_000_000))
	requireServiceCode(t, err, models.ErrCodeQuoteExpired)

	cancelled := seedOrder(t, st, func(o *models.Order) {
		o.Status = models.OrderStatusCancelled
	})
	_, err = svc.SubmitProof(ctx, proofRequest(cancelled.ID, "8", premiumAmount*1_000_000))
	requireServiceCode(t, err, models.ErrCodeOrderNotPending)

	_, err = svc.SubmitProof(ctx, proofRequest(uuid.New(), "7", premiumAmount*1_000_000))
	requireServiceCode(t, err, models.ErrCodeOrderNotFound)
}

func TestConfirmProofMarksOrderPaidAtomically(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	order := seedOrder(t, st, nil)
	ctx := context.Background()

	proof, err := svc.SubmitProof(ctx, proofRequest(order.ID, "a", premiumAmount*1_000_000))
	require.NoError(t, err)

	block := uint64(19_000_000)
	confirmedProof, paidOrder, err := svc.ConfirmProof(ctx, proof.ID, &block)
	require.NoError(t, err)

	require.Equal(t, models.ProofStatusConfirmed, confirmedProof.Status)
	require.NotNil(t, confirmedProof.ConfirmedAt)
	require.Equal(t, block, *confirmedProof.BlockNumber)

	require.Equal(t, models.OrderStatusPaid, paidOrder.Status)
	require.Equal(t, models.PaymentStatusPaid, paidOrder.PaymentStatus)
	require.NotNil(t, paidOrder.PaymentTx)
	require.Equal(t, proof.TxHash, *paidOrder.PaymentTx)
	require.NotNil(t, paidOrder.PaymentProofID)
	require.Equal(t, proof.ID, *paidOrder.PaymentProofID)

	// Confirmation replay returns the settled state unchanged.
	again, againOrder, err := svc.ConfirmProof(ctx, proof.ID, &block)
	require.NoError(t, err)
	require.Equal(t, models.ProofStatusConfirmed, again.Status)
	require.Equal(t, models.OrderStatusPaid, againOrder.Status)

	// A paid order accepts no further proofs.
	_, err = svc.SubmitProof(ctx, proofRequest(order.ID, "b", premiumAmount*1_000_000))
	requireServiceCode(t, err, models.ErrCodeOrderNotPending)
}

func TestRejectProofLeavesOrderPending(t *testing.T) {
	svc, st := newTestPaymentService(t, config.AmountMatchExact)
	order := seedOrder(t, st, nil)
	ctx := context.Background()

	proof, err := svc.SubmitProof(ctx, proofRequest(order.ID, "c", premiumAmount*1_000_000))
	require.NoError(t, err)

	require.NoError(t, svc.RejectProof(ctx, proof.ID, "no matching transfer"))

	got, err := svc.GetProof(ctx, proof.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProofStatusRejected, got.Status)

	gotOrder, err := st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, gotOrder.Status)

	// A rejected proof cannot be confirmed afterwards.
	_, _, err = svc.ConfirmProof(ctx, proof.ID, nil)
	requireServiceCode(t, err, models.ErrCodeInvalidTransition)
}
