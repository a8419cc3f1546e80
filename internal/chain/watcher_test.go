package chain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

type settleRecorder struct {
	confirmErr error
	confirmed  []uuid.UUID
	rejected   map[uuid.UUID]string
}

func (r *settleRecorder) ConfirmProof(_ context.Context, id uuid.UUID, _ *uint64) (*models.PaymentProof, *models.Order, error) {
	r.confirmed = append(r.confirmed, id)
	return nil, nil, r.confirmErr
}

func (r *settleRecorder) RejectProof(_ context.Context, id uuid.UUID, reason string) error {
	if r.rejected == nil {
		r.rejected = make(map[uuid.UUID]string)
	}
	r.rejected[id] = reason
	return nil
}

func newTestWatcher(rec *settleRecorder) *Watcher {
	return &Watcher{confirmer: rec, logger: zap.NewNop()}
}

func pendingProof(createdAt time.Time) *models.PaymentProof {
	proof := testProof(30_000000)
	proof.ID = uuid.New()
	proof.TxHash = "0x" + strings.Repeat("ab", 32)
	proof.Status = models.ProofStatusPending
	proof.CreatedAt = createdAt
	return proof
}

func TestSettleConfirmsVerifiedProof(t *testing.T) {
	rec := &settleRecorder{}
	w := newTestWatcher(rec)
	proof := pendingProof(time.Now().UTC())

	block := uint64(19_000_000)
	w.settle(context.Background(), proof, &TransferCheck{Confirmed: true, Seen: true, BlockNumber: &block})

	require.Equal(t, []uuid.UUID{proof.ID}, rec.confirmed)
	require.Empty(t, rec.rejected)
}

func TestSettleRejectsSupersededProof(t *testing.T) {
	rec := &settleRecorder{
		confirmErr: models.NewServiceError(models.ErrCodeOrderNotPending,
			"Order is no longer awaiting payment", models.ErrOrderNotPending),
	}
	w := newTestWatcher(rec)
	proof := pendingProof(time.Now().UTC())

	w.settle(context.Background(), proof, &TransferCheck{Confirmed: true, Seen: true})

	require.Equal(t, ReasonOrderSettled, rec.rejected[proof.ID])
}

func TestSettleRejectsOnChainMismatch(t *testing.T) {
	rec := &settleRecorder{}
	w := newTestWatcher(rec)
	proof := pendingProof(time.Now().UTC())

	w.settle(context.Background(), proof, &TransferCheck{Rejected: true, Reason: ReasonNoMatchingTransfer})

	require.Empty(t, rec.confirmed)
	require.Equal(t, ReasonNoMatchingTransfer, rec.rejected[proof.ID])
}

func TestSettleStaleUnseenProofRejected(t *testing.T) {
	rec := &settleRecorder{}
	w := newTestWatcher(rec)

	stale := pendingProof(time.Now().UTC().Add(-maxPendingAge - time.Minute))
	w.settle(context.Background(), stale, &TransferCheck{})
	require.Equal(t, ReasonTxNotFound, rec.rejected[stale.ID])

	// A transaction that exists but lacks depth waits indefinitely.
	seen := pendingProof(time.Now().UTC().Add(-maxPendingAge - time.Minute))
	w.settle(context.Background(), seen, &TransferCheck{Seen: true})
	require.NotContains(t, rec.rejected, seen.ID)

	fresh := pendingProof(time.Now().UTC())
	w.settle(context.Background(), fresh, &TransferCheck{})
	require.NotContains(t, rec.rejected, fresh.ID)
	require.Empty(t, rec.confirmed)
}
