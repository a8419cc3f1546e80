package chain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/store"
)

// defaultBatchSize bounds how many pending proofs one sweep inspects.
const defaultBatchSize = 100

// maxPendingAge is how long a proof may wait for its transaction to appear
// on chain before it is rejected as unverifiable.
const maxPendingAge = 30 * time.Minute

// Confirmer settles a verified proof. Implemented by PaymentService.
type Confirmer interface {
	ConfirmProof(ctx context.Context, proofID uuid.UUID, blockNumber *uint64) (*models.PaymentProof, *models.Order, error)
	RejectProof(ctx context.Context, proofID uuid.UUID, reason string) error
}

// Watcher periodically verifies pending payment proofs against the chain and
// settles the decisive ones.
type Watcher struct {
	client    *Client
	store     store.Store
	confirmer Confirmer
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewWatcher creates a new payment proof watcher
func NewWatcher(client *Client, st store.Store, confirmer Confirmer, interval, timeout time.Duration, logger *zap.Logger) *Watcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Watcher{
		client:    client,
		store:     st,
		confirmer: confirmer,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run sweeps pending proofs until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Payment proof watcher started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Payment proof watcher stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Watcher) sweep(ctx context.Context) {
	proofs, err := w.store.ListPendingProofs(ctx, defaultBatchSize)
	if err != nil {
		w.logger.Error("Failed to list pending proofs", zap.Error(err))
		return
	}

	for i := range proofs {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, &proofs[i])
	}
}

func (w *Watcher) process(ctx context.Context, proof *models.PaymentProof) {
	checkCtx, cancel := context.WithTimeout(ctx, w.timeout)
	check, err := w.client.VerifyTransfer(checkCtx, proof)
	cancel()
	if err != nil {
		// Transient RPC failure; the proof stays pending for the next sweep.
		w.logger.Warn("Chain verification failed, will retry",
			zap.String("proof_id", proof.ID.String()),
			zap.String("tx_hash", proof.TxHash),
			zap.Error(err),
		)
		return
	}

	w.settle(ctx, proof, check)
}

func (w *Watcher) settle(ctx context.Context, proof *models.PaymentProof, check *TransferCheck) {
	switch {
	case check.Confirmed:
		if _, _, err := w.confirmer.ConfirmProof(ctx, proof.ID, check.BlockNumber); err != nil {
			// The order can already be settled by another proof; such a
			// proof will never confirm, so stop retrying it.
			if errors.Is(err, models.ErrOrderNotPending) {
				if rejErr := w.confirmer.RejectProof(ctx, proof.ID, ReasonOrderSettled); rejErr != nil {
					w.logger.Error("Failed to reject superseded proof",
						zap.String("proof_id", proof.ID.String()),
						zap.Error(rejErr),
					)
				}
				return
			}
			w.logger.Error("Failed to confirm verified proof",
				zap.String("proof_id", proof.ID.String()),
				zap.Error(err),
			)
		}
	case check.Rejected:
		if err := w.confirmer.RejectProof(ctx, proof.ID, check.Reason); err != nil {
			w.logger.Error("Failed to reject proof",
				zap.String("proof_id", proof.ID.String()),
				zap.Error(err),
			)
		}
	default:
		// Transaction not decisive yet. Give up once it has been missing
		// for longer than any plausible inclusion delay; a seen but
		// unconfirmed transaction waits indefinitely.
		if !check.Seen && time.Since(proof.CreatedAt) > maxPendingAge {
			if err := w.confirmer.RejectProof(ctx, proof.ID, ReasonTxNotFound); err != nil {
				w.logger.Error("Failed to reject stale proof",
					zap.String("proof_id", proof.ID.String()),
					zap.Error(err),
				)
			}
		}
	}
}
