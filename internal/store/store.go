package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// Store is the durable persistence surface shared by the order, payment and
// claims services. Implementations must serialize mutations per entity:
// PostgresStore relies on row locks and conditional updates, MemoryStore on a
// store-wide mutex. Every conditional transition returns
// models.ErrInvalidTransition (wrapped) when the precondition row state does
// not hold, so callers can distinguish races from missing rows.
type Store interface {
	// Catalog
	UpsertSKU(ctx context.Context, sku *models.SKU) error
	GetSKU(ctx context.Context, id string) (*models.SKU, error)
	ListSKUs(ctx context.Context) ([]models.SKU, error)

	// Orders. InsertOrder is idempotent on the idempotency key: a replay
	// returns the previously created order with created=false.
	InsertOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ExpireStaleOrders(ctx context.Context, now time.Time) (int64, error)

	// Payment proofs. ConfirmProofAndMarkPaid performs the dual transition
	// (proof confirmed, order paid) atomically.
	InsertProof(ctx context.Context, proof *models.PaymentProof) error
	GetProof(ctx context.Context, id uuid.UUID) (*models.PaymentProof, error)
	GetProofByTxHash(ctx context.Context, txHash string) (*models.PaymentProof, error)
	ListPendingProofs(ctx context.Context, limit int) ([]models.PaymentProof, error)
	ConfirmProofAndMarkPaid(ctx context.Context, proofID uuid.UUID, blockNumber *uint64) (*models.PaymentProof, *models.Order, error)
	RejectProof(ctx context.Context, proofID uuid.UUID) error

	// Claims
	InsertClaim(ctx context.Context, claim *models.ClaimRecord) error
	GetClaim(ctx context.Context, id uuid.UUID) (*models.ClaimRecord, error)
	GetClaimByOrder(ctx context.Context, orderID uuid.UUID) (*models.ClaimRecord, error)
	ListClaimsByWallet(ctx context.Context, wallet string) ([]models.ClaimRecord, error)
	TransitionClaim(ctx context.Context, id uuid.UUID, from []models.ClaimStatus, to models.ClaimStatus, reviewNotes *string) (*models.ClaimRecord, error)
	RecordClaimPayout(ctx context.Context, id uuid.UUID, txHash string, amount decimal.Decimal) (*models.ClaimRecord, error)
}
