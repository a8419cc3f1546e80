package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// MemoryStore is an in-memory Store used in tests and local development.
// A single mutex serializes every operation, which also gives the same
// atomicity the Postgres implementation gets from transactions.
type MemoryStore struct {
	mu             sync.Mutex
	skus           map[string]*models.SKU
	orders         map[uuid.UUID]*models.Order
	ordersByKey    map[string]uuid.UUID
	proofs         map[uuid.UUID]*models.PaymentProof
	proofsByTxHash map[string]uuid.UUID
	claims         map[uuid.UUID]*models.ClaimRecord
	claimsByOrder  map[uuid.UUID]uuid.UUID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		skus:           make(map[string]*models.SKU),
		orders:         make(map[uuid.UUID]*models.Order),
		ordersByKey:    make(map[string]uuid.UUID),
		proofs:         make(map[uuid.UUID]*models.PaymentProof),
		proofsByTxHash: make(map[string]uuid.UUID),
		claims:         make(map[uuid.UUID]*models.ClaimRecord),
		claimsByOrder:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) UpsertSKU(_ context.Context, sku *models.SKU) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sku
	s.skus[sku.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSKU(_ context.Context, id string) (*models.SKU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sku, ok := s.skus[id]
	if !ok {
		return nil, models.ErrSKUNotFound
	}
	cp := *sku
	return &cp, nil
}

func (s *MemoryStore) ListSKUs(_ context.Context) ([]models.SKU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	skus := make([]models.SKU, 0, len(s.skus))
	for _, sku := range s.skus {
		skus = append(skus, *sku)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i].ID < skus[j].ID })
	return skus, nil
}

func (s *MemoryStore) InsertOrder(_ context.Context, order *models.Order) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existingID, ok := s.ordersByKey[order.IdempotencyKey]; ok {
		cp := *s.orders[existingID]
		return &cp, false, nil
	}
	cp := *order
	s.orders[order.ID] = &cp
	s.ordersByKey[order.IdempotencyKey] = order.ID
	out := cp
	return &out, true, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrderLocked(id)
}

func (s *MemoryStore) getOrderLocked(id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *MemoryStore) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ordersByKey[key]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return s.getOrderLocked(id)
}

func (s *MemoryStore) CancelOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	if order.Status != models.OrderStatusPending {
		cp := *order
		return &cp, models.ErrInvalidTransition
	}
	order.Status = models.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	cp := *order
	return &cp, nil
}

func (s *MemoryStore) ExpireStaleOrders(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired int64
	for _, order := range s.orders {
		if order.Status == models.OrderStatusPending && !order.QuoteExpiresAt.After(now) {
			order.Status = models.OrderStatusExpired
			order.UpdatedAt = now.UTC()
			expired++
		}
	}
	return expired, nil
}

func (s *MemoryStore) InsertProof(_ context.Context, proof *models.PaymentProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proofsByTxHash[proof.TxHash]; ok {
		return models.ErrDuplicateTx
	}
	cp := *proof
	s.proofs[proof.ID] = &cp
	s.proofsByTxHash[proof.TxHash] = proof.ID
	return nil
}

func (s *MemoryStore) GetProof(_ context.Context, id uuid.UUID) (*models.PaymentProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proof, ok := s.proofs[id]
	if !ok {
		return nil, models.ErrProofNotFound
	}
	cp := *proof
	return &cp, nil
}

func (s *MemoryStore) GetProofByTxHash(_ context.Context, txHash string) (*models.PaymentProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.proofsByTxHash[txHash]
	if !ok {
		return nil, models.ErrProofNotFound
	}
	cp := *s.proofs[id]
	return &cp, nil
}

func (s *MemoryStore) ListPendingProofs(_ context.Context, limit int) ([]models.PaymentProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.PaymentProof
	for _, proof := range s.proofs {
		if proof.Status == models.ProofStatusPending {
			pending = append(pending, *proof)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) ConfirmProofAndMarkPaid(_ context.Context, proofID uuid.UUID, blockNumber *uint64) (*models.PaymentProof, *models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proof, ok := s.proofs[proofID]
	if !ok {
		return nil, nil, models.ErrProofNotFound
	}
	order, ok := s.orders[proof.OrderID]
	if !ok {
		return nil, nil, models.ErrOrderNotFound
	}
	if proof.Status == models.ProofStatusConfirmed {
		pc, oc := *proof, *order
		return &pc, &oc, nil
	}
	if proof.Status != models.ProofStatusPending {
		return nil, nil, models.ErrInvalidTransition
	}
	if order.Status != models.OrderStatusPending {
		return nil, nil, models.ErrOrderNotPending
	}

	now := time.Now().UTC()
	proof.Status = models.ProofStatusConfirmed
	if blockNumber != nil {
		proof.BlockNumber = blockNumber
	}
	proof.ConfirmedAt = &now
	order.Status = models.OrderStatusPaid
	order.PaymentStatus = models.PaymentStatusPaid
	txHash := proof.TxHash
	order.PaymentTx = &txHash
	pid := proof.ID
	order.PaymentProofID = &pid
	order.UpdatedAt = now

	pc, oc := *proof, *order
	return &pc, &oc, nil
}

func (s *MemoryStore) RejectProof(_ context.Context, proofID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	proof, ok := s.proofs[proofID]
	if !ok {
		return models.ErrProofNotFound
	}
	if proof.Status != models.ProofStatusPending {
		return models.ErrInvalidTransition
	}
	proof.Status = models.ProofStatusRejected
	return nil
}

func (s *MemoryStore) InsertClaim(_ context.Context, claim *models.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimsByOrder[claim.OrderID]; ok {
		return models.ErrClaimExists
	}
	cp := *claim
	s.claims[claim.ID] = &cp
	s.claimsByOrder[claim.OrderID] = claim.ID
	return nil
}

func (s *MemoryStore) GetClaim(_ context.Context, id uuid.UUID) (*models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getClaimLocked(id)
}

func (s *MemoryStore) getClaimLocked(id uuid.UUID) (*models.ClaimRecord, error) {
	claim, ok := s.claims[id]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	cp := *claim
	return &cp, nil
}

func (s *MemoryStore) GetClaimByOrder(_ context.Context, orderID uuid.UUID) (*models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.claimsByOrder[orderID]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	return s.getClaimLocked(id)
}

func (s *MemoryStore) ListClaimsByWallet(_ context.Context, wallet string) ([]models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claims []models.ClaimRecord
	for _, claim := range s.claims {
		if claim.WalletAddress == wallet {
			claims = append(claims, *claim)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.After(claims[j].CreatedAt) })
	return claims, nil
}

func (s *MemoryStore) TransitionClaim(_ context.Context, id uuid.UUID, from []models.ClaimStatus, to models.ClaimStatus, reviewNotes *string) (*models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	allowed := false
	for _, st := range from {
		if claim.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, models.ErrInvalidTransition
	}

	now := time.Now().UTC()
	claim.Status = to
	if reviewNotes != nil {
		claim.ReviewNotes = reviewNotes
	}
	if to == models.ClaimStatusApproved || to == models.ClaimStatusRejected {
		claim.ReviewedAt = &now
	}
	claim.UpdatedAt = now
	cp := *claim
	return &cp, nil
}

func (s *MemoryStore) RecordClaimPayout(_ context.Context, id uuid.UUID, txHash string, amount decimal.Decimal) (*models.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[id]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	if claim.Status != models.ClaimStatusApproved {
		return nil, models.ErrInvalidTransition
	}

	now := time.Now().UTC()
	claim.Status = models.ClaimStatusPaid
	completed := models.PayoutStatusCompleted
	claim.PayoutStatus = &completed
	claim.PayoutTxHash = &txHash
	claim.PayoutAmountUSDC = &amount
	claim.PayoutAt = &now
	claim.UpdatedAt = now
	cp := *claim
	return &cp, nil
}
