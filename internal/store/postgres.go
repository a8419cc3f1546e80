package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique constraint breaches.
const pgUniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Initialize creates the necessary database tables
func (s *PostgresStore) Initialize(ctx context.Context) error {
	queries := []string{
		createSKUsTable,
		createOrdersTable,
		createPaymentProofsTable,
		createClaimsTable,
		createIndexes,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	s.logger.Info("Database tables initialized successfully")
	return nil
}

// Catalog operations

// UpsertSKU inserts or refreshes a catalog entry during startup seeding.
func (s *PostgresStore) UpsertSKU(ctx context.Context, sku *models.SKU) error {
	query := `
		INSERT INTO skus (id, code, enabled, leverage_min, leverage_max, principal_min, principal_max,
		                  payout_cap_usd, fee_cap, payout_floor, payout_cap, quote_ttl_seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			enabled = EXCLUDED.enabled,
			leverage_min = EXCLUDED.leverage_min,
			leverage_max = EXCLUDED.leverage_max,
			principal_min = EXCLUDED.principal_min,
			principal_max = EXCLUDED.principal_max,
			payout_cap_usd = EXCLUDED.payout_cap_usd,
			fee_cap = EXCLUDED.fee_cap,
			payout_floor = EXCLUDED.payout_floor,
			payout_cap = EXCLUDED.payout_cap,
			quote_ttl_seconds = EXCLUDED.quote_ttl_seconds
	`

	_, err := s.db.Exec(ctx, query,
		sku.ID, sku.Code, sku.Enabled, sku.LeverageMin, sku.LeverageMax,
		sku.PrincipalMin, sku.PrincipalMax, sku.PayoutCapUSD,
		sku.Pricing.FeeCap, sku.Pricing.PayoutFloor, sku.Pricing.PayoutCap,
		sku.Pricing.QuoteTTLSeconds, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sku: %w", err)
	}
	return nil
}

// GetSKU retrieves a SKU by id
func (s *PostgresStore) GetSKU(ctx context.Context, id string) (*models.SKU, error) {
	query := `
		SELECT id, code, enabled, leverage_min, leverage_max, principal_min, principal_max,
		       payout_cap_usd, fee_cap, payout_floor, payout_cap, quote_ttl_seconds, created_at
		FROM skus WHERE id = $1
	`
	sku := &models.SKU{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sku.ID, &sku.Code, &sku.Enabled, &sku.LeverageMin, &sku.LeverageMax,
		&sku.PrincipalMin, &sku.PrincipalMax, &sku.PayoutCapUSD,
		&sku.Pricing.FeeCap, &sku.Pricing.PayoutFloor, &sku.Pricing.PayoutCap,
		&sku.Pricing.QuoteTTLSeconds, &sku.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSKUNotFound
		}
		return nil, fmt.Errorf("failed to get sku: %w", err)
	}
	return sku, nil
}

// ListSKUs lists every catalog entry
func (s *PostgresStore) ListSKUs(ctx context.Context) ([]models.SKU, error) {
	query := `
		SELECT id, code, enabled, leverage_min, leverage_max, principal_min, principal_max,
		       payout_cap_usd, fee_cap, payout_floor, payout_cap, quote_ttl_seconds, created_at
		FROM skus ORDER BY id
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list skus: %w", err)
	}
	defer rows.Close()

	var skus []models.SKU
	for rows.Next() {
		var sku models.SKU
		if err := rows.Scan(
			&sku.ID, &sku.Code, &sku.Enabled, &sku.LeverageMin, &sku.LeverageMax,
			&sku.PrincipalMin, &sku.PrincipalMax, &sku.PayoutCapUSD,
			&sku.Pricing.FeeCap, &sku.Pricing.PayoutFloor, &sku.Pricing.PayoutCap,
			&sku.Pricing.QuoteTTLSeconds, &sku.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sku: %w", err)
		}
		skus = append(skus, sku)
	}
	return skus, rows.Err()
}

// Order operations

const orderColumns = `id, sku_id, principal, leverage, wallet, premium_usdc, payout_usdc,
	fee_ratio, payout_ratio, idempotency_key, quote_expires_at, payment_method,
	payment_tx, payment_status, payment_proof_id, order_ref, exchange, pair,
	status, created_at, updated_at`

// InsertOrder creates an order exactly once per idempotency key. A second
// insert with the same key hits the unique index and falls through to a read
// of the original row, whatever the interleaving of concurrent callers.
func (s *PostgresStore) InsertOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query,
		order.ID, order.SKUID, order.Principal, order.Leverage, order.Wallet,
		order.PremiumUSDC, order.PayoutUSDC, order.FeeRatio, order.PayoutRatio,
		order.IdempotencyKey, order.QuoteExpiresAt, order.PaymentMethod,
		order.PaymentTx, order.PaymentStatus, order.PaymentProofID,
		order.OrderRef, order.Exchange, order.Pair,
		order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert order: %w", err)
	}

	if tag.RowsAffected() == 1 {
		s.logger.Info("Order created",
			zap.String("order_id", order.ID.String()),
			zap.String("idempotency_key", order.IdempotencyKey),
		)
		return order, true, nil
	}

	existing, err := s.GetOrderByIdempotencyKey(ctx, order.IdempotencyKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetOrder retrieves an order by id
func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderByIdempotencyKey retrieves an order by its idempotency key
func (s *PostgresStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	return scanOrder(row)
}

// CancelOrder transitions an order from pending to cancelled. A zero-row
// update means the order either does not exist or is past pending.
func (s *PostgresStore) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := `
		UPDATE orders SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := s.db.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		order, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return order, models.ErrInvalidTransition
	}
	return s.GetOrder(ctx, id)
}

// ExpireStaleOrders sweeps pending orders whose quote window has lapsed.
// Paid and cancelled orders are never touched.
func (s *PostgresStore) ExpireStaleOrders(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE orders SET status = 'expired', updated_at = $1
		WHERE status = 'pending' AND quote_expires_at <= $1
	`
	tag, err := s.db.Exec(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	order := &models.Order{}
	var (
		paymentTx sql.NullString
		proofID   *uuid.UUID
		orderRef  sql.NullString
		exchange  sql.NullString
		pair      sql.NullString
	)
	err := row.Scan(
		&order.ID, &order.SKUID, &order.Principal, &order.Leverage, &order.Wallet,
		&order.PremiumUSDC, &order.PayoutUSDC, &order.FeeRatio, &order.PayoutRatio,
		&order.IdempotencyKey, &order.QuoteExpiresAt, &order.PaymentMethod,
		&paymentTx, &order.PaymentStatus, &proofID,
		&orderRef, &exchange, &pair,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if paymentTx.Valid {
		order.PaymentTx = &paymentTx.String
	}
	order.PaymentProofID = proofID
	if orderRef.Valid {
		order.OrderRef = &orderRef.String
	}
	if exchange.Valid {
		order.Exchange = &exchange.String
	}
	if pair.Valid {
		order.Pair = &pair.String
	}
	return order, nil
}

// Payment proof operations

const proofColumns = `id, order_id, chain_id, token, from_addr, to_addr, amount_min_unit,
	amount_usdc, tx_hash, block_number, status, created_at, confirmed_at`

// InsertProof creates a payment proof. A unique-violation on tx_hash surfaces
// as models.ErrDuplicateTx for the caller to resolve.
func (s *PostgresStore) InsertProof(ctx context.Context, proof *models.PaymentProof) error {
	query := `
		INSERT INTO payment_proofs (` + proofColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.Exec(ctx, query,
		proof.ID, proof.OrderID, proof.ChainID, proof.Token, proof.FromAddr,
		proof.ToAddr, proof.AmountMinUnit, proof.AmountUSDC, proof.TxHash,
		proof.BlockNumber, proof.Status, proof.CreatedAt, proof.ConfirmedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.ErrDuplicateTx
		}
		return fmt.Errorf("failed to insert payment proof: %w", err)
	}

	s.logger.Info("Payment proof recorded",
		zap.String("proof_id", proof.ID.String()),
		zap.String("order_id", proof.OrderID.String()),
		zap.String("tx_hash", proof.TxHash),
	)
	return nil
}

// GetProof retrieves a payment proof by id
func (s *PostgresStore) GetProof(ctx context.Context, id uuid.UUID) (*models.PaymentProof, error) {
	row := s.db.QueryRow(ctx, `SELECT `+proofColumns+` FROM payment_proofs WHERE id = $1`, id)
	return scanProof(row)
}

// GetProofByTxHash retrieves a payment proof by transaction hash
func (s *PostgresStore) GetProofByTxHash(ctx context.Context, txHash string) (*models.PaymentProof, error) {
	row := s.db.QueryRow(ctx, `SELECT `+proofColumns+` FROM payment_proofs WHERE tx_hash = $1`, txHash)
	return scanProof(row)
}

// ListPendingProofs returns pending proofs oldest-first for the watcher.
func (s *PostgresStore) ListPendingProofs(ctx context.Context, limit int) ([]models.PaymentProof, error) {
	query := `SELECT ` + proofColumns + ` FROM payment_proofs WHERE status = 'pending' ORDER BY created_at ASC LIMIT $1`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending proofs: %w", err)
	}
	defer rows.Close()

	var proofs []models.PaymentProof
	for rows.Next() {
		proof, err := scanProof(rows)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, *proof)
	}
	return proofs, rows.Err()
}

// ConfirmProofAndMarkPaid confirms a proof and marks its order paid in one
// transaction, with the order row locked so no observer can see the two
// transitions apart. The order must still be pending.
func (s *PostgresStore) ConfirmProofAndMarkPaid(ctx context.Context, proofID uuid.UUID, blockNumber *uint64) (*models.PaymentProof, *models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	proof, err := scanProof(tx.QueryRow(ctx,
		`SELECT `+proofColumns+` FROM payment_proofs WHERE id = $1 FOR UPDATE`, proofID))
	if err != nil {
		return nil, nil, err
	}
	if proof.Status == models.ProofStatusConfirmed {
		// Confirmation replay: return current state unchanged.
		order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, proof.OrderID))
		if err != nil {
			return nil, nil, err
		}
		return proof, order, tx.Commit(ctx)
	}
	if proof.Status != models.ProofStatusPending {
		return nil, nil, models.ErrInvalidTransition
	}

	order, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, proof.OrderID))
	if err != nil {
		return nil, nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, nil, models.ErrOrderNotPending
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE payment_proofs SET status = 'confirmed', block_number = COALESCE($2, block_number), confirmed_at = $3
		WHERE id = $1
	`, proofID, blockNumber, now); err != nil {
		return nil, nil, fmt.Errorf("failed to confirm proof: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = 'paid', payment_status = 'paid', payment_tx = $2, payment_proof_id = $3, updated_at = $4
		WHERE id = $1
	`, order.ID, proof.TxHash, proofID, now); err != nil {
		return nil, nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit payment confirmation: %w", err)
	}

	proof.Status = models.ProofStatusConfirmed
	if blockNumber != nil {
		proof.BlockNumber = blockNumber
	}
	proof.ConfirmedAt = &now
	order.Status = models.OrderStatusPaid
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentTx = &proof.TxHash
	order.PaymentProofID = &proof.ID
	order.UpdatedAt = now

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("proof_id", proofID.String()),
		zap.String("tx_hash", proof.TxHash),
	)
	return proof, order, nil
}

// RejectProof marks a pending proof rejected (on-chain mismatch).
func (s *PostgresStore) RejectProof(ctx context.Context, proofID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE payment_proofs SET status = 'rejected' WHERE id = $1 AND status = 'pending'`, proofID)
	if err != nil {
		return fmt.Errorf("failed to reject proof: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func scanProof(row pgx.Row) (*models.PaymentProof, error) {
	proof := &models.PaymentProof{}
	var (
		blockNumber sql.NullInt64
		confirmedAt sql.NullTime
	)
	err := row.Scan(
		&proof.ID, &proof.OrderID, &proof.ChainID, &proof.Token, &proof.FromAddr,
		&proof.ToAddr, &proof.AmountMinUnit, &proof.AmountUSDC, &proof.TxHash,
		&blockNumber, &proof.Status, &proof.CreatedAt, &confirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrProofNotFound
		}
		return nil, fmt.Errorf("failed to scan payment proof: %w", err)
	}
	if blockNumber.Valid {
		bn := uint64(blockNumber.Int64)
		proof.BlockNumber = &bn
	}
	if confirmedAt.Valid {
		proof.ConfirmedAt = &confirmedAt.Time
	}
	return proof, nil
}

// Claim operations

const claimColumns = `id, order_id, user_id, wallet_address, claim_type, status, amount_usdc,
	description, evidence_files, review_notes, reviewed_at, payout_tx_hash,
	payout_status, payout_amount_usdc, payout_at, created_at, updated_at`

// InsertClaim creates a claim. The unique order_id index enforces at most one
// claim per order; violations surface as models.ErrClaimExists.
func (s *PostgresStore) InsertClaim(ctx context.Context, claim *models.ClaimRecord) error {
	evidenceJSON, err := json.Marshal(claim.EvidenceFiles)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence files: %w", err)
	}

	query := `
		INSERT INTO claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.db.Exec(ctx, query,
		claim.ID, claim.OrderID, claim.UserID, claim.WalletAddress, claim.ClaimType,
		claim.Status, claim.AmountUSDC, claim.Description, evidenceJSON,
		claim.ReviewNotes, claim.ReviewedAt, claim.PayoutTxHash,
		claim.PayoutStatus, claim.PayoutAmountUSDC, claim.PayoutAt,
		claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.ErrClaimExists
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}

	s.logger.Info("Claim filed",
		zap.String("claim_id", claim.ID.String()),
		zap.String("order_id", claim.OrderID.String()),
		zap.String("amount_usdc", claim.AmountUSDC.String()),
	)
	return nil
}

// GetClaim retrieves a claim by id
func (s *PostgresStore) GetClaim(ctx context.Context, id uuid.UUID) (*models.ClaimRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, id)
	return scanClaim(row)
}

// GetClaimByOrder retrieves the claim filed against an order
func (s *PostgresStore) GetClaimByOrder(ctx context.Context, orderID uuid.UUID) (*models.ClaimRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE order_id = $1`, orderID)
	return scanClaim(row)
}

// ListClaimsByWallet lists claims filed by a wallet, newest first
func (s *PostgresStore) ListClaimsByWallet(ctx context.Context, wallet string) ([]models.ClaimRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE wallet_address = $1 ORDER BY created_at DESC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []models.ClaimRecord
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

// TransitionClaim moves a claim to a new status provided its current status
// is in the allowed set. Zero rows affected on an existing claim means the
// transition was invalid.
func (s *PostgresStore) TransitionClaim(ctx context.Context, id uuid.UUID, from []models.ClaimStatus, to models.ClaimStatus, reviewNotes *string) (*models.ClaimRecord, error) {
	fromStates := make([]string, len(from))
	for i, st := range from {
		fromStates[i] = string(st)
	}

	now := time.Now().UTC()
	var reviewedAt *time.Time
	if to == models.ClaimStatusApproved || to == models.ClaimStatusRejected {
		reviewedAt = &now
	}

	query := `
		UPDATE claims
		SET status = $2,
		    review_notes = COALESCE($3, review_notes),
		    reviewed_at = COALESCE($4, reviewed_at),
		    updated_at = $5
		WHERE id = $1 AND status = ANY($6)
	`
	tag, err := s.db.Exec(ctx, query, id, to, reviewNotes, reviewedAt, now, fromStates)
	if err != nil {
		return nil, fmt.Errorf("failed to transition claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetClaim(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidTransition
	}
	return s.GetClaim(ctx, id)
}

// RecordClaimPayout marks an approved claim paid and stores the payout leg.
func (s *PostgresStore) RecordClaimPayout(ctx context.Context, id uuid.UUID, txHash string, amount decimal.Decimal) (*models.ClaimRecord, error) {
	now := time.Now().UTC()
	query := `
		UPDATE claims
		SET status = 'paid', payout_status = 'completed', payout_tx_hash = $2,
		    payout_amount_usdc = $3, payout_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'approved'
	`
	tag, err := s.db.Exec(ctx, query, id, txHash, amount, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetClaim(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidTransition
	}

	s.logger.Info("Claim payout recorded",
		zap.String("claim_id", id.String()),
		zap.String("tx_hash", txHash),
		zap.String("amount_usdc", amount.String()),
	)
	return s.GetClaim(ctx, id)
}

func scanClaim(row pgx.Row) (*models.ClaimRecord, error) {
	claim := &models.ClaimRecord{}
	var (
		evidenceJSON []byte
		reviewNotes  sql.NullString
		reviewedAt   sql.NullTime
		payoutTx     sql.NullString
		payoutStatus sql.NullString
		payoutAmount decimal.NullDecimal
		payoutAt     sql.NullTime
	)
	err := row.Scan(
		&claim.ID, &claim.OrderID, &claim.UserID, &claim.WalletAddress, &claim.ClaimType,
		&claim.Status, &claim.AmountUSDC, &claim.Description, &evidenceJSON,
		&reviewNotes, &reviewedAt, &payoutTx, &payoutStatus, &payoutAmount, &payoutAt,
		&claim.CreatedAt, &claim.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}
	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &claim.EvidenceFiles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence files: %w", err)
		}
	}
	if reviewNotes.Valid {
		claim.ReviewNotes = &reviewNotes.String
	}
	if reviewedAt.Valid {
		claim.ReviewedAt = &reviewedAt.Time
	}
	if payoutTx.Valid {
		claim.PayoutTxHash = &payoutTx.String
	}
	if payoutStatus.Valid {
		ps := models.PayoutStatus(payoutStatus.String)
		claim.PayoutStatus = &ps
	}
	if payoutAmount.Valid {
		claim.PayoutAmountUSDC = &payoutAmount.Decimal
	}
	if payoutAt.Valid {
		claim.PayoutAt = &payoutAt.Time
	}
	return claim, nil
}
