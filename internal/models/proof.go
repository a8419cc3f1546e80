package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProofStatus represents the confirmation state of a payment proof
type ProofStatus string

const (
	ProofStatusPending   ProofStatus = "pending"
	ProofStatusConfirmed ProofStatus = "confirmed"
	ProofStatusRejected  ProofStatus = "rejected"
)

// PaymentProof is on-chain evidence of a USDC transfer submitted against an
// order's premium. A proof is immutable once confirmed.
type PaymentProof struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderID       uuid.UUID       `json:"order_id" db:"order_id"`
	ChainID       int64           `json:"chain_id" db:"chain_id"`
	Token         string          `json:"token" db:"token"`
	FromAddr      string          `json:"from_addr" db:"from_addr"`
	ToAddr        string          `json:"to_addr" db:"to_addr"`
	AmountMinUnit decimal.Decimal `json:"amount_min_unit" db:"amount_min_unit"`
	AmountUSDC    decimal.Decimal `json:"amount_usdc" db:"amount_usdc"`
	TxHash        string          `json:"tx_hash" db:"tx_hash"`
	BlockNumber   *uint64         `json:"block_number,omitempty" db:"block_number"`
	Status        ProofStatus     `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// SubmitProofRequest is the body of POST /payment-proofs.
type SubmitProofRequest struct {
	OrderID       uuid.UUID       `json:"orderId"`
	ChainID       int64           `json:"chainId"`
	Token         string          `json:"token"`
	FromAddr      string          `json:"fromAddr"`
	ToAddr        string          `json:"toAddr"`
	AmountMinUnit decimal.Decimal `json:"amountMinUnit"`
	TxHash        string          `json:"txHash"`
	BlockNumber   *uint64         `json:"blockNumber,omitempty"`
}

// ProofResponse is the envelope for payment-proof endpoints.
type ProofResponse struct {
	OK    bool          `json:"ok"`
	Proof *PaymentProof `json:"proof"`
}
