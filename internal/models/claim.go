package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimStatus represents the review state of a claim
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusSubmitted   ClaimStatus = "submitted"
	ClaimStatusUnderReview ClaimStatus = "under_review"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusPaid        ClaimStatus = "paid"
	ClaimStatusCancelled   ClaimStatus = "cancelled"
)

// PayoutStatus represents the payout leg of an approved claim
type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
)

// ClaimRecord is a liquidation claim filed against a paid order.
// amount_usdc is bounded above by the order's payout_usdc.
type ClaimRecord struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	OrderID          uuid.UUID        `json:"order_id" db:"order_id"`
	UserID           string           `json:"user_id" db:"user_id"`
	WalletAddress    string           `json:"wallet_address" db:"wallet_address"`
	ClaimType        string           `json:"claim_type" db:"claim_type"`
	Status           ClaimStatus      `json:"status" db:"status"`
	AmountUSDC       decimal.Decimal  `json:"amount_usdc" db:"amount_usdc"`
	Description      string           `json:"description" db:"description"`
	EvidenceFiles    []string         `json:"evidence_files" db:"evidence_files"`
	ReviewNotes      *string          `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	PayoutTxHash     *string          `json:"payout_tx_hash,omitempty" db:"payout_tx_hash"`
	PayoutStatus     *PayoutStatus    `json:"payout_status,omitempty" db:"payout_status"`
	PayoutAmountUSDC *decimal.Decimal `json:"payout_amount_usdc,omitempty" db:"payout_amount_usdc"`
	PayoutAt         *time.Time       `json:"payout_at,omitempty" db:"payout_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// Reviewable reports whether the claim can still receive a review decision.
func (c *ClaimRecord) Reviewable() bool {
	return c.Status == ClaimStatusSubmitted || c.Status == ClaimStatusUnderReview
}

// Terminal reports whether the claim has reached a final state.
func (c *ClaimRecord) Terminal() bool {
	switch c.Status {
	case ClaimStatusRejected, ClaimStatusPaid, ClaimStatusCancelled:
		return true
	}
	return false
}

// CreateClaimRequest is the body of POST /claims.
type CreateClaimRequest struct {
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        string          `json:"userId"`
	WalletAddress string          `json:"walletAddress"`
	ClaimType     string          `json:"claimType"`
	AmountUSDC    decimal.Decimal `json:"amountUSDC"`
	Description   string          `json:"description"`
	EvidenceFiles []string        `json:"evidenceFiles"`
}

// UpdateClaimRequest is the body of PATCH /claims/:id. Exactly one action
// (startReview, decision, payout or cancel) must be present per call.
type UpdateClaimRequest struct {
	StartReview  bool             `json:"startReview,omitempty"`
	Decision     *string          `json:"decision,omitempty"` // "approved" | "rejected"
	ReviewNotes  *string          `json:"reviewNotes,omitempty"`
	PayoutTxHash *string          `json:"payoutTxHash,omitempty"`
	PayoutAmount *decimal.Decimal `json:"payoutAmountUSDC,omitempty"`
	Cancel       bool             `json:"cancel,omitempty"`
}

// ClaimResponse is the envelope for claim endpoints.
type ClaimResponse struct {
	OK    bool         `json:"ok"`
	Claim *ClaimRecord `json:"claim"`
}
