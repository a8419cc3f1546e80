package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/service"
	"github.com/liqpass/liqpass-backend/internal/store"
)

const claimTestWallet = "0x1111111111111111111111111111111111111111"

func newClaimRouter(t *testing.T) (*chi.Mux, *models.ClaimRecord) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := service.NewClaimService(st, nil, zap.NewNop())

	now := time.Now().UTC()
	order := &models.Order{
		ID:             uuid.New(),
		SKUID:          "liq-shield-btc-std",
		Principal:      decimal.NewFromInt(200),
		Leverage:       decimal.NewFromInt(20),
		Wallet:         claimTestWallet,
		PremiumUSDC:    decimal.NewFromInt(30),
		PayoutUSDC:     decimal.NewFromInt(100),
		FeeRatio:       decimal.RequireFromString("0.15"),
		PayoutRatio:    decimal.RequireFromString("0.5"),
		IdempotencyKey: uuid.NewString(),
		QuoteExpiresAt: now.Add(10 * time.Minute),
		PaymentMethod:  "usdc",
		PaymentStatus:  models.PaymentStatusPaid,
		Status:         models.OrderStatusPaid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, created, err := st.InsertOrder(context.Background(), order)
	require.NoError(t, err)
	require.True(t, created)

	claim, err := svc.CreateClaim(context.Background(), &models.CreateClaimRequest{
		OrderID:       order.ID,
		UserID:        "user-1",
		WalletAddress: claimTestWallet,
		AmountUSDC:    decimal.NewFromInt(80),
		Description:   "liquidated at 3x adverse move",
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Patch("/api/v1/claims/{id}", UpdateClaim(svc, zap.NewNop()))
	return r, claim
}

func patchClaim(t *testing.T, router *chi.Mux, claimID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/api/v1/claims/%s", claimID), bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUpdateClaimStartsReview(t *testing.T) {
	router, claim := newClaimRouter(t)

	rec := patchClaim(t, router, claim.ID, `{"startReview": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ClaimResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, models.ClaimStatusUnderReview, resp.Claim.Status)

	// The reviewed claim can still be decided.
	rec = patchClaim(t, router, claim.ID, `{"decision": "approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, models.ClaimStatusApproved, resp.Claim.Status)
}

func TestUpdateClaimRejectsAmbiguousBody(t *testing.T) {
	router, claim := newClaimRouter(t)

	for _, body := range []string{
		`{"cancel": true, "decision": "approved"}`,
		`{"startReview": true, "payoutTxHash": "0xabc"}`,
		`{}`,
	} {
		rec := patchClaim(t, router, claim.ID, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, models.ErrCodeValidationFailed, resp["error"], body)
	}

	// The ambiguous requests must not have moved the claim.
	rec := patchClaim(t, router, claim.ID, `{"startReview": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
}
