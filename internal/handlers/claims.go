package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
	"github.com/liqpass/liqpass-backend/internal/service"
)

// CreateClaim handles claim filing requests
func CreateClaim(claimService *service.ClaimService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode claim request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}

		claim, err := claimService.CreateClaim(r.Context(), &req)
		if err != nil {
			logger.Warn("Claim rejected",
				zap.String("order_id", req.OrderID.String()),
				zap.Error(err),
			)
			writeServiceError(w, err, "Failed to file claim")
			return
		}

		logger.Info("Claim filed",
			zap.String("claim_id", claim.ID.String()),
			zap.String("order_id", claim.OrderID.String()),
			zap.String("amount_usdc", claim.AmountUSDC.String()),
		)

		writeJSONResponse(w, http.StatusCreated, models.ClaimResponse{OK: true, Claim: claim})
	}
}

// GetClaim handles claim retrieval requests
func GetClaim(claimService *service.ClaimService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseClaimID(w, r)
		if !ok {
			return
		}

		claim, err := claimService.GetClaim(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, "Failed to get claim")
			return
		}

		writeJSONResponse(w, http.StatusOK, models.ClaimResponse{OK: true, Claim: claim})
	}
}

// ListClaims handles claim listing by wallet
func ListClaims(claimService *service.ClaimService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet := r.URL.Query().Get("wallet")
		if wallet == "" {
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "wallet query parameter is required", nil)
			return
		}

		claims, err := claimService.ListClaimsByWallet(r.Context(), wallet)
		if err != nil {
			writeServiceError(w, err, "Failed to list claims")
			return
		}

		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"ok":     true,
			"claims": claims,
		})
	}
}

// UpdateClaim handles the review transitions, payout recording and
// cancellation. The request body must select exactly one operation.
func UpdateClaim(claimService *service.ClaimService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseClaimID(w, r)
		if !ok {
			return
		}

		var req models.UpdateClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode claim update request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}

		if n := countClaimActions(&req); n != 1 {
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed,
				"Request must carry exactly one of startReview, decision, payoutTxHash or cancel",
				map[string]interface{}{"actions": n})
			return
		}

		var (
			claim *models.ClaimRecord
			err   error
		)
		switch {
		case req.Cancel:
			claim, err = claimService.CancelClaim(r.Context(), id)
		case req.StartReview:
			claim, err = claimService.StartReview(r.Context(), id)
		case req.Decision != nil:
			claim, err = claimService.DecideClaim(r.Context(), id, *req.Decision, req.ReviewNotes)
		default:
			claim, err = claimService.RecordPayout(r.Context(), id, *req.PayoutTxHash, req.PayoutAmount)
		}
		if err != nil {
			logger.Warn("Claim update rejected", zap.String("claim_id", id.String()), zap.Error(err))
			writeServiceError(w, err, "Failed to update claim")
			return
		}

		logger.Info("Claim updated",
			zap.String("claim_id", id.String()),
			zap.String("status", string(claim.Status)),
		)
		writeJSONResponse(w, http.StatusOK, models.ClaimResponse{OK: true, Claim: claim})
	}
}

func countClaimActions(req *models.UpdateClaimRequest) int {
	n := 0
	if req.Cancel {
		n++
	}
	if req.StartReview {
		n++
	}
	if req.Decision != nil {
		n++
	}
	if req.PayoutTxHash != nil {
		n++
	}
	return n
}

func parseClaimID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid claim ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
