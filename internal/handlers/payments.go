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

// SubmitPaymentProof handles payment proof submissions
func SubmitPaymentProof(paymentService *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.SubmitProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode payment proof request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}

		proof, err := paymentService.SubmitProof(r.Context(), &req)
		if err != nil {
			logger.Warn("Payment proof rejected",
				zap.String("order_id", req.OrderID.String()),
				zap.String("tx_hash", req.TxHash),
				zap.Error(err),
			)
			writeServiceError(w, err, "Failed to submit payment proof")
			return
		}

		logger.Info("Payment proof accepted",
			zap.String("proof_id", proof.ID.String()),
			zap.String("order_id", proof.OrderID.String()),
			zap.String("tx_hash", proof.TxHash),
		)

		writeJSONResponse(w, http.StatusAccepted, models.ProofResponse{OK: true, Proof: proof})
	}
}

// GetPaymentProof handles payment proof retrieval requests
func GetPaymentProof(paymentService *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid proof ID", nil)
			return
		}

		proof, err := paymentService.GetProof(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, "Failed to get payment proof")
			return
		}

		writeJSONResponse(w, http.StatusOK, models.ProofResponse{OK: true, Proof: proof})
	}
}
