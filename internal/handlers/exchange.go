package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/exchange"
	"github.com/liqpass/liqpass-backend/internal/models"
)

// verifyExchangeRequest wraps the adapter request with the exchange selector.
type verifyExchangeRequest struct {
	Exchange string `json:"exchange"`
	exchange.VerifyRequest
}

// VerifyExchangeAccount handles exchange account verification requests.
// Credentials are used for the outbound verification calls only; neither
// they nor the session outlive the request.
func VerifyExchangeAccount(registry *exchange.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyExchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode verify request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}
		if req.Exchange == "" {
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "exchange is required", nil)
			return
		}
		if req.APIKey == "" {
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "apiKey is required", nil)
			return
		}

		adapter, err := registry.Resolve(req.Exchange)
		if err != nil {
			writeServiceError(w, err, "Unsupported exchange")
			return
		}

		result, err := adapter.VerifyAccount(r.Context(), &req.VerifyRequest)
		if err != nil {
			logger.Error("Exchange verification failed upstream",
				zap.String("exchange", req.Exchange),
				zap.Error(err),
			)
			writeServiceError(w, err, "Exchange verification failed")
			return
		}

		logger.Info("Exchange account verified",
			zap.String("exchange", req.Exchange),
			zap.String("session_id", result.SessionID),
			zap.String("status", string(result.Status)),
			zap.Strings("reasons", result.Reasons),
		)

		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"ok":     !result.Failed(),
			"result": result,
		})
	}
}
