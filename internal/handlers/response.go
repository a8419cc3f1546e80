package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing to do but log.
		zap.L().Error("Failed to encode JSON response", zap.Error(err))
	}
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	if len(details) > 0 {
		errorResponse["details"] = details
	}

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		zap.L().Error("Failed to encode error response", zap.Error(err))
	}
}

// writeServiceError maps a service error onto the HTTP envelope. Anything
// that is not a ServiceError is an internal failure and is not leaked.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var svcErr *models.ServiceError
	if errors.As(err, &svcErr) {
		writeErrorResponse(w, httpStatusForCode(svcErr.Code), svcErr.Code, svcErr.Message, svcErr.Details)
		return
	}
	writeErrorResponse(w, http.StatusInternalServerError, models.ErrCodeDatabaseError, fallback, nil)
}

func httpStatusForCode(code string) int {
	switch code {
	case models.ErrCodeSKUNotFound, models.ErrCodeOrderNotFound,
		models.ErrCodeClaimNotFound, models.ErrCodeProofNotFound:
		return http.StatusNotFound
	case models.ErrCodeOutOfRange, models.ErrCodeQuoteInvalid,
		models.ErrCodeValidationFailed, models.ErrCodeUnsupportedExchange:
		return http.StatusBadRequest
	case models.ErrCodeQuoteExpired, models.ErrCodeOrderNotPending,
		models.ErrCodeInvalidTransition, models.ErrCodeDuplicateTx,
		models.ErrCodeTokenMismatch, models.ErrCodeRecipientMismatch,
		models.ErrCodeAmountInsufficient, models.ErrCodeOrderNotPaid,
		models.ErrCodeClaimExists, models.ErrCodeAmountExceedsPayout:
		return http.StatusConflict
	case models.ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	case models.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
