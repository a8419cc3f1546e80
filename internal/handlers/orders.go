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

// PreviewOrder handles quote preview requests
func PreviewOrder(orderService *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.PreviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode preview request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}

		resp, err := orderService.Preview(&req)
		if err != nil {
			logger.Warn("Quote preview rejected", zap.String("sku_id", req.SKUID), zap.Error(err))
			writeServiceError(w, err, "Failed to compute quote")
			return
		}

		writeJSONResponse(w, http.StatusOK, resp)
	}
}

// CreateOrder handles order creation requests. A replayed idempotency key
// returns the original order with 200 instead of 201.
func CreateOrder(orderService *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("Failed to decode order request", zap.Error(err))
			writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request body", nil)
			return
		}

		order, created, err := orderService.CreateOrder(r.Context(), &req)
		if err != nil {
			logger.Warn("Order creation rejected", zap.Error(err))
			writeServiceError(w, err, "Failed to create order")
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
			logger.Info("Order created",
				zap.String("order_id", order.ID.String()),
				zap.String("wallet", order.Wallet),
				zap.String("premium_usdc", order.PremiumUSDC.String()),
			)
		}

		writeJSONResponse(w, status, models.OrderResponse{OK: true, Order: order})
	}
}

// GetOrder handles order retrieval requests
func GetOrder(orderService *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseOrderID(w, r)
		if !ok {
			return
		}

		order, err := orderService.GetOrder(r.Context(), id)
		if err != nil {
			writeServiceError(w, err, "Failed to get order")
			return
		}

		writeJSONResponse(w, http.StatusOK, models.OrderResponse{OK: true, Order: order})
	}
}

// CancelOrder handles order cancellation requests
func CancelOrder(orderService *service.OrderService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseOrderID(w, r)
		if !ok {
			return
		}

		order, err := orderService.CancelOrder(r.Context(), id)
		if err != nil {
			logger.Warn("Order cancellation rejected", zap.String("order_id", id.String()), zap.Error(err))
			writeServiceError(w, err, "Failed to cancel order")
			return
		}

		logger.Info("Order cancelled", zap.String("order_id", id.String()))
		writeJSONResponse(w, http.StatusOK, models.OrderResponse{OK: true, Order: order})
	}
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid order ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
