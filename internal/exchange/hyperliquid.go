package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// HyperliquidAdapter verifies accounts against the Hyperliquid info API.
// Hyperliquid reads are keyed by wallet address rather than an API secret,
// so the request's apiKey carries the account address.
type HyperliquidAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHyperliquidAdapter creates a new Hyperliquid adapter
func NewHyperliquidAdapter(baseURL string, client *http.Client, logger *zap.Logger) *HyperliquidAdapter {
	return &HyperliquidAdapter{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Name returns the registry key for this adapter.
func (a *HyperliquidAdapter) Name() string { return "hyperliquid" }

// VerifyAccount fetches the clearinghouse state for the address and looks up
// the referenced order via the orderStatus info request.
func (a *HyperliquidAdapter) VerifyAccount(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	var reasons []string

	account, err := a.fetchClearinghouse(ctx, req.APIKey)
	if err != nil {
		if reason, terminal := classifyTransportError(err); terminal {
			return failedResult([]string{reason}), nil
		}
		reasons = append(reasons, ReasonBadCredentials)
	}

	var echo *OrderEcho
	if req.OrderRef != "" {
		echo, err = a.fetchOrder(ctx, req.APIKey, req.OrderRef)
		if err != nil {
			if reason, terminal := classifyTransportError(err); terminal {
				return failedResult(append(reasons, reason)), nil
			}
			reasons = append(reasons, ReasonOrderNotFound)
		}
	}
	if req.Pair != "" && echo != nil && echo.Symbol != req.Pair {
		reasons = append(reasons, ReasonPairNotFound)
	}

	if len(reasons) > 0 {
		result := failedResult(reasons)
		result.Account = account
		result.Order = echo
		return result, nil
	}

	sessionID, now := newSession()
	return &VerifyResult{
		Status: StatusVerified,
		// The info API is public per address: every read scope is available.
		Caps:       Capabilities{Orders: true, Fills: true, Positions: true, Liquidations: true},
		Account:    account,
		Order:      echo,
		VerifiedAt: now,
		SessionID:  sessionID,
	}, nil
}

// fetchClearinghouse posts {type: clearinghouseState, user: <addr>}.
func (a *HyperliquidAdapter) fetchClearinghouse(ctx context.Context, address string) (*AccountSummary, error) {
	body, err := a.info(ctx, map[string]interface{}{
		"type": "clearinghouseState",
		"user": address,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		MarginSummary struct {
			AccountValue string `json:"accountValue"`
		} `json:"marginSummary"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode clearinghouse state: %w", err)
	}
	if payload.MarginSummary.AccountValue == "" {
		return nil, fmt.Errorf("no clearinghouse state for address %s", address)
	}

	return &AccountSummary{
		AccountID: address,
		Equity:    CoerceDecimal(payload.MarginSummary.AccountValue),
		Currency:  "USDC",
	}, nil
}

// fetchOrder posts {type: orderStatus, user: <addr>, oid: <ref>}.
func (a *HyperliquidAdapter) fetchOrder(ctx context.Context, address, orderRef string) (*OrderEcho, error) {
	body, err := a.info(ctx, map[string]interface{}{
		"type": "orderStatus",
		"user": address,
		"oid":  orderRef,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status string `json:"status"`
		Order  struct {
			Order           map[string]interface{} `json:"order"`
			Status          string                 `json:"status"`
			StatusTimestamp int64                  `json:"statusTimestamp"`
		} `json:"order"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode order status: %w", err)
	}
	if payload.Status != "order" || payload.Order.Order == nil {
		return nil, fmt.Errorf("hyperliquid order %s not found", orderRef)
	}

	echo := NormalizeOrder(payload.Order.Order)
	echo.Status = NormalizeStatus(payload.Order.Status)
	if echo.Timestamp == 0 {
		echo.Timestamp = payload.Order.StatusTimestamp
	}
	return echo, nil
}

// info performs a POST /info request.
func (a *HyperliquidAdapter) info(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode info request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/info", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build info request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hyperliquid info failed: status=%d body=%s", resp.StatusCode, body)
	}
	return body, nil
}
