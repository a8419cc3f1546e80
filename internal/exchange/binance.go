package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// BinanceAdapter verifies accounts against the Binance spot REST API.
type BinanceAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewBinanceAdapter creates a new Binance adapter
func NewBinanceAdapter(baseURL string, client *http.Client, logger *zap.Logger) *BinanceAdapter {
	return &BinanceAdapter{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Name returns the registry key for this adapter.
func (a *BinanceAdapter) Name() string { return "binance" }

// VerifyAccount checks credentials via /api/v3/account and echoes the
// referenced order via /api/v3/order.
func (a *BinanceAdapter) VerifyAccount(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	var reasons []string

	account, caps, err := a.fetchAccount(ctx, req)
	if err != nil {
		if reason, terminal := classifyTransportError(err); terminal {
			return failedResult([]string{reason}), nil
		}
		reasons = append(reasons, ReasonBadCredentials)
	}

	var echo *OrderEcho
	if req.OrderRef != "" {
		echo, err = a.fetchOrder(ctx, req)
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
	if caps != nil && !caps.Orders {
		reasons = append(reasons, ReasonMissingCaps)
	}

	if len(reasons) > 0 {
		result := failedResult(reasons)
		result.Account = account
		result.Order = echo
		return result, nil
	}

	sessionID, now := newSession()
	return &VerifyResult{
		Status:     StatusVerified,
		Caps:       *caps,
		Account:    account,
		Order:      echo,
		VerifiedAt: now,
		SessionID:  sessionID,
	}, nil
}

// fetchAccount validates the key pair and derives capabilities from the
// account permission flags.
func (a *BinanceAdapter) fetchAccount(ctx context.Context, req *VerifyRequest) (*AccountSummary, *Capabilities, error) {
	body, err := a.signedGet(ctx, req, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, nil, err
	}

	var payload struct {
		AccountType string   `json:"accountType"`
		CanTrade    bool     `json:"canTrade"`
		Permissions []string `json:"permissions"`
		UID         int64    `json:"uid"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode binance account: %w", err)
	}

	caps := &Capabilities{
		Orders:       true,
		Fills:        true,
		Positions:    payload.CanTrade,
		Liquidations: hasPermission(payload.Permissions, "MARGIN"),
	}
	account := &AccountSummary{
		AccountID: fmt.Sprintf("%d", payload.UID),
		Currency:  payload.AccountType,
	}
	return account, caps, nil
}

// fetchOrder looks up the referenced order.
func (a *BinanceAdapter) fetchOrder(ctx context.Context, req *VerifyRequest) (*OrderEcho, error) {
	params := url.Values{}
	params.Set("symbol", req.Pair)
	params.Set("orderId", req.OrderRef)

	body, err := a.signedGet(ctx, req, "/api/v3/order", params)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode binance order: %w", err)
	}
	if _, ok := raw["orderId"]; !ok {
		return nil, fmt.Errorf("binance order lookup returned no order")
	}
	return NormalizeOrder(raw), nil
}

// signedGet performs a Binance HMAC-signed GET request.
func (a *BinanceAdapter) signedGet(ctx context.Context, creds *VerifyRequest, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", nowMillis())
	params.Set("recvWindow", "5000")

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(creds.APISecret))
	mac.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(mac.Sum(nil))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build binance request: %w", err)
	}
	httpReq.Header.Set("X-MBX-APIKEY", creds.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read binance response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("binance rejected credentials: status=%d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance request failed: status=%d body=%s", resp.StatusCode, body)
	}
	return body, nil
}

func hasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
