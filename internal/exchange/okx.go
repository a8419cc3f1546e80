package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

// OKXAdapter verifies accounts against the OKX v5 REST API.
type OKXAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewOKXAdapter creates a new OKX adapter
func NewOKXAdapter(baseURL string, client *http.Client, logger *zap.Logger) *OKXAdapter {
	return &OKXAdapter{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Name returns the registry key for this adapter.
func (a *OKXAdapter) Name() string { return "okx" }

// okxEnvelope is the common OKX response wrapper.
type okxEnvelope struct {
	Code string                   `json:"code"`
	Msg  string                   `json:"msg"`
	Data []map[string]interface{} `json:"data"`
}

// VerifyAccount checks the credentials against the account config endpoint and
// looks up the referenced order. All failing checks accumulate into reasons.
func (a *OKXAdapter) VerifyAccount(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
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

// fetchAccount calls /api/v5/account/config to validate the key and derive
// the granted capabilities from the key permissions.
func (a *OKXAdapter) fetchAccount(ctx context.Context, req *VerifyRequest) (*AccountSummary, *Capabilities, error) {
	env, err := a.get(ctx, req, "/api/v5/account/config", nil)
	if err != nil {
		return nil, nil, err
	}
	if env.Code != "0" || len(env.Data) == 0 {
		return nil, nil, fmt.Errorf("okx account config rejected: code=%s msg=%s", env.Code, env.Msg)
	}

	row := env.Data[0]
	perm, _ := row["perm"].(string)
	caps := &Capabilities{
		Orders:       true,
		Fills:        true,
		Positions:    perm != "",
		Liquidations: perm != "",
	}
	account := &AccountSummary{
		AccountID: firstString(row, "uid", "acctLv"),
	}
	return account, caps, nil
}

// fetchOrder looks up the referenced order on /api/v5/trade/order.
func (a *OKXAdapter) fetchOrder(ctx context.Context, req *VerifyRequest) (*OrderEcho, error) {
	params := url.Values{}
	params.Set("instId", req.Pair)
	params.Set("ordId", req.OrderRef)

	env, err := a.get(ctx, req, "/api/v5/trade/order", params)
	if err != nil {
		return nil, err
	}
	if env.Code != "0" || len(env.Data) == 0 {
		return nil, fmt.Errorf("okx order lookup failed: code=%s msg=%s", env.Code, env.Msg)
	}
	return NormalizeOrder(env.Data[0]), nil
}

// get performs a signed OKX GET request.
func (a *OKXAdapter) get(ctx context.Context, creds *VerifyRequest, path string, params url.Values) (*okxEnvelope, error) {
	requestPath := path
	if len(params) > 0 {
		requestPath = path + "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+requestPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build okx request: %w", err)
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	signature := okxSign(creds.APISecret, timestamp, http.MethodGet, requestPath)

	httpReq.Header.Set("OK-ACCESS-KEY", creds.APIKey)
	httpReq.Header.Set("OK-ACCESS-SIGN", signature)
	httpReq.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	httpReq.Header.Set("OK-ACCESS-PASSPHRASE", creds.Passphrase)
	if creds.Environment == "testnet" {
		httpReq.Header.Set("x-simulated-trading", "1")
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read okx response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("okx rejected credentials: status=%d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("okx request failed: status=%d body=%s", resp.StatusCode, body)
	}

	var env okxEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode okx response: %w", err)
	}
	return &env, nil
}

// okxSign produces the OK-ACCESS-SIGN header: base64(HMAC-SHA256(ts+method+path)).
func okxSign(secret, timestamp, method, requestPath string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + requestPath))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// classifyTransportError distinguishes timeouts and transport failures (which
// abort verification) from upstream rejections (which accumulate as reasons).
func classifyTransportError(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return ReasonTimeout, true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout, true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ReasonUpstream, true
	}
	return "", false
}
