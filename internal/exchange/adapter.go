package exchange

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// VerifyStatus is the outcome of an account verification session.
type VerifyStatus string

const (
	StatusVerified VerifyStatus = "verified"
	StatusFailed   VerifyStatus = "failed"
)

// Failure reason tokens surfaced to the client. The reasons list enumerates
// every failing check, not just the first, so remediation is actionable.
const (
	ReasonBadCredentials = "BAD_CREDENTIALS"
	ReasonMissingCaps    = "MISSING_CAPABILITY"
	ReasonOrderNotFound  = "ORDER_NOT_FOUND"
	ReasonPairNotFound   = "PAIR_NOT_FOUND"
	ReasonTimeout        = "TIMEOUT"
	ReasonUpstream       = "UPSTREAM_ERROR"
)

// Capabilities reports which read scopes the supplied credentials grant.
type Capabilities struct {
	Orders       bool `json:"orders"`
	Fills        bool `json:"fills"`
	Positions    bool `json:"positions"`
	Liquidations bool `json:"liquidations"`
}

// AccountSummary is the normalized slice of exchange account state we retain.
type AccountSummary struct {
	AccountID string `json:"account_id,omitempty"`
	Equity    string `json:"equity,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// VerifyRequest carries exchange credentials plus the order the buyer wants
// covered. Credentials are used for the verification call only and never
// stored.
type VerifyRequest struct {
	APIKey      string            `json:"apiKey"`
	APISecret   string            `json:"apiSecret"`
	Passphrase  string            `json:"passphrase,omitempty"`
	Environment string            `json:"environment,omitempty"` // "live" | "testnet"
	OrderRef    string            `json:"orderRef"`
	Pair        string            `json:"pair"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// VerifyResult is the uniform verification outcome across exchanges.
type VerifyResult struct {
	Status     VerifyStatus    `json:"status"`
	Caps       Capabilities    `json:"caps"`
	Account    *AccountSummary `json:"account,omitempty"`
	Order      *OrderEcho      `json:"order,omitempty"`
	Reasons    []string        `json:"reasons,omitempty"`
	VerifiedAt time.Time       `json:"verified_at"`
	SessionID  string          `json:"session_id"`
}

// Failed reports whether any check failed.
func (r *VerifyResult) Failed() bool { return r.Status == StatusFailed }

// Adapter verifies a user's exchange account and echoes the referenced order
// in a normalized shape. Adapters are stateless; callers own retry policy.
type Adapter interface {
	Name() string
	VerifyAccount(ctx context.Context, req *VerifyRequest) (*VerifyResult, error)
}

// Registry is an immutable name-to-adapter mapping constructed once at
// startup and passed by injection to consumers.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds the adapter registry from the enabled exchange endpoints.
func NewRegistry(timeout time.Duration, endpoints map[string]string, logger *zap.Logger) *Registry {
	client := &http.Client{Timeout: timeout}

	adapters := make(map[string]Adapter)
	if base, ok := endpoints["okx"]; ok {
		adapters["okx"] = NewOKXAdapter(base, client, logger)
	}
	if base, ok := endpoints["binance"]; ok {
		adapters["binance"] = NewBinanceAdapter(base, client, logger)
	}
	if base, ok := endpoints["hyperliquid"]; ok {
		adapters["hyperliquid"] = NewHyperliquidAdapter(base, client, logger)
	}

	return &Registry{adapters: adapters}
}

// Resolve returns the adapter for an exchange name.
func (r *Registry) Resolve(name string) (Adapter, error) {
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, models.NewServiceError(models.ErrCodeUnsupportedExchange,
			"Unsupported exchange", models.ErrUnsupportedExchange).WithDetail("exchange", name)
	}
	return adapter, nil
}

// Names lists the registered exchange keys.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// newSession stamps a fresh verification session id and timestamp.
func newSession() (string, time.Time) {
	return uuid.NewString(), time.Now().UTC()
}

// failedResult assembles a failed VerifyResult preserving every reason.
func failedResult(reasons []string) *VerifyResult {
	sessionID, now := newSession()
	return &VerifyResult{
		Status:     StatusFailed,
		Reasons:    reasons,
		VerifiedAt: now,
		SessionID:  sessionID,
	}
}
