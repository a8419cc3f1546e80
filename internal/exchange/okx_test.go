package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

func okxTestServer(t *testing.T, accountStatus int, orderState string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v5/account/config", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("OK-ACCESS-KEY"))
		require.NotEmpty(t, r.Header.Get("OK-ACCESS-SIGN"))
		require.NotEmpty(t, r.Header.Get("OK-ACCESS-TIMESTAMP"))
		if accountStatus != http.StatusOK {
			w.WriteHeader(accountStatus)
			return
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[{"uid":"228845","perm":"read_only","acctLv":"2"}]}`))
	})
	mux.HandleFunc("/api/v5/trade/order", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "9952", r.URL.Query().Get("ordId"))
		w.Write([]byte(`{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","ordId":"9952","state":"` + orderState + `","side":"buy","sz":"0.5","fillSz":"0.5","px":"65000","ts":"1724800000000"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestOKXVerifyAccountSuccess(t *testing.T) {
	srv := okxTestServer(t, http.StatusOK, "filled")
	defer srv.Close()

	adapter := NewOKXAdapter(srv.URL, srv.Client(), zap.NewNop())
	result, err := adapter.VerifyAccount(context.Background(), &VerifyRequest{
		APIKey:    "key",
		APISecret: "secret",
		OrderRef:  "9952",
		Pair:      "BTC-USDT-SWAP",
	})
	require.NoError(t, err)

	require.Equal(t, StatusVerified, result.Status)
	require.Empty(t, result.Reasons)
	require.True(t, result.Caps.Orders)
	require.NotNil(t, result.Account)
	require.Equal(t, "228845", result.Account.AccountID)
	require.NotNil(t, result.Order)
	require.Equal(t, "FILLED", result.Order.Status)
	require.NotEmpty(t, result.SessionID)
}

func TestOKXVerifyAccountBadCredentials(t *testing.T) {
	srv := okxTestServer(t, http.StatusUnauthorized, "filled")
	defer srv.Close()

	adapter := NewOKXAdapter(srv.URL, srv.Client(), zap.NewNop())
	result, err := adapter.VerifyAccount(context.Background(), &VerifyRequest{
		APIKey:    "bad-key",
		APISecret: "bad-secret",
		OrderRef:  "9952",
		Pair:      "BTC-USDT-SWAP",
	})
	require.NoError(t, err)

	require.Equal(t, StatusFailed, result.Status)
	require.Contains(t, result.Reasons, ReasonBadCredentials)
	// Order lookup still ran; the reasons list enumerates every check.
	require.NotNil(t, result.Order)
}

func TestOKXVerifyAccountPairMismatch(t *testing.T) {
	srv := okxTestServer(t, http.StatusOK, "filled")
	defer srv.Close()

	adapter := NewOKXAdapter(srv.URL, srv.Client(), zap.NewNop())
	result, err := adapter.VerifyAccount(context.Background(), &VerifyRequest{
		APIKey:    "key",
		APISecret: "secret",
		OrderRef:  "9952",
		Pair:      "ETH-USDT-SWAP",
	})
	require.NoError(t, err)

	require.Equal(t, StatusFailed, result.Status)
	require.Contains(t, result.Reasons, ReasonPairNotFound)
}

func TestOKXVerifyAccountTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	adapter := NewOKXAdapter(slow.URL, client, zap.NewNop())
	result, err := adapter.VerifyAccount(context.Background(), &VerifyRequest{
		APIKey:    "key",
		APISecret: "secret",
	})
	require.NoError(t, err)

	require.Equal(t, StatusFailed, result.Status)
	require.Equal(t, []string{ReasonTimeout}, result.Reasons)
}

func TestRegistryResolve(t *testing.T) {
	registry := NewRegistry(time.Second, map[string]string{
		"okx":         "http://localhost:1",
		"hyperliquid": "http://localhost:2",
	}, zap.NewNop())

	adapter, err := registry.Resolve("OKX")
	require.NoError(t, err)
	require.Equal(t, "okx", adapter.Name())

	_, err = registry.Resolve("kraken")
	require.Error(t, err)
	var svcErr *models.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, models.ErrCodeUnsupportedExchange, svcErr.Code)

	require.ElementsMatch(t, []string{"okx", "hyperliquid"}, registry.Names())
}
