package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// AmountMatchPolicy selects how a payment proof amount is reconciled against
// the order premium.
type AmountMatchPolicy string

const (
	// AmountMatchExact requires the transfer to equal the premium.
	AmountMatchExact AmountMatchPolicy = "exact"
	// AmountMatchMinimum accepts any transfer at or above the premium.
	AmountMatchMinimum AmountMatchPolicy = "minimum"
)

// Config represents the complete configuration for the LiqPass backend
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Chain     ChainConfig     `yaml:"chain"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Quotes    QuotesConfig    `yaml:"quotes"`
	Exchanges ExchangesConfig `yaml:"exchanges"`
	NATS      NATSConfig      `yaml:"nats"`
	Catalog   []models.SKU    `yaml:"catalog"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	MaxLifetime    time.Duration `yaml:"max_lifetime"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
}

// ChainConfig represents the EVM chain the platform settles on
type ChainConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	ChainID        int64         `yaml:"chain_id"`
	Confirmations  uint64        `yaml:"confirmations"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// USDCContracts maps chain id to the USDC token contract address.
	USDCContracts map[int64]string `yaml:"usdc_contracts"`
	// TokenDecimals is the USDC minor-unit scale (6 on every supported chain).
	TokenDecimals int32 `yaml:"token_decimals"`
}

// PaymentsConfig represents payment reconciliation configuration
type PaymentsConfig struct {
	VaultAddress string            `yaml:"vault_address"`
	AmountMatch  AmountMatchPolicy `yaml:"amount_match"`
}

// QuotesConfig represents quote voucher signing configuration
type QuotesConfig struct {
	SigningSecret string `yaml:"signing_secret"`
	Issuer        string `yaml:"issuer"`
}

// ExchangeEndpoint represents one exchange REST endpoint
type ExchangeEndpoint struct {
	BaseURL string `yaml:"base_url"`
	Enabled bool   `yaml:"enabled"`
}

// ExchangesConfig represents the exchange adapter layer configuration
type ExchangesConfig struct {
	Timeout     time.Duration    `yaml:"timeout"`
	OKX         ExchangeEndpoint `yaml:"okx"`
	Binance     ExchangeEndpoint `yaml:"binance"`
	Hyperliquid ExchangeEndpoint `yaml:"hyperliquid"`
}

// NATSConfig represents the optional lifecycle event bus configuration
type NATSConfig struct {
	Address  string         `yaml:"address"`
	Enabled  bool           `yaml:"enabled"`
	Subjects SubjectsConfig `yaml:"subjects"`
}

// SubjectsConfig represents NATS subjects for lifecycle events
type SubjectsConfig struct {
	OrderEvents   string `yaml:"order_events"`
	PaymentEvents string `yaml:"payment_events"`
	ClaimEvents   string `yaml:"claim_events"`
}

// zeroAddress is rejected everywhere an on-chain address is configured.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// Validate validates the configuration. Any error here is fatal: the process
// must refuse to serve traffic rather than run with a blackhole vault or a
// wrong token contract.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain RPC URL is required")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("invalid chain id: %d", c.Chain.ChainID)
	}
	if c.Chain.Confirmations == 0 {
		return fmt.Errorf("confirmation depth must be at least 1")
	}
	if len(c.Chain.USDCContracts) == 0 {
		return fmt.Errorf("at least one USDC contract must be configured")
	}
	for chainID, addr := range c.Chain.USDCContracts {
		if err := validateAddress(addr); err != nil {
			return fmt.Errorf("usdc contract for chain %d: %w", chainID, err)
		}
	}
	if _, ok := c.Chain.USDCContracts[c.Chain.ChainID]; !ok {
		return fmt.Errorf("no USDC contract configured for settlement chain %d", c.Chain.ChainID)
	}
	if c.Chain.TokenDecimals <= 0 {
		return fmt.Errorf("token decimals must be positive")
	}

	if err := validateAddress(c.Payments.VaultAddress); err != nil {
		return fmt.Errorf("vault address: %w", err)
	}
	switch c.Payments.AmountMatch {
	case AmountMatchExact, AmountMatchMinimum:
	default:
		return fmt.Errorf("amount match policy must be %q or %q, got %q",
			AmountMatchExact, AmountMatchMinimum, c.Payments.AmountMatch)
	}

	if len(c.Quotes.SigningSecret) < 32 {
		return fmt.Errorf("quote signing secret must be at least 32 bytes")
	}

	if len(c.Catalog) == 0 {
		return fmt.Errorf("at least one SKU must be configured")
	}
	for i := range c.Catalog {
		if err := validateSKU(&c.Catalog[i]); err != nil {
			return fmt.Errorf("catalog sku %q: %w", c.Catalog[i].ID, err)
		}
	}

	if c.NATS.Enabled && c.NATS.Address == "" {
		return fmt.Errorf("NATS address is required when NATS is enabled")
	}

	return nil
}

// validateAddress rejects malformed hex and the zero (blackhole) address.
func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("malformed hex address %q", addr)
	}
	if common.HexToAddress(addr) == common.HexToAddress(zeroAddress) {
		return fmt.Errorf("zero address is not allowed")
	}
	return nil
}

func validateSKU(sku *models.SKU) error {
	if sku.ID == "" {
		return fmt.Errorf("sku id is required")
	}
	if sku.LeverageMin.IsZero() || sku.LeverageMax.LessThan(sku.LeverageMin) {
		return fmt.Errorf("invalid leverage bounds [%s, %s]", sku.LeverageMin, sku.LeverageMax)
	}
	if sku.PrincipalMin.IsNegative() || sku.PrincipalMax.LessThan(sku.PrincipalMin) {
		return fmt.Errorf("invalid principal bounds [%s, %s]", sku.PrincipalMin, sku.PrincipalMax)
	}
	p := sku.Pricing
	if p.FeeCap.LessThanOrEqual(decimal.Zero) || p.FeeCap.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee cap must be in (0, 1]")
	}
	if p.PayoutFloor.IsNegative() || p.PayoutCap.LessThan(p.PayoutFloor) {
		return fmt.Errorf("invalid payout ratio band [%s, %s]", p.PayoutFloor, p.PayoutCap)
	}
	if p.QuoteTTLSeconds <= 0 {
		return fmt.Errorf("quote ttl must be positive")
	}
	if sku.PayoutCapUSD.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("payout cap usd must be positive")
	}
	return nil
}

// GetDatabaseConfig returns database configuration for pgxpool
func (c *Config) GetDatabaseConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = int32(c.MaxConnectionsOrDefault())
	cfg.MinConns = int32(c.Database.MinConnections)
	cfg.MaxConnLifetime = c.Database.MaxLifetime
	cfg.MaxConnIdleTime = c.Database.IdleTimeout

	return cfg, nil
}

// MaxConnectionsOrDefault guards against an unset pool size.
func (c *Config) MaxConnectionsOrDefault() int {
	if c.Database.MaxConnections <= 0 {
		return 25
	}
	return c.Database.MaxConnections
}

// USDCContract returns the configured USDC contract for a chain id.
func (c *Config) USDCContract(chainID int64) (string, bool) {
	addr, ok := c.Chain.USDCContracts[chainID]
	return addr, ok
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.LogLevel == "debug"
}
