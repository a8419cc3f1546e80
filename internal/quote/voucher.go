package quote

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"github.com/liqpass/liqpass-backend/internal/models"
)

// VoucherClaims is the JWT payload asserting a quote was issued by this
// service. Decimal fields travel as strings so no precision is lost.
type VoucherClaims struct {
	IdempotencyKey string `json:"idk"`
	SKUID          string `json:"sku"`
	Principal      string `json:"principal"`
	Leverage       string `json:"leverage"`
	FeeRatio       string `json:"fee_ratio"`
	PayoutRatio    string `json:"payout_ratio"`
	PremiumUSDC    string `json:"premium"`
	PayoutUSDC     string `json:"payout"`
	Wallet         string `json:"wallet"`
	jwt.RegisteredClaims
}

// Signer issues and verifies quote vouchers (HS256).
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a new voucher signer
func NewSigner(secret, issuer string) *Signer {
	return &Signer{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Sign produces the voucher token for a quote. The token expiry is the quote
// expiry, so voucher verification doubles as quote-freshness enforcement.
func (s *Signer) Sign(q *models.Quote) (string, error) {
	claims := &VoucherClaims{
		IdempotencyKey: q.IdempotencyKey,
		SKUID:          q.SKUID,
		Principal:      q.Principal.String(),
		Leverage:       q.Leverage.String(),
		FeeRatio:       q.FeeRatio.String(),
		PayoutRatio:    q.PayoutRatio.String(),
		PremiumUSDC:    q.PremiumUSDC.String(),
		PayoutUSDC:     q.PayoutUSDC.String(),
		Wallet:         q.Wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   q.Wallet,
			IssuedAt:  jwt.NewNumericDate(q.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(q.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign voucher: %w", err)
	}
	return signed, nil
}

// Verify validates a voucher and reconstructs the quote it asserts.
// An expired token maps to QUOTE_EXPIRED; any other failure to QUOTE_INVALID.
func (s *Signer) Verify(voucher string) (*models.Quote, error) {
	claims := &VoucherClaims{}
	token, err := jwt.ParseWithClaims(voucher, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewQuoteExpiredError(claims.IdempotencyKey)
		}
		return nil, models.NewServiceError(models.ErrCodeQuoteInvalid, "Quote voucher invalid", err)
	}
	if !token.Valid {
		return nil, models.NewServiceError(models.ErrCodeQuoteInvalid, "Quote voucher invalid", models.ErrQuoteInvalid)
	}

	q, err := claims.quote()
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeQuoteInvalid, "Quote voucher invalid", err)
	}
	return q, nil
}

func (c *VoucherClaims) quote() (*models.Quote, error) {
	var (
		q   models.Quote
		err error
	)
	q.IdempotencyKey = c.IdempotencyKey
	q.SKUID = c.SKUID
	q.Wallet = c.Wallet
	if q.Principal, err = decimal.NewFromString(c.Principal); err != nil {
		return nil, fmt.Errorf("principal: %w", err)
	}
	if q.Leverage, err = decimal.NewFromString(c.Leverage); err != nil {
		return nil, fmt.Errorf("leverage: %w", err)
	}
	if q.FeeRatio, err = decimal.NewFromString(c.FeeRatio); err != nil {
		return nil, fmt.Errorf("fee ratio: %w", err)
	}
	if q.PayoutRatio, err = decimal.NewFromString(c.PayoutRatio); err != nil {
		return nil, fmt.Errorf("payout ratio: %w", err)
	}
	if q.PremiumUSDC, err = decimal.NewFromString(c.PremiumUSDC); err != nil {
		return nil, fmt.Errorf("premium: %w", err)
	}
	if q.PayoutUSDC, err = decimal.NewFromString(c.PayoutUSDC); err != nil {
		return nil, fmt.Errorf("payout: %w", err)
	}
	if c.IssuedAt != nil {
		q.CreatedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		q.ExpiresAt = c.ExpiresAt.Time
	}
	if q.IdempotencyKey == "" || q.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("voucher missing idempotency key or expiry")
	}
	return &q, nil
}
