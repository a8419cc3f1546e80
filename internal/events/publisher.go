package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/config"
	"github.com/liqpass/liqpass-backend/internal/models"
)

// Event types published on the lifecycle bus
const (
	TypeOrderCreated     = "order.created"
	TypeOrderCancelled   = "order.cancelled"
	TypeOrderExpired     = "order.expired"
	TypePaymentConfirmed = "payment.confirmed"
	TypePaymentRejected  = "payment.rejected"
	TypeClaimFiled       = "claim.filed"
	TypeClaimDecided     = "claim.decided"
	TypeClaimPaid        = "claim.paid"
)

// Event is the envelope every lifecycle message travels in.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher emits order, payment and claim lifecycle events over NATS.
// A nil Publisher is valid and drops everything, so callers never need to
// guard on whether the bus is configured.
type Publisher struct {
	conn     *nats.Conn
	subjects config.SubjectsConfig
	logger   *zap.Logger
}

// NewPublisher connects to NATS and returns a publisher. Returns nil (still
// safe to call) when the bus is disabled in configuration.
func NewPublisher(cfg config.NATSConfig, logger *zap.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		logger.Info("NATS event bus disabled")
		return nil, nil
	}

	conn, err := nats.Connect(cfg.Address,
		nats.Timeout(10*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Address, err)
	}

	logger.Info("Connected to NATS", zap.String("address", cfg.Address))
	return &Publisher{
		conn:     conn,
		subjects: cfg.Subjects,
		logger:   logger,
	}, nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}

// OrderCreated publishes an order.created event
func (p *Publisher) OrderCreated(order *models.Order) {
	p.publish(subjectOrders, TypeOrderCreated, order)
}

// OrderCancelled publishes an order.cancelled event
func (p *Publisher) OrderCancelled(order *models.Order) {
	p.publish(subjectOrders, TypeOrderCancelled, order)
}

// OrdersExpired publishes one order.expired event per sweep that retired rows.
func (p *Publisher) OrdersExpired(count int64, at time.Time) {
	p.publish(subjectOrders, TypeOrderExpired, map[string]interface{}{
		"count":      count,
		"expired_at": at,
	})
}

// PaymentConfirmed publishes a payment.confirmed event
func (p *Publisher) PaymentConfirmed(proof *models.PaymentProof, order *models.Order) {
	p.publish(subjectPayments, TypePaymentConfirmed, map[string]interface{}{
		"proof": proof,
		"order": order,
	})
}

// PaymentRejected publishes a payment.rejected event
func (p *Publisher) PaymentRejected(proof *models.PaymentProof, reason string) {
	p.publish(subjectPayments, TypePaymentRejected, map[string]interface{}{
		"proof":  proof,
		"reason": reason,
	})
}

// ClaimFiled publishes a claim.filed event
func (p *Publisher) ClaimFiled(claim *models.ClaimRecord) {
	p.publish(subjectClaims, TypeClaimFiled, claim)
}

// ClaimDecided publishes a claim.decided event
func (p *Publisher) ClaimDecided(claim *models.ClaimRecord) {
	p.publish(subjectClaims, TypeClaimDecided, claim)
}

// ClaimPaid publishes a claim.paid event
func (p *Publisher) ClaimPaid(claim *models.ClaimRecord) {
	p.publish(subjectClaims, TypeClaimPaid, claim)
}

type subjectKind int

const (
	subjectOrders subjectKind = iota
	subjectPayments
	subjectClaims
)

func (p *Publisher) subjectFor(kind subjectKind) string {
	var subject string
	switch kind {
	case subjectOrders:
		subject = p.subjects.OrderEvents
	case subjectPayments:
		subject = p.subjects.PaymentEvents
	case subjectClaims:
		subject = p.subjects.ClaimEvents
	}
	if subject == "" {
		return "liqpass.events"
	}
	return subject
}

func (p *Publisher) publish(kind subjectKind, eventType string, payload interface{}) {
	if p == nil || p.conn == nil {
		return
	}
	subject := p.subjectFor(kind)

	data, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}

	// Publishing is best effort: a lost event never blocks the state machine.
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("subject", subject),
			zap.String("type", eventType),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("Event published",
		zap.String("subject", subject),
		zap.String("type", eventType),
	)
}
