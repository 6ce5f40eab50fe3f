package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	domain "bondtrader/internal/domain/entity/purchases"
)

// ErrNilPurchase is returned when a nil purchase is published.
var ErrNilPurchase = errors.New("nil purchase")

// Publisher announces executed purchases on a fanout exchange.
type Publisher struct {
	channel  *amqp.Channel
	exchange string
	logger   *logrus.Entry
	mu       sync.Mutex
}

// NewPublisher opens a channel on conn and declares the exchange.
func NewPublisher(conn *amqp.Connection, exchange string, logger *logrus.Logger) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("exchange name cannot be empty")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger.WithField("component", "purchase_publisher"),
	}, nil
}

// Close closes the publishing channel.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Errorf("close rabbitmq channel: %v", err)
	}
}

// RecordPurchase publishes a purchase.executed event.
func (p *Publisher) RecordPurchase(ctx context.Context, purchase *domain.Purchase) error {
	body, err := encodePurchase(purchase)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    purchase.ID.String(),
		Type:         eventPurchaseExecuted,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish purchase: %w", err)
	}
	return nil
}

func encodePurchase(purchase *domain.Purchase) ([]byte, error) {
	if purchase == nil {
		return nil, ErrNilPurchase
	}
	body, err := json.Marshal(BaseMessage{Type: eventPurchaseExecuted, Purchase: purchase})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return body, nil
}

func decodePurchase(body []byte) (*domain.Purchase, error) {
	var payload BaseMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Type != eventPurchaseExecuted {
		return nil, fmt.Errorf("unsupported event type %q", payload.Type)
	}
	if payload.Purchase == nil {
		return nil, errors.New("purchase payload is nil")
	}
	return payload.Purchase, nil
}
