package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"bondtrader/internal/config"
)

// Consumer reads purchase events from the fanout exchange and forwards them
// into the journal via a buffered batch writer.
type Consumer struct {
	cfg     config.RabbitMQConfig
	logger  *logrus.Entry
	batcher *BatchWriter

	conn    *amqp.Connection
	channel *amqp.Channel
	wg      sync.WaitGroup
}

// NewConsumer prepares a consumer for the given configuration.
func NewConsumer(cfg config.RabbitMQConfig, journal PurchaseWriter, logger *logrus.Logger) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.JournalQueue == "" {
		return nil, errors.New("journal queue name is required")
	}
	batchCfg := BatchConfig{
		Size:    cfg.BatchSize,
		Timeout: cfg.BatchTimeout,
	}
	return &Consumer{
		cfg:     cfg,
		logger:  logger.WithField("component", "purchase_consumer"),
		batcher: NewBatchWriter(batchCfg, journal, logger),
	}, nil
}

// Start establishes the AMQP connection and begins consuming.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	c.conn = conn
	c.batcher.Run(ctx)

	deliveries, err := c.subscribe()
	if err != nil {
		c.Close(ctx)
		return err
	}

	c.wg.Add(1)
	go c.consumeLoop(ctx, deliveries)

	c.logger.WithFields(logrus.Fields{
		"exchange": c.cfg.PurchasesExchange,
		"queue":    c.cfg.JournalQueue,
	}).Info("rabbitmq consumer started")
	return nil
}

// Close stops consumption, flushes pending batches, and releases resources.
func (c *Consumer) Close(ctx context.Context) error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.wg.Wait()
	return c.batcher.Stop(ctx)
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	exchange := c.cfg.PurchasesExchange
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	queue, err := ch.QueueDeclare(c.cfg.JournalQueue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", c.cfg.JournalQueue, err)
	}
	if err := ch.QueueBind(queue.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue %s to %s: %w", queue.Name, exchange, err)
	}
	prefetch := c.cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consume: %w", err)
	}
	c.channel = ch
	return deliveries, nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(&delivery)
		}
	}
}

// handle acks malformed events right away so they are not redelivered
// forever; a failed flush requeues the event.
func (c *Consumer) handle(delivery *amqp.Delivery) {
	log := c.logger.WithField("message_id", delivery.MessageId)

	purchase, err := decodePurchase(delivery.Body)
	if err != nil {
		log.WithError(err).Warn("dropped malformed purchase event")
		_ = delivery.Ack(false)
		return
	}
	if err := c.batcher.Add(purchase); err != nil {
		log.WithError(err).Warn("failed to journal purchase")
		_ = delivery.Nack(false, true)
		return
	}
	if err := delivery.Ack(false); err != nil {
		log.WithError(err).Warn("failed to ack delivery")
	}
}
