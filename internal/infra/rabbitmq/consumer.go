package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ragavsathish/yt-sl/pkg/retry"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, body []byte) error

// Consumer runs a fixed pool of workers over the extraction queue. Failed
// deliveries are nacked with requeue after a backoff derived from the
// message's x-death count, so redeliveries spread out instead of hammering.
type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queue       string
	exchange    string
	workerCount int
	backoff     retry.Policy
	handler     MessageHandler
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	URL          string
	ExtractQueue string
	StatusQueue  string
	DLQ          string
	Exchange     string
	Prefetch     int
	WorkerCount  int
	Backoff      retry.Policy
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{cfg.ExtractQueue, cfg.DLQ, cfg.StatusQueue} {
		_, err = ch.QueueDeclare(q, true, false, false, false, nil)
		if err != nil {
			return nil, fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	err = ch.QueueBind(cfg.ExtractQueue, "slides.extract", cfg.Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind extract queue: %w", err)
	}

	err = ch.QueueBind(cfg.StatusQueue, "slides.status", cfg.Exchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind status queue: %w", err)
	}

	err = ch.Qos(cfg.Prefetch, 0, false)
	if err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       cfg.ExtractQueue,
		exchange:    cfg.Exchange,
		workerCount: cfg.WorkerCount,
		backoff:     cfg.Backoff,
		handler:     handler,
		logger:      logger,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	err := c.handler(ctx, d.Body)
	if err != nil {
		log.Warn("message processing failed, nacking",
			zap.Error(err),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)

		attempt := attemptFromHeaders(d)
		delay := c.backoff.Backoff(attempt - 1)
		log.Info("backoff before requeue", zap.Duration("delay", delay), zap.Int("attempt", attempt))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = d.Nack(false, false)
			return
		}

		_ = d.Nack(false, true) // requeue=true
		return
	}

	_ = d.Ack(false)
}

// attemptFromHeaders counts prior deaths of this delivery. First delivery
// has no x-death header and counts as attempt 1.
func attemptFromHeaders(d amqp.Delivery) int {
	if d.Headers == nil {
		return 1
	}
	if xDeath, ok := d.Headers["x-death"]; ok {
		if deaths, ok := xDeath.([]interface{}); ok && len(deaths) > 0 {
			return len(deaths)
		}
	}
	return 1
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
