package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fiapx/fiapx-screenshot-service/internal/infra/metrics"
)

const maxBackoff = 60 * time.Second

// ErrConnectionClosed is returned by Start when the broker drops the connection.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// MessageHandler processes one delivery body. A nil error acks the delivery,
// anything else requeues it after a backoff.
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumerConfig struct {
	URL         string
	Queue       string
	Exchange    string
	DLQ         string
	StatusQueue string
	Prefetch    int
	WorkerCount int
	BaseDelayMs int
}

type Consumer struct {
	cfg       ConsumerConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	closed    chan *amqp.Error
	baseDelay time.Duration
	handler   MessageHandler
	tracer    trace.Tracer
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareTopology(ch, cfg.Exchange, cfg.Queue, cfg.StatusQueue, cfg.DLQ); err != nil {
		conn.Close()
		return nil, err
	}

	// one unacked job per worker unless configured otherwise
	prefetch := cfg.Prefetch
	if prefetch < 1 {
		prefetch = cfg.WorkerCount
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &Consumer{
		cfg:       cfg,
		conn:      conn,
		channel:   ch,
		closed:    conn.NotifyClose(make(chan *amqp.Error, 1)),
		baseDelay: time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		handler:   handler,
		tracer:    otel.Tracer("screenshot-consumer"),
		logger:    logger.With(zap.String("queue", cfg.Queue)),
	}, nil
}

// Start consumes until ctx is cancelled or the connection drops, then waits
// for in-flight deliveries to finish.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries, err := c.channel.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting worker pool", zap.Int("workers", c.cfg.WorkerCount))
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	var result error
	select {
	case <-ctx.Done():
		c.logger.Info("context cancelled, waiting for workers to finish")
	case amqpErr, ok := <-c.closed:
		if ok && amqpErr != nil {
			result = fmt.Errorf("%w: %s", ErrConnectionClosed, amqpErr.Reason)
		} else {
			result = ErrConnectionClosed
		}
		c.logger.Error("broker connection lost", zap.Error(result))
		cancel()
	}

	c.wg.Wait()
	return result
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.handle(ctx, d, log)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	attempt := attemptOf(d)
	msgCtx, span := c.tracer.Start(extractTrace(ctx, d.Headers), "rabbitmq.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", c.cfg.Queue),
			attribute.Int("messaging.attempt", attempt),
		),
	)
	defer span.End()

	err := c.invoke(msgCtx, d.Body)
	if err == nil {
		c.settle(d, "ack", log, d.Ack(false))
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	delay := backoff(c.baseDelay, attempt)
	log.Warn("delivery failed, requeueing after backoff",
		zap.Error(err),
		zap.Uint64("delivery_tag", d.DeliveryTag),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		c.settle(d, "requeue", log, d.Nack(false, true))
	case <-ctx.Done():
		// the broker redelivers unacked messages once the channel closes
		c.settle(d, "abandoned", log, nil)
	}
}

// invoke turns a handler panic into an error so one delivery cannot stop the pool.
func (c *Consumer) invoke(ctx context.Context, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, body)
}

func (c *Consumer) settle(d amqp.Delivery, outcome string, log *zap.Logger, err error) {
	metrics.DeliveriesTotal.WithLabelValues(outcome).Inc()
	if err != nil {
		log.Error("failed to settle delivery",
			zap.String("outcome", outcome),
			zap.Uint64("delivery_tag", d.DeliveryTag),
			zap.Error(err),
		)
	}
}

// DeclareTopology declares the topic exchange and the durable queues, binding the
// processing and status queues with their own names as routing keys.
func DeclareTopology(ch *amqp.Channel, exchange, queue, statusQueue, dlq string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{queue, dlq, statusQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	for _, q := range []string{queue, statusQueue} {
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// attemptOf estimates how many times a delivery has been handed out. Dead
// lettered messages carry x-death entries; plain requeues only set Redelivered.
func attemptOf(d amqp.Delivery) int {
	if deaths, ok := d.Headers["x-death"].([]interface{}); ok && len(deaths) > 0 {
		return len(deaths) + 1
	}
	if d.Redelivered {
		return 2
	}
	return 1
}

func backoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}
