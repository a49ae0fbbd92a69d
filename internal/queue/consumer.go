package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/model"
)

// AuditStore persists a decoded entry.  *repository.AuditRepo implements it.
type AuditStore interface {
	Insert(ctx context.Context, e model.AuditEntry) error
}

// Consumer drains the audit queue into the store.
type Consumer struct {
	url   string
	store AuditStore
	log   *logrus.Logger
}

func NewConsumer(url string, store AuditStore, log *logrus.Logger) *Consumer {
	return &Consumer{url: url, store: store, log: log}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("audit-consumer: dial failed, retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("audit-consumer: consume loop ended, reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("audit-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			switch c.handle(ctx, d.Body, d.Redelivered) {
			case ack:
				_ = d.Ack(false)
			case requeue:
				_ = d.Nack(false, true)
			default:
				_ = d.Nack(false, false)
			}
		}
	}
}

type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

// handle decides the fate of one delivery.  Malformed bodies are dropped.
// A store failure is retried once through redelivery, then dropped.
func (c *Consumer) handle(ctx context.Context, body []byte, redelivered bool) outcome {
	e, err := decodeEvent(body)
	if err != nil {
		c.log.WithError(err).Warn("audit-consumer: dropping malformed message")
		return drop
	}
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.store.Insert(wctx, e); err != nil {
		l := c.log.WithError(err).WithField("audit_id", e.ID)
		if redelivered {
			l.Warn("audit-consumer: insert failed again, dropping entry")
			return drop
		}
		l.Warn("audit-consumer: insert failed, requeueing")
		return requeue
	}
	return ack
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
