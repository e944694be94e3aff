// Package events publishes enrollment domain events to RabbitMQ. Publishing is
// best effort: callers log failures and carry on, since the enrollment it
// describes has already committed.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	FlowSelfEnroll      = "self_enroll"
	FlowCreateAndEnroll = "create_and_enroll"
)

// EnrollmentConfirmed is emitted after an enrollment transaction commits.
type EnrollmentConfirmed struct {
	Flow         string    `json:"flow"`
	StudentID    int64     `json:"student_id"`
	OfferingID   int64     `json:"offering_id"`
	EnrollmentID int64     `json:"enrollment_id"`
	Amount       string    `json:"amount,omitempty"`
	ConfirmedAt  time.Time `json:"confirmed_at"`
}

// Publisher sends enrollment events to a broker.
type Publisher interface {
	PublishEnrollmentConfirmed(ctx context.Context, event EnrollmentConfirmed) error
	Close() error
}

// NopPublisher discards every event. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEnrollmentConfirmed(context.Context, EnrollmentConfirmed) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("events: publisher closed")

// channel is the subset of *amqp.Channel used by the publisher.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// dialFunc opens a fresh channel and the connection that owns it.
type dialFunc func() (channel, io.Closer, error)

// AMQPPublisher publishes persistent JSON messages to a durable queue on the
// default exchange. When the broker closes the channel the publisher drops
// it and redials on the next publish.
type AMQPPublisher struct {
	mu     sync.Mutex
	dial   dialFunc
	conn   io.Closer
	ch     channel
	closes chan *amqp.Error
	queue  string
	closed bool
	logger *zap.Logger
	now    func() time.Time
}

// NewAMQPPublisher dials the broker and declares the target queue. A broker
// that is unreachable at startup is reported as an error.
func NewAMQPPublisher(url, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	dial := func() (channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial amqp: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open amqp channel: %w", err)
		}
		return ch, conn, nil
	}
	return newPublisher(dial, queue, logger)
}

func newPublisher(dial dialFunc, queue string, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &AMQPPublisher{dial: dial, queue: queue, logger: logger, now: time.Now}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect opens a channel, declares the queue and subscribes to its closure.
// Callers hold p.mu.
func (p *AMQPPublisher) connect() error {
	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if conn != nil {
			_ = conn.Close()
		}
		return fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	p.ch = ch
	p.conn = conn
	p.closes = ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// alive reports whether the current channel is usable, dropping it once the
// broker has closed it. Callers hold p.mu.
func (p *AMQPPublisher) alive() bool {
	if p.ch == nil {
		return false
	}
	select {
	case reason, ok := <-p.closes:
		fields := []zap.Field{zap.String("queue", p.queue)}
		if ok && reason != nil {
			fields = append(fields, zap.Int("code", reason.Code), zap.String("reason", reason.Reason))
		}
		p.logger.Warn("amqp channel closed, publisher will redial", fields...)
		p.drop()
		return false
	default:
		return true
	}
}

func (p *AMQPPublisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn, p.closes = nil, nil, nil
}

// PublishEnrollmentConfirmed publishes the event as a persistent message.
func (p *AMQPPublisher) PublishEnrollmentConfirmed(ctx context.Context, event EnrollmentConfirmed) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal enrollment event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if !p.alive() {
		if err := p.connect(); err != nil {
			return fmt.Errorf("reconnect amqp: %w", err)
		}
		p.logger.Info("amqp publisher reconnected", zap.String("queue", p.queue))
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			p.drop()
		}
		return fmt.Errorf("publish enrollment event: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	p.ch, p.conn, p.closes = nil, nil, nil
	return err
}
