package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	durable    bool
	published  []amqp.Publishing
	keys       []string
	declareErr error
	publishErr error
	closed     bool
	notify     chan *amqp.Error
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, name)
	f.durable = durable
	return amqp.Queue{Name: name}, f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) NotifyClose(c chan *amqp.Error) chan *amqp.Error {
	f.notify = c
	return c
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

// brokerClose simulates the server closing the channel.
func (f *fakeChannel) brokerClose(reason *amqp.Error) {
	f.notify <- reason
	close(f.notify)
}

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer hands out the queued channels in order, then fails.
type fakeDialer struct {
	channels []*fakeChannel
	conns    []*fakeConn
	dials    int
	err      error
}

func (d *fakeDialer) dial() (channel, io.Closer, error) {
	d.dials++
	if d.err != nil {
		return nil, nil, d.err
	}
	if len(d.channels) == 0 {
		return nil, nil, errors.New("connection refused")
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	conn := &fakeConn{}
	d.conns = append(d.conns, conn)
	return ch, conn, nil
}

func newTestPublisher(t *testing.T, channels ...*fakeChannel) (*AMQPPublisher, *fakeDialer) {
	t.Helper()
	d := &fakeDialer{channels: channels}
	p, err := newPublisher(d.dial, "enrollment.confirmed", nil)
	require.NoError(t, err)
	return p, d
}

func TestAMQPPublisherPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newTestPublisher(t, ch)
	assert.Equal(t, []string{"enrollment.confirmed"}, ch.declared)
	assert.True(t, ch.durable)

	event := EnrollmentConfirmed{
		Flow:         FlowSelfEnroll,
		StudentID:    7,
		OfferingID:   3,
		EnrollmentID: 55,
		Amount:       "75.00",
		ConfirmedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishEnrollmentConfirmed(context.Background(), event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "enrollment.confirmed", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded EnrollmentConfirmed
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestAMQPPublisherDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	d := &fakeDialer{channels: []*fakeChannel{ch}}
	_, err := newPublisher(d.dial, "q", nil)
	require.Error(t, err)
	assert.True(t, ch.closed)
	require.Len(t, d.conns, 1)
	assert.True(t, d.conns[0].closed)
}

func TestAMQPPublisherClosed(t *testing.T) {
	ch := &fakeChannel{}
	p, d := newTestPublisher(t, ch)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, d.conns[0].closed)

	err := p.PublishEnrollmentConfirmed(context.Background(), EnrollmentConfirmed{Flow: FlowSelfEnroll})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestAMQPPublisherPublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, _ := newTestPublisher(t, ch)

	err := p.PublishEnrollmentConfirmed(context.Background(), EnrollmentConfirmed{Flow: FlowCreateAndEnroll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

func TestAMQPPublisherRedialsAfterBrokerClose(t *testing.T) {
	first, second := &fakeChannel{}, &fakeChannel{}
	p, d := newTestPublisher(t, first, second)
	ctx := context.Background()

	require.NoError(t, p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll, EnrollmentID: 1}))
	first.brokerClose(&amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"})

	require.NoError(t, p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll, EnrollmentID: 2}))
	assert.Equal(t, 2, d.dials)
	assert.Len(t, first.published, 1)
	assert.Len(t, second.published, 1)
	assert.Equal(t, []string{"enrollment.confirmed"}, second.declared)
	assert.True(t, first.closed)
	assert.True(t, d.conns[0].closed)
}

func TestAMQPPublisherRetriesDialUntilBrokerReturns(t *testing.T) {
	first := &fakeChannel{}
	p, d := newTestPublisher(t, first)
	ctx := context.Background()
	first.brokerClose(nil)

	err := p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconnect amqp")

	back := &fakeChannel{}
	d.channels = append(d.channels, back)
	require.NoError(t, p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll}))
	assert.Len(t, back.published, 1)
	assert.Equal(t, 3, d.dials)
}

func TestAMQPPublisherDropsChannelOnErrClosed(t *testing.T) {
	first := &fakeChannel{publishErr: amqp.ErrClosed}
	second := &fakeChannel{}
	p, d := newTestPublisher(t, first, second)
	ctx := context.Background()

	require.ErrorIs(t, p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll}), amqp.ErrClosed)
	require.NoError(t, p.PublishEnrollmentConfirmed(ctx, EnrollmentConfirmed{Flow: FlowSelfEnroll}))
	assert.Equal(t, 2, d.dials)
	assert.Len(t, second.published, 1)
}
