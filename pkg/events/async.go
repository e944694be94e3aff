package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/course-enrollment/pkg/jobs"
)

const jobKindEnrollmentConfirmed = "enrollment.confirmed"

// AsyncPublisher hands events to a worker queue so request handlers never wait
// on the broker. Failed deliveries are retried by the queue.
type AsyncPublisher struct {
	next         Publisher
	queue        *jobs.Queue
	drainTimeout time.Duration
}

// NewAsyncPublisher starts a worker queue delivering events to next.
func NewAsyncPublisher(next Publisher, cfg jobs.QueueConfig, drainTimeout time.Duration) *AsyncPublisher {
	if drainTimeout <= 0 {
		drainTimeout = 5 * time.Second
	}
	p := &AsyncPublisher{next: next, drainTimeout: drainTimeout}
	p.queue = jobs.NewQueue("enrollment-events", p.deliver, cfg)
	p.queue.Start(context.Background())
	return p
}

// PublishEnrollmentConfirmed queues the event. It fails only when the queue is
// full or closed.
func (p *AsyncPublisher) PublishEnrollmentConfirmed(_ context.Context, event EnrollmentConfirmed) error {
	return p.queue.Enqueue(jobs.Job{
		ID:      event.Flow + ":" + strconv.FormatInt(event.EnrollmentID, 10),
		Kind:    jobKindEnrollmentConfirmed,
		Payload: event,
	})
}

// Close drains queued events, then closes the underlying publisher.
func (p *AsyncPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
	defer cancel()
	err := p.queue.Stop(ctx)
	if cerr := p.next.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *AsyncPublisher) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(EnrollmentConfirmed)
	if !ok {
		return fmt.Errorf("events: unexpected payload %T for job %s", job.Payload, job.ID)
	}
	return p.next.PublishEnrollmentConfirmed(ctx, event)
}
