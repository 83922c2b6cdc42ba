package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/queue"
)

// Dispatcher accepts a notification request.  Implementations deliver
// best-effort and asynchronously: Send never blocks the caller and never
// reports an error, because a failed notification must not abort the
// state transition that triggered it.
type Dispatcher interface {
	Send(ctx context.Context, n queue.Notification)
}

// PublishFunc publishes one notification to the broker.
type PublishFunc func(ctx context.Context, n queue.Notification) error

// QueueDispatcher buffers notifications on a channel and drains them
// from a single worker goroutine that publishes to RabbitMQ with
// retries.  Enqueueing is non-blocking; when the buffer is full the
// event is dropped with a log line rather than stalling a request.
type QueueDispatcher struct {
	events  chan queue.Notification
	publish PublishFunc
	done    chan struct{}
}

// NewQueueDispatcher builds a dispatcher with the given buffer size.  A
// nil publish function defaults to the RabbitMQ publisher.
func NewQueueDispatcher(buffer int, publish PublishFunc) *QueueDispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if publish == nil {
		publish = queue.PublishNotification
	}
	return &QueueDispatcher{
		events:  make(chan queue.Notification, buffer),
		publish: publish,
		done:    make(chan struct{}),
	}
}

// Start launches the publishing worker.
func (d *QueueDispatcher) Start() {
	go d.run()
}

// Close stops accepting notifications and waits for the worker to drain
// the buffer.
func (d *QueueDispatcher) Close() {
	close(d.events)
	<-d.done
}

// Send stamps and enqueues a notification.  It never blocks: a full
// buffer drops the event with a log line.
func (d *QueueDispatcher) Send(_ context.Context, n queue.Notification) {
	if n.EmittedAt == "" {
		n.EmittedAt = time.Now().UTC().Format(time.RFC3339)
	}
	select {
	case d.events <- n:
	default:
		log.Printf("notifier: buffer full, dropping %s for session %d", n.Type, n.SessionID)
	}
}

// run publishes queued notifications with capped exponential backoff.
// At-least-once: an event is only given up after maxAttempts, and the
// failure is logged with enough context to replay by hand.
func (d *QueueDispatcher) run() {
	defer close(d.done)
	const maxAttempts = 5
	for n := range d.events {
		backoff := time.Second
		var err error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = d.publish(ctx, n)
			cancel()
			if err == nil {
				break
			}
			log.Printf("notifier: publish %s for session %d failed (attempt %d/%d): %v",
				n.Type, n.SessionID, attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
				}
			}
		}
		if err != nil {
			log.Printf("notifier: giving up on %s for session %d", n.Type, n.SessionID)
		}
	}
}
