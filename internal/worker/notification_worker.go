package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/mq"
)

// RoutingKeyTicketSubmitted is the topic used for submitted tickets.
const RoutingKeyTicketSubmitted = "ticket.submitted"

const (
	relayTimeout   = 5 * time.Second
	relayQueueSize = 256
)

var errRelayQueueFull = errors.New("event relay queue full")

// EventRelay forwards ticket events from the dispatcher to the broker on its
// own goroutine, so a slow broker never holds up a submission.
type EventRelay struct {
	publisher mq.Publisher
	logger    *zap.Logger
	queue     chan events.Event
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// StartEventRelay subscribes the relay to submitted-ticket events. It returns
// nil when there is nothing to relay to; Close is safe on a nil relay.
func StartEventRelay(dispatcher events.Dispatcher, publisher mq.Publisher, logger *zap.Logger) *EventRelay {
	if dispatcher == nil || publisher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &EventRelay{
		publisher: publisher,
		logger:    logger,
		queue:     make(chan events.Event, relayQueueSize),
		done:      make(chan struct{}),
	}
	go r.run()
	dispatcher.Subscribe(events.EventTicketSubmitted, r.enqueue)
	return r
}

func (r *EventRelay) enqueue(_ context.Context, event events.Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	select {
	case r.queue <- event:
		return nil
	default:
		return errRelayQueueFull
	}
}

func (r *EventRelay) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		if err := r.publisher.Publish(ctx, RoutingKeyTicketSubmitted, event); err != nil {
			r.logger.Warn("ticket event relay failed",
				zap.String("event_id", event.ID),
				zap.Int64("ticket_id", event.TicketID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (r *EventRelay) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}
