package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher decouples event emission from sink I/O with a buffered inbox.
// Emit never blocks: when the inbox is full the event is dropped with a
// warning rather than stalling dispatch.
type Publisher struct {
	sink   Sink
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher builds a publisher with the given inbox capacity.
func NewPublisher(sink Sink, buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		sink:   sink,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit enqueues an audit event, stamping ID and timestamp if unset.
func (p *Publisher) Emit(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit inbox full, dropping event",
			"event_id", event.ID,
			"event_type", event.EventType,
		)
	}
}

// Run consumes the inbox until ctx is cancelled, draining whatever is
// already queued before returning.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case event := <-p.inbox:
			p.append(event)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case event := <-p.inbox:
			p.append(event)
		default:
			return
		}
	}
}

func (p *Publisher) append(event Event) {
	// Sink writes get their own deadline; the run context may already be
	// cancelled during shutdown drain.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.sink.Append(ctx, event); err != nil {
		p.logger.Error("append audit event failed", "event_id", event.ID, "error", err)
	}
}
