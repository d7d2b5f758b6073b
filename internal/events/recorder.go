// Package events fans transition events out to the journal, the bus, the
// websocket feed, and operator notifications. The core emits synchronously;
// delivery to slow consumers happens off the transition path.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// Channel is the pub/sub channel and stream name of the transition feed.
const (
	Channel = "shares.events"
	Stream  = "shares.events.stream"
)

// Broadcaster pushes an encoded event to connected websocket clients.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Notifier delivers selected events to operators. Rendering is the
// notifier's job; the recorder hands over the raw event.
type Notifier interface {
	Notify(ctx context.Context, ev domain.Event) error
}

// Recorder implements domain.EventSink. It stamps events with an ID and
// timestamp, then forwards them to every configured consumer. All consumers
// are optional; a zero Recorder is a valid no-op sink.
type Recorder struct {
	store    domain.EventStore
	bus      domain.EventBus
	hub      Broadcaster
	notifier Notifier
	logger   *slog.Logger

	queue     chan domain.Event
	done      chan struct{}
	projector *Projector
}

// NewRecorder creates a Recorder. Pass nil for any consumer that is not
// wired. Start must be called before the recorder delivers anything.
func NewRecorder(store domain.EventStore, bus domain.EventBus, hub Broadcaster, notifier Notifier, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:    store,
		bus:      bus,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "events")),
		queue:    make(chan domain.Event, 256),
		done:     make(chan struct{}),
	}
}

// SetProjector registers the read-model projector. It is attached after
// construction because the projector observes core components that are
// themselves built around this recorder. Must be called before Start.
func (r *Recorder) SetProjector(p *Projector) { r.projector = p }

// Emit implements domain.EventSink. It never blocks the emitting transition;
// if the delivery queue is full the event is logged and dropped from the
// side channels (the transition itself has already committed).
func (r *Recorder) Emit(ev domain.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("event queue full, dropping from side channels",
			slog.String("kind", string(ev.Kind)),
			slog.String("id", ev.ID),
		)
	}
}

// Start runs the delivery loop until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-r.queue:
				r.deliver(ctx, ev)
			}
		}
	}()
}

// Wait blocks until the delivery loop has stopped.
func (r *Recorder) Wait() { <-r.done }

func (r *Recorder) deliver(ctx context.Context, ev domain.Event) {
	r.logger.InfoContext(ctx, "state transition",
		slog.String("kind", string(ev.Kind)),
		slog.String("actor", ev.Actor.Hex()),
		slog.String("subject", ev.Subject.Hex()),
		slog.String("reason", ev.Reason),
	)

	if r.store != nil {
		if err := r.store.Insert(ctx, ev); err != nil {
			r.logger.ErrorContext(ctx, "journal insert failed",
				slog.String("id", ev.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.projector != nil {
		r.projector.Apply(ctx, ev)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.ErrorContext(ctx, "event encode failed", slog.String("id", ev.ID), slog.String("error", err.Error()))
		return
	}

	if r.bus != nil {
		if err := r.bus.Publish(ctx, Channel, payload); err != nil {
			r.logger.WarnContext(ctx, "bus publish failed", slog.String("error", err.Error()))
		}
		if err := r.bus.StreamAppend(ctx, Stream, payload); err != nil {
			r.logger.WarnContext(ctx, "stream append failed", slog.String("error", err.Error()))
		}
	}

	if r.hub != nil {
		r.hub.Broadcast(payload)
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, ev); err != nil {
			r.logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
		}
	}
}
