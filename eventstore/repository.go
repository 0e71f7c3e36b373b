package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/log"
)

// Aggregate is an event-sourced entity with uncommitted events of type E.
type Aggregate[E any] interface {
	AggregateID() uuid.UUID
	Version() int
	ReleaseEvents() []E
}

// Codec maps events to (type, payload) rows and back.
type Codec[E any] interface {
	MarshalEvent(e E) (string, []byte, error)
	UnmarshalEvent(eventType string, payload []byte) (E, error)
}

// Rehydrator rebuilds an aggregate from its history. version is the number of
// events in history.
type Rehydrator[A Aggregate[E], E any] func(id uuid.UUID, history []E, version int) A

type Repository[A Aggregate[E], E any] struct {
	store     Store
	codec     Codec[E]
	rehydrate Rehydrator[A, E]
}

func NewRepository[A Aggregate[E], E any](
	store Store, codec Codec[E], rehydrate Rehydrator[A, E]) *Repository[A, E] {
	return &Repository[A, E]{store: store, codec: codec, rehydrate: rehydrate}
}

func (r *Repository[A, E]) Retrieve(ctx context.Context, id uuid.UUID) (A, error) {
	records, err := r.store.Load(ctx, id)
	if err != nil {
		var zero A
		return zero, err
	}
	history := make([]E, 0, len(records))
	for _, rec := range records {
		e, err := r.codec.UnmarshalEvent(rec.Type, rec.Payload)
		if err != nil {
			var zero A
			return zero, fmt.Errorf("Decode %s v%d of %s: %w", rec.Type, rec.Version, id, err)
		}
		history = append(history, e)
	}
	return r.rehydrate(id, history, len(records)), nil
}

// Persist appends the aggregate's released events and returns the committed
// records. Nothing is written if encoding any event fails.
func (r *Repository[A, E]) Persist(ctx context.Context, a A) ([]Record, error) {
	events := a.ReleaseEvents()
	if len(events) == 0 {
		return nil, nil
	}
	records := make([]Record, 0, len(events))
	for _, e := range events {
		eventType, payload, err := r.codec.MarshalEvent(e)
		if err != nil {
			return nil, fmt.Errorf("Encode event for %s: %w", a.AggregateID(), err)
		}
		records = append(records, NewRecord(a.AggregateID(), eventType, payload))
	}
	return r.store.Append(ctx, a.AggregateID(), a.Version(), records)
}

// Execute runs one rehydrate, decide, append cycle on the aggregate. When the
// append loses a race with another writer the whole cycle is retried, up to
// maxRetries times, so decide must be safe to call again on a fresh aggregate.
func (r *Repository[A, E]) Execute(
	ctx context.Context, id uuid.UUID, maxRetries int, decide func(A) error) ([]Record, error) {

	for attempt := 0; ; attempt++ {
		a, err := r.Retrieve(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := decide(a); err != nil {
			return nil, err
		}
		committed, err := r.Persist(ctx, a)
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) || attempt >= maxRetries {
			return nil, err
		}
		log.Tracef("eventstore", "%s: retrying after conflict (attempt %d): %v", id, attempt+1, err)
	}
}
