package eventstore

import (
	"context"
	"fmt"
)

// Consumer reacts to committed records.
type Consumer interface {
	Handle(ctx context.Context, record Record) error
}

type ConsumerFunc func(ctx context.Context, record Record) error

func (f ConsumerFunc) Handle(ctx context.Context, record Record) error {
	return f(ctx, record)
}

// Dispatcher delivers committed records to its consumers synchronously, in
// commit order. Callers dispatch each commit once.
type Dispatcher struct {
	consumers []Consumer
}

func NewDispatcher(consumers ...Consumer) *Dispatcher {
	return &Dispatcher{consumers: consumers}
}

func (d *Dispatcher) Register(c Consumer) {
	d.consumers = append(d.consumers, c)
}

func (d *Dispatcher) Dispatch(ctx context.Context, records []Record) error {
	for _, r := range records {
		for _, c := range d.consumers {
			if err := c.Handle(ctx, r); err != nil {
				return fmt.Errorf("Dispatch %s (%s v%d): %w", r.Type, r.AggregateID, r.Version, err)
			}
		}
	}
	return nil
}
