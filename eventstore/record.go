// Package eventstore is the append-only event log aggregates are persisted to
// and rehydrated from.
//
// Each aggregate's events form a stream ordered by version. Appends carry the
// version the writer last saw, so two writers deciding on the same stream at
// once cannot both commit: the loser gets ErrConcurrencyConflict and must
// rehydrate and decide again.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrConcurrencyConflict = errors.New("concurrency conflict")

// Record is one persisted event row.
type Record struct {
	SequenceID  int64           `json:"sequence_id"`
	EventID     uuid.UUID       `json:"event_id"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	Version     int             `json:"version"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
}

func NewRecord(aggregateID uuid.UUID, eventType string, payload []byte) Record {
	return Record{
		EventID:     uuid.New(),
		AggregateID: aggregateID,
		Type:        eventType,
		Payload:     payload,
	}
}

type Store interface {
	// Load returns the aggregate's records ordered by version.
	Load(ctx context.Context, aggregateID uuid.UUID) ([]Record, error)
	// Append commits records after expectedVersion, assigning versions and
	// sequence ids. All or none of the records are committed.
	Append(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, records []Record) ([]Record, error)
	// All returns every record in commit order.
	All(ctx context.Context) ([]Record, error)
}

func conflictError(aggregateID uuid.UUID, expected int, actual int) error {
	return fmt.Errorf("Append to %s at version %d, but stream is at version %d: %w",
		aggregateID, expected, actual, ErrConcurrencyConflict)
}

func checkRecords(aggregateID uuid.UUID, records []Record) error {
	for _, r := range records {
		if r.AggregateID != aggregateID {
			return fmt.Errorf("Record %s belongs to aggregate %s, not %s",
				r.EventID, r.AggregateID, aggregateID)
		}
	}
	return nil
}
