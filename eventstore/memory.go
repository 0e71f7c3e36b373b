package eventstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tsiemens/ukcgt/log"
)

// MemStore keeps the event log in memory.
type MemStore struct {
	mu      sync.RWMutex
	streams map[uuid.UUID][]Record
	all     []Record
	nextSeq int64
}

func NewMemStore() *MemStore {
	return &MemStore{streams: make(map[uuid.UUID][]Record), nextSeq: 1}
}

func (s *MemStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream := s.streams[aggregateID]
	out := make([]Record, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *MemStore) Append(
	ctx context.Context, aggregateID uuid.UUID, expectedVersion int, records []Record) ([]Record, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRecords(aggregateID, records); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	committed, err := s.stage(aggregateID, expectedVersion, records)
	if err != nil {
		return nil, err
	}
	s.commit(aggregateID, committed)
	return committed, nil
}

// stage assigns versions and sequence ids without committing. Must hold mu.
func (s *MemStore) stage(aggregateID uuid.UUID, expectedVersion int, records []Record) ([]Record, error) {
	current := len(s.streams[aggregateID])
	if current != expectedVersion {
		return nil, conflictError(aggregateID, expectedVersion, current)
	}
	staged := make([]Record, len(records))
	for i, r := range records {
		r.Version = expectedVersion + i + 1
		r.SequenceID = s.nextSeq + int64(i)
		staged[i] = r
	}
	return staged, nil
}

// Must hold mu.
func (s *MemStore) commit(aggregateID uuid.UUID, records []Record) {
	s.streams[aggregateID] = append(s.streams[aggregateID], records...)
	s.all = append(s.all, records...)
	s.nextSeq += int64(len(records))
	log.Tracef("eventstore", "committed %d records to %s", len(records), aggregateID)
}

func (s *MemStore) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.all))
	copy(out, s.all)
	return out, nil
}
