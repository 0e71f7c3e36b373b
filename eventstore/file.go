package eventstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// FileStore is a MemStore persisted as JSON lines, one record per line.
// The whole log is read when opened.
// logFile is the part of *os.File the store writes through.
type logFile interface {
	io.Writer
	Sync() error
	Truncate(size int64) error
	Stat() (os.FileInfo, error)
	Close() error
}

type FileStore struct {
	mem  *MemStore
	path string
	fp   logFile
	// Set when a failed write could not be undone. The file may end in a
	// partial line, so nothing more is appended.
	broken error
}

func OpenFileStore(path string) (*FileStore, error) {
	mem := NewMemStore()
	if err := loadLines(path, mem); err != nil {
		return nil, err
	}
	fp, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("Open event log %q: %w", path, err)
	}
	return &FileStore{mem: mem, path: path, fp: fp}, nil
}

func loadLines(path string, mem *MemStore) error {
	fp, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("Open event log %q: %w", path, err)
	}
	defer fp.Close()

	scanner := bufio.NewScanner(fp)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return fmt.Errorf("Event log %q line %d: %w", path, line, err)
		}
		current := len(mem.streams[r.AggregateID])
		if r.Version != current+1 {
			return fmt.Errorf("Event log %q line %d: version %d of %s follows version %d",
				path, line, r.Version, r.AggregateID, current)
		}
		mem.streams[r.AggregateID] = append(mem.streams[r.AggregateID], r)
		mem.all = append(mem.all, r)
		if r.SequenceID >= mem.nextSeq {
			mem.nextSeq = r.SequenceID + 1
		}
	}
	return scanner.Err()
}

func (s *FileStore) Load(ctx context.Context, aggregateID uuid.UUID) ([]Record, error) {
	return s.mem.Load(ctx, aggregateID)
}

func (s *FileStore) All(ctx context.Context) ([]Record, error) {
	return s.mem.All(ctx)
}

func (s *FileStore) Append(
	ctx context.Context, aggregateID uuid.UUID, expectedVersion int, records []Record) ([]Record, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRecords(aggregateID, records); err != nil {
		return nil, err
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if s.broken != nil {
		return nil, s.broken
	}
	staged, err := s.mem.stage(aggregateID, expectedVersion, records)
	if err != nil {
		return nil, err
	}
	info, err := s.fp.Stat()
	if err != nil {
		return nil, fmt.Errorf("Stat event log %q: %w", s.path, err)
	}
	// Written as a single buffer so a batch is never interleaved with another.
	var buf []byte
	for _, r := range staged {
		line, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("Encode record %s: %w", r.EventID, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if _, err := s.fp.Write(buf); err != nil {
		return nil, s.undoWrite(info.Size(), fmt.Errorf("Write event log %q: %w", s.path, err))
	}
	if err := s.fp.Sync(); err != nil {
		return nil, s.undoWrite(info.Size(), fmt.Errorf("Sync event log %q: %w", s.path, err))
	}
	s.mem.commit(aggregateID, staged)
	return staged, nil
}

// undoWrite cuts the log back to size after a failed append. Must hold mu.
func (s *FileStore) undoWrite(size int64, writeErr error) error {
	if err := s.fp.Truncate(size); err != nil {
		s.broken = fmt.Errorf("Event log %q is unusable after a failed append (%v): %w",
			s.path, writeErr, err)
		return s.broken
	}
	return writeErr
}

func (s *FileStore) Close() error {
	return s.fp.Close()
}
