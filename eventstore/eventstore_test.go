package eventstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func records(id uuid.UUID, types ...string) []Record {
	out := []Record{}
	for _, t := range types {
		out = append(out, NewRecord(id, t, []byte(`{}`)))
	}
	return out
}

func recordTypes(rs []Record) []string {
	out := []string{}
	for _, r := range rs {
		out = append(out, r.Type)
	}
	return out
}

func testStoreAppend(t *testing.T, s Store) {
	rq := require.New(t)
	ctx := context.Background()
	a := uuid.New()
	b := uuid.New()

	committed, err := s.Append(ctx, a, 0, records(a, "x", "y"))
	rq.Nil(err)
	rq.Equal(1, committed[0].Version)
	rq.Equal(2, committed[1].Version)
	rq.Equal(int64(1), committed[0].SequenceID)

	_, err = s.Append(ctx, b, 0, records(b, "z"))
	rq.Nil(err)

	_, err = s.Append(ctx, a, 1, records(a, "stale"))
	rq.True(errors.Is(err, ErrConcurrencyConflict), "%v", err)

	_, err = s.Append(ctx, a, 2, records(b, "wrong"))
	rq.ErrorContains(err, "belongs to aggregate")

	committed, err = s.Append(ctx, a, 2, records(a, "w"))
	rq.Nil(err)
	rq.Equal(3, committed[0].Version)
	rq.Equal(int64(4), committed[0].SequenceID)

	loaded, err := s.Load(ctx, a)
	rq.Nil(err)
	rq.Equal([]string{"x", "y", "w"}, recordTypes(loaded))

	all, err := s.All(ctx)
	rq.Nil(err)
	rq.Equal([]string{"x", "y", "z", "w"}, recordTypes(all))

	empty, err := s.Load(ctx, uuid.New())
	rq.Nil(err)
	rq.Empty(empty)
}

func TestMemStore(t *testing.T) {
	testStoreAppend(t, NewMemStore())
}

func TestMemStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	id := uuid.New()
	_, err := NewMemStore().Append(ctx, id, 0, records(id, "x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestFileStore(t *testing.T) {
	rq := require.New(t)
	path := filepath.Join(t.TempDir(), "events.jsonl")

	s, err := OpenFileStore(path)
	rq.Nil(err)
	testStoreAppend(t, s)
	rq.Nil(s.Close())

	reopened, err := OpenFileStore(path)
	rq.Nil(err)
	defer reopened.Close()
	all, err := reopened.All(context.Background())
	rq.Nil(err)
	rq.Equal([]string{"x", "y", "z", "w"}, recordTypes(all))

	// Versions and sequence ids continue from the log.
	id := all[0].AggregateID
	committed, err := reopened.Append(context.Background(), id, 3, records(id, "v"))
	rq.Nil(err)
	rq.Equal(4, committed[0].Version)
	rq.Equal(int64(5), committed[0].SequenceID)
}

func TestFileStoreRejectsVersionGaps(t *testing.T) {
	rq := require.New(t)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	id := uuid.New()
	line := `{"sequence_id":1,"event_id":"` + uuid.NewString() + `","aggregate_id":"` + id.String() +
		`","version":2,"type":"x","payload":{}}` + "\n"
	rq.Nil(os.WriteFile(path, []byte(line), 0o644))

	_, err := OpenFileStore(path)
	rq.ErrorContains(err, "version 2")
}

func TestDispatcher(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	id := uuid.New()

	var seen []string
	d := NewDispatcher(ConsumerFunc(func(ctx context.Context, r Record) error {
		seen = append(seen, "first:"+r.Type)
		return nil
	}))
	d.Register(ConsumerFunc(func(ctx context.Context, r Record) error {
		seen = append(seen, "second:"+r.Type)
		if r.Type == "bad" {
			return errors.New("boom")
		}
		return nil
	}))

	rq.Nil(d.Dispatch(ctx, records(id, "x", "y")))
	rq.Equal([]string{"first:x", "second:x", "first:y", "second:y"}, seen)

	err := d.Dispatch(ctx, records(id, "bad", "never"))
	rq.ErrorContains(err, "boom")
	rq.NotContains(seen, "first:never")
}

type counter struct {
	id      uuid.UUID
	version int
	total   int
	pending []int
}

func (c *counter) AggregateID() uuid.UUID { return c.id }
func (c *counter) Version() int           { return c.version }
func (c *counter) ReleaseEvents() []int {
	out := c.pending
	c.pending = nil
	return out
}

type intCodec struct{}

func (intCodec) MarshalEvent(e int) (string, []byte, error) {
	if e < 0 {
		return "", nil, errors.New("negative")
	}
	return "added", []byte(`{"n":` + string(rune('0'+e)) + `}`), nil
}

func (intCodec) UnmarshalEvent(eventType string, payload []byte) (int, error) {
	if eventType != "added" {
		return 0, errors.New("unknown")
	}
	return int(payload[5] - '0'), nil
}

func rehydrateCounter(id uuid.UUID, history []int, version int) *counter {
	c := &counter{id: id, version: version}
	for _, n := range history {
		c.total += n
	}
	return c
}

func TestRepository(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	repo := NewRepository[*counter, int](NewMemStore(), intCodec{}, rehydrateCounter)
	id := uuid.New()

	c, err := repo.Retrieve(ctx, id)
	rq.Nil(err)
	rq.Equal(0, c.Version())

	committed, err := repo.Persist(ctx, c)
	rq.Nil(err)
	rq.Empty(committed)

	c.pending = []int{2, 3}
	committed, err = repo.Persist(ctx, c)
	rq.Nil(err)
	rq.Len(committed, 2)

	c, err = repo.Retrieve(ctx, id)
	rq.Nil(err)
	rq.Equal(2, c.Version())
	rq.Equal(5, c.total)

	c.pending = []int{1, -1}
	_, err = repo.Persist(ctx, c)
	rq.ErrorContains(err, "negative")
	c, err = repo.Retrieve(ctx, id)
	rq.Nil(err)
	rq.Equal(2, c.Version())
}

// racingStore commits a competing record before the first n appends.
type racingStore struct {
	*MemStore
	races int
}

func (s *racingStore) Append(
	ctx context.Context, id uuid.UUID, expectedVersion int, rs []Record) ([]Record, error) {

	if s.races > 0 {
		s.races--
		if _, err := s.MemStore.Append(ctx, id, expectedVersion, []Record{
			NewRecord(id, "added", []byte(`{"n":1}`)),
		}); err != nil {
			return nil, err
		}
	}
	return s.MemStore.Append(ctx, id, expectedVersion, rs)
}

func TestRepositoryExecuteRetriesConflicts(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	store := &racingStore{MemStore: NewMemStore(), races: 2}
	repo := NewRepository[*counter, int](store, intCodec{}, rehydrateCounter)
	id := uuid.New()

	decisions := 0
	add := func(c *counter) error {
		decisions++
		c.pending = []int{3}
		return nil
	}
	committed, err := repo.Execute(ctx, id, 2, add)
	rq.Nil(err)
	rq.Len(committed, 1)
	rq.Equal(3, decisions)

	c, err := repo.Retrieve(ctx, id)
	rq.Nil(err)
	// Two competing records, then ours.
	rq.Equal(5, c.total)

	store.races = 2
	_, err = repo.Execute(ctx, id, 1, add)
	rq.ErrorIs(err, ErrConcurrencyConflict)

	_, err = repo.Execute(ctx, id, 1, func(*counter) error { return errors.New("rejected") })
	rq.ErrorContains(err, "rejected")
}

// shortWriteFile writes only the first half of the next write, then fails.
type shortWriteFile struct {
	*os.File
	fail          bool
	truncateFails bool
}

func (f *shortWriteFile) Write(p []byte) (int, error) {
	if !f.fail {
		return f.File.Write(p)
	}
	f.fail = false
	n, _ := f.File.Write(p[:len(p)/2])
	return n, errors.New("disk full")
}

func (f *shortWriteFile) Truncate(size int64) error {
	if f.truncateFails {
		return errors.New("read-only")
	}
	return f.File.Truncate(size)
}

func TestFileStoreUndoesPartialWrite(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	id := uuid.New()

	s, err := OpenFileStore(path)
	rq.Nil(err)
	_, err = s.Append(ctx, id, 0, records(id, "x"))
	rq.Nil(err)

	f := &shortWriteFile{File: s.fp.(*os.File), fail: true}
	s.fp = f
	_, err = s.Append(ctx, id, 1, records(id, "lost", "lost"))
	rq.ErrorContains(err, "disk full")

	committed, err := s.Append(ctx, id, 1, records(id, "y"))
	rq.Nil(err)
	rq.Equal(2, committed[0].Version)
	rq.Nil(s.Close())

	reopened, err := OpenFileStore(path)
	rq.Nil(err)
	defer reopened.Close()
	loaded, err := reopened.Load(ctx, id)
	rq.Nil(err)
	rq.Equal([]string{"x", "y"}, recordTypes(loaded))
}

func TestFileStoreUnusableWhenPartialWriteStays(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	id := uuid.New()

	s, err := OpenFileStore(path)
	rq.Nil(err)
	defer s.Close()
	s.fp = &shortWriteFile{File: s.fp.(*os.File), fail: true, truncateFails: true}

	_, err = s.Append(ctx, id, 0, records(id, "x"))
	rq.ErrorContains(err, "unusable")
	rq.ErrorContains(err, "disk full")

	_, err = s.Append(ctx, id, 0, records(id, "y"))
	rq.ErrorContains(err, "unusable")
	loaded, err := s.Load(ctx, id)
	rq.Nil(err)
	rq.Empty(loaded)
}
