package digest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/studyloop/tutor-backend/internal/homework"
	"github.com/studyloop/tutor-backend/internal/platform/cache"
)

func sampleDigest(assignmentID string) *Digest {
	avg := 90
	return &Digest{
		AssignmentID: assignmentID,
		StudentID:    "stu-1",
		TopProblems: []ProblemSummary{
			{ProblemID: "p1", ProblemNumber: 1, Status: homework.StatusStuck, Score: 5, StuckReason: "sign error"},
			{ProblemID: "p2", ProblemNumber: 2, Status: homework.StatusQuestion, Score: 4},
		},
		Summary: Summary{
			TotalProblems:           2,
			Stuck:                   1,
			Question:                1,
			CommonStuckReasons:      []string{"sign error"},
			AverageTimeSpentSeconds: &avg,
		},
		Checksum:    "abc123",
		GeneratedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_Upsert_Replaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := sampleDigest("a1")
	if err := s.UpsertDigest(ctx, first); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}

	second := sampleDigest("a1")
	second.Checksum = "def456"
	second.TopProblems = second.TopProblems[:1]
	if err := s.UpsertDigest(ctx, second); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}

	got, err := s.GetDigest(ctx, "a1")
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if got.Checksum != "def456" || len(got.TopProblems) != 1 {
		t.Errorf("digest not replaced: %+v", got)
	}
}

func TestMemoryStore_GetDigest_NotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.GetDigest(context.Background(), "missing"); !errors.Is(err, homework.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_GetDigest_ReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.UpsertDigest(ctx, sampleDigest("a1")); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}

	got, _ := s.GetDigest(ctx, "a1")
	got.TopProblems[0].StuckReason = "mutated"

	again, _ := s.GetDigest(ctx, "a1")
	if again.TopProblems[0].StuckReason != "sign error" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestMemoryStore_SetConfirmedProblems(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.UpsertDigest(ctx, sampleDigest("a1")); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}

	if err := s.SetConfirmedProblems(ctx, "a1", []string{"p1"}); err != nil {
		t.Fatalf("SetConfirmedProblems() error = %v", err)
	}
	got, _ := s.GetDigest(ctx, "a1")
	if !reflect.DeepEqual(got.ConfirmedProblemIDs, []string{"p1"}) {
		t.Errorf("ConfirmedProblemIDs = %v", got.ConfirmedProblemIDs)
	}

	if err := s.SetConfirmedProblems(ctx, "missing", nil); !errors.Is(err, homework.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// fakeCache is a map-backed jsonCache for exercising CachedStore.
type fakeCache struct {
	entries map[string][]byte
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.entries, key)
	c.deletes++
	return nil
}

// countingStore counts reads against the backing store.
type countingStore struct {
	Store
	reads int
}

func (s *countingStore) GetDigest(ctx context.Context, assignmentID string) (*Digest, error) {
	s.reads++
	return s.Store.GetDigest(ctx, assignmentID)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemoryStore()}
	fc := newFakeCache()
	s := NewCachedStore(inner, fc, time.Minute, nil)

	if err := inner.UpsertDigest(ctx, sampleDigest("a1")); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	first, err := s.GetDigest(ctx, "a1")
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if inner.reads != 1 {
		t.Fatalf("backing reads = %d, want 1", inner.reads)
	}

	second, err := s.GetDigest(ctx, "a1")
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if inner.reads != 1 {
		t.Errorf("backing reads = %d, want cache hit to skip the store", inner.reads)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached digest differs:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestCachedStore_UpsertPopulatesCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemoryStore()}
	s := NewCachedStore(inner, newFakeCache(), time.Minute, nil)

	if err := s.UpsertDigest(ctx, sampleDigest("a1")); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}
	if _, err := s.GetDigest(ctx, "a1"); err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if inner.reads != 0 {
		t.Errorf("backing reads = %d, want 0 after upsert warmed the cache", inner.reads)
	}
}

func TestCachedStore_ConfirmInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemoryStore()}
	fc := newFakeCache()
	s := NewCachedStore(inner, fc, time.Minute, nil)

	if err := s.UpsertDigest(ctx, sampleDigest("a1")); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}
	if err := s.SetConfirmedProblems(ctx, "a1", []string{"p1"}); err != nil {
		t.Fatalf("SetConfirmedProblems() error = %v", err)
	}
	if fc.deletes != 1 {
		t.Errorf("cache deletes = %d, want 1", fc.deletes)
	}

	got, err := s.GetDigest(ctx, "a1")
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if !reflect.DeepEqual(got.ConfirmedProblemIDs, []string{"p1"}) {
		t.Errorf("ConfirmedProblemIDs = %v, want repopulated from the store", got.ConfirmedProblemIDs)
	}

	if _, err := s.GetDigest(ctx, "missing"); !errors.Is(err, homework.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound passed through", err)
	}
}
