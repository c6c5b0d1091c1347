package history

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"geotrail/internal/adapter/slot"
	"geotrail/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(capacity int) (*Store, *slot.MemorySlot) {
	s := slot.NewMemorySlot("")
	return NewStore(capacity, s, newTestLogger()), s
}

func sampleAt(i int) domain.PositionSample {
	return domain.PositionSample{
		Latitude:  float64(i),
		Longitude: float64(i),
		Accuracy:  5,
		Timestamp: int64(i),
	}
}

func TestAppendAndSnapshotOrder(t *testing.T) {
	store, _ := newTestStore(10)
	for i := 0; i < 5; i++ {
		store.Append(sampleAt(i))
	}
	snap := store.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d, want 5", len(snap))
	}
	for i, s := range snap {
		if s.Timestamp != int64(i) {
			t.Errorf("snap[%d].Timestamp = %d, want %d", i, s.Timestamp, i)
		}
	}
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	const capacity, extra = 10, 7
	store, _ := newTestStore(capacity)
	for i := 0; i < capacity+extra; i++ {
		store.Append(sampleAt(i))
	}
	snap := store.Snapshot()
	if len(snap) != capacity {
		t.Fatalf("len = %d, want %d", len(snap), capacity)
	}
	// Exactly the last `capacity` samples remain, in insertion order.
	for i, s := range snap {
		want := int64(extra + i)
		if s.Timestamp != want {
			t.Errorf("snap[%d].Timestamp = %d, want %d", i, s.Timestamp, want)
		}
	}
}

func TestDefaultCapacity(t *testing.T) {
	store, _ := newTestStore(0)
	if store.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", store.Capacity(), DefaultCapacity)
	}
}

func TestSnapshotIsPointInTimeCopy(t *testing.T) {
	store, _ := newTestStore(10)
	store.Append(sampleAt(0))
	snap := store.Snapshot()
	store.Append(sampleAt(1))
	if len(snap) != 1 {
		t.Errorf("earlier snapshot mutated: len = %d, want 1", len(snap))
	}
}

func TestPersistHydrateRoundTrip(t *testing.T) {
	store, memSlot := newTestStore(10)
	for i := 0; i < 4; i++ {
		store.Append(sampleAt(i))
	}
	want := store.Snapshot()

	// A fresh store over the same slot reproduces the snapshot.
	fresh := NewStore(10, memSlot, newTestLogger())
	fresh.Hydrate()
	got := fresh.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("hydrated len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hydrated[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHydrateTruncatesToMostRecent(t *testing.T) {
	big, memSlot := newTestStore(50)
	for i := 0; i < 20; i++ {
		big.Append(sampleAt(i))
	}

	small := NewStore(5, memSlot, newTestLogger())
	small.Hydrate()
	snap := small.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d, want 5", len(snap))
	}
	if snap[0].Timestamp != 15 || snap[4].Timestamp != 19 {
		t.Errorf("expected most recent 5 entries, got [%d..%d]", snap[0].Timestamp, snap[4].Timestamp)
	}
}

func TestHydrateMalformedDataStartsEmpty(t *testing.T) {
	memSlot := slot.NewMemorySlot("")
	if err := memSlot.WriteAll([]byte("{not json")); err != nil {
		t.Fatal(err)
	}
	store := NewStore(10, memSlot, newTestLogger())
	store.Hydrate()
	if store.Len() != 0 {
		t.Errorf("len = %d, want 0 after malformed hydrate", store.Len())
	}
}

func TestHydrateAbsentSlotStartsEmpty(t *testing.T) {
	store, _ := newTestStore(10)
	store.Hydrate()
	if store.Len() != 0 {
		t.Errorf("len = %d, want 0", store.Len())
	}
}

func TestAppendSurvivesWriteFailures(t *testing.T) {
	memSlot := slot.NewMemorySlot("")
	memSlot.FailWrites = fmt.Errorf("storage unavailable")
	store := NewStore(10, memSlot, newTestLogger())

	store.Append(sampleAt(0))
	store.Append(sampleAt(1))
	if store.Len() != 2 {
		t.Errorf("len = %d, want 2 despite write failures", store.Len())
	}
}

func TestClearEmptiesAndPersists(t *testing.T) {
	store, memSlot := newTestStore(10)
	store.Append(sampleAt(0))
	store.Clear()
	if store.Len() != 0 {
		t.Errorf("len = %d, want 0", store.Len())
	}

	fresh := NewStore(10, memSlot, newTestLogger())
	fresh.Hydrate()
	if fresh.Len() != 0 {
		t.Errorf("hydrated len = %d, want 0 after Clear", fresh.Len())
	}
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	store, _ := newTestStore(16)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				store.Append(sampleAt(g*50 + i))
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if n := len(store.Snapshot()); n > store.Capacity() {
					t.Errorf("snapshot length %d exceeds capacity %d", n, store.Capacity())
					return
				}
			}
		}()
	}
	wg.Wait()
	if store.Len() != store.Capacity() {
		t.Errorf("final len = %d, want %d", store.Len(), store.Capacity())
	}
}

func TestConcurrentAppendsPersistInOrder(t *testing.T) {
	store, memSlot := newTestStore(64)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				store.Append(sampleAt(g*25 + i))
			}
		}(g)
	}
	wg.Wait()

	// The slot must hold the final buffer state: an older snapshot must
	// never be the last write.
	fresh := NewStore(64, memSlot, newTestLogger())
	fresh.Hydrate()
	want := store.Snapshot()
	got := fresh.Snapshot()
	if len(got) != len(want) {
		t.Fatalf("durable len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("durable[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
