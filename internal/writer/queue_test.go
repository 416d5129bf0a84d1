package writer

import (
	"sync"
	"testing"
)

func TestReplayQueue_FIFO(t *testing.T) {
	q := NewReplayQueue[int](4)

	for i := 1; i <= 3; i++ {
		if _, dropped, ok := q.Push(i); dropped || !ok {
			t.Fatalf("Push(%d): dropped=%v ok=%v", i, dropped, ok)
		}
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Errorf("TryPop() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned ok")
	}
}

func TestReplayQueue_EvictsOldestWhenFull(t *testing.T) {
	q := NewReplayQueue[int](3)

	q.Push(1)
	q.Push(2)
	q.Push(3)

	evicted, dropped, ok := q.Push(4)
	if !ok {
		t.Fatal("Push on full queue reported closed")
	}
	if !dropped || evicted != 1 {
		t.Errorf("Push(4) evicted (%d, %v), want (1, true)", evicted, dropped)
	}

	evicted, dropped, _ = q.Push(5)
	if !dropped || evicted != 2 {
		t.Errorf("Push(5) evicted (%d, %v), want (2, true)", evicted, dropped)
	}

	// Eviction order is oldest-first; survivors keep FIFO order.
	var got []int
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("drained %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drained[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	stats := q.Stats()
	if stats.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", stats.Dropped)
	}
}

func TestReplayQueue_PushFront(t *testing.T) {
	q := NewReplayQueue[int](3)
	q.Push(2)
	q.Push(3)

	if ok := q.PushFront(1); !ok {
		t.Fatal("PushFront rejected")
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Errorf("TryPop() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}

func TestReplayQueue_ClosedRejectsPush(t *testing.T) {
	q := NewReplayQueue[int](2)
	q.Push(1)
	q.Close()

	if _, _, ok := q.Push(2); ok {
		t.Error("Push after Close succeeded")
	}

	// Remaining items stay drainable for shutdown.
	if got, ok := q.TryPop(); !ok || got != 1 {
		t.Errorf("TryPop() after Close = (%d, %v), want (1, true)", got, ok)
	}
}

func TestReplayQueue_WrapAround(t *testing.T) {
	q := NewReplayQueue[int](3)

	for i := 1; i <= 10; i++ {
		q.Push(i)
		if i%2 == 0 {
			q.TryPop()
		}
	}

	if q.Len() > q.Cap() {
		t.Errorf("Len() = %d exceeds Cap() = %d", q.Len(), q.Cap())
	}
}

func TestReplayQueue_ConcurrentAccess(t *testing.T) {
	q := NewReplayQueue[int](64)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				q.Push(i)
				q.TryPop()
			}
		}()
	}
	wg.Wait()

	if q.Len() < 0 || q.Len() > q.Cap() {
		t.Errorf("Len() = %d out of bounds after concurrent use", q.Len())
	}
}
