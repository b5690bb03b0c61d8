package framequeue

import (
	"testing"
	"time"

	"github.com/ausocean/pollux/avutil"
)

func TestClamp(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {-5, 1}, {1, 1}, {1024, 1024}, {2000, 1024}, {8, 8},
	}
	for _, c := range cases {
		if got := Clamp(c.in); got != c.want {
			t.Errorf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestQueuePutGetRoundTrip(t *testing.T) {
	q := NewQueue(2)
	s := &Slot{Frame: &avutil.Frame{}}
	if !q.Put(s) {
		t.Fatalf("Put on an open queue should succeed")
	}
	got, ok := q.Get(0)
	if !ok || got != s {
		t.Fatalf("Get should return the slot just put, got %v, ok=%v", got, ok)
	}
}

func TestQueueGetEmptyNonBlocking(t *testing.T) {
	q := NewQueue(2)
	if _, ok := q.Get(0); ok {
		t.Fatalf("Get(0) on an empty queue should report ok=false")
	}
}

func TestQueueGetTimesOut(t *testing.T) {
	q := NewQueue(2)
	start := time.Now()
	_, ok := q.Get(20 * time.Millisecond)
	if ok {
		t.Fatalf("Get should time out on an empty queue")
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Get returned too early after %s, wanted to block near the timeout", elapsed)
	}
}

func TestQueueCloseUnblocksGet(t *testing.T) {
	q := NewQueue(2)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(-1)
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		if ok {
			t.Errorf("Get should report ok=false once the queue is closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("Get did not unblock after Close")
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // must not panic or deadlock
}

func TestQueuePutBlocksAtCapacity(t *testing.T) {
	q := NewQueue(1)
	s1 := &Slot{Frame: &avutil.Frame{}}
	s2 := &Slot{Frame: &avutil.Frame{}}
	if !q.Put(s1) {
		t.Fatalf("first Put should succeed")
	}

	putReturned := make(chan bool, 1)
	go func() {
		putReturned <- q.Put(s2)
	}()

	select {
	case <-putReturned:
		t.Fatalf("Put should block while the queue is at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok := q.Get(0); !ok {
		t.Fatalf("Get should free a slot for the blocked Put")
	}
	select {
	case ok := <-putReturned:
		if !ok {
			t.Errorf("blocked Put should succeed once capacity frees up")
		}
	case <-time.After(time.Second):
		t.Fatalf("Put did not unblock after a Get freed capacity")
	}
}

func TestNewPoolAllocatesAndFillsFreeQueue(t *testing.T) {
	n := 4
	p, err := NewPool(n, func() (*avutil.Frame, error) { return &avutil.Frame{}, nil }, func(*avutil.Frame) {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Slots) != n {
		t.Fatalf("expected %d slots, got %d", n, len(p.Slots))
	}
	if p.Free.Len() != n {
		t.Fatalf("expected all %d slots on the free queue, got %d", n, p.Free.Len())
	}
	if p.Ready.Len() != 0 {
		t.Fatalf("ready queue should start empty, got %d", p.Ready.Len())
	}
}

func TestNewPoolUnwindsOnPartialFailure(t *testing.T) {
	var freed []int
	i := 0
	_, err := NewPool(4, func() (*avutil.Frame, error) {
		i++
		if i == 3 {
			return nil, errAlloc{}
		}
		return &avutil.Frame{Priv: i}, nil
	}, func(f *avutil.Frame) {
		freed = append(freed, f.Priv.(int))
	})
	if err == nil {
		t.Fatalf("expected an error from the failing allocator")
	}
	if len(freed) != 2 {
		t.Fatalf("expected the 2 successfully allocated slots to be freed, got %v", freed)
	}
	if freed[0] != 2 || freed[1] != 1 {
		t.Errorf("expected slots freed in reverse allocation order, got %v", freed)
	}
}

type errAlloc struct{}

func (errAlloc) Error() string { return "alloc failed" }
