package containers

import (
	"errors"
	"testing"
)

func TestRingQueueFIFOOrder(t *testing.T) {
	q := NewRingQueue[int](4)

	for i := 0; i < 4; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}
	for want := 0; want < 4; want++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if got != want {
			t.Errorf("Dequeue = %d, want %d", got, want)
		}
	}
}

func TestRingQueueFull(t *testing.T) {
	q := NewRingQueue[string](2)

	if err := q.Enqueue("a"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue("b"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue("c"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue on full queue = %v, want ErrQueueFull", err)
	}
	if !q.IsFull() {
		t.Error("IsFull = false, want true")
	}
}

func TestRingQueueEmpty(t *testing.T) {
	q := NewRingQueue[int](2)

	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Dequeue on empty queue = %v, want ErrQueueEmpty", err)
	}
	if _, err := q.Peek(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Peek on empty queue = %v, want ErrQueueEmpty", err)
	}
	if !q.IsEmpty() {
		t.Error("IsEmpty = false, want true")
	}
}

func TestRingQueueWrapAround(t *testing.T) {
	q := NewRingQueue[int](3)

	// Cycle more entries through than the capacity to exercise index wrap.
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if got != i {
			t.Errorf("Dequeue = %d, want %d", got, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d, want 0", q.Len())
	}
}

func TestRingQueuePeekDoesNotRemove(t *testing.T) {
	q := NewRingQueue[int](2)
	if err := q.Enqueue(42); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := q.Peek()
		if err != nil {
			t.Fatalf("Peek failed: %v", err)
		}
		if got != 42 {
			t.Errorf("Peek = %d, want 42", got)
		}
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}
