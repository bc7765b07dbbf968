package taskqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDrainFIFO(t *testing.T) {
	q := NewQueue(nil)
	const n = 100

	var order []int
	for i := range n {
		q.EnqueueFunc(KindCustom, func() error {
			order = append(order, i)
			return nil
		})
	}
	if got := q.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}

	ran, err := q.Drain()
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if ran != n {
		t.Errorf("Drain() ran %d, want %d", ran, n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
	if !q.IsEmpty() {
		t.Error("queue not empty after Drain")
	}

	// A second drain runs nothing.
	if ran, _ := q.Drain(); ran != 0 {
		t.Errorf("second Drain() ran %d, want 0", ran)
	}
	if len(order) != n {
		t.Errorf("tasks ran %d times, want %d", len(order), n)
	}
}

func TestEnqueueDuringDrainRunsNextTime(t *testing.T) {
	q := NewQueue(nil)
	var second atomic.Bool

	q.EnqueueFunc(KindCustom, func() error {
		q.EnqueueFunc(KindCustom, func() error {
			second.Store(true)
			return nil
		})
		return nil
	})

	if ran, _ := q.Drain(); ran != 1 {
		t.Fatalf("first Drain() ran %d, want 1", ran)
	}
	if second.Load() {
		t.Fatal("task enqueued during drain ran in the same drain")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if ran, _ := q.Drain(); ran != 1 || !second.Load() {
		t.Errorf("second Drain() ran %d, second = %v", ran, second.Load())
	}
}

func TestDrainSkipsFailingTasks(t *testing.T) {
	errBoom := errors.New("boom")
	var reported []Kind
	q := NewQueue(func(te *TaskError) { reported = append(reported, te.Kind) })

	var ran []string
	q.EnqueueFunc(KindImageUpload, func() error { ran = append(ran, "a"); return nil })
	q.EnqueueFunc(KindFilterSwap, func() error { return errBoom })
	q.EnqueueFunc(KindCustom, func() error { panic("bad task") })
	q.EnqueueFunc(KindImageDelete, func() error { ran = append(ran, "d"); return nil })

	n, err := q.Drain()
	if n != 4 {
		t.Errorf("Drain() ran %d, want 4", n)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Drain() error = %v, want errBoom", err)
	}
	if !errors.Is(err, ErrPanic) {
		t.Errorf("Drain() error = %v, want ErrPanic", err)
	}
	var te *TaskError
	if !errors.As(err, &te) || te.Kind != KindFilterSwap {
		t.Errorf("errors.As TaskError = %v", te)
	}
	if len(ran) != 2 || ran[0] != "a" || ran[1] != "d" {
		t.Errorf("ran = %v, want [a d]", ran)
	}
	if len(reported) != 2 || reported[0] != KindFilterSwap || reported[1] != KindCustom {
		t.Errorf("reported = %v", reported)
	}
	if !q.IsEmpty() {
		t.Error("failed tasks must be consumed")
	}
}

func TestPending(t *testing.T) {
	q := NewQueue(nil)
	q.EnqueueFunc(KindCaptureUpload, nil)
	q.EnqueueFunc(KindImageUpload, nil)
	q.EnqueueFunc(KindCaptureUpload, nil)
	q.Enqueue(nil)

	if got := q.Pending(KindCaptureUpload); got != 2 {
		t.Errorf("Pending(capture) = %d, want 2", got)
	}
	if got := q.Pending(KindFilterSwap); got != 0 {
		t.Errorf("Pending(filter) = %d, want 0", got)
	}
	if got := q.Clear(); got != 3 {
		t.Errorf("Clear() = %d, want 3", got)
	}
	if !q.IsEmpty() {
		t.Error("queue not empty after Clear")
	}
}

func TestConcurrentEnqueue(t *testing.T) {
	q := NewQueue(nil)
	const producers = 8
	const perProducer = 500

	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(producers)
	for range producers {
		go func() {
			defer wg.Done()
			for range perProducer {
				q.EnqueueFunc(KindCustom, func() error {
					count.Add(1)
					return nil
				})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	total := 0
	for {
		n, err := q.Drain()
		if err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		total += n
		select {
		case <-done:
			n, _ := q.Drain()
			total += n
			if total != producers*perProducer {
				t.Fatalf("drained %d, want %d", total, producers*perProducer)
			}
			if got := count.Load(); got != producers*perProducer {
				t.Fatalf("ran %d, want %d", got, producers*perProducer)
			}
			return
		default:
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindCustom:        "custom",
		KindImageUpload:   "image-upload",
		KindCaptureUpload: "capture-upload",
		KindImageDelete:   "image-delete",
		KindFilterSwap:    "filter-swap",
		KindCaptureSetup:  "capture-setup",
		KindState:         "state",
		Kind(99):          "Kind(99)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(k), got, want)
		}
	}
}
