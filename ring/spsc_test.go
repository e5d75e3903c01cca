package ring

import (
	"sync"
	"testing"
)

func TestNewRoundsCapacityToPowerOfTwo(t *testing.T) {
	r := New[int](100)
	if r.Cap() != 128 {
		t.Fatalf("Cap() = %d, want 128", r.Cap())
	}
}

func TestPushPopSingleElement(t *testing.T) {
	r := New[int](8)
	if !r.TryPush(42) {
		t.Fatal("TryPush on empty ring should succeed")
	}
	v, ok := r.TryPop()
	if !ok || v != 42 {
		t.Fatalf("TryPop = %d, %v, want 42, true", v, ok)
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("TryPop on empty ring should report false")
	}
}

func TestPushPopPreservesOrder(t *testing.T) {
	r := New[int](8)
	for i := 0; i < 5; i++ {
		if !r.TryPush(i) {
			t.Fatalf("TryPush(%d) failed", i)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = %d, %v, want %d, true", v, ok, i)
		}
	}
}

func TestTryPushFailsWhenFull(t *testing.T) {
	r := New[int](4)
	for i := 0; i < 4; i++ {
		if !r.TryPush(i) {
			t.Fatalf("TryPush(%d) should have succeeded", i)
		}
	}
	if r.TryPush(99) {
		t.Fatal("TryPush on a full ring should report false, not block")
	}
}

func TestWrapAround(t *testing.T) {
	r := New[int](4)
	for i := 0; i < 4; i++ {
		r.TryPush(i)
	}
	for i := 0; i < 2; i++ {
		r.TryPop()
	}
	for i := 100; i < 102; i++ {
		if !r.TryPush(i) {
			t.Fatalf("TryPush(%d) should have succeeded after draining", i)
		}
	}
	want := []int{2, 3, 100, 101}
	for _, w := range want {
		v, ok := r.TryPop()
		if !ok || v != w {
			t.Fatalf("TryPop() = %d, %v, want %d, true", v, ok, w)
		}
	}
}

func TestPopBatch(t *testing.T) {
	r := New[int](16)
	for i := 0; i < 10; i++ {
		r.TryPush(i)
	}
	out := make([]int, 4)
	n := r.PopBatch(out)
	if n != 4 {
		t.Fatalf("PopBatch returned %d, want 4", n)
	}
	for i, v := range out {
		if v != i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i)
		}
	}
	if r.Len() != 6 {
		t.Fatalf("Len() after PopBatch = %d, want 6", r.Len())
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	r := New[int](256)
	const total = 200000
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			for !r.TryPush(i) {
				// ring full: spin, mirroring a processor applying backpressure
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		batch := make([]int, 64)
		received := 0
		next := 0
		for received < total {
			n := r.PopBatch(batch)
			if n == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				if batch[i] != next {
					t.Errorf("out-of-order element: got %d, want %d", batch[i], next)
				}
				next++
			}
			received += n
		}
	}()

	wg.Wait()
}
