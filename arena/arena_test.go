package arena

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	p := NewPool(4, nil)

	s0, o0, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	o0.UserID = 7
	o0.UserOrderID = 1
	o0.RemainingQty = 100

	if got := p.LiveCount(); got != 1 {
		t.Fatalf("LiveCount = %d, want 1", got)
	}
	if got := p.FreeCount(); got != 3 {
		t.Fatalf("FreeCount = %d, want 3", got)
	}

	if err := p.Free(s0); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if got := p.LiveCount(); got != 0 {
		t.Fatalf("LiveCount after free = %d, want 0", got)
	}

	// Re-allocating must return a zeroed order.
	s1, o1, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if o1.UserID != 0 || o1.RemainingQty != 0 {
		t.Fatalf("reused slot not zeroed: %+v", o1)
	}
	_ = s1
}

func TestAllocExhaustion(t *testing.T) {
	p := NewPool(2, nil)
	if _, _, err := p.Alloc(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Alloc(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Alloc(); err != ErrExhausted {
		t.Fatalf("Alloc on exhausted pool = %v, want ErrExhausted", err)
	}
}

func TestFreeCountPlusLiveEqualsCapacity(t *testing.T) {
	p := NewPool(16, nil)
	var slots []Slot
	for i := 0; i < 10; i++ {
		s, _, err := p.Alloc()
		if err != nil {
			t.Fatal(err)
		}
		slots = append(slots, s)
	}
	for i, s := range slots {
		if i%2 == 0 {
			if err := p.Free(s); err != nil {
				t.Fatal(err)
			}
		}
	}
	if p.FreeCount()+p.LiveCount() != p.Capacity() {
		t.Fatalf("P1 invariant violated: free=%d live=%d cap=%d", p.FreeCount(), p.LiveCount(), p.Capacity())
	}
}

func TestDoubleFreeGuard(t *testing.T) {
	p := NewPool(1, nil)
	s, _, err := p.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Free(s); err != nil {
		t.Fatal(err)
	}
	if err := p.Free(s); err != ErrDoubleFree {
		t.Fatalf("second Free = %v, want ErrDoubleFree", err)
	}
}

func TestSlotOutOfRangePanics(t *testing.T) {
	p := NewPool(1, nil)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range slot")
		}
	}()
	_ = p.Free(Slot(99))
}
