// Package arena provides the fixed-capacity order slab (§4.1) that removes
// steady-state heap activity from the matching hot path. It plays the role
// the teacher's sync.Pool-backed domain.Order played, but with a stable
// integer slot identity: the arena, not the GC, owns order lifetime, and the
// level FIFO links orders by slot rather than by pointer (§9, "Pointer-based
// FIFO in an arena").
package arena

import (
	"errors"
	"math"

	"github.com/emirpasic/gods/v2/stacks/arraystack"

	"github.com/tembolo1284/matchengine/domain"
)

// Slot is an index into a Pool's backing array, standing in for a pointer
// in a way that stays valid across arena reuse (§9, "Slot" in the
// glossary).
type Slot uint32

// NoSlot is the sentinel for "no order"/"end of FIFO".
const NoSlot Slot = math.MaxUint32

// ErrExhausted is returned by Alloc when the pool has no free slots.
var ErrExhausted = errors.New("arena: pool exhausted")

// ErrDoubleFree is returned by Free when no slot is allocated at all, the
// only double free the pool detects (§4.1); freeing an already-free slot
// while other slots are live is not detected.
var ErrDoubleFree = errors.New("arena: double free")

// Order is one resting or in-flight limit/market order. Its lifetime is
// entirely owned by the Pool that allocated it; fields are only meaningful
// while the slot is live.
type Order struct {
	Side         domain.Side
	Type         domain.OrderType
	Price        uint32 // 0 for market orders
	OriginalQty  uint32
	RemainingQty uint32
	UserID       uint32
	UserOrderID  uint32
	ClientID     uint32
	EnqueuedAt   int64 // monotonic nanoseconds, see Pool.clock
	Prev, Next   Slot  // level FIFO links; NoSlot at either end
}

// Key returns the composite OrderMap key for this order (§3: (user_id<<32)
// | user_order_id).
func (o *Order) Key() uint64 {
	return CompositeKey(o.UserID, o.UserOrderID)
}

// CompositeKey builds the OrderMap key from a (user_id, user_order_id) pair.
func CompositeKey(userID, userOrderID uint32) uint64 {
	return uint64(userID)<<32 | uint64(userOrderID)
}

// Pool is a fixed-capacity slab of Order slots plus a free-list stack of
// slot indices, exactly as described in §4.1. All operations are O(1) and
// touch at most two integers and one slot of the backing array.
type Pool struct {
	slots     []Order
	free      *arraystack.Stack[Slot]
	capacity  int
	liveCount int
	allocs    uint64
	peak      int
	clock     func() int64
}

// NewPool allocates a Pool with room for capacity orders. clock supplies the
// monotonic timestamp source for EnqueuedAt; pass nil to use a zero clock
// (tests that don't care about timestamps).
func NewPool(capacity int, clock func() int64) *Pool {
	if capacity <= 0 {
		panic("arena: capacity must be positive")
	}
	if clock == nil {
		clock = func() int64 { return 0 }
	}
	p := &Pool{
		slots:    make([]Order, capacity),
		free:     arraystack.New[Slot](),
		capacity: capacity,
		clock:    clock,
	}
	// Initialize the free list to [0..capacity) — push in reverse so slot 0
	// pops first, matching the teacher's lowest-index-first bump allocator
	// feel without requiring contiguous bump (cancel/free can return slots
	// out of order).
	for i := capacity - 1; i >= 0; i-- {
		p.free.Push(Slot(i))
	}
	return p
}

// Capacity returns the total number of slots the pool was created with.
func (p *Pool) Capacity() int { return p.capacity }

// FreeCount returns the number of slots currently available for Alloc.
func (p *Pool) FreeCount() int { return p.capacity - p.liveCount }

// LiveCount returns the number of currently allocated slots.
func (p *Pool) LiveCount() int { return p.liveCount }

// TotalAllocations returns the lifetime count of successful Alloc calls.
func (p *Pool) TotalAllocations() uint64 { return p.allocs }

// PeakUsage returns the highest LiveCount ever observed.
func (p *Pool) PeakUsage() int { return p.peak }

// Alloc pops a slot off the free list, zeroes it, and returns it ready for
// use. Returns ErrExhausted when the pool is full (§7, capacity exhaustion).
func (p *Pool) Alloc() (Slot, *Order, error) {
	s, ok := p.free.Pop()
	if !ok {
		return NoSlot, nil, ErrExhausted
	}
	p.liveCount++
	p.allocs++
	if p.liveCount > p.peak {
		p.peak = p.liveCount
	}
	o := &p.slots[s]
	*o = Order{EnqueuedAt: p.clock()}
	return s, o, nil
}

// Free returns a slot to the pool. It panics on an out-of-range slot and
// returns ErrDoubleFree if the pool is already at full free capacity with
// nothing allocated to give back — the cheap guard described in §4.1.
func (p *Pool) Free(s Slot) error {
	if int(s) < 0 || int(s) >= p.capacity {
		panic("arena: slot out of range")
	}
	if p.liveCount == 0 {
		return ErrDoubleFree
	}
	p.slots[s] = Order{}
	p.free.Push(s)
	p.liveCount--
	return nil
}

// Get returns a pointer to the order at slot s. The caller must only call
// this for slots it knows are currently live; Get does no liveness check,
// matching the hot-path no-branch spirit of §4.1.
func (p *Pool) Get(s Slot) *Order {
	return &p.slots[s]
}
