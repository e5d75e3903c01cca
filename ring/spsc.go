// Package ring implements the lock-free single-producer/single-consumer
// ring buffer (§4.10) that carries envelopes between the receiver, the
// shard processors, and the output router. It is grounded on the
// acquire/release-ordered design and mirrors the teacher's move away from
// the semaphore-blocking ring it once used (§9's redesign note), which
// this package replaces with explicit atomic ordering instead of
// runtime_Semacquire/Semrelease.
package ring

import "sync/atomic"

// cacheLineSize is the padding unit used to keep the head and tail
// counters on separate cache lines, avoiding false sharing between the
// producer and consumer cores.
const cacheLineSize = 64

// SPSC is a fixed-capacity, power-of-two-sized ring buffer safe for
// exactly one producer goroutine and one consumer goroutine operating
// concurrently. Capacity is rounded up to the next power of two so index
// wrapping is a bitwise AND rather than a modulo.
type SPSC[T any] struct {
	buf  []T
	mask uint64

	_pad0 [cacheLineSize]byte
	head  atomic.Uint64 // next slot the producer will write
	_pad1 [cacheLineSize - 8]byte
	tail  atomic.Uint64 // next slot the consumer will read
	_pad2 [cacheLineSize - 8]byte
}

// New creates an SPSC ring with room for at least capacity elements.
func New[T any](capacity int) *SPSC[T] {
	size := nextPow2(capacity)
	return &SPSC[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

func nextPow2(n int) int {
	if n < 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Cap returns the ring's fixed capacity.
func (r *SPSC[T]) Cap() int { return len(r.buf) }

// Len returns a snapshot of the number of queued elements. Only exact
// when called from the producer or consumer goroutine itself; useful for
// metrics from either side.
func (r *SPSC[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int(head - tail)
}

// TryPush attempts to enqueue v without blocking. It returns false if the
// ring is full — the caller (the receiver, or a processor's output side)
// decides whether to spin, drop, or apply backpressure upstream; SPSC
// itself never blocks (§9: explicit acquire/release ordering instead of
// semaphore waits). Go's atomic.Uint64 Load/Store already carry the
// acquire/release semantics this needs: the producer's Store of head
// happens-after the element write, so a consumer that observes the new
// head is guaranteed to see that write too.
func (r *SPSC[T]) TryPush(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// TryPop attempts to dequeue one element without blocking. Returns false
// if the ring is empty.
func (r *SPSC[T]) TryPop() (T, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail == head {
		var zero T
		return zero, false
	}
	v := r.buf[tail&r.mask]
	var zero T
	r.buf[tail&r.mask] = zero // drop the reference so a boxed T doesn't outlive its slot
	r.tail.Store(tail + 1)
	return v, true
}

// PopBatch drains up to len(out) elements into out in one pass, returning
// the number written. This is the batch-dequeue path a processor uses to
// amortize the cost of the head load across many elements instead of
// paying it once per message (§4.10, §4.12's adaptive batch loop).
func (r *SPSC[T]) PopBatch(out []T) int {
	tail := r.tail.Load()
	head := r.head.Load()
	available := head - tail
	if available == 0 {
		return 0
	}
	n := uint64(len(out))
	if available < n {
		n = available
	}
	for i := uint64(0); i < n; i++ {
		idx := (tail + i) & r.mask
		out[i] = r.buf[idx]
		var zero T
		r.buf[idx] = zero
	}
	r.tail.Store(tail + n)
	return int(n)
}
