package orderbook

import (
	"errors"
	"sort"

	"github.com/tembolo1284/matchengine/arena"
)

// MaxPriceLevels bounds the sorted level array per side (§4.3).
const MaxPriceLevels = 1024

// ErrLevelsFull is returned by LevelIndex.Insert when MaxPriceLevels is
// already in use on that side.
var ErrLevelsFull = errors.New("orderbook: price level capacity exhausted")

// PriceLevel is one outstanding price point: its aggregate resting
// quantity and a FIFO of orders (by arena slot) in arrival order.
type PriceLevel struct {
	Price      uint32
	TotalQty   uint64
	Head, Tail arena.Slot
}

// LevelIndex is the sorted array of PriceLevel for one side of one book
// (§4.3). Index 0 is always the best price: descending for bids, ascending
// for asks. Find is a binary search; Insert/Remove keep the array
// contiguous via a shift, which is the "linear scan, bounded by
// MAX_PRICE_LEVELS" behaviour the spec calls for — in practice dominated
// by the handful of levels near the touch.
type LevelIndex struct {
	levels     []PriceLevel
	descending bool
}

// NewLevelIndex creates an empty index for one side. descending is true
// for bids (best = highest price), false for asks (best = lowest price).
func NewLevelIndex(descending bool) *LevelIndex {
	return &LevelIndex{
		levels:     make([]PriceLevel, 0, MaxPriceLevels),
		descending: descending,
	}
}

// Len returns the number of active price levels.
func (li *LevelIndex) Len() int { return len(li.levels) }

// Best returns the best (index 0) level, or false if the side is empty.
func (li *LevelIndex) Best() (*PriceLevel, bool) {
	if len(li.levels) == 0 {
		return nil, false
	}
	return &li.levels[0], true
}

// At returns a pointer to the level at idx. The caller must have a valid
// index from Find/Insert.
func (li *LevelIndex) At(idx int) *PriceLevel { return &li.levels[idx] }

// better reports whether price a ranks ahead of price b on this side.
func (li *LevelIndex) better(a, b uint32) bool {
	if li.descending {
		return a > b
	}
	return a < b
}

// Find locates price via binary search (§4.3). If found, idx is its
// position and ok is true. If not found, idx is the insertion point that
// keeps the array sorted.
func (li *LevelIndex) Find(price uint32) (idx int, ok bool) {
	n := len(li.levels)
	i := sort.Search(n, func(i int) bool {
		if li.descending {
			return li.levels[i].Price <= price
		}
		return li.levels[i].Price >= price
	})
	if i < n && li.levels[i].Price == price {
		return i, true
	}
	return i, false
}

// Insert creates a new, empty level at price and returns its index. It is
// idempotent: if a level at price already exists, its index is returned
// unchanged.
func (li *LevelIndex) Insert(price uint32) (int, error) {
	idx, ok := li.Find(price)
	if ok {
		return idx, nil
	}
	if len(li.levels) >= MaxPriceLevels {
		return -1, ErrLevelsFull
	}
	li.levels = append(li.levels, PriceLevel{})
	copy(li.levels[idx+1:], li.levels[idx:len(li.levels)-1])
	li.levels[idx] = PriceLevel{Price: price, Head: arena.NoSlot, Tail: arena.NoSlot}
	return idx, nil
}

// Remove deletes the level at idx, shifting the tail of the array down by
// one. The caller must have already freed every order at that level back
// to the arena (§4.6/§4.8) — Remove only compacts the index.
func (li *LevelIndex) Remove(idx int) {
	copy(li.levels[idx:], li.levels[idx+1:])
	li.levels = li.levels[:len(li.levels)-1]
}

// Reset clears every level without touching the arena; callers (Flush)
// are responsible for freeing the orders first.
func (li *LevelIndex) Reset() {
	li.levels = li.levels[:0]
}
