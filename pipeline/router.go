package pipeline

import (
	"runtime"
	"strings"

	"github.com/tembolo1284/matchengine/arena"
	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/index"
	"github.com/tembolo1284/matchengine/ring"
)

// TwoShardBucket implements the two-shard partition named in §4.11: ASCII
// upper-case first letter A-M routes to shard 0, N-Z to shard 1. Anything
// else (digits, empty symbol) falls back to shard 0 so every symbol has a
// defined home.
func TwoShardBucket(symbol string) int {
	if len(symbol) == 0 {
		return 0
	}
	c := symbol[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c >= 'N' && c <= 'Z' {
		return 1
	}
	return 0
}

// HashShard is the general form of §4.11: a stable hash of the symbol
// mapped into [0, numShards). Unlike TwoShardBucket it scales past two
// shards; both are pure functions decided once at startup and never
// changed thereafter, so a symbol's shard never moves mid-run.
func HashShard(symbol string, numShards int) int {
	if numShards <= 1 {
		return 0
	}
	return int(index.HashString(strings.ToUpper(symbol)) % uint64(numShards))
}

// ShardFunc maps a symbol to a shard index.
type ShardFunc func(symbol string) int

// Router runs on the receiver thread: it resolves each InputEnvelope's
// symbol to a shard and enqueues it on that shard's input ring (§4.11). A
// Flush carries no symbol, so it is broadcast to every shard, since
// process_flush clears an entire engine and each shard owns an
// independent engine.
type Router struct {
	shardFn ShardFunc
	inputs  []*ring.SPSC[domain.InputEnvelope]
	metrics *Metrics

	// orderShard remembers which shard owns an order key, so a
	// symbol-less Cancel can be routed to the one shard that can resolve
	// it instead of being broadcast (which would draw one CancelAck per
	// shard). Populated on every routed NewOrder, cleared on Flush.
	orderShard *index.Table[uint64, int]
}

// NewRouter builds a Router over the given per-shard input rings.
func NewRouter(shardFn ShardFunc, inputs []*ring.SPSC[domain.InputEnvelope], metrics *Metrics) *Router {
	return &Router{
		shardFn:    shardFn,
		inputs:     inputs,
		metrics:    metrics,
		orderShard: index.New[uint64, int](1<<16, index.HashUint64, 0),
	}
}

// MaxEnqueueRetries bounds the receiver's retry-with-yield loop on a full
// ring before the message is dropped (§7, MAX_RETRIES ≈ 100).
const MaxEnqueueRetries = 100

// Route enqueues env on the shard(s) its message belongs to. Returns
// false if every retry was exhausted on a full ring (the caller should
// count this as a dropped message).
func (r *Router) Route(env domain.InputEnvelope) bool {
	switch env.Msg.Kind {
	case domain.KindFlush:
		r.orderShard = index.New[uint64, int](r.orderShard.Cap(), index.HashUint64, 0)
		ok := true
		for _, in := range r.inputs {
			if !enqueueWithRetry(in, env) {
				ok = false
			}
		}
		return ok

	case domain.KindNewOrder:
		shard := r.resolveShard(r.shardFn(env.Msg.NewOrder.Symbol))
		key := arena.CompositeKey(env.Msg.NewOrder.UserID, env.Msg.NewOrder.UserOrderID)
		r.orderShard.Insert(key, shard)
		return enqueueWithRetry(r.inputs[shard], env)

	case domain.KindCancel:
		if env.Msg.Cancel.Symbol != "" {
			shard := r.resolveShard(r.shardFn(env.Msg.Cancel.Symbol))
			return enqueueWithRetry(r.inputs[shard], env)
		}
		key := arena.CompositeKey(env.Msg.Cancel.UserID, env.Msg.Cancel.UserOrderID)
		if shard, ok := r.orderShard.Find(key); ok {
			r.orderShard.Remove(key)
			return enqueueWithRetry(r.inputs[shard], env)
		}
		// Unknown order key (e.g. a cancel that arrives after a Flush or
		// for an ID the receiver never saw): any shard's engine resolves
		// this the same way — unconditional CancelAck — so shard 0 is as
		// good as any.
		return enqueueWithRetry(r.inputs[0], env)

	default:
		return enqueueWithRetry(r.inputs[0], env)
	}
}

func (r *Router) resolveShard(shard int) int {
	if shard < 0 || shard >= len(r.inputs) {
		return 0
	}
	return shard
}

func enqueueWithRetry(in *ring.SPSC[domain.InputEnvelope], env domain.InputEnvelope) bool {
	for i := 0; i < MaxEnqueueRetries; i++ {
		if in.TryPush(env) {
			return true
		}
		runtime.Gosched()
	}
	return false
}
