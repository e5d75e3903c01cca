package domain

// InputMessage and OutputMessage are flat tagged unions rather than Go
// interfaces: every variant's fields live inline in one struct so the
// message is a plain value. That lets InputEnvelope/OutputEnvelope travel
// through the lock-free SPSC rings (ring.SPSC[T]) by value with zero heap
// activity, which an interface-based sum type (each variant boxed
// separately) cannot guarantee. Dispatch is a switch on Kind, per the
// "tagged union" design note.

// InputKind identifies which variant of InputMessage is populated.
type InputKind uint8

const (
	KindNewOrder InputKind = iota
	KindCancel
	KindFlush
)

// NewOrderMsg is the payload of a KindNewOrder InputMessage.
type NewOrderMsg struct {
	Symbol      string
	UserID      uint32
	UserOrderID uint32
	Side        Side
	Price       uint32 // 0 => market order
	Quantity    uint32
}

// CancelMsg is the payload of a KindCancel InputMessage. Symbol is optional;
// an empty Symbol means the engine must resolve it via the order_key->symbol
// map (§4.9).
type CancelMsg struct {
	Symbol      string
	UserID      uint32
	UserOrderID uint32
}

// InputMessage is the tagged union of operations accepted by the engine.
type InputMessage struct {
	Kind     InputKind
	NewOrder NewOrderMsg
	Cancel   CancelMsg
}

// InputEnvelope carries the originating client alongside one InputMessage,
// as produced by the receiver and consumed exactly once by one processor.
type InputEnvelope struct {
	ClientID uint32
	Msg      InputMessage
}

// OutputKind identifies which variant of OutputMessage is populated.
type OutputKind uint8

const (
	KindAck OutputKind = iota
	KindCancelAck
	KindTrade
	KindTopOfBook
	KindReject
)

// AckMsg acknowledges a new order was accepted (and possibly already
// partially or fully matched).
type AckMsg struct {
	Symbol      string
	UserID      uint32
	UserOrderID uint32
}

// CancelAckMsg acknowledges a cancel request, whether or not the order
// existed (§4.6: always emitted, idempotent from the client's perspective).
type CancelAckMsg struct {
	Symbol      string
	UserID      uint32
	UserOrderID uint32
}

// TradeMsg reports one match between an aggressor and a passive order.
// BuyClientID/SellClientID let the output router unicast the same trade to
// both participants even though they may sit on different client slots.
type TradeMsg struct {
	Symbol         string
	BuyUserID      uint32
	BuyUserOrderID uint32
	SellUserID     uint32
	SellUserOrderID uint32
	Price          uint32
	Quantity       uint32
	BuyClientID    uint32
	SellClientID   uint32
}

// TopOfBookMsg reports a change to the best price/quantity on one side of
// one symbol. Price == 0 && Quantity == 0 is the "eliminated" sentinel
// (§4.5, §9 — the spec standardises on this form over an explicit flag).
type TopOfBookMsg struct {
	Symbol   string
	Side     Side
	Price    uint32
	Quantity uint64
}

// Eliminated reports whether this TopOfBookMsg is the "side eliminated"
// sentinel.
func (t TopOfBookMsg) Eliminated() bool {
	return t.Price == 0 && t.Quantity == 0
}

// RejectReason enumerates the capacity-exhaustion conditions from §7 that
// may surface as an explicit Reject instead of silent drop-and-count.
type RejectReason uint8

const (
	RejectArenaExhausted RejectReason = iota
	RejectSymbolTableFull
	RejectProbeLimitExceeded
	RejectInvalidSymbol
)

func (r RejectReason) String() string {
	switch r {
	case RejectArenaExhausted:
		return "arena_exhausted"
	case RejectSymbolTableFull:
		return "symbol_table_full"
	case RejectProbeLimitExceeded:
		return "probe_limit_exceeded"
	case RejectInvalidSymbol:
		return "invalid_symbol"
	default:
		return "unknown"
	}
}

// RejectMsg reports a capacity-exhaustion condition in place of an Ack,
// when the engine is configured to do so (§7).
type RejectMsg struct {
	Symbol      string
	UserID      uint32
	UserOrderID uint32
	Reason      RejectReason
}

// OutputMessage is the tagged union of everything the engine can emit.
type OutputMessage struct {
	Kind      OutputKind
	Ack       AckMsg
	CancelAck CancelAckMsg
	Trade     TradeMsg
	TopOfBook TopOfBookMsg
	Reject    RejectMsg
}

// OutputEnvelope carries one OutputMessage plus routing metadata. Broadcast
// marks the single envelope (per engine-emitted message) that should also
// be mirrored to the multicast group; a Trade produces two envelopes (one
// per participant) and only the first carries Broadcast=true, so the
// market-data feed doesn't see the same trade twice.
type OutputEnvelope struct {
	ClientID uint32
	Msg      OutputMessage
	// Broadcast marks the single envelope (per engine-emitted message)
	// that should also be mirrored to the multicast group.
	Broadcast bool
	// MulticastSeq is a monotonically increasing sequence number assigned
	// by the output router to every Broadcast-marked envelope, one counter
	// per symbol, so a multicast receiver can detect a gap in the feed.
	// Zero on non-broadcast envelopes.
	MulticastSeq uint64
}
