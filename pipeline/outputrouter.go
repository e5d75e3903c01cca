package pipeline

import (
	"strconv"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/ring"
	"go.uber.org/zap"
)

// OutputRouterBatchSize bounds how many envelopes are drained from one
// source ring per round-robin turn (§4.13).
const OutputRouterBatchSize = 32

// ShutdownDrainIterations is how many consecutive empty rounds the output
// router waits out after shutdown is requested before it returns (§4.13,
// §5). A round that delivers anything resets the count, so draining goes
// on for as long as the sources keep producing.
const ShutdownDrainIterations = 100

// OutputRouter drains one output ring per shard with round-robin batch
// dequeue, delivers each message to its client's per-connection ring, and
// mirrors broadcast-marked messages to the multicast sender (§4.13).
type OutputRouter struct {
	Sources   []*ring.SPSC[domain.OutputEnvelope]
	Registry  *Registry
	Encoder   Encoder
	Multicast MulticastSender

	shutdown *Shutdown
	metrics  *Metrics
	logger   *zap.Logger

	// perSourceDelivered tracks how many envelopes each source ring has
	// contributed, for the fairness observability §4.13 calls for.
	perSourceDelivered []uint64

	// multicastSeq assigns each symbol its own gap-detection counter.
	// Only the single Run goroutine touches this map, so it needs no lock.
	multicastSeq map[string]uint64
}

// NewOutputRouter builds an OutputRouter over sources. multicast may be
// NopMulticastSender{} when multicast is disabled.
func NewOutputRouter(sources []*ring.SPSC[domain.OutputEnvelope], registry *Registry, encoder Encoder, multicast MulticastSender, shutdown *Shutdown, metrics *Metrics, logger *zap.Logger) *OutputRouter {
	return &OutputRouter{
		Sources:            sources,
		Registry:           registry,
		Encoder:            encoder,
		Multicast:          multicast,
		shutdown:           shutdown,
		metrics:            metrics,
		logger:             logger,
		perSourceDelivered: make([]uint64, len(sources)),
		multicastSeq:       make(map[string]uint64),
	}
}

// Run executes the round-robin drain loop. Once shutdown is requested it
// returns after ShutdownDrainIterations consecutive rounds in which every
// source was empty; a round that delivers anything resets that count
// (§4.13, §5).
func (o *OutputRouter) Run() {
	batch := make([]domain.OutputEnvelope, OutputRouterBatchSize)
	drainTicks := 0

	for {
		delivered := 0
		for src, ring := range o.Sources {
			n := ring.PopBatch(batch)
			for i := 0; i < n; i++ {
				o.deliver(batch[i])
			}
			o.perSourceDelivered[src] += uint64(n)
			delivered += n
			if o.metrics != nil {
				o.metrics.OutputRingDepth.WithLabelValues(strconv.Itoa(src)).Set(float64(ring.Len()))
			}
		}

		if delivered == 0 {
			if o.shutdown.Requested() {
				drainTicks++
				if drainTicks >= ShutdownDrainIterations {
					return
				}
			}
			time.Sleep(ActiveSleep)
			continue
		}
		drainTicks = 0
	}
}

func (o *OutputRouter) deliver(env domain.OutputEnvelope) {
	slot, ok := o.Registry.Get(env.ClientID)
	if !ok {
		if o.metrics != nil {
			o.metrics.MessagesDropped.WithLabelValues("client_gone").Inc()
		}
	} else if !slot.Output.TryPush(env.Msg) {
		if o.metrics != nil {
			o.metrics.MessagesDropped.WithLabelValues("client_ring_full").Inc()
		}
	}

	if env.Broadcast && o.Multicast != nil && o.Encoder != nil {
		symbol := outputSymbol(env.Msg)
		o.multicastSeq[symbol]++
		env.MulticastSeq = o.multicastSeq[symbol]

		payload := o.Encoder.Encode(env.Msg)
		if err := o.Multicast.Send(payload); err != nil && o.logger != nil {
			o.logger.Warn("multicast send failed", zap.Error(err))
		}
	}
}

// outputSymbol extracts the symbol an OutputMessage concerns, for keying
// the per-symbol multicast sequence counter.
func outputSymbol(msg domain.OutputMessage) string {
	switch msg.Kind {
	case domain.KindTrade:
		return msg.Trade.Symbol
	case domain.KindTopOfBook:
		return msg.TopOfBook.Symbol
	case domain.KindAck:
		return msg.Ack.Symbol
	case domain.KindCancelAck:
		return msg.CancelAck.Symbol
	case domain.KindReject:
		return msg.Reject.Symbol
	default:
		return ""
	}
}
