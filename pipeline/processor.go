package pipeline

import (
	"runtime"
	"strconv"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/matching"
	"github.com/tembolo1284/matchengine/ring"
	"go.uber.org/zap"
)

// ProcessorBatchSize bounds how many envelopes one loop iteration drains
// from the input ring (§4.12).
const ProcessorBatchSize = 32

// Idle/active sleep durations for the processor's adaptive wait (§4.12).
const (
	ActiveSleep = time.Microsecond
	IdleSleep   = 100 * time.Microsecond
)

// IdleThreshold is the number of consecutive empty batches before the
// processor switches from ActiveSleep to IdleSleep (§4.12).
const IdleThreshold = 100

// Processor owns one matching engine plus its input and output rings —
// exactly one shard (§4.12). It runs its loop on a locked OS thread, the
// way the teacher's MatchingEngine.Start goroutine does, since a
// single-threaded matcher benefits from staying on one core.
type Processor struct {
	ShardID int
	Engine  *matching.Engine
	Input   *ring.SPSC[domain.InputEnvelope]
	Output  *ring.SPSC[domain.OutputEnvelope]

	shutdown *Shutdown
	metrics  *Metrics
	logger   *zap.Logger
}

// NewProcessor builds a Processor. engine is created by the caller so the
// caller controls each shard's capacity/reject policy.
func NewProcessor(shardID int, engine *matching.Engine, inputCap, outputCap int, shutdown *Shutdown, metrics *Metrics, logger *zap.Logger) *Processor {
	return &Processor{
		ShardID:  shardID,
		Engine:   engine,
		Input:    ring.New[domain.InputEnvelope](inputCap),
		Output:   ring.New[domain.OutputEnvelope](outputCap),
		shutdown: shutdown,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run executes the processor loop until shutdown is requested and the
// input ring has been drained (§4.12 point 4). It is meant to be launched
// with `go p.Run()`.
func (p *Processor) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	shard := strconv.Itoa(p.ShardID)
	batch := make([]domain.InputEnvelope, ProcessorBatchSize)
	idleStreak := 0

	for {
		n := p.Input.PopBatch(batch)
		if p.metrics != nil {
			p.metrics.ProcessorBatches.WithLabelValues(shard).Observe(float64(n))
			p.metrics.InputRingDepth.WithLabelValues(shard).Set(float64(p.Input.Len()))
		}

		for i := 0; i < n; i++ {
			p.dispatch(batch[i])
		}

		if n == 0 {
			if p.shutdown.Requested() {
				return
			}
			idleStreak++
			if idleStreak >= IdleThreshold {
				time.Sleep(IdleSleep)
			} else {
				time.Sleep(ActiveSleep)
			}
			continue
		}
		idleStreak = 0
	}
}

// dispatch routes one envelope into the engine and forwards every
// resulting OutputMessage onto the output ring, wrapped with the
// originating client_id. A Trade carries two client IDs, so it is
// expanded into two OutputEnvelopes — only the first marked for
// multicast — per the §9 Broadcast design note.
func (p *Processor) dispatch(env domain.InputEnvelope) {
	var out []domain.OutputMessage
	switch env.Msg.Kind {
	case domain.KindNewOrder:
		out = p.Engine.ProcessNewOrder(env.Msg.NewOrder, env.ClientID)
	case domain.KindCancel:
		out = p.Engine.ProcessCancel(env.Msg.Cancel)
	case domain.KindFlush:
		out = p.Engine.ProcessFlush()
	default:
		return
	}

	for _, msg := range out {
		p.publish(env.ClientID, msg)
	}
}

func (p *Processor) publish(originClient uint32, msg domain.OutputMessage) {
	if msg.Kind == domain.KindTrade {
		p.publishEnvelope(domain.OutputEnvelope{ClientID: msg.Trade.BuyClientID, Msg: msg, Broadcast: true})
		p.publishEnvelope(domain.OutputEnvelope{ClientID: msg.Trade.SellClientID, Msg: msg, Broadcast: false})
		return
	}
	// Ack/CancelAck/Reject are private replies; TopOfBook is market data
	// and also goes to the multicast group (§4.13).
	p.publishEnvelope(domain.OutputEnvelope{ClientID: originClient, Msg: msg, Broadcast: msg.Kind == domain.KindTopOfBook})
}

func (p *Processor) publishEnvelope(env domain.OutputEnvelope) {
	for i := 0; i < MaxEnqueueRetries; i++ {
		if p.Output.TryPush(env) {
			return
		}
	}
	if p.metrics != nil {
		p.metrics.MessagesDropped.WithLabelValues("output_ring_full").Inc()
	}
	if p.logger != nil {
		p.logger.Warn("dropped output envelope: output ring full",
			zap.Int("shard", p.ShardID), zap.Uint32("client_id", env.ClientID))
	}
}
