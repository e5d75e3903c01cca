package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/ring"
)

type recordingEncoder struct{ calls int }

func (e *recordingEncoder) Encode(msg domain.OutputMessage) []byte {
	e.calls++
	return []byte{byte(msg.Kind)}
}

type recordingMulticast struct {
	sent [][]byte
	err  error
}

func (m *recordingMulticast) Send(payload []byte) error {
	m.sent = append(m.sent, payload)
	return m.err
}

func newTestOutputRouter(numShards int) (*OutputRouter, []*ring.SPSC[domain.OutputEnvelope], *Registry, *recordingMulticast) {
	sources := make([]*ring.SPSC[domain.OutputEnvelope], numShards)
	for i := range sources {
		sources[i] = ring.New[domain.OutputEnvelope](16)
	}
	registry := NewRegistry()
	mc := &recordingMulticast{}
	o := NewOutputRouter(sources, registry, &recordingEncoder{}, mc, NewShutdown(), nil, nil)
	return o, sources, registry, mc
}

func TestDeliverRoutesToClientRing(t *testing.T) {
	o, _, registry, _ := newTestOutputRouter(1)
	conn := &fakeConn{}
	clientID, _ := registry.Add(conn)

	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindAck}})

	slot, _ := registry.Get(clientID)
	msg, ok := slot.Output.TryPop()
	if !ok || msg.Kind != domain.KindAck {
		t.Fatalf("expected the Ack to land in the client's output ring, got ok=%v msg=%+v", ok, msg)
	}
}

func TestDeliverToGoneClientIsCountedNotFatal(t *testing.T) {
	o, _, _, _ := newTestOutputRouter(1)
	o.deliver(domain.OutputEnvelope{ClientID: 999, Msg: domain.OutputMessage{Kind: domain.KindAck}})
}

func TestDeliverMirrorsBroadcastEnvelopesToMulticast(t *testing.T) {
	o, _, registry, mc := newTestOutputRouter(1)
	clientID, _ := registry.Add(&fakeConn{})

	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindTopOfBook}, Broadcast: true})

	if len(mc.sent) != 1 {
		t.Fatalf("expected 1 multicast send for a broadcast envelope, got %d", len(mc.sent))
	}
}

func TestMulticastSeqIncrementsPerSymbolIndependently(t *testing.T) {
	o, _, registry, mc := newTestOutputRouter(1)
	clientID, _ := registry.Add(&fakeConn{})

	aapl := domain.OutputMessage{Kind: domain.KindTopOfBook, TopOfBook: domain.TopOfBookMsg{Symbol: "AAPL"}}
	msft := domain.OutputMessage{Kind: domain.KindTopOfBook, TopOfBook: domain.TopOfBookMsg{Symbol: "MSFT"}}

	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: aapl, Broadcast: true})
	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: aapl, Broadcast: true})
	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: msft, Broadcast: true})

	if o.multicastSeq["AAPL"] != 2 {
		t.Fatalf("expected AAPL's counter at 2, got %d", o.multicastSeq["AAPL"])
	}
	if o.multicastSeq["MSFT"] != 1 {
		t.Fatalf("expected MSFT's counter at 1, got %d", o.multicastSeq["MSFT"])
	}
	if len(mc.sent) != 3 {
		t.Fatalf("expected 3 multicast sends total, got %d", len(mc.sent))
	}
}

func TestDeliverDoesNotMirrorNonBroadcastEnvelopes(t *testing.T) {
	o, _, registry, mc := newTestOutputRouter(1)
	clientID, _ := registry.Add(&fakeConn{})

	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindAck}, Broadcast: false})

	if len(mc.sent) != 0 {
		t.Fatalf("a private Ack must not be mirrored to multicast, got %d sends", len(mc.sent))
	}
}

func TestDeliverSurvivesMulticastSendError(t *testing.T) {
	o, _, registry, mc := newTestOutputRouter(1)
	mc.err = errors.New("network unreachable")
	clientID, _ := registry.Add(&fakeConn{})

	o.deliver(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindTopOfBook}, Broadcast: true})
}

func TestOutputRouterRunDrainsAllSourcesRoundRobin(t *testing.T) {
	o, sources, registry, _ := newTestOutputRouter(2)
	clientID, _ := registry.Add(&fakeConn{})

	sources[0].TryPush(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindAck}})
	sources[1].TryPush(domain.OutputEnvelope{ClientID: clientID, Msg: domain.OutputMessage{Kind: domain.KindCancelAck}})

	done := make(chan struct{})
	go func() {
		o.Run()
		close(done)
	}()

	// Give the loop a moment to drain both sources, then trigger shutdown.
	time.Sleep(5 * time.Millisecond)
	o.shutdown.Trigger()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OutputRouter.Run did not exit after shutdown + drain")
	}

	slot, _ := registry.Get(clientID)
	if slot.Output.Len() != 2 {
		t.Fatalf("expected both envelopes delivered to the client ring, got %d", slot.Output.Len())
	}
}
