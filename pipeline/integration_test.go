package pipeline

import (
	"testing"
	"time"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/matching"
	"github.com/tembolo1284/matchengine/ring"
)

// TestEndToEndOrderAndCancelReachClient wires one Router, two Processors,
// and one OutputRouter together exactly as cmd/matchengine/main.go does,
// and drives a resting order plus a symbol-less cancel through the whole
// pipeline to confirm the client actually sees its Ack and CancelAck.
func TestEndToEndOrderAndCancelReachClient(t *testing.T) {
	shutdown := NewShutdown()
	registry := NewRegistry()
	clientID, _ := registry.Add(&fakeConn{})

	const numShards = 2
	inputs := make([]*ring.SPSC[domain.InputEnvelope], numShards)
	outputs := make([]*ring.SPSC[domain.OutputEnvelope], numShards)
	processors := make([]*Processor, numShards)
	for i := 0; i < numShards; i++ {
		engine := matching.New(nil)
		p := NewProcessor(i, engine, 64, 64, shutdown, nil, nil)
		inputs[i] = p.Input
		outputs[i] = p.Output
		processors[i] = p
	}

	router := NewRouter(TwoShardBucket, inputs, nil)
	outRouter := NewOutputRouter(outputs, registry, &recordingEncoder{}, NopMulticastSender{}, shutdown, nil, nil)

	for _, p := range processors {
		go p.Run()
	}
	go outRouter.Run()

	if !router.Route(domain.InputEnvelope{ClientID: clientID, Msg: domain.InputMessage{
		Kind:     domain.KindNewOrder,
		NewOrder: domain.NewOrderMsg{Symbol: "NFLX", UserID: 1, UserOrderID: 1, Side: domain.Buy, Price: 100, Quantity: 10},
	}}) {
		t.Fatal("Route(NewOrder) should not fail on an empty ring")
	}

	slot, _ := registry.Get(clientID)
	ackMsg := waitForKind(t, slot, domain.KindAck)
	if ackMsg.Ack.Symbol != "NFLX" {
		t.Fatalf("expected the Ack for NFLX, got %+v", ackMsg.Ack)
	}
	waitForKind(t, slot, domain.KindTopOfBook)

	if !router.Route(domain.InputEnvelope{ClientID: clientID, Msg: domain.InputMessage{
		Kind:   domain.KindCancel,
		Cancel: domain.CancelMsg{UserID: 1, UserOrderID: 1},
	}}) {
		t.Fatal("Route(Cancel) should not fail")
	}

	cancelAck := waitForKind(t, slot, domain.KindCancelAck)
	if cancelAck.CancelAck.UserOrderID != 1 {
		t.Fatalf("unexpected CancelAck: %+v", cancelAck.CancelAck)
	}

	shutdown.Trigger()
}

func waitForKind(t *testing.T, slot *ClientSlot, kind domain.OutputKind) domain.OutputMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := slot.Output.TryPop(); ok {
			if msg.Kind == kind {
				return msg
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for output kind %v", kind)
	return domain.OutputMessage{}
}
