package pipeline

import (
	"testing"

	"github.com/tembolo1284/matchengine/domain"
)

type fakeConn struct{ closed bool }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestRegistryAddAssignsStableIncreasingSlots(t *testing.T) {
	r := NewRegistry()
	id1, ok := r.Add(&fakeConn{})
	if !ok || id1 != 0 {
		t.Fatalf("expected first client at slot 0, got id=%d ok=%v", id1, ok)
	}
	id2, ok := r.Add(&fakeConn{})
	if !ok || id2 != 1 {
		t.Fatalf("expected second client at slot 1, got id=%d ok=%v", id2, ok)
	}
}

func TestRegistryGetReturnsUsableOutputRing(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Add(&fakeConn{})
	slot, ok := r.Get(id)
	if !ok {
		t.Fatal("expected slot to be found")
	}
	if slot.Output == nil {
		t.Fatal("Add should provision an output ring")
	}
	if !slot.Output.TryPush(domain.OutputMessage{}) {
		t.Fatal("newly provisioned ring should accept a push")
	}
}

func TestRegistryRemoveClosesConnAndFreesSlot(t *testing.T) {
	r := NewRegistry()
	conn := &fakeConn{}
	id, _ := r.Add(conn)

	r.Remove(id)
	if !conn.closed {
		t.Fatal("Remove should close the connection")
	}
	if _, ok := r.Get(id); ok {
		t.Fatal("slot should no longer be active after Remove")
	}
}

func TestRegistryAddReusesFreedSlot(t *testing.T) {
	r := NewRegistry()
	id, _ := r.Add(&fakeConn{})
	r.Remove(id)

	newID, ok := r.Add(&fakeConn{})
	if !ok || newID != id {
		t.Fatalf("expected freed slot %d to be reused, got %d", id, newID)
	}
}

func TestRegistryGetUnknownClientFails(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get(12345); ok {
		t.Fatal("Get on an out-of-range/never-added client should fail")
	}
}

func TestRegistryDisconnectAllClosesEveryActiveConn(t *testing.T) {
	r := NewRegistry()
	conns := make([]*fakeConn, 3)
	ids := make([]uint32, 3)
	for i := range conns {
		conns[i] = &fakeConn{}
		ids[i], _ = r.Add(conns[i])
	}

	disconnected := r.DisconnectAll()
	if len(disconnected) != 3 {
		t.Fatalf("expected 3 disconnected client IDs, got %d", len(disconnected))
	}
	for _, c := range conns {
		if !c.closed {
			t.Fatal("DisconnectAll should close every active connection")
		}
	}
	for _, id := range ids {
		if _, ok := r.Get(id); ok {
			t.Fatal("all slots should be inactive after DisconnectAll")
		}
	}
}

func TestRegistryFullReturnsNotOK(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxTCPClients; i++ {
		if _, ok := r.Add(&fakeConn{}); !ok {
			t.Fatalf("slot %d should have been available", i)
		}
	}
	if _, ok := r.Add(&fakeConn{}); ok {
		t.Fatal("registry should refuse to grow past MaxTCPClients")
	}
}
