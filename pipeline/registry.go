package pipeline

import (
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/ring"
)

// MaxTCPClients bounds the client registry (§4.14).
const MaxTCPClients = 4096

// ClientRingCapacity sizes each client's per-connection output ring.
const ClientRingCapacity = 1024

// ClientSlot holds one connection's transport handle and
// the per-client SPSC ring the output router writes to and the client's
// writer goroutine drains. Access after a successful Get is lock-free: the
// router is the ring's sole producer, the writer its sole consumer (§4.14,
// §5).
type ClientSlot struct {
	Active bool
	ID     uint32
	// SessionID is a process-unique identifier independent of the reused
	// slot index, so log lines and multicast diagnostics can tell two
	// connections that happened to land in the same slot apart.
	SessionID uuid.UUID
	Conn      io.Closer // abstracted transport; nil for a UDP-addressed client
	Output    *ring.SPSC[domain.OutputMessage]
}

// Registry is the fixed-capacity client table. A single mutex guards slot
// allocation (Add/Remove/DisconnectAll); everything else is lock-free
// (§4.14, §5: "individual slot access after lookup is lock-free").
type Registry struct {
	mu    sync.Mutex
	slots [MaxTCPClients]ClientSlot
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add claims the first free slot for conn, creates its output ring, and
// returns the new client's stable ID (its slot index) — stable for the
// lifetime of the connection, per §5.
func (r *Registry) Add(conn io.Closer) (clientID uint32, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if !r.slots[i].Active {
			r.slots[i] = ClientSlot{
				Active:    true,
				ID:        uint32(i),
				SessionID: uuid.New(),
				Conn:      conn,
				Output:    ring.New[domain.OutputMessage](ClientRingCapacity),
			}
			return uint32(i), true
		}
	}
	return 0, false
}

// Remove closes clientID's connection (if any) and frees its slot.
func (r *Registry) Remove(clientID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(clientID) >= len(r.slots) {
		return
	}
	slot := &r.slots[clientID]
	if !slot.Active {
		return
	}
	if slot.Conn != nil {
		slot.Conn.Close()
	}
	*slot = ClientSlot{}
}

// Get returns clientID's slot if it's active. The returned pointer is safe
// to read/write its Output ring without holding the registry mutex.
func (r *Registry) Get(clientID uint32) (*ClientSlot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(clientID) >= len(r.slots) || !r.slots[clientID].Active {
		return nil, false
	}
	return &r.slots[clientID], true
}

// DisconnectAll closes every active connection, clears every slot, and
// returns the client IDs that were active so the caller (the shutdown
// path) can cancel their outstanding orders (§4.14).
func (r *Registry) DisconnectAll() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint32
	for i := range r.slots {
		if !r.slots[i].Active {
			continue
		}
		ids = append(ids, uint32(i))
		if r.slots[i].Conn != nil {
			r.slots[i].Conn.Close()
		}
		r.slots[i] = ClientSlot{}
	}
	return ids
}
