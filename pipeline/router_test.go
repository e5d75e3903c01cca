package pipeline

import (
	"testing"

	"github.com/tembolo1284/matchengine/domain"
	"github.com/tembolo1284/matchengine/ring"
)

func TestTwoShardBucket(t *testing.T) {
	cases := map[string]int{
		"AAPL": 0,
		"MSFT": 0,
		"NFLX": 1,
		"ZETA": 1,
		"aapl": 0,
		"nflx": 1,
		"":     0,
	}
	for symbol, want := range cases {
		if got := TwoShardBucket(symbol); got != want {
			t.Errorf("TwoShardBucket(%q) = %d, want %d", symbol, got, want)
		}
	}
}

func TestHashShardIsStable(t *testing.T) {
	first := HashShard("AAPL", 4)
	for i := 0; i < 100; i++ {
		if HashShard("AAPL", 4) != first {
			t.Fatal("HashShard must be a pure, stable function of its inputs")
		}
	}
	if first < 0 || first >= 4 {
		t.Fatalf("HashShard out of range: %d", first)
	}
}

func newTestRouter(numShards int) (*Router, []*ring.SPSC[domain.InputEnvelope]) {
	inputs := make([]*ring.SPSC[domain.InputEnvelope], numShards)
	for i := range inputs {
		inputs[i] = ring.New[domain.InputEnvelope](16)
	}
	return NewRouter(TwoShardBucket, inputs, nil), inputs
}

func TestRouteNewOrderGoesToOneShard(t *testing.T) {
	r, inputs := newTestRouter(2)
	env := domain.InputEnvelope{ClientID: 1, Msg: domain.InputMessage{
		Kind:     domain.KindNewOrder,
		NewOrder: domain.NewOrderMsg{Symbol: "NFLX", UserID: 1, UserOrderID: 1},
	}}
	if !r.Route(env) {
		t.Fatal("Route should succeed on an empty ring")
	}
	if inputs[0].Len() != 0 || inputs[1].Len() != 1 {
		t.Fatalf("NFLX should land on shard 1 only, got shard0=%d shard1=%d", inputs[0].Len(), inputs[1].Len())
	}
}

func TestRouteFlushBroadcastsToEveryShard(t *testing.T) {
	r, inputs := newTestRouter(2)
	env := domain.InputEnvelope{Msg: domain.InputMessage{Kind: domain.KindFlush}}
	if !r.Route(env) {
		t.Fatal("Route should succeed")
	}
	for i, in := range inputs {
		if in.Len() != 1 {
			t.Fatalf("shard %d should have received the broadcast flush, len=%d", i, in.Len())
		}
	}
}

func TestCancelWithoutSymbolFollowsItsOrderToTheRightShard(t *testing.T) {
	r, inputs := newTestRouter(2)
	r.Route(domain.InputEnvelope{Msg: domain.InputMessage{
		Kind:     domain.KindNewOrder,
		NewOrder: domain.NewOrderMsg{Symbol: "NFLX", UserID: 5, UserOrderID: 9},
	}})
	for _, in := range inputs {
		in.TryPop() // drain the NewOrder so the cancel lands distinctly in our assertion
	}

	r.Route(domain.InputEnvelope{Msg: domain.InputMessage{
		Kind:   domain.KindCancel,
		Cancel: domain.CancelMsg{UserID: 5, UserOrderID: 9},
	}})
	if inputs[0].Len() != 0 || inputs[1].Len() != 1 {
		t.Fatalf("symbol-less cancel should still land on shard 1 (NFLX's shard), got shard0=%d shard1=%d",
			inputs[0].Len(), inputs[1].Len())
	}
}
