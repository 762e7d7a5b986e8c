package routing

import (
	"sort"
	"testing"
)

func sortedPeers(ps []PeerId) []PeerId {
	out := append([]PeerId{}, ps...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestGraphChainNextHop(t *testing.T) {
	local := PeerId("local")
	a, b, c := PeerId("a"), PeerId("b"), PeerId("c")
	g := NewGraph(local)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	must(g.AddEdge(local, a))
	must(g.AddEdge(a, b))
	must(g.AddEdge(b, c))

	h := g.CalculateDistance(nil)
	if got := sortedPeers(h[a]); len(got) != 1 || got[0] != a {
		t.Fatalf("expected next-hop {a} for a, got %v", got)
	}
	if got := sortedPeers(h[b]); len(got) != 1 || got[0] != a {
		t.Fatalf("expected next-hop {a} for b, got %v", got)
	}
	if got := sortedPeers(h[c]); len(got) != 1 || got[0] != a {
		t.Fatalf("expected next-hop {a} for c, got %v", got)
	}
}

func TestGraphTieProducesMultipleNextHops(t *testing.T) {
	local := PeerId("local")
	a, b, dst := PeerId("a"), PeerId("b"), PeerId("dst")
	g := NewGraph(local)
	for _, e := range [][2]PeerId{{local, a}, {local, b}, {a, dst}, {b, dst}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	h := g.CalculateDistance(nil)
	got := sortedPeers(h[dst])
	want := sortedPeers([]PeerId{a, b})
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected tie next-hops {a,b} for dst, got %v", got)
	}
}

func TestGraphUnreliablePeerNeverTransited(t *testing.T) {
	local := PeerId("local")
	a, b, dst := PeerId("a"), PeerId("b"), PeerId("dst")
	g := NewGraph(local)
	for _, e := range [][2]PeerId{{local, a}, {a, dst}, {local, b}, {b, dst}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	h := g.CalculateDistance(map[PeerId]struct{}{a: {}})
	got := sortedPeers(h[dst])
	if len(got) != 1 || got[0] != b {
		t.Fatalf("expected only next-hop b once a is unreliable, got %v", got)
	}
	// a itself remains reachable as a destination even though it cannot be transited.
	if _, ok := h[a]; !ok {
		t.Fatalf("expected unreliable peer a to still appear as a reachable destination")
	}
}

func TestGraphAddEdgeIdempotent(t *testing.T) {
	local := PeerId("local")
	a := PeerId("a")
	g := NewGraph(local)
	for i := 0; i < 3; i++ {
		if err := g.AddEdge(local, a); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	h := g.CalculateDistance(nil)
	if got := sortedPeers(h[a]); len(got) != 1 || got[0] != a {
		t.Fatalf("expected single next-hop entry after repeated AddEdge, got %v", got)
	}
}

func TestGraphRemoveEdgeReclaimsSlot(t *testing.T) {
	local := PeerId("local")
	a := PeerId("a")
	g := NewGraph(local)
	if err := g.AddEdge(local, a); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if !g.HasPeer(a) {
		t.Fatalf("expected a to have a slot after AddEdge")
	}
	g.RemoveEdge(local, a)
	if g.HasPeer(a) {
		t.Fatalf("expected a's slot to be reclaimed after its only edge is removed")
	}

	// The reclaimed slot must be reusable for a fresh peer.
	b := PeerId("b")
	if err := g.AddEdge(local, b); err != nil {
		t.Fatalf("AddEdge after reclaim: %v", err)
	}
	h := g.CalculateDistance(nil)
	if _, ok := h[b]; !ok {
		t.Fatalf("expected b reachable after reusing reclaimed slot")
	}
}

func TestGraphTooManyPeers(t *testing.T) {
	g := NewGraph(PeerId("local"))
	var lastErr error
	for i := 0; i < MaxNumPeers+5; i++ {
		lastErr = g.AddEdge(PeerId("local"), PeerId(string(rune('A'+i%26))+string(rune(i))))
	}
	if lastErr != ErrTooManyPeers {
		t.Fatalf("expected ErrTooManyPeers once the cap is exceeded, got %v", lastErr)
	}
}
