package routing

import (
	"github.com/bits-and-blooms/bitset"
)

// MaxNumPeers caps the number of peers the BFS kernel can address
// simultaneously: adjacency is backed by fixed-width bitsets sized to this
// constant. Exceeding it is a hard error (ErrTooManyPeers); raising the cap
// would require widening the bitset backing, left for a future change.
const MaxNumPeers = 128

// Graph is the in-memory set of Active edges. Adjacency is derived
// from per-peer neighbor bitsets; it holds no signatures or nonces, only
// connectivity. It is exclusively mutated by Inner under the single-writer
// lock (see inner.go) and is not itself concurrency-safe.
type Graph struct {
	local    PeerId
	localIdx int

	index   map[PeerId]int
	ids     [MaxNumPeers]PeerId
	used    *bitset.BitSet
	free    []int
	nextSlot int

	neighbors [MaxNumPeers]*bitset.BitSet
}

// NewGraph creates an empty graph rooted at the local peer. The local peer
// always occupies slot 0 and its slot is never reclaimed.
func NewGraph(local PeerId) *Graph {
	g := &Graph{
		local: local,
		index: make(map[PeerId]int, MaxNumPeers),
		used:  bitset.New(MaxNumPeers),
	}
	for i := range g.neighbors {
		g.neighbors[i] = bitset.New(MaxNumPeers)
	}
	// ensureIndex never fails for the very first slot.
	idx, _ := g.ensureIndex(local)
	g.localIdx = idx
	return g
}

func (g *Graph) ensureIndex(p PeerId) (int, error) {
	if idx, ok := g.index[p]; ok {
		return idx, nil
	}
	var idx int
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		if g.nextSlot >= MaxNumPeers {
			return 0, ErrTooManyPeers
		}
		idx = g.nextSlot
		g.nextSlot++
	}
	g.index[p] = idx
	g.ids[idx] = p
	g.used.Set(uint(idx))
	return idx, nil
}

// maybeFreeSlot reclaims a peer's slot once it has no remaining neighbors.
// The local peer's slot is never reclaimed.
func (g *Graph) maybeFreeSlot(idx int) {
	if idx == g.localIdx {
		return
	}
	if g.neighbors[idx].None() {
		delete(g.index, g.ids[idx])
		g.ids[idx] = ""
		g.used.Clear(uint(idx))
		g.free = append(g.free, idx)
	}
}

// AddEdge inserts an undirected connection between a and b. Repeated calls
// for the same pair are idempotent.
func (g *Graph) AddEdge(a, b PeerId) error {
	ia, err := g.ensureIndex(a)
	if err != nil {
		return err
	}
	ib, err := g.ensureIndex(b)
	if err != nil {
		return err
	}
	g.neighbors[ia].Set(uint(ib))
	g.neighbors[ib].Set(uint(ia))
	return nil
}

// RemoveEdge clears an undirected connection. Repeated calls, or calls for
// a pair with no edge, are no-ops.
func (g *Graph) RemoveEdge(a, b PeerId) {
	ia, oka := g.index[a]
	ib, okb := g.index[b]
	if !oka || !okb {
		return
	}
	g.neighbors[ia].Clear(uint(ib))
	g.neighbors[ib].Clear(uint(ia))
	g.maybeFreeSlot(ia)
	g.maybeFreeSlot(ib)
}

// HasPeer reports whether p currently has an assigned slot (i.e. appears
// in at least one active edge, or is the local peer).
func (g *Graph) HasPeer(p PeerId) bool {
	_, ok := g.index[p]
	return ok
}

// CalculateDistance runs BFS from the local peer over reliable neighbors
// only: a peer in unreliable may appear as a destination but is never used
// as a transit hop. It is pure over the current graph snapshot and the
// supplied set, and runs in O(V+E) bounded by MaxNumPeers.
func (g *Graph) CalculateDistance(unreliable map[PeerId]struct{}) map[PeerId][]PeerId {
	depth := make(map[int]int, MaxNumPeers)
	nextHop := make(map[int]map[int]struct{}, MaxNumPeers)
	visited := bitset.New(MaxNumPeers)

	depth[g.localIdx] = 0
	visited.Set(uint(g.localIdx))
	queue := []int{g.localIdx}

	isUnreliable := func(idx int) bool {
		if idx == g.localIdx {
			return false
		}
		_, bad := unreliable[g.ids[idx]]
		return bad
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur != g.localIdx && isUnreliable(cur) {
			continue // never transit through an unreliable peer
		}

		for nb, ok := g.neighbors[cur].NextSet(0); ok; nb, ok = g.neighbors[cur].NextSet(nb + 1) {
			idx := int(nb)
			if !visited.Test(uint(idx)) {
				visited.Set(uint(idx))
				depth[idx] = depth[cur] + 1
				if cur == g.localIdx {
					nextHop[idx] = map[int]struct{}{idx: {}}
				} else {
					nextHop[idx] = cloneSet(nextHop[cur])
				}
				queue = append(queue, idx)
				continue
			}
			if depth[idx] == depth[cur]+1 {
				var src map[int]struct{}
				if cur == g.localIdx {
					src = map[int]struct{}{idx: {}}
				} else {
					src = nextHop[cur]
				}
				for k := range src {
					nextHop[idx][k] = struct{}{}
				}
			}
		}
	}

	h := make(map[PeerId][]PeerId, len(nextHop))
	for idx, hops := range nextHop {
		if idx == g.localIdx {
			continue
		}
		list := make([]PeerId, 0, len(hops))
		for hopIdx := range hops {
			list = append(list, g.ids[hopIdx])
		}
		h[g.ids[idx]] = list
	}
	return h
}

func cloneSet(src map[int]struct{}) map[int]struct{} {
	out := make(map[int]struct{}, len(src))
	for k := range src {
		out[k] = struct{}{}
	}
	return out
}
