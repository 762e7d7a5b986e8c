package routing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot is the read-only view published after each routing table
// recalculation. Readers load it without ever touching Inner's lock.
type Snapshot struct {
	NextHop     map[PeerId][]PeerId
	Edges       []Edge
	GeneratedAt time.Time
}

// Inner is the single-writer owner of the routing graph, the full edge
// table E, the reachability map R, and the component store handle. All
// mutation happens under mu; readers instead load the lock-free snapshot
// pointer published at the end of every UpdateRoutingTable pass.
type Inner struct {
	mu sync.Mutex

	local          PeerId
	localCreatedAt time.Time
	clock          Clock
	cfg            RouterConfig
	metrics        *Metrics
	log            *logrus.Entry

	graph      *Graph
	edges      map[EdgeKey]Edge
	reachable  map[PeerId]time.Time // R: last time a peer appeared in H
	components *ComponentStore
	unreliable map[PeerId]struct{}

	snapshot atomic.Pointer[Snapshot]
}

// NewInner constructs an Inner rooted at local, publishing an empty
// snapshot immediately so Load() never observes a nil pointer.
func NewInner(local PeerId, clock Clock, cfg RouterConfig, metrics *Metrics, components *ComponentStore, log *logrus.Entry) *Inner {
	in := &Inner{
		local:          local,
		localCreatedAt: clock.Now(),
		clock:          clock,
		cfg:            cfg,
		metrics:        metrics,
		log:            log,
		graph:          NewGraph(local),
		edges:          make(map[EdgeKey]Edge),
		reachable:      make(map[PeerId]time.Time),
		components:     components,
		unreliable:     make(map[PeerId]struct{}),
	}
	in.publish(map[PeerId][]PeerId{}, clock.Now())
	return in
}

// Load returns the most recently published snapshot. Safe for concurrent
// use with any number of readers and the single writer.
func (in *Inner) Load() *Snapshot {
	return in.snapshot.Load()
}

func (in *Inner) publish(h map[PeerId][]PeerId, now time.Time) {
	edges := make([]Edge, 0, len(in.edges))
	for _, e := range in.edges {
		edges = append(edges, e)
	}
	in.snapshot.Store(&Snapshot{NextHop: h, Edges: edges, GeneratedAt: now})
}

// SetUnreliablePeers replaces the set of peers BFS must never use as a
// transit hop. Taking effect is deferred to the next UpdateRoutingTable.
func (in *Inner) SetUnreliablePeers(peers []PeerId) {
	in.mu.Lock()
	defer in.mu.Unlock()
	next := make(map[PeerId]struct{}, len(peers))
	for _, p := range peers {
		next[p] = struct{}{}
	}
	in.unreliable = next
}

// updateEdge applies a single candidate edge and reports whether it changed
// local state. Callers must hold mu.
func (in *Inner) updateEdge(now time.Time, e Edge) bool {
	key := e.Key()

	if cur, ok := in.edges[key]; ok && cur.Nonce >= e.Nonce {
		return false
	}
	if e.CreatedAtUTC.IsZero() {
		e.CreatedAtUTC = now
	}
	if in.cfg.PruneEdgesEnabled && in.cfg.PruneEdgesAfter > 0 {
		if e.IsOlderThan(now.Add(-in.cfg.PruneEdgesAfter)) {
			return false // would be instantly pruned; don't bother adding it
		}
	}

	switch e.Type() {
	case EdgeActive:
		// ErrTooManyPeers is logged here, never fatal to the batch.
		if err := in.graph.AddEdge(e.P0, e.P1); err != nil && in.log != nil {
			in.log.WithError(err).WithField("edge", key).Warn("failed to add edge to graph")
		}
	case EdgeRemoved:
		in.graph.RemoveEdge(e.P0, e.P1)
	}
	in.edges[key] = e
	return true
}

// removeAdjacentEdges drops every entry touching any peer in peers from the
// edge table and graph, returning the removed edges for archival.
func (in *Inner) removeAdjacentEdges(peers map[PeerId]struct{}) []Edge {
	var removed []Edge
	for key, e := range in.edges {
		_, p0Touched := peers[key.P0]
		_, p1Touched := peers[key.P1]
		if !p0Touched && !p1Touched {
			continue
		}
		removed = append(removed, e)
		delete(in.edges, key)
		if e.Type() == EdgeActive {
			in.graph.RemoveEdge(e.P0, e.P1)
		}
	}
	return removed
}

// pruneOldEdges drops every entry (Active or Removed) whose created_at
// predates threshold.
func (in *Inner) pruneOldEdges(threshold time.Time) {
	for key, e := range in.edges {
		if !e.IsOlderThan(threshold) {
			continue
		}
		delete(in.edges, key)
		if e.Type() == EdgeActive {
			in.graph.RemoveEdge(e.P0, e.P1)
		}
	}
}

// loadComponent is a no-op for the local peer or a peer already marked
// reachable; otherwise it pops the peer's archived neighborhood and
// re-applies every edge in it.
func (in *Inner) loadComponent(now time.Time, peer PeerId) {
	if peer == in.local {
		return
	}
	if _, ok := in.reachable[peer]; ok {
		return
	}
	if in.components == nil {
		return
	}
	stored, ok, err := in.components.PopComponent(peer)
	if err != nil {
		if in.log != nil {
			in.log.WithError(err).WithField("peer", peer).Warn("failed to load stored component")
		}
		return
	}
	if !ok {
		return
	}
	for _, e := range stored {
		in.updateEdge(now, e)
	}
}

// pruneUnreachablePeers evicts, together, every peer mentioned in the edge
// table whose reachability timestamp is missing or older than threshold,
// archiving their incident edges to the component store.
func (in *Inner) pruneUnreachablePeers(threshold time.Time) {
	mentioned := make(map[PeerId]struct{})
	for key := range in.edges {
		mentioned[key.P0] = struct{}{}
		mentioned[key.P1] = struct{}{}
	}

	evict := make(map[PeerId]struct{})
	for p := range mentioned {
		if p == in.local {
			continue
		}
		last, ok := in.reachable[p]
		if !ok || last.Before(threshold) {
			evict[p] = struct{}{}
		}
	}
	if len(evict) == 0 {
		return
	}

	for p := range evict {
		delete(in.reachable, p)
	}
	removed := in.removeAdjacentEdges(evict)
	if len(removed) == 0 || in.components == nil {
		return
	}
	peers := make([]PeerId, 0, len(evict))
	for p := range evict {
		peers = append(peers, p)
	}
	if err := in.components.PushComponent(peers, removed); err != nil && in.log != nil {
		in.log.WithField("peers", peers).WithError(err).Warn("failed to archive unreachable component")
	}
}

// UpdateRoutingTable is the sole orchestration entry point. It loads
// components for the endpoints of every candidate edge before filtering for
// newness, applies the surviving edges, prunes by age, recomputes the
// next-hop table, refreshes reachability, and evicts peers that have been
// unreachable for too long. It returns the edges that actually changed
// local state (for gossip) and the freshly computed next-hop table.
func (in *Inner) UpdateRoutingTable(newEdges []Edge) (applied []Edge, h map[PeerId][]PeerId) {
	in.mu.Lock()
	defer in.mu.Unlock()

	start := in.clock.Now()
	total := len(newEdges)

	for _, e := range newEdges {
		in.loadComponent(start, e.P0)
		in.loadComponent(start, e.P1)
	}

	applied = make([]Edge, 0, len(newEdges))
	for _, e := range newEdges {
		if in.updateEdge(start, e) {
			applied = append(applied, e)
		}
	}

	if in.metrics != nil && total > 0 {
		in.metrics.EdgeUpdates.Add(float64(total))
	}

	if in.cfg.PruneEdgesEnabled && in.cfg.PruneEdgesAfter > 0 {
		in.pruneOldEdges(start.Add(-in.cfg.PruneEdgesAfter))
	}

	h = in.graph.CalculateDistance(in.unreliable)

	in.reachable[in.local] = start
	for p := range h {
		in.reachable[p] = start
	}

	in.pruneUnreachablePeers(start.Add(-in.cfg.PruneUnreachablePeersAfter))

	in.publish(h, in.clock.Now())

	if in.metrics != nil {
		in.metrics.RoutingTableRecalculations.Inc()
		in.metrics.EdgeActive.Set(float64(in.countActive()))
		in.metrics.EdgeTotal.Set(float64(len(in.edges)))
		in.metrics.PeerReachable.Set(float64(len(h)))
		in.metrics.RoutingTableRecalculationHisto.Observe(in.clock.Now().Sub(start).Seconds())
	}
	return applied, h
}

func (in *Inner) countActive() int {
	n := 0
	for _, e := range in.edges {
		if e.Type() == EdgeActive {
			n++
		}
	}
	return n
}

// currentEdge returns the locally known edge for key, if any.
func (in *Inner) currentEdge(key EdgeKey) (Edge, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	e, ok := in.edges[key]
	return e, ok
}

// snapshotEdgeTable copies the full edge table E for use as the "known"
// baseline a verification pass filters stale candidates against.
func (in *Inner) snapshotEdgeTable() map[EdgeKey]Edge {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(map[EdgeKey]Edge, len(in.edges))
	for k, v := range in.edges {
		out[k] = v
	}
	return out
}

// LocalCreatedAt returns the instant this Inner (and thus the local node's
// routing state) was constructed, used to gate tombstone broadcast
// suppression during the startup warm-up window.
func (in *Inner) LocalCreatedAt() time.Time {
	return in.localCreatedAt
}
