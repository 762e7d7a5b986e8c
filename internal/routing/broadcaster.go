package routing

import (
	"bytes"
	"context"
	"encoding/gob"
	"sync"

	"github.com/sirupsen/logrus"
)

// WireEdge is the payload broadcast to peers for a single applied edge.
type WireEdge struct {
	Edge Edge
}

func encodeWireEdge(e Edge) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(WireEdge{Edge: e}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWireEdge decodes a single-edge payload produced by encodeWireEdge.
// Exposed for the transport layer receiving inbound gossip.
func DecodeWireEdge(payload []byte) (Edge, error) {
	var w WireEdge
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&w); err != nil {
		return Edge{}, err
	}
	return w.Edge, nil
}

type addEdgesRequest struct {
	edges  []Edge
	result chan addEdgesResult
}

type addEdgesResult struct {
	accepted int
	allOK    bool
	err      error
}

// Broadcaster demultiplexes concurrent AddEdges calls into one flush that
// verifies each caller's edges separately and applies them all in a single
// graph update, then gossips the edges that were actually applied. Removed
// edges applied while the local node is still within its skip_tombstones
// window since startup are not broadcast.
type Broadcaster struct {
	mu       sync.Mutex
	queue    []addEdgesRequest
	flushing bool

	inner    *Inner
	verifier *Verifier
	sender   PeerSender
	clock    Clock
	cfg      RouterConfig
	metrics  *Metrics
	log      *logrus.Entry
}

// NewBroadcaster wires a Broadcaster against the given Inner and Verifier.
// sender may be nil, in which case applied edges are still recorded
// locally but never gossiped (useful for tests of pure edge application).
func NewBroadcaster(inner *Inner, verifier *Verifier, sender PeerSender, clock Clock, cfg RouterConfig, metrics *Metrics, log *logrus.Entry) *Broadcaster {
	return &Broadcaster{inner: inner, verifier: verifier, sender: sender, clock: clock, cfg: cfg, metrics: metrics, log: log}
}

// AddEdges submits a batch of candidate edges for verification and
// application. Concurrent callers arriving while a flush is already in
// progress are queued into the next flush rather than each running their
// own flush; the flushing caller verifies every queued request's edges
// separately and applies them together.
func (b *Broadcaster) AddEdges(ctx context.Context, edges []Edge) (accepted int, allOK bool, err error) {
	req := addEdgesRequest{edges: edges, result: make(chan addEdgesResult, 1)}

	b.mu.Lock()
	b.queue = append(b.queue, req)
	leader := !b.flushing
	if leader {
		b.flushing = true
	}
	b.mu.Unlock()

	if leader {
		b.flush(ctx)
	}

	select {
	case res := <-req.result:
		return res.accepted, res.allOK, res.err
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// flush verifies each queued request against its own edges, independently
// of every other request sharing the flush, then merges whatever each
// accepted into a single UpdateRoutingTable call. A tampered edge
// submitted by one caller must never cost a sibling caller its own
// all-valid verdict, so allOK/err are computed per request from that
// request's own VerifyBatch result, not the merged batch's.
func (b *Broadcaster) flush(ctx context.Context) {
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		known := b.inner.snapshotEdgeTable()
		now := b.clock.Now()

		accepted := make([][]Edge, len(batch))
		allOK := make([]bool, len(batch))
		verifyErr := make([]error, len(batch))
		var toApply []Edge
		for i, r := range batch {
			acceptedEdges, ok, err := b.verifier.VerifyBatch(ctx, r.edges, known)
			accepted[i], allOK[i], verifyErr[i] = acceptedEdges, ok, err
			if err == nil {
				// CreatedAtUTC is the local first-observation time, not
				// whatever timestamp the sender attached.
				for _, e := range acceptedEdges {
					e.CreatedAtUTC = now
					toApply = append(toApply, e)
				}
			}
		}

		var applied []Edge
		if len(toApply) > 0 {
			applied, _ = b.inner.UpdateRoutingTable(toApply)
			b.broadcastApplied(applied)
		}

		appliedKeys := make(map[EdgeKey]struct{}, len(applied))
		for _, e := range applied {
			appliedKeys[e.Key()] = struct{}{}
		}
		for i, r := range batch {
			cnt := 0
			for _, e := range accepted[i] {
				if _, ok := appliedKeys[e.Key()]; ok {
					cnt++
				}
			}
			err := verifyErr[i]
			if err == nil && !allOK[i] {
				err = ErrInvalidEdge
			}
			r.result <- addEdgesResult{accepted: cnt, allOK: allOK[i], err: err}
		}

		b.mu.Lock()
		if len(b.queue) > 0 {
			b.mu.Unlock()
			continue
		}
		b.flushing = false
		b.mu.Unlock()
		return
	}
}

// broadcastApplied gossips every applied edge to all known peers, except
// Removed edges still inside their tombstone warm-up window.
func (b *Broadcaster) broadcastApplied(applied []Edge) {
	if b.sender == nil {
		return
	}
	for _, e := range applied {
		if b.shouldSuppressTombstone(e) {
			if b.metrics != nil {
				b.metrics.EdgeTombstoneSendingSkipped.Inc()
			}
			continue
		}
		payload, err := encodeWireEdge(e)
		if err != nil {
			if b.log != nil {
				b.log.WithError(err).Warn("failed to encode edge for broadcast")
			}
			continue
		}
		for _, peer := range b.sender.Peers() {
			if err := b.sender.Send(peer, payload); err != nil && b.log != nil {
				b.log.WithError(err).WithField("peer", peer).Debug("failed to send edge to peer")
			}
		}
	}
}

// shouldSuppressTombstone implements the startup warm-up rule: for as long
// as the local node is within its skip_tombstones window since it started,
// Removed edges are applied locally but never rebroadcast, since most
// removals seen right after startup are stale replays.
func (b *Broadcaster) shouldSuppressTombstone(e Edge) bool {
	if !b.cfg.SkipTombstonesEnabled || e.Type() != EdgeRemoved {
		return false
	}
	return b.clock.Now().Sub(b.inner.LocalCreatedAt()) < b.cfg.SkipTombstonesFor
}
