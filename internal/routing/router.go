package routing

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Router is the external facade the rest of the node talks to. It wires
// together the graph-with-cache owner (Inner), the verification pool, the
// add-edges demultiplexer, and the announce-account table.
type Router struct {
	identity    Identity
	clock       Clock
	inner       *Inner
	broadcaster *Broadcaster
	accounts    *AccountTable
}

// NewRouter constructs a fully wired Router. sender may be nil for
// tests that only exercise local edge application; components may be nil
// to disable durable eviction, in which case the edges of evicted peers are
// discarded rather than archived and are never rehydrated.
func NewRouter(identity Identity, clock Clock, cfg RouterConfig, metrics *Metrics, components *ComponentStore, sender PeerSender, log *logrus.Entry) *Router {
	local := identity.PeerId()
	inner := NewInner(local, clock, cfg, metrics, components, log)
	verifier := NewVerifier(cfg.MaxVerifyBatch)
	broadcaster := NewBroadcaster(inner, verifier, sender, clock, cfg, metrics, log)
	accounts := NewAccountTable(sender)
	return &Router{identity: identity, clock: clock, inner: inner, broadcaster: broadcaster, accounts: accounts}
}

// Load returns the most recently published routing snapshot.
func (r *Router) Load() *Snapshot { return r.inner.Load() }

// SetUnreliablePeers updates the set of peers BFS will never transit
// through, effective on the next routing table recalculation.
func (r *Router) SetUnreliablePeers(peers []PeerId) { r.inner.SetUnreliablePeers(peers) }

// AddEdges submits candidate edges for verification and application,
// coalescing with any concurrent callers into a single batch. err is the
// ErrInvalidEdge sentinel (so callers can errors.Is it) whenever allOK is
// false and verification itself didn't fail outright.
func (r *Router) AddEdges(ctx context.Context, edges []Edge) (accepted int, allOK bool, err error) {
	return r.broadcaster.AddEdges(ctx, edges)
}

// Verify checks candidate edges against the current routing state without
// applying them, returning the subset that would be accepted and whether
// every candidate passed. It does not go through the add-edges demux, so
// repeated calls never coalesce with concurrent AddEdges callers.
func (r *Router) Verify(ctx context.Context, edges []Edge) ([]Edge, bool, error) {
	known := r.inner.snapshotEdgeTable()
	return r.broadcaster.verifier.VerifyBatch(ctx, edges, known)
}

// AddAccounts merges account announcements, returning the ones newly
// accepted.
func (r *Router) AddAccounts(announcements []AccountAnnouncement) []AccountAnnouncement {
	return r.accounts.Add(announcements)
}

// LookupAccount returns the peer currently announced for an account.
func (r *Router) LookupAccount(accountID string) (AccountAnnouncement, bool) {
	return r.accounts.Lookup(accountID)
}

// RecalculateRoutingTable forces one synchronous recalculation pass,
// bypassing the background ticker, optionally folding in additional edges
// that haven't gone through AddEdges' verification path. Callers driving a
// bare age/reachability refresh (the background ticker, tests) pass nil.
func (r *Router) RecalculateRoutingTable(edges []Edge) (applied []Edge, h map[PeerId][]PeerId) {
	return r.inner.UpdateRoutingTable(edges)
}

// ProposeEdge builds a new, locally-signed Active edge proposal toward
// peer, with the next valid nonce for that pair. The caller is expected to
// deliver it to peer and obtain a counter-signature via FinalizeEdge.
func (r *Router) ProposeEdge(peer PeerId) (Edge, error) {
	local := r.identity.PeerId()
	if peer == "" || peer == local {
		return Edge{}, ErrUnknownPeer
	}
	key := NewEdgeKey(local, peer)
	nonce := uint64(1)
	if cur, ok := r.inner.currentEdge(key); ok {
		if cur.Type() != EdgeActive {
			nonce = cur.Next()
		} else {
			return Edge{}, ErrStaleNonce
		}
	}
	msg := canonicalMessage(key.P0, key.P1, nonce)
	return Edge{
		P0:           key.P0,
		P1:           key.P1,
		Nonce:        nonce,
		Signatures:   map[PeerId][]byte{local: r.identity.Sign(msg)},
		CreatedAtUTC: r.clock.Now(),
	}, nil
}

// ProposeRemoval builds a single-signed Removed edge tearing down the
// current Active edge toward peer.
func (r *Router) ProposeRemoval(peer PeerId) (Edge, error) {
	local := r.identity.PeerId()
	key := NewEdgeKey(local, peer)
	cur, ok := r.inner.currentEdge(key)
	if !ok || cur.Type() != EdgeActive {
		return Edge{}, ErrUnknownPeer
	}
	nonce := cur.Next()
	msg := canonicalMessage(key.P0, key.P1, nonce)
	return Edge{
		P0:           key.P0,
		P1:           key.P1,
		Nonce:        nonce,
		Signatures:   map[PeerId][]byte{local: r.identity.Sign(msg)},
		CreatedAtUTC: r.clock.Now(),
	}, nil
}

// FinalizeEdge completes a partial, single-signed proposal by adding the
// local identity's counter-signature, then submits the result through
// AddEdges so it is applied to E and gossiped like any other edge. It
// fails with ErrInvalidEdge if the result does not verify or is rejected
// by AddEdges.
func (r *Router) FinalizeEdge(ctx context.Context, partial Edge) (Edge, error) {
	local := r.identity.PeerId()
	key := partial.Key()
	if key.P0 != local && key.P1 != local {
		return Edge{}, ErrUnknownPeer
	}
	if len(partial.Signatures) != 1 {
		return Edge{}, ErrInvalidEdge
	}
	msg := canonicalMessage(key.P0, key.P1, partial.Nonce)
	sigs := make(map[PeerId][]byte, 2)
	for p, s := range partial.Signatures {
		sigs[p] = s
	}
	sigs[local] = r.identity.Sign(msg)
	out := Edge{P0: key.P0, P1: key.P1, Nonce: partial.Nonce, Signatures: sigs, CreatedAtUTC: partial.CreatedAtUTC}
	if !out.Verify() {
		return Edge{}, ErrInvalidEdge
	}
	if _, allOK, err := r.AddEdges(ctx, []Edge{out}); err != nil {
		return Edge{}, err
	} else if !allOK {
		return Edge{}, ErrInvalidEdge
	}
	return out, nil
}
