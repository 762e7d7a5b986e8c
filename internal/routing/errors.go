package routing

import "errors"

// ErrInvalidEdge is returned when at least one edge submitted to AddEdges
// failed signature verification. Valid edges in the same batch are still
// applied; the caller should treat this as evidence of peer misbehavior.
var ErrInvalidEdge = errors.New("routing: invalid edge signature")

// ErrUnknownPeer is returned by ProposeEdge for an empty or local peer, by
// ProposeRemoval when no Active edge toward the peer is held, and by
// FinalizeEdge when the local node is not an endpoint of the edge.
var ErrUnknownPeer = errors.New("routing: unknown peer")

// ErrStaleNonce is returned by ProposeEdge when the local node already
// holds an Active edge toward the peer.
var ErrStaleNonce = errors.New("routing: stale edge nonce")

// ErrTooManyPeers is returned when a graph operation would need to address
// more than MaxNumPeers simultaneously.
var ErrTooManyPeers = errors.New("routing: peer cap exceeded")
