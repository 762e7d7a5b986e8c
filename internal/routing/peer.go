package routing

import (
	"crypto/ed25519"
	"encoding/hex"
)

// PeerId is the opaque identifier of a peer: the hex encoding of its
// Ed25519 public key fingerprint. It is comparable and usable as a map key.
type PeerId string

// PeerIdFromPublicKey derives the canonical PeerId for a public key.
func PeerIdFromPublicKey(pub ed25519.PublicKey) PeerId {
	return PeerId(hex.EncodeToString(pub))
}

// Less reports whether p sorts before other. Edge keys are canonicalized
// with p0 < p1 using this ordering.
func (p PeerId) Less(other PeerId) bool { return p < other }

// Identity supplies the local node's public id and signing key. It is an
// external collaborator: routingcore never generates or rotates keys, it
// only consumes them.
type Identity interface {
	PeerId() PeerId
	PublicKey() ed25519.PublicKey
	Sign(msg []byte) []byte
}

// staticIdentity is the simplest Identity implementation: a fixed Ed25519
// keypair loaded once at startup.
type staticIdentity struct {
	id  PeerId
	pub ed25519.PublicKey
	sec ed25519.PrivateKey
}

// NewIdentity wraps an Ed25519 keypair as an Identity.
func NewIdentity(pub ed25519.PublicKey, sec ed25519.PrivateKey) Identity {
	return &staticIdentity{id: PeerIdFromPublicKey(pub), pub: pub, sec: sec}
}

func (s *staticIdentity) PeerId() PeerId                { return s.id }
func (s *staticIdentity) PublicKey() ed25519.PublicKey   { return s.pub }
func (s *staticIdentity) Sign(msg []byte) []byte         { return ed25519.Sign(s.sec, msg) }

// PeerSender is the transport collaborator: it delivers a serialized
// message to a direct TIER2 peer. Framing and reliability belong to the
// transport layer, not to routingcore.
type PeerSender interface {
	// Peers returns the currently connected direct peers.
	Peers() []PeerId
	// Send delivers a pre-serialized payload to peer. Errors are the
	// transport's concern; routingcore logs and moves on.
	Send(peer PeerId, payload []byte) error
}
