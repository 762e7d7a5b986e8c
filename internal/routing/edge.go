package routing

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// EdgeType is derived from an edge's nonce parity: odd nonces are Active,
// even nonces are Removed (tombstones).
type EdgeType int

const (
	EdgeActive EdgeType = iota
	EdgeRemoved
)

func (t EdgeType) String() string {
	if t == EdgeActive {
		return "active"
	}
	return "removed"
}

// EdgeKey is the key identity of an edge, independent of nonce or state.
// Endpoints are stored canonically with P0 < P1.
type EdgeKey struct {
	P0, P1 PeerId
}

// NewEdgeKey canonicalizes an unordered pair of endpoints.
func NewEdgeKey(a, b PeerId) EdgeKey {
	if a.Less(b) {
		return EdgeKey{P0: a, P1: b}
	}
	return EdgeKey{P0: b, P1: a}
}

// Edge is an undirected, signed assertion about a connection between two
// peers. Signatures map each signing endpoint to its signature over the
// canonical (p0, p1, nonce) tuple. Active edges carry one signature per
// endpoint; Removed edges carry a single signature from whichever endpoint
// proposed the removal.
type Edge struct {
	P0, P1       PeerId
	Nonce        uint64
	Signatures   map[PeerId][]byte
	CreatedAtUTC time.Time
}

// Key returns the edge's key identity.
func (e Edge) Key() EdgeKey { return EdgeKey{P0: e.P0, P1: e.P1} }

// Type reports Active or Removed based on nonce parity.
func (e Edge) Type() EdgeType {
	if e.Nonce%2 == 1 {
		return EdgeActive
	}
	return EdgeRemoved
}

// Next returns the nonce an edge replacing this one must carry: the parity
// is preserved across a +2 step so a racing removal keeps its own parity.
func (e Edge) Next() uint64 { return e.Nonce + 2 }

// IsOlderThan reports whether the edge was first observed before t.
func (e Edge) IsOlderThan(t time.Time) bool { return e.CreatedAtUTC.Before(t) }

// canonicalMessage builds the deterministic byte payload both endpoints
// sign: p0, '|', p1, '|', then the 8-byte big-endian nonce.
func canonicalMessage(p0, p1 PeerId, nonce uint64) []byte {
	buf := make([]byte, 0, len(p0)+len(p1)+1+1+8)
	buf = append(buf, []byte(p0)...)
	buf = append(buf, '|')
	buf = append(buf, []byte(p1)...)
	buf = append(buf, '|')
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	buf = append(buf, n[:]...)
	return buf
}

// decodePeerPublicKey recovers the Ed25519 public key embedded in a PeerId.
func decodePeerPublicKey(p PeerId) (ed25519.PublicKey, bool) {
	raw, err := hex.DecodeString(string(p))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, false
	}
	return ed25519.PublicKey(raw), true
}

// Verify recomputes both (or, for a Removed edge, the single) signature
// over the canonicalized tuple. An edge whose PeerId does not decode to a
// valid Ed25519 key, or whose signer set does not match its type, is
// invalid.
func (e Edge) Verify() bool {
	key := e.Key()
	msg := canonicalMessage(key.P0, key.P1, e.Nonce)

	switch e.Type() {
	case EdgeActive:
		if len(e.Signatures) != 2 {
			return false
		}
		for _, endpoint := range [2]PeerId{key.P0, key.P1} {
			sig, ok := e.Signatures[endpoint]
			if !ok {
				return false
			}
			pub, ok := decodePeerPublicKey(endpoint)
			if !ok || !ed25519.Verify(pub, msg, sig) {
				return false
			}
		}
		return true
	case EdgeRemoved:
		if len(e.Signatures) != 1 {
			return false
		}
		for signer, sig := range e.Signatures {
			if signer != key.P0 && signer != key.P1 {
				return false
			}
			pub, ok := decodePeerPublicKey(signer)
			if !ok {
				return false
			}
			return ed25519.Verify(pub, msg, sig)
		}
	}
	return false
}

// Deduplicate keeps, for each edge key, the record with the largest nonce.
// On a tie it prefers Active over Removed, though in practice a tie can
// only occur between byte-identical edges since nonce parity alone already
// distinguishes Active from Removed for the same pair of signers.
func Deduplicate(edges []Edge) []Edge {
	best := make(map[EdgeKey]Edge, len(edges))
	for _, e := range edges {
		k := e.Key()
		cur, ok := best[k]
		if !ok {
			best[k] = e
			continue
		}
		if e.Nonce > cur.Nonce {
			best[k] = e
			continue
		}
		if e.Nonce == cur.Nonce && e.Type() == EdgeActive && cur.Type() == EdgeRemoved {
			best[k] = e
		}
	}
	out := make([]Edge, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	return out
}
