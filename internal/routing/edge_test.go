package routing

import (
	"crypto/ed25519"
	"testing"
	"time"
)

func mustKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, sec, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return pub, sec
}

func signedActiveEdge(t *testing.T, aPub ed25519.PublicKey, aSec ed25519.PrivateKey, bPub ed25519.PublicKey, bSec ed25519.PrivateKey, nonce uint64) Edge {
	t.Helper()
	a := PeerIdFromPublicKey(aPub)
	b := PeerIdFromPublicKey(bPub)
	key := NewEdgeKey(a, b)
	msg := canonicalMessage(key.P0, key.P1, nonce)

	sigs := map[PeerId][]byte{}
	if key.P0 == a {
		sigs[a] = ed25519.Sign(aSec, msg)
		sigs[b] = ed25519.Sign(bSec, msg)
	} else {
		sigs[a] = ed25519.Sign(aSec, msg)
		sigs[b] = ed25519.Sign(bSec, msg)
	}
	return Edge{P0: key.P0, P1: key.P1, Nonce: nonce, Signatures: sigs, CreatedAtUTC: time.Now().UTC()}
}

func TestEdgeVerifyActive(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	e := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	if !e.Verify() {
		t.Fatalf("expected valid active edge to verify")
	}
	if e.Type() != EdgeActive {
		t.Fatalf("expected Active type for odd nonce")
	}
}

func TestEdgeVerifyTamperedRejected(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	e := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	for p := range e.Signatures {
		e.Signatures[p][0] ^= 0xFF
		break
	}
	if e.Verify() {
		t.Fatalf("tampered edge must not verify")
	}
}

func TestEdgeVerifyRemovedSingleSigner(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, _ := mustKeypair(t)
	a := PeerIdFromPublicKey(aPub)
	b := PeerIdFromPublicKey(bPub)
	key := NewEdgeKey(a, b)
	msg := canonicalMessage(key.P0, key.P1, 2)
	e := Edge{P0: key.P0, P1: key.P1, Nonce: 2, Signatures: map[PeerId][]byte{a: ed25519.Sign(aSec, msg)}, CreatedAtUTC: time.Now().UTC()}
	if !e.Verify() {
		t.Fatalf("expected single-signer removed edge to verify")
	}
	if e.Type() != EdgeRemoved {
		t.Fatalf("expected Removed type for even nonce")
	}
}

func TestEdgeNextPreservesParity(t *testing.T) {
	e := Edge{Nonce: 1}
	if e.Next() != 3 {
		t.Fatalf("expected next nonce 3, got %d", e.Next())
	}
	e2 := Edge{Nonce: 2}
	if e2.Next() != 4 {
		t.Fatalf("expected next nonce 4, got %d", e2.Next())
	}
}

func TestDeduplicateKeepsMaxNonce(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	e1 := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	e3 := signedActiveEdge(t, aPub, aSec, bPub, bSec, 3)
	out := Deduplicate([]Edge{e1, e3})
	if len(out) != 1 || out[0].Nonce != 3 {
		t.Fatalf("expected single edge with nonce 3, got %+v", out)
	}
}

func TestDeduplicateIsIdempotent(t *testing.T) {
	aPub, aSec := mustKeypair(t)
	bPub, bSec := mustKeypair(t)
	e1 := signedActiveEdge(t, aPub, aSec, bPub, bSec, 1)
	once := Deduplicate([]Edge{e1, e1})
	twice := Deduplicate(append(once, once...))
	if len(once) != len(twice) || len(once) != 1 {
		t.Fatalf("dedup not idempotent: once=%v twice=%v", once, twice)
	}
}
