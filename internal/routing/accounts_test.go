package routing

import (
	"crypto/ed25519"
	"testing"
)

func signedAnnouncement(t *testing.T, pub ed25519.PublicKey, sec ed25519.PrivateKey, accountID string, epoch, nonce uint64) AccountAnnouncement {
	t.Helper()
	peer := PeerIdFromPublicKey(pub)
	msg := accountAnnouncementMessage(accountID, peer, epoch, nonce)
	return AccountAnnouncement{AccountID: accountID, Peer: peer, Epoch: epoch, Nonce: nonce, Signature: ed25519.Sign(sec, msg)}
}

func TestAccountTableKeepsHighestEpoch(t *testing.T) {
	pub, sec := mustKeypair(t)
	table := NewAccountTable(nil)

	old := signedAnnouncement(t, pub, sec, "alice.near", 1, 1)
	newer := signedAnnouncement(t, pub, sec, "alice.near", 2, 1)

	accepted := table.Add([]AccountAnnouncement{old})
	if len(accepted) != 1 {
		t.Fatalf("expected first announcement accepted")
	}
	accepted = table.Add([]AccountAnnouncement{newer})
	if len(accepted) != 1 {
		t.Fatalf("expected higher-epoch announcement accepted")
	}

	got, ok := table.Lookup("alice.near")
	if !ok || got.Epoch != 2 {
		t.Fatalf("expected stored announcement to have epoch 2, got %+v ok=%v", got, ok)
	}
}

func TestAccountTableRejectsStaleEpoch(t *testing.T) {
	pub, sec := mustKeypair(t)
	table := NewAccountTable(nil)

	newer := signedAnnouncement(t, pub, sec, "alice.near", 2, 1)
	stale := signedAnnouncement(t, pub, sec, "alice.near", 1, 99)

	table.Add([]AccountAnnouncement{newer})
	accepted := table.Add([]AccountAnnouncement{stale})
	if len(accepted) != 0 {
		t.Fatalf("expected stale-epoch announcement rejected, got %+v", accepted)
	}
}

func TestAccountTableRejectsInvalidSignature(t *testing.T) {
	pub, sec := mustKeypair(t)
	table := NewAccountTable(nil)
	bad := signedAnnouncement(t, pub, sec, "alice.near", 1, 1)
	bad.Signature[0] ^= 0xFF

	accepted := table.Add([]AccountAnnouncement{bad})
	if len(accepted) != 0 {
		t.Fatalf("expected tampered announcement rejected")
	}
}

func TestAccountTableBroadcastsAccepted(t *testing.T) {
	pub, sec := mustKeypair(t)
	sender := newFakeSender("p1", "p2")
	table := NewAccountTable(sender)
	ann := signedAnnouncement(t, pub, sec, "alice.near", 1, 1)

	table.Add([]AccountAnnouncement{ann})
	if sender.sentCount("p1") != 1 || sender.sentCount("p2") != 1 {
		t.Fatalf("expected accepted announcement gossiped to all peers")
	}
}
