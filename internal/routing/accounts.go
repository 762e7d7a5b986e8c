package routing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/gob"
	"sync"
)

// AccountAnnouncement binds an on-chain account to the peer currently
// routable for it. Epoch increases each time validator assignment changes;
// within an epoch, Nonce orders successive announcements from the same
// peer.
type AccountAnnouncement struct {
	AccountID string
	Peer      PeerId
	Epoch     uint64
	Nonce     uint64
	Signature []byte
}

func accountAnnouncementMessage(accountID string, peer PeerId, epoch, nonce uint64) []byte {
	buf := make([]byte, 0, len(accountID)+len(peer)+18)
	buf = append(buf, []byte(accountID)...)
	buf = append(buf, '|')
	buf = append(buf, []byte(peer)...)
	buf = append(buf, '|')
	var e [8]byte
	binary.BigEndian.PutUint64(e[:], epoch)
	buf = append(buf, e[:]...)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	buf = append(buf, n[:]...)
	return buf
}

// Verify checks the announcement's signature against the Ed25519 key
// embedded in its Peer fingerprint.
func (a AccountAnnouncement) Verify() bool {
	pub, ok := decodePeerPublicKey(a.Peer)
	if !ok {
		return false
	}
	msg := accountAnnouncementMessage(a.AccountID, a.Peer, a.Epoch, a.Nonce)
	return ed25519.Verify(pub, msg, a.Signature)
}

func (a AccountAnnouncement) supersedes(cur AccountAnnouncement) bool {
	if a.Epoch != cur.Epoch {
		return a.Epoch > cur.Epoch
	}
	return a.Nonce > cur.Nonce
}

// AccountTable deduplicates account announcements by account ID, keeping
// only the highest (epoch, nonce) pair seen for each, and gossips whatever
// is newly accepted.
type AccountTable struct {
	mu      sync.Mutex
	entries map[string]AccountAnnouncement
	sender  PeerSender
}

// NewAccountTable constructs an empty table. sender may be nil to skip
// gossip (used in tests that only exercise dedup semantics).
func NewAccountTable(sender PeerSender) *AccountTable {
	return &AccountTable{entries: make(map[string]AccountAnnouncement), sender: sender}
}

// Add validates and merges a batch of announcements, returning the subset
// that was newly accepted (i.e. superseded whatever the table already held
// for that account). Accepted announcements are gossiped to every peer.
func (t *AccountTable) Add(announcements []AccountAnnouncement) []AccountAnnouncement {
	t.mu.Lock()
	var newOnes []AccountAnnouncement
	for _, a := range announcements {
		if !a.Verify() {
			continue
		}
		cur, ok := t.entries[a.AccountID]
		if ok && !a.supersedes(cur) {
			continue
		}
		t.entries[a.AccountID] = a
		newOnes = append(newOnes, a)
	}
	t.mu.Unlock()

	t.broadcast(newOnes)
	return newOnes
}

// Lookup returns the current announcement for an account, if any.
func (t *AccountTable) Lookup(accountID string) (AccountAnnouncement, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.entries[accountID]
	return a, ok
}

// WireAccount is the payload broadcast to peers for a single accepted
// account announcement.
type WireAccount struct {
	Announcement AccountAnnouncement
}

func encodeWireAccount(a AccountAnnouncement) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(WireAccount{Announcement: a}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWireAccount decodes a single-announcement payload produced by
// encodeWireAccount. Exposed for the transport layer receiving inbound
// gossip.
func DecodeWireAccount(payload []byte) (AccountAnnouncement, error) {
	var w WireAccount
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&w); err != nil {
		return AccountAnnouncement{}, err
	}
	return w.Announcement, nil
}

func (t *AccountTable) broadcast(announcements []AccountAnnouncement) {
	if t.sender == nil {
		return
	}
	for _, a := range announcements {
		payload, err := encodeWireAccount(a)
		if err != nil {
			continue
		}
		for _, peer := range t.sender.Peers() {
			_ = t.sender.Send(peer, payload)
		}
	}
}
