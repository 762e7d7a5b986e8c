package routing

import "sync"

// fakeSender is an in-memory PeerSender used across tests: it records
// every payload sent to each peer rather than delivering it anywhere.
type fakeSender struct {
	mu    sync.Mutex
	peers []PeerId
	sent  map[PeerId][][]byte
}

func newFakeSender(peers ...PeerId) *fakeSender {
	return &fakeSender{peers: peers, sent: make(map[PeerId][][]byte)}
}

func (f *fakeSender) Peers() []PeerId {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PeerId{}, f.peers...)
}

func (f *fakeSender) Send(peer PeerId, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[peer] = append(f.sent[peer], payload)
	return nil
}

func (f *fakeSender) sentCount(peer PeerId) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent[peer])
}

func (f *fakeSender) setPeers(peers ...PeerId) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peers = peers
}
