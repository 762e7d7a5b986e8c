package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"routingcore/internal/routing"
)

// httpPeerSender is the simplest routing.PeerSender binding: each known
// peer is addressed by a "peerid@host:port" bootstrap entry, and payloads
// are delivered by POSTing the gob-encoded body to that peer's /routing
// endpoint. Framing, retries, and connection reuse belong to a real TIER2
// transport; this exists so routingnode has something to drive end to end.
type httpPeerSender struct {
	mu      sync.RWMutex
	addrs   map[routing.PeerId]string
	client  *http.Client
	log     *logrus.Entry
}

// bootstrapPeerIds extracts the PeerId half of each "peerid@host:port"
// bootstrap entry, skipping malformed ones (already warned about by
// newHTTPPeerSender).
func bootstrapPeerIds(bootstrap []string) []routing.PeerId {
	out := make([]routing.PeerId, 0, len(bootstrap))
	for _, entry := range bootstrap {
		peer, _, ok := strings.Cut(entry, "@")
		if !ok {
			continue
		}
		out = append(out, routing.PeerId(peer))
	}
	return out
}

func newHTTPPeerSender(bootstrap []string, log *logrus.Entry) *httpPeerSender {
	s := &httpPeerSender{
		addrs:  make(map[routing.PeerId]string),
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
	for _, entry := range bootstrap {
		peer, addr, ok := strings.Cut(entry, "@")
		if !ok {
			log.WithField("entry", entry).Warn("ignoring malformed bootstrap peer entry, want peerid@host:port")
			continue
		}
		s.addrs[routing.PeerId(peer)] = addr
	}
	return s
}

func (s *httpPeerSender) Peers() []routing.PeerId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]routing.PeerId, 0, len(s.addrs))
	for p := range s.addrs {
		out = append(out, p)
	}
	return out
}

func (s *httpPeerSender) Send(peer routing.PeerId, payload []byte) error {
	s.mu.RLock()
	addr, ok := s.addrs[peer]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no known address for peer %s", peer)
	}
	url := fmt.Sprintf("http://%s/routing", addr)
	resp, err := s.client.Post(url, "application/gob", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("peer %s returned status %d", peer, resp.StatusCode)
	}
	return nil
}
