package routing

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Supervisor runs the routing core's periodic background jobs: the
// routing table recalculation tick, a low-frequency bandwidth/state
// report, and a peer-monitor loop with exponential backoff. Each job runs
// in its own goroutine and is stopped together via Stop.
type Supervisor struct {
	router         *Router
	clock          Clock
	cfg            RouterConfig
	sender         PeerSender
	bootstrapPeers []PeerId
	log            *logrus.Entry

	stop chan struct{}
	wg   sync.WaitGroup
}

const (
	bandwidthReportInterval = 60 * time.Second
	peerMonitorMinBackoff   = time.Second
	peerMonitorMaxBackoff   = 60 * time.Second
)

// NewSupervisor constructs a Supervisor. sender and bootstrapPeers may be
// nil/empty if the node runs without a transport (e.g. pure unit tests).
func NewSupervisor(router *Router, clock Clock, cfg RouterConfig, sender PeerSender, bootstrapPeers []PeerId, log *logrus.Entry) *Supervisor {
	return &Supervisor{
		router:         router,
		clock:          clock,
		cfg:            cfg,
		sender:         sender,
		bootstrapPeers: bootstrapPeers,
		log:            log,
		stop:           make(chan struct{}),
	}
}

// Start launches the background jobs. It is not safe to call twice.
func (s *Supervisor) Start() {
	s.wg.Add(3)
	go s.runRoutingTableLoop()
	go s.runBandwidthReportLoop()
	go s.runPeerMonitorLoop()
}

// Stop signals all background jobs to exit and waits for them to return.
func (s *Supervisor) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// runRoutingTableLoop recomputes the routing table on a fixed tick. A tick
// arriving while the previous recalculation is still running is simply
// absorbed by the ticker's single-slot buffer: the loop never falls behind
// by queuing up work, it skips the missed tick instead.
func (s *Supervisor) runRoutingTableLoop() {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(s.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.router.RecalculateRoutingTable(nil)
		}
	}
}

// runBandwidthReportLoop periodically logs a summary of routing state.
// TODO: feed real per-peer byte counters once the transport layer exposes
// them; today this only reports graph/table size.
func (s *Supervisor) runBandwidthReportLoop() {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(bandwidthReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			snap := s.router.Load()
			if snap == nil || s.log == nil {
				continue
			}
			s.log.WithFields(logrus.Fields{
				"reachable_peers": len(snap.NextHop),
				"known_edges":     len(snap.Edges),
			}).Info("routing bandwidth report")
		}
	}
}

// runPeerMonitorLoop checks that every configured bootstrap peer is still
// present in the transport's peer set, backing off exponentially between
// checks (capped at peerMonitorMaxBackoff) as long as all peers are
// present, and resetting to peerMonitorMinBackoff the moment one goes
// missing so reconnection attempts notice quickly.
func (s *Supervisor) runPeerMonitorLoop() {
	defer s.wg.Done()
	if s.sender == nil || len(s.bootstrapPeers) == 0 {
		return
	}

	backoff := peerMonitorMinBackoff
	for {
		timer := s.clock.NewTimer(backoff)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		missing := s.missingBootstrapPeers()
		if len(missing) == 0 {
			backoff = backoff * 2
			if backoff > peerMonitorMaxBackoff {
				backoff = peerMonitorMaxBackoff
			}
			continue
		}

		if s.log != nil {
			s.log.WithField("missing_peers", missing).Warn("bootstrap peers unreachable")
		}
		backoff = peerMonitorMinBackoff
	}
}

func (s *Supervisor) missingBootstrapPeers() []PeerId {
	connected := make(map[PeerId]struct{})
	for _, p := range s.sender.Peers() {
		connected[p] = struct{}{}
	}
	var missing []PeerId
	for _, p := range s.bootstrapPeers {
		if _, ok := connected[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}
