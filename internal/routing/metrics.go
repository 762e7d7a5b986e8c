package routing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the routing core exports. It
// mirrors the named series the routing subsystem is expected to publish:
// edge churn, graph size, reachable-peer count, tombstone suppression, and
// routing table recalculation cost.
type Metrics struct {
	EdgeUpdates                     prometheus.Counter
	EdgeActive                      prometheus.Gauge
	EdgeTotal                       prometheus.Gauge
	PeerReachable                   prometheus.Gauge
	EdgeTombstoneSendingSkipped     prometheus.Counter
	RoutingTableRecalculations      prometheus.Counter
	RoutingTableRecalculationHisto  prometheus.Histogram
}

// NewMetrics constructs and registers the routing core's collectors on reg.
// Passing a fresh prometheus.NewRegistry() keeps routing metrics isolated
// from the default global registry, which matters when running multiple
// nodes in the same test process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EdgeUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routingcore",
			Name:      "edge_updates_total",
			Help:      "Number of edge updates applied to the routing graph.",
		}),
		EdgeActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routingcore",
			Name:      "edge_active",
			Help:      "Number of Active edges currently held in the routing graph.",
		}),
		EdgeTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routingcore",
			Name:      "edge_total",
			Help:      "Total number of edges (Active and Removed) known to the local node.",
		}),
		PeerReachable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "routingcore",
			Name:      "peer_reachable",
			Help:      "Number of peers with a computed next-hop from the local node.",
		}),
		EdgeTombstoneSendingSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routingcore",
			Name:      "edge_tombstone_sending_skipped_total",
			Help:      "Number of Removed edges suppressed from broadcast during the warm-up window.",
		}),
		RoutingTableRecalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "routingcore",
			Name:      "routing_table_recalculations_total",
			Help:      "Number of times the next-hop routing table was recomputed.",
		}),
		RoutingTableRecalculationHisto: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "routingcore",
			Name:      "routing_table_recalculation_seconds",
			Help:      "Wall-clock time spent recomputing the next-hop routing table.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.EdgeUpdates,
		m.EdgeActive,
		m.EdgeTotal,
		m.PeerReachable,
		m.EdgeTombstoneSendingSkipped,
		m.RoutingTableRecalculations,
		m.RoutingTableRecalculationHisto,
	)
	return m
}
