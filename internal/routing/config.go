package routing

import "time"

// RouterConfig carries the routing core's tunables, independent of how
// they were loaded (YAML, flags, or hard-coded defaults in a test).
type RouterConfig struct {
	// PruneUnreachablePeersAfter is how long a peer may be absent from the
	// computed next-hop table before its neighborhood is evicted into the
	// component store.
	PruneUnreachablePeersAfter time.Duration
	// PruneEdgesAfter is how long an edge (Active or Removed) is retained in
	// memory after its CreatedAtUTC before it is dropped entirely.
	PruneEdgesAfter time.Duration
	PruneEdgesEnabled bool
	// SkipTombstonesFor is the warm-up window, measured from when the local
	// routing state was created, during which Removed edges are applied
	// locally but not rebroadcast.
	SkipTombstonesFor time.Duration
	SkipTombstonesEnabled bool
	// MaxVerifyBatch bounds how many edges a single AddEdges call will
	// dispatch to the verifier pool at once.
	MaxVerifyBatch int
	// UpdateInterval is the period of the background routing table
	// recalculation tick.
	UpdateInterval time.Duration
}

// DefaultRouterConfig mirrors cmd/config/default.yaml's routing block, for
// callers that construct a Router directly (tests, embedding) rather than
// through the full configuration loader.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		PruneUnreachablePeersAfter: time.Hour,
		PruneEdgesAfter:            30 * time.Minute,
		PruneEdgesEnabled:          true,
		SkipTombstonesFor:          2 * time.Minute,
		SkipTombstonesEnabled:      true,
		MaxVerifyBatch:             256,
		UpdateInterval:             time.Second,
	}
}
