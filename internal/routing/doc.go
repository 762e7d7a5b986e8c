// Package routing maintains the peer-to-peer connectivity graph of a
// blockchain node's networking layer and derives a next-hop routing table
// from it.
//
// The graph is assembled incrementally from signed edges gossiped by peers
// (Router.AddEdges), pruned by age and by reachability, and its unreachable
// regions are spilled to a durable ComponentStore and re-hydrated on demand.
// Signature verification runs on a CPU-bound worker pool ahead of a
// single-writer graph update; readers consult an immutable snapshot without
// locking.
package routing
