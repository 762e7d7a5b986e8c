package routing

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Verifier runs Ed25519 verification for a batch of candidate edges across
// all available CPUs. Verification is the only CPU-bound step in the
// routing core's hot path, so it is the only step deliberately fanned out.
type Verifier struct {
	maxBatch int
}

// NewVerifier returns a Verifier that will refuse to process more than
// maxBatch edges in a single call to VerifyBatch.
func NewVerifier(maxBatch int) *Verifier {
	if maxBatch <= 0 {
		maxBatch = DefaultRouterConfig().MaxVerifyBatch
	}
	return &Verifier{maxBatch: maxBatch}
}

// VerifyBatch deduplicates candidates by key (keeping the highest nonce),
// drops anything no newer than what known already holds, and verifies the
// remainder concurrently. accepted holds the edges that are both newer and
// correctly signed; allOK is false if any candidate in the batch failed
// signature verification, even though accepted may still be non-empty.
func (v *Verifier) VerifyBatch(ctx context.Context, candidates []Edge, known map[EdgeKey]Edge) (accepted []Edge, allOK bool, err error) {
	if len(candidates) > v.maxBatch {
		candidates = candidates[:v.maxBatch]
	}
	deduped := Deduplicate(candidates)

	fresh := make([]Edge, 0, len(deduped))
	for _, e := range deduped {
		if cur, ok := known[e.Key()]; ok && cur.Nonce >= e.Nonce {
			continue
		}
		fresh = append(fresh, e)
	}

	results := make([]bool, len(fresh))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, e := range fresh {
		i, e := i, e
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = e.Verify()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	allOK = true
	accepted = make([]Edge, 0, len(fresh))
	for i, e := range fresh {
		if results[i] {
			accepted = append(accepted, e)
		} else {
			allOK = false
		}
	}
	return accepted, allOK, nil
}
