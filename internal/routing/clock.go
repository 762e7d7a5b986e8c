package routing

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Clock yields the monotonic Instant and wall-clock Utc the routing core
// needs for age-based pruning and reachability bookkeeping. Wrapping
// benbjohnson/clock lets tests substitute a mock that can be advanced
// deterministically (see NewMockClock).
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *clock.Ticker
	NewTimer(d time.Duration) *clock.Timer
}

type realClock struct {
	c clock.Clock
}

// NewClock returns the real wall-clock/monotonic-clock implementation.
func NewClock() Clock {
	return &realClock{c: clock.New()}
}

func (r *realClock) Now() time.Time                         { return r.c.Now() }
func (r *realClock) NewTicker(d time.Duration) *clock.Ticker { return r.c.Ticker(d) }
func (r *realClock) NewTimer(d time.Duration) *clock.Timer   { return r.c.Timer(d) }

// mockClockWrapper adapts clock.Mock to the Clock interface for tests.
type mockClockWrapper struct {
	m *clock.Mock
}

// NewMockClock returns a Clock together with its underlying *clock.Mock,
// which tests advance explicitly.
func NewMockClock() (Clock, *clock.Mock) {
	m := clock.NewMock()
	return &mockClockWrapper{m: m}, m
}

func (w *mockClockWrapper) Now() time.Time                         { return w.m.Now() }
func (w *mockClockWrapper) NewTicker(d time.Duration) *clock.Ticker { return w.m.Ticker(d) }
func (w *mockClockWrapper) NewTimer(d time.Duration) *clock.Timer   { return w.m.Timer(d) }
