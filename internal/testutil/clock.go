package testutil

import (
	"fmt"
	"sync"
	"time"

	"modgate/internal/gate"
)

var (
	_ gate.Clock       = (*StubClock)(nil)
	_ gate.IDGenerator = (*StubIDGenerator)(nil)
)

// StubClock is a gate.Clock that only moves when a test moves it. Sweeper
// windows are crossed with AgePast instead of sleeping.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at 2024-01-15 10:30:00 UTC, the staging time
// of every harness item.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AgePast moves the clock one second beyond window, such as a policy's grace
// period or stall timeout, so that anything written before the call is older
// than window.
func (c *StubClock) AgePast(window time.Duration) {
	c.Advance(window + time.Second)
}

// StubIDGenerator hands out content ids "id-1", "id-2", ... and counts them.
type StubIDGenerator struct {
	mu     sync.Mutex
	issued int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return fmt.Sprintf("id-%d", g.issued)
}

// Issued reports how many ids have been handed out.
func (g *StubIDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}
