package adapter

import (
	"sync"
	"time"
)

// gate is the adapter's single serialization point. Every piece of mutable
// adapter state (tag pool, rings, flow flags, presence maps, notification
// mask, pending tasks) is touched only while the gate is held, whether the
// caller is the interrupt loop, a timer or a client.
//
// Code running under the gate must never call back into a gated entry
// point. Callbacks into user code are collected and run after Unlock.
//
// Sleepers wait on a per-resource condition and are always woken together;
// each re-checks its own predicate.
type gate struct {
	mu       sync.Mutex
	inbound  *sync.Cond // producers waiting for inbound ring space
	outbound *sync.Cond // consumers waiting for outbound data
}

func newGate() *gate {
	g := &gate{}
	g.inbound = sync.NewCond(&g.mu)
	g.outbound = sync.NewCond(&g.mu)
	return g
}

func (g *gate) Lock()   { g.mu.Lock() }
func (g *gate) Unlock() { g.mu.Unlock() }

// run executes fn under the gate.
func (g *gate) run(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// sleep blocks on c until woken. The gate must be held; it is released
// while sleeping and re-acquired before returning.
func (g *gate) sleep(c *sync.Cond) {
	c.Wait()
}

// sleepFor blocks on c until woken or d elapses, whichever is first.
// The gate must be held. It reports whether the wait ended by timeout.
func (g *gate) sleepFor(c *sync.Cond, d time.Duration) (timedOut bool) {
	fired := false
	t := time.AfterFunc(d, func() {
		g.mu.Lock()
		fired = true
		c.Broadcast()
		g.mu.Unlock()
	})
	c.Wait()
	t.Stop()
	return fired
}

// wakeup wakes every sleeper on c. The gate must be held.
func (g *gate) wakeup(c *sync.Cond) {
	c.Broadcast()
}
