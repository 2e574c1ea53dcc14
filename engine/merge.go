package engine

import (
	"sync"

	"github.com/agentplane/agentplane/core"
)

// multiplexer merges the event streams of concurrently executing children
// into the run's single emission channel. Each child writes to a private
// channel; a forwarder goroutine per child relays into the shared channel.
// Relaying preserves each child's own event order; interleaving between
// children is scheduler-determined, which the caller-facing contract allows.
// Blocking sends on the shared channel propagate the consumer's backpressure
// to every child.
type multiplexer struct {
	exec *core.ExecutionContext
	wg   sync.WaitGroup
}

func newMultiplexer(exec *core.ExecutionContext) *multiplexer {
	return &multiplexer{exec: exec}
}

// attach creates a private channel for one child and starts its forwarder.
// The caller must close the channel when the child finishes.
func (m *multiplexer) attach() chan core.Event {
	ch := make(chan core.Event, 16)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for ev := range ch {
			if err := m.exec.EmitEvent(ev); err != nil {
				// Run cancelled: drain so the producer never blocks on a
				// full buffer.
				for range ch { //nolint:revive
				}
				return
			}
		}
	}()
	return ch
}

// wait blocks until every forwarder has drained its channel. After wait
// returns no child event is in flight, so a failure event emitted next
// cannot be overtaken by straggler output.
func (m *multiplexer) wait() { m.wg.Wait() }
