// Package testutil holds small helpers shared by the package test suites.
package testutil

import (
	"time"

	"github.com/agentplane/agentplane/core"
)

// Drain empties a buffered event channel without blocking and returns the
// events in emission order.
func Drain(ch chan core.Event) []core.Event {
	var out []core.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Collect reads events until the channel closes or the timeout elapses.
func Collect(ch <-chan core.Event, timeout time.Duration) []core.Event {
	var out []core.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

// Types projects events onto their types, preserving order.
func Types(events []core.Event) []core.EventType {
	out := make([]core.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// CountType returns how many events carry the given type.
func CountType(events []core.Event, typ core.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// Terminal returns the first terminal event and whether one exists.
func Terminal(events []core.Event) (core.Event, bool) {
	for _, ev := range events {
		if ev.IsTerminal() {
			return ev, true
		}
	}
	return core.Event{}, false
}
