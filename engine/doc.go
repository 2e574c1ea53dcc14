// Package engine interprets resolved plans. A single interpreter dispatches
// on the node kind (Direct, Sequential, Parallel, Loop, Delegated,
// StateGraph, Task) and drives model calls, tool invocations and remote
// delegation, producing one ordered event stream per run. The multiplexer in
// this package merges the streams of concurrently executing children while
// preserving each child's own ordering.
package engine
