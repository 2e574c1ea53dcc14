// Package core defines the shared vocabulary of the execution engine: the
// Event stream model, role-based Content with its closed set of Parts, the
// per-run ExecutionContext, and the bounded counters that keep loops and
// state graphs finite.
//
// Everything in this package is deliberately free of provider, transport and
// persistence concerns; higher-level packages (plan, engine, delegate) build
// on these types without core knowing about them.
package core
