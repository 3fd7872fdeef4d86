// Package game implements the client-side brains of the admission-control
// game: live quota bookkeeping, the greedy admission heuristic, and the run
// loop that drives a session against the remote service.
//
// # Reading Guide
//
// Start with these three files to understand the core:
//   - types.go: Constraint, Person, and the wire-facing Session/Turn types
//   - tracker.go: QuotaTracker, the single mutable state object of a run
//   - policy.go: AdmissionPolicy and the greedy feasibility heuristic
//
// runner.go owns the session lifecycle (INITIALIZING -> RUNNING -> terminal
// state) and is the only writer of QuotaTracker. metrics.go aggregates the
// per-decision tally reported during and after the run.
//
// The transport implementation lives in game/api; the Runner consumes it
// through the Service interface so tests can substitute a scripted fake.
package game
