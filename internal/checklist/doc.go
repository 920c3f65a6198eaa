// Package checklist implements the progress ledger of a go-live attempt.
//
// A [Tracker] holds an ordered set of named steps. Each step moves forward
// through pending -> running -> done | failed. The tracker never runs work
// itself; the orchestrator updates it around each unit of work and decides
// what happens to the dependents of a failed step.
//
// Reset opens a new generation of a step so a retry can run it again. Within
// one generation a step never regresses.
package checklist
