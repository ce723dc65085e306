// Package engine implements the registration eligibility and conflict
// resolution core: a set of pure, deterministic evaluators over snapshot
// data plus the request approval state machine. Nothing in this package
// performs I/O or mutates enrollment state; callers commit enrollments and
// persist requests through the storage layer after the engine has ruled on
// legality.
package engine
