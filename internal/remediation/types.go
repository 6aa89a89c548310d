// Package remediation surfaces failed-gate guidance to the actor that applies
// fixes between validation attempts, and waits for that actor to finish.
//
// Actors are polymorphic over how fixes get applied: a human at a console, an
// autonomous agent signaling through marker files, or nothing at all. The
// retry loop only sees the single Await operation, which keeps the DAG engine
// separate from fix application.
package remediation

// Guidance describes what must change for a failed gate to pass.
type Guidance struct {
	// Gate is the failing stage ID.
	Gate string

	// Target is the artifact path the stage was validating.
	Target string

	// Paths are the instruction files the validator produced.
	Paths []string

	// Attempt is the attempt number that just failed, starting at 1.
	Attempt int
}
