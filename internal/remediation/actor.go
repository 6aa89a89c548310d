package remediation

import "context"

// Actor applies or oversees fixes between validation attempts.
type Actor interface {
	// Await blocks until remediation for the given guidance is complete, or
	// the context is cancelled. A nil return means the actor finished and
	// the gate should be re-attempted.
	Await(ctx context.Context, g Guidance) error
}

// Nop is an actor that completes immediately. Used for single-attempt
// commands and in tests.
type Nop struct{}

// Await implements Actor.
func (Nop) Await(ctx context.Context, _ Guidance) error {
	return ctx.Err()
}
