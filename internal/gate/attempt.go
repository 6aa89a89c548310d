package gate

import (
	"context"
	"strings"
	"sync"
)

// CheckRunner runs one named check against a target. Implemented by Runner;
// tests substitute stubs.
type CheckRunner interface {
	Run(ctx context.Context, gateID, inputPath, outputHint string) Outcome
}

// AttemptStage runs all of a stage's checks concurrently and merges their
// outcomes into a single stage outcome.
//
// The stage passes only if every check passes. If any check is unrecoverable
// the stage is unrecoverable regardless of the others; otherwise guided
// failures accumulate their instruction files so the remediation actor can
// resolve the whole gap set as a unit. The stage outcome is not finalized
// until every check reports.
func AttemptStage(ctx context.Context, runner CheckRunner, spec Spec, inputPath, outputHint string) Outcome {
	checks := spec.Checks()

	hint := ""
	if spec.PassOutput {
		hint = outputHint
	}

	if len(checks) == 1 {
		return runner.Run(ctx, checks[0], inputPath, hint)
	}

	outcomes := make([]Outcome, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check string) {
			defer wg.Done()
			outcomes[i] = runner.Run(ctx, check, inputPath, hint)
		}(i, check)
	}
	wg.Wait()

	return mergeOutcomes(outcomes)
}

// mergeOutcomes combines sub-check results with AND semantics.
func mergeOutcomes(outcomes []Outcome) Outcome {
	merged := Outcome{Passed: true}
	var details []string

	for _, o := range outcomes {
		if o.Passed {
			continue
		}
		merged.Passed = false
		if o.Unrecoverable {
			merged.Unrecoverable = true
		}
		merged.GuidancePaths = append(merged.GuidancePaths, o.GuidancePaths...)
		if o.Detail != "" {
			details = append(details, o.Detail)
		}
	}

	if merged.Unrecoverable {
		// Unrecoverable sub-checks poison the stage: guidance from siblings
		// cannot make the attempt retryable.
		merged.GuidancePaths = nil
	}
	merged.Detail = strings.Join(details, "; ")
	return merged
}
