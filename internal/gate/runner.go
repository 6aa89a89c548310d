package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single validator invocation.
	DefaultTimeout = 600 * time.Second

	// successMarker and passToken together signal a passing check in the
	// validator's stdout. The validator is an external collaborator; its
	// text-marker contract is consumed as-is at this boundary.
	successMarker = "✅"
	passToken     = "PASS"
)

// Runner invokes the external validator for one check and classifies the
// result. It holds no pipeline state; every call is independent.
type Runner struct {
	validator string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRunner creates a runner for the validator at the given path.
// A zero timeout falls back to DefaultTimeout.
func NewRunner(validatorPath string, timeout time.Duration, logger *zap.Logger) (*Runner, error) {
	if validatorPath == "" {
		return nil, fmt.Errorf("validator path cannot be empty")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		validator: validatorPath,
		timeout:   timeout,
		logger:    logger.Named("gate"),
	}, nil
}

// Run executes one check as `<validator> <gateID> <inputPath> [outputHint]`
// and interprets the result.
//
// Pass detection inspects stdout for the success marker rather than the exit
// code alone, because validation-only checks report failure without a nonzero
// exit. On failure the runner looks for the companion instruction file; if
// none exists the failure is unrecoverable. Timeouts and invocation errors
// are unrecoverable for the attempt.
func (r *Runner) Run(ctx context.Context, gateID, inputPath, outputHint string) Outcome {
	args := []string{gateID, inputPath}
	if outputHint != "" {
		args = append(args, outputHint)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.validator, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	r.logger.Debug("validator finished",
		zap.String("check", gateID),
		zap.String("input", inputPath),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)

	if runCtx.Err() == context.DeadlineExceeded {
		return Outcome{
			Unrecoverable: true,
			Detail:        fmt.Sprintf("check %s timed out after %s", gateID, r.timeout),
		}
	}
	if ctx.Err() != nil {
		return Outcome{
			Unrecoverable: true,
			Detail:        fmt.Sprintf("check %s cancelled", gateID),
		}
	}

	out := stdout.String()
	if strings.Contains(out, successMarker) && strings.Contains(out, passToken) {
		return Outcome{Passed: true}
	}

	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return Outcome{
			Unrecoverable: true,
			Detail:        fmt.Sprintf("check %s could not be invoked: %v", gateID, err),
		}
	}

	guidance := GuidancePath(inputPath, gateID)
	if _, statErr := os.Stat(guidance); statErr != nil {
		return Outcome{
			Unrecoverable: true,
			Detail:        fmt.Sprintf("check %s failed with no instruction file (expected %s)", gateID, guidance),
		}
	}

	return Outcome{
		GuidancePaths: []string{guidance},
		Detail:        fmt.Sprintf("check %s failed", gateID),
	}
}

// GuidancePath derives the instruction file path for a failed check from its
// target and gate name: always a sibling of the target with a dotted suffix.
// Directory targets follow the same rule, so tests/ pairs with
// tests.preflight-instruction.md.
func GuidancePath(target, gateID string) string {
	return target + "." + gateID + "-instruction.md"
}
