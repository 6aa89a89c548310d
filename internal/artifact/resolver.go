// Package artifact derives the deterministic file and directory paths each
// pipeline stage reads and writes. Resolution is a pure table lookup over the
// rules stages declare, which is what makes a stage re-runnable from committed
// state without replaying earlier stages.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RuleKind selects an output-naming strategy.
type RuleKind string

const (
	// RuleNone means the stage is validation-only: it produces no new
	// artifact and its input passes through to dependents.
	RuleNone RuleKind = "none"

	// RuleSuffix derives the output from the input path by replacing the
	// input's extension with a fixed suffix, in the same directory.
	RuleSuffix RuleKind = "suffix"

	// RulePath places the output at a fixed path relative to the pipeline
	// working directory.
	RulePath RuleKind = "path"
)

// Rule declares how a stage's output path is derived.
type Rule struct {
	Kind  RuleKind `koanf:"kind" json:"kind"`
	Value string   `koanf:"value" json:"value,omitempty"`
}

// Validate checks the rule is well-formed.
func (r Rule) Validate() error {
	switch r.Kind {
	case RuleNone, "":
		return nil
	case RuleSuffix, RulePath:
		if r.Value == "" {
			return fmt.Errorf("output rule %q requires a value", r.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown output rule kind %q", r.Kind)
	}
}

// Resolve computes the input path and output path hint for one stage.
//
// The input is the prior stage's artifact when present, otherwise the run's
// root input. The output hint follows the declared rule. Resolve is
// deterministic and side-effect-free: same arguments, same paths.
func Resolve(rule Rule, workdir, rootInput, priorArtifact string) (inputPath, outputHint string, err error) {
	if err := rule.Validate(); err != nil {
		return "", "", err
	}

	inputPath = priorArtifact
	if inputPath == "" {
		inputPath = rootInput
	}
	if inputPath == "" {
		return "", "", fmt.Errorf("no input path: neither prior artifact nor root input set")
	}

	switch rule.Kind {
	case RuleNone, "":
		return inputPath, "", nil
	case RuleSuffix:
		base := filepath.Base(inputPath)
		if ext := filepath.Ext(base); ext != "" {
			base = strings.TrimSuffix(base, ext)
		}
		return inputPath, filepath.Join(filepath.Dir(inputPath), base+rule.Value), nil
	case RulePath:
		return inputPath, filepath.Join(workdir, rule.Value), nil
	}
	return "", "", fmt.Errorf("unknown output rule kind %q", rule.Kind)
}

// Produced returns the artifact path a stage commits on success: the resolved
// output for producing stages, or the input itself for validation-only ones.
func Produced(rule Rule, inputPath, outputHint string) string {
	if rule.Kind == RuleNone || rule.Kind == "" {
		return inputPath
	}
	return outputHint
}
