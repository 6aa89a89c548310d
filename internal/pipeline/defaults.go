package pipeline

import (
	"github.com/designops/ralph/internal/artifact"
	"github.com/designops/ralph/internal/gate"
)

// DefaultSpecs returns the built-in stage set: requirements in, reviewed
// source out. The set is configuration, not structure; deployments override
// it with their own gates when their validator supports a different set.
//
// Artifact handoff: the requirements directory produces spec.md, the spec
// produces a PRP, the PRP produces tests/, the tests produce src/, and the
// remaining gates validate the working tree in place.
func DefaultSpecs() []gate.Spec {
	return []gate.Spec{
		{
			ID:         "create-spec",
			Subject:    "Distill requirements into a specification",
			Output:     artifact.Rule{Kind: artifact.RulePath, Value: "spec.md"},
			PassOutput: true,
		},
		{
			ID:        "stress-test",
			Subject:   "Check specification completeness",
			DependsOn: []string{"create-spec"},
		},
		{
			ID:        "validate",
			Subject:   "Check specification clarity and security",
			Subtasks:  []string{"validate", "security-scan"},
			DependsOn: []string{"stress-test"},
		},
		{
			ID:        "generate",
			Subject:   "Extract the product requirements prompt",
			DependsOn: []string{"validate"},
			Output:    artifact.Rule{Kind: artifact.RuleSuffix, Value: "-prp.md"},
		},
		{
			ID:        "check",
			Subject:   "Validate PRP structure",
			DependsOn: []string{"generate"},
		},
		{
			ID:        "generate-tests",
			Subject:   "Generate the test suite from the PRP",
			DependsOn: []string{"check"},
			Output:    artifact.Rule{Kind: artifact.RulePath, Value: "tests"},
		},
		{
			ID:        "test-validate",
			Subject:   "Validate test suite state and quality",
			Subtasks:  []string{"test-validate", "test-quality"},
			DependsOn: []string{"generate-tests"},
		},
		{
			ID:        "preflight",
			Subject:   "Check build environment readiness",
			DependsOn: []string{"test-validate"},
			InputFrom: gate.InputWorkdir,
		},
		{
			ID:        "implement-tdd",
			Subject:   "Write source to pass the committed tests",
			DependsOn: []string{"preflight"},
			InputFrom: "generate-tests",
			Output:    artifact.Rule{Kind: artifact.RulePath, Value: "src"},
		},
		{
			ID:        "parallel-checks",
			Subject:   "Run build, lint, and integration checks",
			Subtasks:  []string{"build-check", "lint-check", "integration-check"},
			DependsOn: []string{"implement-tdd"},
			InputFrom: gate.InputWorkdir,
		},
		{
			ID:        "visual-regression",
			Subject:   "Compare screenshots against baselines",
			DependsOn: []string{"parallel-checks"},
			InputFrom: gate.InputWorkdir,
		},
		{
			ID:        "smoke-test",
			Subject:   "Run end-to-end critical paths",
			DependsOn: []string{"visual-regression"},
			InputFrom: gate.InputWorkdir,
		},
		{
			ID:        "ai-review",
			Subject:   "Final review and performance audit",
			Subtasks:  []string{"ai-review", "performance-audit"},
			DependsOn: []string{"smoke-test"},
			InputFrom: gate.InputWorkdir,
		},
	}
}
