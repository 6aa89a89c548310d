// Package pipeline wires gate specs into a dependency graph and executes
// runs against a root input.
package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/designops/ralph/internal/gate"
)

// Graph is a validated DAG of gate specs with a precomputed execution plan.
// Construction fails fast on cycles and dangling references, before any
// stage executes.
type Graph struct {
	specs  map[string]gate.Spec
	order  []string
	layers [][]string
}

// NewGraph validates the spec set and computes the topological layering.
func NewGraph(specs []gate.Spec) (*Graph, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("pipeline requires at least one gate")
	}

	g := &Graph{
		specs: make(map[string]gate.Spec, len(specs)),
		order: make([]string, 0, len(specs)),
	}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, exists := g.specs[spec.ID]; exists {
			return nil, fmt.Errorf("duplicate gate id %q", spec.ID)
		}
		g.specs[spec.ID] = spec
		g.order = append(g.order, spec.ID)
	}

	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, ok := g.specs[dep]; !ok {
				return nil, fmt.Errorf("gate %s depends on unknown gate %q", spec.ID, dep)
			}
		}
		if spec.InputFrom != "" && spec.InputFrom != gate.InputWorkdir {
			if _, ok := g.specs[spec.InputFrom]; !ok {
				return nil, fmt.Errorf("gate %s reads input from unknown gate %q", spec.ID, spec.InputFrom)
			}
		}
	}

	layers, err := layer(g.specs, g.order)
	if err != nil {
		return nil, err
	}
	g.layers = layers

	return g, nil
}

// layer produces topological batches: every gate in a batch has all of its
// dependencies satisfied by earlier batches, so batch members may run
// concurrently with each other.
func layer(specs map[string]gate.Spec, order []string) ([][]string, error) {
	placed := make(map[string]bool, len(specs))
	var layers [][]string

	for len(placed) < len(specs) {
		var batch []string
		for _, id := range order {
			if placed[id] {
				continue
			}
			ready := true
			for _, dep := range specs[id].DependsOn {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, id)
			}
		}

		if len(batch) == 0 {
			var remaining []string
			for _, id := range order {
				if !placed[id] {
					remaining = append(remaining, id)
				}
			}
			sort.Strings(remaining)
			return nil, fmt.Errorf("dependency cycle among gates: %s", strings.Join(remaining, ", "))
		}

		for _, id := range batch {
			placed[id] = true
		}
		layers = append(layers, batch)
	}

	return layers, nil
}

// Plan returns the execution order as a sequence of stage batches.
func (g *Graph) Plan() [][]string {
	plan := make([][]string, len(g.layers))
	for i, batch := range g.layers {
		plan[i] = append([]string(nil), batch...)
	}
	return plan
}

// Spec returns the spec for a gate id.
func (g *Graph) Spec(id string) (gate.Spec, bool) {
	spec, ok := g.specs[id]
	return spec, ok
}

// Specs returns all specs in declaration order.
func (g *Graph) Specs() []gate.Spec {
	specs := make([]gate.Spec, 0, len(g.order))
	for _, id := range g.order {
		specs = append(specs, g.specs[id])
	}
	return specs
}

// Dependents returns the gates that list id as a dependency.
func (g *Graph) Dependents(id string) []string {
	var dependents []string
	for _, candidate := range g.order {
		for _, dep := range g.specs[candidate].DependsOn {
			if dep == id {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}
