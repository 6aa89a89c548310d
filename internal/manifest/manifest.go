// Package manifest generates and loads the run manifest consumed by the
// task-surfacing collaborator. The manifest lists every gate with its
// dependency edges so an external task system can mirror the pipeline.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/designops/ralph/internal/pipeline"
)

// DefaultPath is where the manifest is written relative to the workdir.
const DefaultPath = ".ralph/tasks.json"

// Task is one gate surfaced to the task system.
type Task struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	ActiveForm string   `json:"activeForm"`
	Blocks     []string `json:"blocks"`
	BlockedBy  []string `json:"blockedBy"`
}

// Generate produces one task per gate in declaration order. Blocks edges are
// derived by inverting the dependency relation.
func Generate(g *pipeline.Graph) []Task {
	specs := g.Specs()
	tasks := make([]Task, 0, len(specs))
	for _, spec := range specs {
		subject := spec.Subject
		if subject == "" {
			subject = "Gate " + spec.ID
		}
		tasks = append(tasks, Task{
			ID:         spec.ID,
			Subject:    subject,
			ActiveForm: "Running gate " + spec.ID,
			Blocks:     emptyNotNil(g.Dependents(spec.ID)),
			BlockedBy:  emptyNotNil(spec.DependsOn),
		})
	}
	return tasks
}

// Write persists the manifest, creating parent directories as needed.
// The manifest is written once per pipeline generation.
func Write(path string, tasks []Task) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Load reads a previously written manifest.
func Load(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return tasks, nil
}

// Summary renders a ready/blocked listing of the manifest for the console.
func Summary(tasks []Task) string {
	var b strings.Builder
	for _, task := range tasks {
		marker := "ready  "
		if len(task.BlockedBy) > 0 {
			marker = "blocked"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", marker, task.ID, task.Subject)
		if len(task.BlockedBy) > 0 {
			fmt.Fprintf(&b, "          blocked by: %s\n", strings.Join(task.BlockedBy, ", "))
		}
	}
	return b.String()
}

func emptyNotNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
