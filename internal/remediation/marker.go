package remediation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Marker is an actor for autonomous agents. Completion is signaled by a
// marker file appearing next to the stage's target; the actor watches the
// containing directory with fsnotify and consumes the marker when it appears
// so each iteration needs a fresh signal.
type Marker struct {
	logger *zap.Logger
}

// NewMarker creates a marker-file actor.
func NewMarker(logger *zap.Logger) *Marker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Marker{logger: logger.Named("remediation")}
}

// MarkerPath derives the completion marker path for a gate and target:
// always a sibling of the target, directory targets included, matching the
// instruction-file address.
func MarkerPath(target, gateID string) string {
	return target + "." + gateID + "-remediated.marker"
}

// Await implements Actor. It blocks until the marker file exists, then
// removes it.
func (m *Marker) Await(ctx context.Context, g Guidance) error {
	marker := MarkerPath(g.Target, g.Gate)
	dir := filepath.Dir(marker)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	// The marker may already exist if the agent finished before we started
	// watching.
	if _, err := os.Stat(marker); err == nil {
		return m.consume(marker)
	}

	m.logger.Info("awaiting remediation marker",
		zap.String("gate", g.Gate),
		zap.String("marker", marker),
		zap.Int("attempt", g.Attempt),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed while awaiting %s", marker)
			}
			if event.Name == marker && event.Op.Has(fsnotify.Create|fsnotify.Write) {
				return m.consume(marker)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed while awaiting %s", marker)
			}
			m.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (m *Marker) consume(marker string) error {
	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing marker %s: %w", marker, err)
	}
	return nil
}
