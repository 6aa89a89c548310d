// Package telemetry persists per-gate completion records and exports
// aggregate counters for the status server.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// metricsSubdir holds one JSON record per completed gate under the state dir.
const metricsSubdir = "metrics"

// GateRecord is the persisted completion record for one gate.
type GateRecord struct {
	Gate          string    `json:"gate"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	DurationMS    int64     `json:"duration_ms"`
	Unrecoverable bool      `json:"unrecoverable,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Recorder writes gate records to the pipeline state directory and mirrors
// them into Prometheus instruments.
type Recorder struct {
	dir      string
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	logger   *zap.Logger
}

// NewRecorder creates a recorder rooted at stateDir (typically
// <workdir>/.ralph). The directory is created on first record, not here.
func NewRecorder(stateDir string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ralph_gate_attempts_total",
		Help: "Validator invocations consumed per gate.",
	}, []string{"gate"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ralph_gate_duration_seconds",
		Help:    "Wall time per gate, remediation included.",
		Buckets: []float64{1, 5, 15, 60, 300, 600, 1800, 3600},
	}, []string{"gate"})

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ralph_gate_outcomes_total",
		Help: "Gate completions by terminal state.",
	}, []string{"gate", "status"})

	registry.MustRegister(attempts, duration, outcomes)

	return &Recorder{
		dir:      stateDir,
		registry: registry,
		attempts: attempts,
		duration: duration,
		outcomes: outcomes,
		logger:   logger.Named("telemetry"),
	}
}

// Registry exposes the recorder's Prometheus registry for the /metrics
// endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordGate persists one gate completion and updates the instruments.
func (r *Recorder) RecordGate(rec GateRecord) error {
	if rec.Gate == "" {
		return fmt.Errorf("gate record missing gate id")
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	r.attempts.WithLabelValues(rec.Gate).Add(float64(rec.Attempts))
	r.duration.WithLabelValues(rec.Gate).Observe(float64(rec.DurationMS) / 1000)
	r.outcomes.WithLabelValues(rec.Gate, rec.Status).Inc()

	dir := filepath.Join(r.dir, metricsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding gate record: %w", err)
	}

	path := filepath.Join(dir, recordName(rec.Gate))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing gate record: %w", err)
	}

	r.logger.Debug("recorded gate completion",
		zap.String("gate", rec.Gate),
		zap.String("status", rec.Status),
		zap.String("path", path),
	)
	return nil
}

// Records loads all persisted gate records, sorted by gate id.
func (r *Recorder) Records() ([]GateRecord, error) {
	dir := filepath.Join(r.dir, metricsSubdir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metrics dir: %w", err)
	}

	var records []GateRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var rec GateRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			r.logger.Warn("skipping malformed gate record", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Gate < records[j].Gate })
	return records, nil
}

func recordName(gateID string) string {
	return "gate-" + gateID + ".json"
}
