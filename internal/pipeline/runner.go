package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/config"
	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
	"github.com/synthstream/exportd/internal/shared/id"
)

// ErrRunInProgress is returned when a run is triggered while another is
// still executing. Overlapping triggers are rejected, never queued.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// State is the lifecycle state of the job runner.
type State int32

// Runner lifecycle states. Failed is reachable from any non-terminal state.
const (
	StateIdle State = iota
	StateGenerating
	StateConverting
	StateArchiving
	StateCompleted
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateConverting:
		return "converting"
	case StateArchiving:
		return "archiving"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the runner for the status endpoint.
type Snapshot struct {
	State          string `json:"state"`
	RunID          string `json:"run_id,omitempty"`
	RecordsWritten int    `json:"records_written"`
	RowsConverted  int    `json:"rows_converted"`
	LastError      string `json:"last_error,omitempty"`
}

// Runner orchestrates the three pipeline stages for one job invocation. The
// three artifact files are exclusively owned by the running job and are
// overwritten wholesale on each new run.
type Runner struct {
	cfg       config.ExportConfig
	writer    *Writer
	converter *Converter
	archiver  *Archiver
	monitor   *monitoring.Monitor
	metrics   *monitoring.Metrics
	logger    *logging.Logger

	running atomic.Bool

	mu             sync.RWMutex
	state          State
	runID          id.RunID
	recordsWritten int
	rowsConverted  int
	lastErr        error
}

// NewRunner creates a job runner with injected stages and configuration.
func NewRunner(
	cfg config.ExportConfig,
	writer *Writer,
	converter *Converter,
	archiver *Archiver,
	monitor *monitoring.Monitor,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		writer:    writer,
		converter: converter,
		archiver:  archiver,
		monitor:   monitor,
		metrics:   metrics,
		logger:    logger,
		state:     StateIdle,
	}
}

// Run executes one end-to-end job: generate, convert, archive. Stages run
// strictly in sequence; each starts only after the previous artifact is
// flushed and closed. A second Run while one is in flight returns
// ErrRunInProgress without touching the active run.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.RecordJobRun("rejected")
		return ErrRunInProgress
	}
	defer r.running.Store(false)

	runID := id.NewRunID()
	r.beginRun(runID)

	log := r.logger.With(zap.String("run_id", runID.String()))
	log.Info("Export job started",
		zap.Int("total_records", r.cfg.TotalRecords),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.String("data_dir", r.cfg.DataDir),
	)
	r.monitor.Checkpoint("job start")

	if err := r.generate(ctx, log); err != nil {
		return r.fail(log, StateGenerating, err)
	}
	if err := r.convert(log); err != nil {
		return r.fail(log, StateConverting, err)
	}
	if err := r.archive(log); err != nil {
		return r.fail(log, StateArchiving, err)
	}

	r.setState(StateCompleted)
	r.metrics.RecordJobRun("completed")
	r.monitor.Checkpoint("job end")
	log.Info("Export job completed", zap.String("archive", r.cfg.ArchivePath()))
	return nil
}

func (r *Runner) generate(ctx context.Context, log *zap.Logger) error {
	r.setState(StateGenerating)
	start := time.Now()

	if err := os.MkdirAll(r.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	sink, err := os.Create(r.cfg.StreamPath())
	if err != nil {
		return fmt.Errorf("create line stream: %w", err)
	}

	written, err := r.writer.Write(ctx, r.cfg.TotalRecords, r.cfg.BatchSize, sink)
	if cerr := sink.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close line stream: %w", cerr)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.recordsWritten = written
	r.mu.Unlock()

	r.metrics.RecordStage("generate", time.Since(start))
	r.monitor.Checkpoint("generate stage end")
	log.Info("Generation stage completed", zap.Int("records", written))
	return nil
}

func (r *Runner) convert(log *zap.Logger) error {
	r.setState(StateConverting)
	start := time.Now()

	src, err := os.Open(r.cfg.StreamPath())
	if err != nil {
		return fmt.Errorf("open line stream: %w", err)
	}

	rows, err := r.converter.Convert(src, r.cfg.TablePath())
	if cerr := src.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close line stream: %w", cerr)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.rowsConverted = rows
	r.mu.Unlock()

	r.metrics.RecordStage("convert", time.Since(start))
	r.monitor.Checkpoint("convert stage end")
	log.Info("Conversion stage completed", zap.Int("rows", rows))
	return nil
}

func (r *Runner) archive(log *zap.Logger) error {
	r.setState(StateArchiving)
	start := time.Now()

	entries := []Entry{
		{Source: r.cfg.StreamPath(), Name: filepath.Base(r.cfg.StreamFile)},
		{Source: r.cfg.TablePath(), Name: filepath.Base(r.cfg.TableFile)},
	}
	if err := r.archiver.Archive(entries, r.cfg.ArchivePath()); err != nil {
		return err
	}

	r.metrics.RecordStage("archive", time.Since(start))
	r.monitor.Checkpoint("archive stage end")
	log.Info("Archiving stage completed")
	return nil
}

func (r *Runner) fail(log *zap.Logger, stage State, err error) error {
	r.mu.Lock()
	r.state = StateFailed
	r.lastErr = err
	r.mu.Unlock()

	r.metrics.RecordJobRun("failed")
	log.Error("Export job failed",
		zap.String("stage", stage.String()),
		zap.Error(err),
	)

	if r.cfg.CleanupOnFailure {
		r.cleanupArtifacts(log)
	}

	return fmt.Errorf("%s stage: %w", stage, err)
}

// cleanupArtifacts removes whatever artifacts a failed run left behind.
func (r *Runner) cleanupArtifacts(log *zap.Logger) {
	for _, path := range []string{r.cfg.StreamPath(), r.cfg.TablePath(), r.cfg.ArchivePath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove partial artifact", zap.String("path", path), zap.Error(err))
		}
	}
}

func (r *Runner) beginRun(runID id.RunID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runID = runID
	r.state = StateGenerating
	r.recordsWritten = 0
	r.rowsConverted = 0
	r.lastErr = nil
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Snapshot returns the current state for the status endpoint.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		State:          r.state.String(),
		RunID:          r.runID.String(),
		RecordsWritten: r.recordsWritten,
		RowsConverted:  r.rowsConverted,
	}
	if r.lastErr != nil {
		snap.LastError = r.lastErr.Error()
	}
	return snap
}
