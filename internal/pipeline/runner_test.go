package pipeline

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/synthstream/exportd/internal/infrastructure/config"
	"github.com/synthstream/exportd/internal/synth"
)

func testExportConfig(dir string) config.ExportConfig {
	return config.ExportConfig{
		DataDir:      dir,
		TotalRecords: 5,
		BatchSize:    2,
		StreamFile:   "users.ndjson",
		TableFile:    "users.xlsx",
		ArchiveFile:  "users.zip",
	}
}

func newTestRunner(cfg config.ExportConfig, pacer Pacer) *Runner {
	deps := newTestDeps()
	writer := NewWriter(synth.NewGenerator(), pacer, deps.monitor, deps.metrics, deps.logger)
	converter := NewConverter(deps.monitor, deps.metrics, deps.logger)
	archiver := NewArchiver(deps.logger, deps.metrics)
	return NewRunner(cfg, writer, converter, archiver, deps.monitor, deps.metrics, deps.logger)
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	r := newTestRunner(cfg, NopPacer{})

	require.Equal(t, StateIdle, r.State())
	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, StateCompleted, r.State())

	snap := r.Snapshot()
	assert.Equal(t, "completed", snap.State)
	assert.Equal(t, 5, snap.RecordsWritten)
	assert.Equal(t, 5, snap.RowsConverted)
	assert.NotEmpty(t, snap.RunID)
	assert.Empty(t, snap.LastError)

	// Line stream: 5 records.
	data, err := os.ReadFile(cfg.StreamPath())
	require.NoError(t, err)
	assert.Len(t, nonEmptyLines(string(data)), 5)

	// Table: header + 5 data rows.
	book, err := excelize.OpenFile(cfg.TablePath())
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, recordFields, rows[0])

	// Archive: both artifacts by base name.
	reader, err := zip.OpenReader(cfg.ArchivePath())
	require.NoError(t, err)
	defer reader.Close()
	require.Len(t, reader.File, 2)
	assert.Equal(t, "users.ndjson", reader.File[0].Name)
	assert.Equal(t, "users.xlsx", reader.File[1].Name)
}

func TestRunEmitsStageBoundaryCheckpoints(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	deps, logs := newObservedDeps()
	writer := NewWriter(synth.NewGenerator(), NopPacer{}, deps.monitor, deps.metrics, deps.logger)
	converter := NewConverter(deps.monitor, deps.metrics, deps.logger)
	archiver := NewArchiver(deps.logger, deps.metrics)
	r := NewRunner(cfg, writer, converter, archiver, deps.monitor, deps.metrics, deps.logger)

	require.NoError(t, r.Run(context.Background()))

	var checkpoints []string
	for _, entry := range logs.All() {
		if strings.Contains(entry.Message, "heap=") {
			checkpoints = append(checkpoints, entry.Message)
		}
	}

	// Job start, batches after records 2 and 4, one per stage end, job end.
	require.Len(t, checkpoints, 7)
	assert.Contains(t, checkpoints[0], "job start")
	assert.Contains(t, checkpoints[1], "generate batch 1")
	assert.Contains(t, checkpoints[2], "generate batch 2")
	assert.Contains(t, checkpoints[3], "generate stage end")
	assert.Contains(t, checkpoints[4], "convert stage end")
	assert.Contains(t, checkpoints[5], "archive stage end")
	assert.Contains(t, checkpoints[6], "job end")
}

func TestRunOverwritesPriorArtifacts(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	r := newTestRunner(cfg, NopPacer{})

	require.NoError(t, r.Run(context.Background()))
	first, err := os.ReadFile(cfg.StreamPath())
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	second, err := os.ReadFile(cfg.StreamPath())
	require.NoError(t, err)

	// Content differs (randomness) but structural shape is stable.
	assert.Len(t, nonEmptyLines(string(first)), 5)
	assert.Len(t, nonEmptyLines(string(second)), 5)
}

func TestRunRejectsOverlappingInvocation(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	cfg.TotalRecords = 4
	cfg.BatchSize = 1
	pacer := newBlockingPacer()
	r := newTestRunner(cfg, pacer)

	done := make(chan error, 1)
	go func() {
		done <- r.Run(context.Background())
	}()

	// Wait until the first run is parked inside a pacing pause.
	select {
	case <-pacer.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run never reached a checkpoint")
	}

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(pacer.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("first run never finished")
	}
	assert.Equal(t, StateCompleted, r.State())
}

func TestRunFailsWhenDataDirIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	cfg := testExportConfig(blocker)
	r := newTestRunner(cfg, NopPacer{})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())
	assert.NotEmpty(t, r.Snapshot().LastError)
}

func TestRunCleanupOnFailure(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	// Archive path points into a directory that does not exist, so the
	// archiving stage fails after both upstream artifacts were written.
	cfg.ArchiveFile = filepath.Join("no-such-dir", "users.zip")
	cfg.CleanupOnFailure = true
	r := newTestRunner(cfg, NopPacer{})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, r.State())

	_, statErr := os.Stat(cfg.StreamPath())
	assert.True(t, os.IsNotExist(statErr), "stream artifact should be removed")
	_, statErr = os.Stat(cfg.TablePath())
	assert.True(t, os.IsNotExist(statErr), "table artifact should be removed")
}

func TestRunKeepsPartialArtifactsByDefault(t *testing.T) {
	cfg := testExportConfig(t.TempDir())
	cfg.ArchiveFile = filepath.Join("no-such-dir", "users.zip")
	r := newTestRunner(cfg, NopPacer{})

	err := r.Run(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(cfg.StreamPath())
	assert.NoError(t, statErr, "stream artifact should remain for inspection")
}
