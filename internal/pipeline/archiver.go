package pipeline

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
)

// Entry names one file to bundle: the path on disk and the name it carries
// inside the archive.
type Entry struct {
	Source string
	Name   string
}

// Archiver bundles a fixed set of files into a zip, streaming each source
// through the compressor without buffering whole files. Deflate runs at best
// compression as the default policy.
type Archiver struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewArchiver creates an archiver.
func NewArchiver(logger *logging.Logger, metrics *monitoring.Metrics) *Archiver {
	return &Archiver{logger: logger, metrics: metrics}
}

// Archive writes entries into a zip at dest, in the order supplied. Any
// missing or unreadable source, or any destination write failure, aborts.
// Completion requires both the zip writer and the destination file to close
// cleanly; compressed output may still be buffered until then.
func (a *Archiver) Archive(entries []Entry, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	for _, entry := range entries {
		if err := a.addEntry(zw, entry); err != nil {
			zw.Close()
			out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	a.logger.Info("Archive completed",
		zap.String("path", dest),
		zap.Int64("bytes", info.Size()),
		zap.Int("entries", len(entries)),
	)
	a.metrics.ArchivesBuilt.Inc()
	return nil
}

func (a *Archiver) addEntry(zw *zip.Writer, entry Entry) error {
	src, err := os.Open(entry.Source)
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:     entry.Name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", entry.Name, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write entry %s: %w", entry.Name, err)
	}
	return nil
}
