package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
	"github.com/synthstream/exportd/internal/synth"
)

const writerBufferSize = 256 * 1024

// Writer streams synthetic records to a line-delimited JSON sink in fixed
// batches. Records are serialized one at a time and never retained; after
// every full batch it logs progress, takes a resource checkpoint and pauses
// on the injected pacer.
type Writer struct {
	gen     *synth.Generator
	pacer   Pacer
	monitor *monitoring.Monitor
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewWriter creates a streaming record writer.
func NewWriter(gen *synth.Generator, pacer Pacer, monitor *monitoring.Monitor, metrics *monitoring.Metrics, logger *logging.Logger) *Writer {
	return &Writer{
		gen:     gen,
		pacer:   pacer,
		monitor: monitor,
		metrics: metrics,
		logger:  logger,
	}
}

// Write generates total records and appends them to sink, one JSON object
// per line. A trailing partial batch is written and flushed but triggers no
// checkpoint. Returns the number of records written; any sink error is fatal
// and propagated unretried.
func (w *Writer) Write(ctx context.Context, total, batchSize int, sink io.Writer) (int, error) {
	if total < 0 {
		return 0, fmt.Errorf("invalid record count %d", total)
	}
	if batchSize < 1 {
		return 0, fmt.Errorf("invalid batch size %d", batchSize)
	}

	bw := bufio.NewWriterSize(sink, writerBufferSize)

	for i := 0; i < total; i++ {
		line, err := sonic.Marshal(w.gen.Generate())
		if err != nil {
			return i, fmt.Errorf("serialize record %d: %w", i, err)
		}
		if _, err := bw.Write(line); err != nil {
			return i, fmt.Errorf("write record %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return i, fmt.Errorf("write record %d: %w", i, err)
		}

		written := i + 1
		if written%batchSize == 0 {
			batch := written / batchSize
			w.logger.Info("Batch written",
				zap.Int("batch", batch),
				zap.Int("records", written),
			)
			w.monitor.Checkpoint(fmt.Sprintf("generate batch %d", batch))
			w.pacer.Pause(ctx)
		}
	}

	if err := bw.Flush(); err != nil {
		return total, fmt.Errorf("flush line stream: %w", err)
	}

	w.metrics.RecordsGenerated.Add(float64(total))
	return total, nil
}
