package monitoring

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
)

const bytesPerMB = 1024 * 1024

// Sample is a point-in-time resource reading.
type Sample struct {
	HeapMB float64
	RSSMB  float64
	Load1  float64
}

// Monitor samples process memory and host CPU load on demand. It is passed
// to every pipeline stage and invoked only at checkpoints; readings are
// advisory, so host stat failures degrade to zero values instead of erroring.
type Monitor struct {
	logger  *logging.Logger
	metrics *Metrics
	proc    *process.Process
}

// NewMonitor creates a resource monitor for the current process.
func NewMonitor(logger *logging.Logger, metrics *Metrics) *Monitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &Monitor{
		logger:  logger,
		metrics: metrics,
		proc:    proc,
	}
}

// Sample reads heap usage, resident set size and the 1-minute load average.
func (m *Monitor) Sample() Sample {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{HeapMB: float64(mem.HeapAlloc) / bytesPerMB}

	if m.proc != nil {
		if info, err := m.proc.MemoryInfo(); err == nil {
			s.RSSMB = float64(info.RSS) / bytesPerMB
		}
	}
	if avg, err := load.Avg(); err == nil {
		s.Load1 = avg.Load1
	}

	if m.metrics != nil {
		m.metrics.HeapBytes.Set(float64(mem.HeapAlloc))
		m.metrics.ResidentBytes.Set(s.RSSMB * bytesPerMB)
	}

	return s
}

// Checkpoint samples resources and logs a single line under the given label.
func (m *Monitor) Checkpoint(label string) Sample {
	s := m.Sample()
	if m.logger != nil {
		m.logger.Info(FormatLine(label, s))
	}
	return s
}

// FormatLine renders a sample as the operational checkpoint line.
func FormatLine(label string, s Sample) string {
	return fmt.Sprintf("%s | heap=%.2fMB rss=%.2fMB load1=%.2f", label, s.HeapMB, s.RSSMB, s.Load1)
}
