package pipeline

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
)

// testDeps bundles the ambient dependencies every stage needs in tests.
type testDeps struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics
	monitor *monitoring.Monitor
}

func newTestDeps() testDeps {
	logger := logging.NewNop()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return testDeps{
		logger:  logger,
		metrics: metrics,
		monitor: monitoring.NewMonitor(logger, metrics),
	}
}

// newObservedDeps captures log output so tests can assert on the
// checkpoint timeline.
func newObservedDeps() (testDeps, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	logger := &logging.Logger{Logger: zap.New(core)}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return testDeps{
		logger:  logger,
		metrics: metrics,
		monitor: monitoring.NewMonitor(logger, metrics),
	}, logs
}

// countingPacer records how many checkpoints paused.
type countingPacer struct {
	mu     sync.Mutex
	pauses int
}

func (p *countingPacer) Pause(context.Context) {
	p.mu.Lock()
	p.pauses++
	p.mu.Unlock()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses
}

// blockingPacer parks the first Pause until released, so tests can hold a
// run mid-flight.
type blockingPacer struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingPacer() *blockingPacer {
	return &blockingPacer{
		entered: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (p *blockingPacer) Pause(context.Context) {
	p.entered <- struct{}{}
	<-p.release
}
