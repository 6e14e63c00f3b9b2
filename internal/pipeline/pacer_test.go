package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalPacerPauses(t *testing.T) {
	p := NewIntervalPacer(20 * time.Millisecond)

	start := time.Now()
	p.Pause(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestIntervalPacerZeroIntervalIsNop(t *testing.T) {
	p := NewIntervalPacer(0)
	assert.IsType(t, NopPacer{}, p)
}

func TestIntervalPacerHonorsContextCancellation(t *testing.T) {
	p := NewIntervalPacer(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	p.Pause(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)
}
