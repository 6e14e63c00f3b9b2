package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	runID := NewRunID()

	assert.True(t, strings.HasPrefix(runID.String(), RunPrefix+"_"))
	assert.True(t, IsValid(runID.String()))
}

func TestRunIDsUnique(t *testing.T) {
	seen := make(map[RunID]bool)
	for i := 0; i < 1000; i++ {
		runID := NewRunID()
		assert.False(t, seen[runID], "duplicate run ID %s", runID)
		seen[runID] = true
	}
}

func TestTimestamp(t *testing.T) {
	runID := NewRunID()

	ts, err := Timestamp(runID.String())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestIsValidRejectsGarbage(t *testing.T) {
	assert.False(t, IsValid("run_not-a-ulid"))
	assert.False(t, IsValid(""))
}

func TestGeneratorWithEntropy(t *testing.T) {
	gen := NewGeneratorWithEntropy(strings.NewReader(strings.Repeat("deterministic entropy", 10)))

	first := gen.GenerateString()
	second := gen.GenerateString()
	assert.NotEqual(t, first, second)
}
