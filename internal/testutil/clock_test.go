package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStepClock_StartsAtBase(t *testing.T) {
	clock := NewStepClock(epoch, time.Second)
	assert.Equal(t, int64(0), clock.Calls())
	assert.True(t, epoch.Equal(clock.Now()))
}

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(epoch, 250*time.Millisecond)

	clock.Now()
	assert.True(t, epoch.Add(250*time.Millisecond).Equal(clock.Now()))
	assert.True(t, epoch.Add(500*time.Millisecond).Equal(clock.Now()))
	assert.Equal(t, int64(3), clock.Calls())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(epoch, time.Minute)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Calls())
	assert.True(t, epoch.Equal(clock.Now()))
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(epoch, time.Nanosecond)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, row := range results {
		for _, v := range row {
			ns := v.Sub(epoch).Nanoseconds()
			require.False(t, seen[ns], "duplicate time point %d", ns)
			seen[ns] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}
