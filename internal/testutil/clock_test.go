package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/atemporal/internal/parse"
)

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Millisecond)

	assert.Equal(t, DefaultEpoch, clock.Now())
	assert.Equal(t, DefaultEpoch.Add(time.Millisecond), clock.Now())
	assert.Equal(t, DefaultEpoch.Add(2*time.Millisecond), clock.Now())
	assert.Equal(t, int64(3), clock.Calls())
}

func TestStepClock_Reset(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewStepClock(start, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, start, clock.Now())
}

func TestStepClock_ImplementsParseClock(t *testing.T) {
	var clk parse.Clock = NewStepClock(time.Time{}, time.Microsecond)
	now, coarse := parse.SafeNow(clk)
	assert.False(t, coarse)
	assert.Equal(t, DefaultEpoch, now)
}

func TestStepClock_ConcurrentReadingsAreDistinct(t *testing.T) {
	clock := NewStepClock(time.Time{}, time.Nanosecond)

	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				now := clock.Now()
				mu.Lock()
				seen[now] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}

func TestBrokenClocks(t *testing.T) {
	_, coarse := parse.SafeNow(ZeroClock{})
	assert.True(t, coarse)

	_, coarse = parse.SafeNow(PanicClock{})
	assert.True(t, coarse)
}
