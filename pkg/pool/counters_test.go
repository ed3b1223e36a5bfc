package pool

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_ActiveRoundTrip(t *testing.T) {
	var c Counters

	assert.Equal(t, int32(1), c.IncrementActive())
	assert.Equal(t, int32(2), c.IncrementActive())
	assert.Equal(t, int32(1), c.DecrementActive())
	assert.Equal(t, int32(1), c.Active())
}

func TestCounters_LifetimeUniqueAndAscending(t *testing.T) {
	var c Counters

	const goroutines = 16
	const perGoroutine = 500

	var mu sync.Mutex
	values := make([]uint64, 0, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perGoroutine)
			var last uint64
			for j := 0; j < perGoroutine; j++ {
				v := c.IncrementLifetime()
				if v <= last {
					t.Errorf("lifetime went backwards in one goroutine: %d after %d", v, last)
				}
				last = v
				local = append(local, v)
			}
			mu.Lock()
			values = append(values, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(goroutines*perGoroutine), c.Lifetime())

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		assert.Equal(t, uint64(i+1), v)
	}
}

func TestCounters_EnterServing(t *testing.T) {
	var c Counters

	n, err := c.EnterServing(2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)

	n, err = c.EnterServing(2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)

	n, err = c.EnterServing(2)
	assert.ErrorIs(t, err, ErrPoolInvariant)
	assert.Equal(t, int32(3), n)

	// The increment is kept so the caller's decrement stays balanced.
	assert.Equal(t, int32(3), c.Active())
}
