package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtEpoch(t *testing.T) {
	assert.Equal(t, Epoch, NewManualClock().Now())
}

func TestManualClock_AdvanceAndSet(t *testing.T) {
	clock := NewManualClock()

	clock.Advance(90 * time.Second)
	assert.Equal(t, Epoch.Add(90*time.Second), clock.Now())

	later := Epoch.Add(24 * time.Hour)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock()
	const numGoroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("")
	assert.Equal(t, "cursor-1", ids.Generate())
	assert.Equal(t, "cursor-2", ids.Generate())

	ids.Reset()
	assert.Equal(t, "cursor-1", ids.Generate())

	assert.Equal(t, "page-1", NewSequentialIDs("page").Generate())
}

func TestSequentialIDs_UniqueUnderConcurrency(t *testing.T) {
	ids := NewSequentialIDs("c")
	const numGoroutines = 100

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ids.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, numGoroutines)
}
