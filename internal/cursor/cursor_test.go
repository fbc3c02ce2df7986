package cursor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/archq/internal/testutil"
)

func newStore(t *testing.T) (*Store[string], *testutil.ManualClock) {
	t.Helper()
	clock := testutil.NewManualClock()
	return New[string](time.Minute, WithClock(clock), WithIDGenerator(testutil.NewSequentialIDs(""))), clock
}

func TestNextPagesAndDrains(t *testing.T) {
	s, _ := newStore(t)
	id := s.Open([]string{"a", "b", "c", "d", "e"}, false)
	assert.Equal(t, "cursor-1", id)

	page, more, err := s.Next(id, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page)
	assert.True(t, more)

	page, more, err = s.Next(id, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, page)
	assert.True(t, more)

	page, more, err = s.Next(id, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, page)
	assert.False(t, more)
	assert.Zero(t, s.Len())

	_, _, err = s.Next(id, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextAllRemaining(t *testing.T) {
	s, _ := newStore(t)
	id := s.Open([]string{"a", "b"}, false)

	page, more, err := s.Next(id, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page)
	assert.False(t, more)
}

func TestPageIsNotAliasedByLaterAppends(t *testing.T) {
	s, _ := newStore(t)
	id := s.Open([]string{"a", "b", "c"}, false)

	page, _, err := s.Next(id, 1)
	require.NoError(t, err)
	page = append(page, "x")
	assert.Equal(t, []string{"a", "x"}, page)

	rest, err := s.Take(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, rest)
}

func TestExpiry(t *testing.T) {
	s, clock := newStore(t)
	id := s.Open([]string{"a", "b", "c"}, false)

	clock.Advance(59 * time.Second)
	_, _, err := s.Next(id, 1)
	require.NoError(t, err, "access within the TTL")

	// Access refreshed the TTL.
	clock.Advance(59 * time.Second)
	_, _, err = s.Next(id, 1)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, _, err = s.Next(id, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestSweepSparesPinned(t *testing.T) {
	s, clock := newStore(t)
	s.Open([]string{"a", "b"}, false)
	pinned := s.Open([]string{"c", "d"}, true)
	s.Open([]string{"e", "f"}, false)

	clock.Advance(30 * time.Second)
	assert.Zero(t, s.Sweep())

	clock.Advance(time.Hour)
	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())

	page, more, err := s.Next(pinned, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, page)
	assert.True(t, more)
}

func TestCloseAndTake(t *testing.T) {
	s, _ := newStore(t)
	a := s.Open([]string{"a"}, false)
	b := s.Open([]string{"b"}, true)

	require.NoError(t, s.Close(a))
	assert.ErrorIs(t, s.Close(a), ErrNotFound)

	items, err := s.Take(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, items)
	_, err = s.Take(b)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	s := New[int](time.Nanosecond)
	s.Open([]int{1}, false)
	time.Sleep(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunWithoutIntervalUsesTTL(t *testing.T) {
	s := New[int](time.Millisecond)
	s.Open([]int{1}, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 0)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
}

func TestDefaultsAndConcurrentUse(t *testing.T) {
	s := New[int](0)
	assert.Equal(t, DefaultTTL, s.TTL())

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = s.Open([]int{i, i}, false)
			_, _, _ = s.Next(ids[i], 1)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())

	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}
