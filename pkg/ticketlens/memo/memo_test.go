package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetComputesOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	v := New(func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{1, 2, 3}, nil
	})

	var wg sync.WaitGroup
	results := make([][]int, 32)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := v.Get(context.Background())
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []int{1, 2, 3}, r)
	}

	_, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "served from cache")
	assert.True(t, v.Cached())
}

func TestErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	v := New(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("store unavailable")
		}
		return "ok", nil
	})

	_, err := v.Get(context.Background())
	require.Error(t, err)
	assert.False(t, v.Cached())

	got, err := v.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	v := New(func(context.Context) (int32, error) {
		return calls.Add(1), nil
	})

	first, _ := v.Get(context.Background())
	v.Invalidate()
	assert.False(t, v.Cached())
	second, _ := v.Get(context.Background())

	assert.Equal(t, int32(1), first)
	assert.Equal(t, int32(2), second)
}

func TestInvalidateDuringCompute(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	v := New(func(context.Context) (int32, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	})

	done := make(chan int32)
	go func() {
		got, _ := v.Get(context.Background())
		done <- got
	}()
	<-started
	v.Invalidate()
	close(release)

	assert.Equal(t, int32(1), <-done, "in-flight caller still gets its result")
	assert.False(t, v.Cached(), "stale result is not stored")

	got, _ := v.Get(context.Background())
	assert.Equal(t, int32(2), got)
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	v := New(func(ctx context.Context) (string, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return "corpus", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan error, 1)
	go func() {
		_, err := v.Get(leaderCtx)
		leader <- err
	}()
	<-started

	follower := make(chan string, 1)
	go func() {
		got, err := v.Get(context.Background())
		assert.NoError(t, err)
		follower <- got
	}()
	time.Sleep(5 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leader, context.Canceled)
	close(release)

	assert.Equal(t, "corpus", <-follower)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, v.Cached(), "the shared fill completes after the leader leaves")
}

func TestGetWithCancelledContext(t *testing.T) {
	var calls atomic.Int32
	v := New(func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}
