// Package memo provides compute-once values guarded by singleflight.
package memo

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Value lazily computes and caches a T. Concurrent first callers share one
// computation; later callers get the cached result until Invalidate. Errors are
// returned to every waiting caller and never cached.
//
// The shared computation does not inherit the cancellation of the caller that started
// it. A caller whose own ctx ends stops waiting and gets ctx.Err(); the others still
// receive the result.
type Value[T any] struct {
	compute func(ctx context.Context) (T, error)
	group   singleflight.Group

	mu    sync.RWMutex
	gen   uint64
	ready bool
	value T
}

// New creates a Value around compute.
func New[T any](compute func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{compute: compute}
}

// Get returns the cached value, computing it if needed.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	v.mu.RLock()
	if v.ready {
		val := v.value
		v.mu.RUnlock()
		return val, nil
	}
	gen := v.gen
	v.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	fill := context.WithoutCancel(ctx)
	ch := v.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		// A flight for this generation may have finished between the check above
		// and joining the group.
		v.mu.RLock()
		if v.ready && v.gen == gen {
			val := v.value
			v.mu.RUnlock()
			return val, nil
		}
		v.mu.RUnlock()

		val, err := v.compute(fill)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		// A result computed for an older generation is still returned to its
		// callers but not stored.
		if v.gen == gen {
			v.value = val
			v.ready = true
		}
		v.mu.Unlock()
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	}
}

// Invalidate drops the cached value. The next Get recomputes.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	v.gen++
	v.ready = false
	var zero T
	v.value = zero
	v.mu.Unlock()
}

// Cached reports whether a value is currently stored.
func (v *Value[T]) Cached() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ready
}
