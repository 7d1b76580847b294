package ecs_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashkettle/ecs"
)

func TestEntityPacksIndexAndGeneration(t *testing.T) {
	cases := []struct {
		index      uint32
		generation uint32
	}{
		{0, 0},
		{0, 1},
		{1, 0},
		{42, 7},
		{math.MaxUint32, 1},
		{1, math.MaxUint32},
		{math.MaxUint32, math.MaxUint32},
	}
	for _, tc := range cases {
		e := ecs.NewEntity(tc.index, tc.generation)
		assert.Equal(t, tc.index, e.Index(), "index for %v", e)
		assert.Equal(t, tc.generation, e.Generation(), "generation for %v", e)
	}
}

func TestEntityZeroValueIsSentinel(t *testing.T) {
	var e ecs.Entity
	assert.True(t, e.IsZero())
	assert.False(t, ecs.NewEntity(0, 1).IsZero())
	assert.Equal(t, "Entity(3:5)", ecs.NewEntity(3, 5).String())
}

func TestAllocatorCreateAndDestroy(t *testing.T) {
	alloc := ecs.NewAllocator()
	a := alloc.Create()
	b := alloc.Create()

	require.NotEqual(t, a, b, "expected unique entities")
	assert.Equal(t, 2, alloc.Count())
	assert.True(t, alloc.IsAlive(a))
	assert.True(t, alloc.IsAlive(b))

	require.True(t, alloc.Destroy(a))
	assert.False(t, alloc.IsAlive(a))
	assert.Equal(t, 1, alloc.Count())

	// Recycling reuses the index under a fresh generation.
	c := alloc.Create()
	assert.Equal(t, a.Index(), c.Index())
	assert.NotEqual(t, a.Generation(), c.Generation())
	assert.True(t, alloc.IsAlive(c))
}

func TestAllocatorRejectsStaleHandle(t *testing.T) {
	alloc := ecs.NewAllocator()
	e := alloc.Create()
	require.True(t, alloc.Destroy(e))

	assert.False(t, alloc.Destroy(e), "stale destroy should fail")
	assert.False(t, alloc.IsAlive(e))
	assert.False(t, alloc.Destroy(ecs.Entity(0)), "zero destroy should fail")
}

func TestAllocatorStaleHandleAfterRecycle(t *testing.T) {
	alloc := ecs.NewAllocator()
	old := alloc.Create()
	require.True(t, alloc.Destroy(old))
	fresh := alloc.Create()

	require.Equal(t, old.Index(), fresh.Index())
	assert.False(t, alloc.IsAlive(old), "old generation must stay dead after recycle")
	assert.True(t, alloc.IsAlive(fresh))
	assert.False(t, alloc.Destroy(old), "old generation must not destroy the new occupant")
	assert.True(t, alloc.IsAlive(fresh))
}

func TestAllocatorEachVisitsLiveEntities(t *testing.T) {
	alloc := ecs.NewAllocator()
	a := alloc.Create()
	b := alloc.Create()
	c := alloc.Create()
	require.True(t, alloc.Destroy(b))

	seen := make(map[ecs.Entity]bool)
	alloc.Each(func(e ecs.Entity) bool {
		seen[e] = true
		return true
	})

	assert.Len(t, seen, 2)
	assert.True(t, seen[a])
	assert.True(t, seen[c])
	assert.False(t, seen[b])
}

func TestAllocatorEachStopsEarly(t *testing.T) {
	alloc := ecs.NewAllocator()
	for i := 0; i < 10; i++ {
		alloc.Create()
	}

	visited := 0
	alloc.Each(func(ecs.Entity) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}

func TestAllocatorConcurrentCreate(t *testing.T) {
	alloc := ecs.NewAllocator()
	const goroutines = 8
	const perGoroutine = 250

	results := make(chan ecs.Entity, goroutines*perGoroutine)
	done := make(chan struct{})
	for g := 0; g < goroutines; g++ {
		go func() {
			for i := 0; i < perGoroutine; i++ {
				results <- alloc.Create()
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < goroutines; g++ {
		<-done
	}
	close(results)

	seen := make(map[ecs.Entity]bool)
	for e := range results {
		require.False(t, seen[e], "duplicate handle %v", e)
		seen[e] = true
	}
	assert.Equal(t, goroutines*perGoroutine, alloc.Count())
}
