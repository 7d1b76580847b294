package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashkettle/ecs"
)

func TestCommandBufferPushDrainOrder(t *testing.T) {
	buf := ecs.NewCommandBuffer()
	assert.Equal(t, 0, buf.Len())

	first := ecs.NewDestroyEntityCommand(ecs.NewEntity(1, 1))
	second := ecs.NewCreateEntityCommand(nil)
	buf.Push(first)
	buf.Push(nil) // dropped
	buf.Push(second)
	require.Equal(t, 2, buf.Len())

	drained := buf.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, first, drained[0], "drain must preserve push order")
	assert.Equal(t, second, drained[1])
	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Drain())
}

func TestCommandBufferPoolHandsOutEmptyBuffers(t *testing.T) {
	pool := ecs.NewCommandBufferPool()
	buf := pool.Get()
	buf.Push(ecs.NewDestroyEntityCommand(ecs.NewEntity(1, 1)))
	pool.Put(buf)
	pool.Put(nil) // tolerated

	reused := pool.Get()
	assert.Equal(t, 0, reused.Len(), "pooled buffers come back empty")
}
