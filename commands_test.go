package ecs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashkettle/ecs"
)

func TestCreateEntityCommand(t *testing.T) {
	w := ecs.NewWorld()
	var e ecs.Entity
	cmd := ecs.NewCreateEntityCommand(&e)
	require.NoError(t, cmd.Apply(w))
	require.False(t, e.IsZero(), "target must receive the handle")
	assert.True(t, w.Allocator().IsAlive(e))

	// A nil target still allocates.
	require.NoError(t, ecs.NewCreateEntityCommand(nil).Apply(w))
	assert.Equal(t, 2, w.Allocator().Count())
}

func TestDestroyEntityCommand(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity().With(position{X: 1}).Build()
	require.NoError(t, err)

	require.NoError(t, ecs.NewDestroyEntityCommand(e).Apply(w))
	assert.False(t, w.Allocator().IsAlive(e))

	positions, _ := ecs.StoreFor[position](w)
	_, ok := positions.Get(e)
	assert.False(t, ok, "destroy must tear down components")
}

func TestDestroyEntityCommandToleratesStaleHandle(t *testing.T) {
	w := newTestWorld(t)
	e, _ := w.CreateEntity().Build()
	require.True(t, w.DestroyEntity(e))

	// Two tasks condemning the same entity must not fail the batch.
	require.NoError(t, ecs.NewDestroyEntityCommand(e).Apply(w))
	require.NoError(t, ecs.NewDestroyEntityCommand(ecs.Entity(0)).Apply(w))
}

func TestAddAndRemoveComponentCommands(t *testing.T) {
	w := newTestWorld(t)
	e, _ := w.CreateEntity().Build()

	require.NoError(t, ecs.NewAddComponentCommand(e, position{X: 5}).Apply(w))
	positions, _ := ecs.StoreFor[position](w)
	got, ok := positions.Get(e)
	require.True(t, ok)
	assert.Equal(t, position{X: 5}, got)

	// Pointer components unwrap like the builder's.
	require.NoError(t, ecs.NewAddComponentCommand(e, &stunned{Turns: 1}).Apply(w))
	stuns, _ := ecs.StoreFor[stunned](w)
	_, ok = stuns.Get(e)
	require.True(t, ok)

	require.NoError(t, ecs.NewRemoveComponentCommand(e, position{}).Apply(w))
	_, ok = positions.Get(e)
	assert.False(t, ok)

	// Removing an absent component stays quiet.
	require.NoError(t, ecs.NewRemoveComponentCommand(e, position{}).Apply(w))
}

func TestComponentCommandsReportBadArguments(t *testing.T) {
	w := newTestWorld(t)
	e, _ := w.CreateEntity().Build()

	err := ecs.NewAddComponentCommand(ecs.Entity(0), position{}).Apply(w)
	require.Error(t, err)

	err = ecs.NewAddComponentCommand(e, nil).Apply(w)
	require.ErrorIs(t, err, ecs.ErrValueTypeMismatch)

	err = ecs.NewAddComponentCommand(e, mana{Points: 1}).Apply(w)
	require.ErrorIs(t, err, ecs.ErrComponentNotRegistered)

	err = ecs.NewRemoveComponentCommand(e, mana{}).Apply(w)
	require.ErrorIs(t, err, ecs.ErrComponentNotRegistered)
}

func TestApplyCommandsCollectsFailures(t *testing.T) {
	w := newTestWorld(t)
	e, _ := w.CreateEntity().Build()

	cmds := []ecs.Command{
		ecs.NewAddComponentCommand(e, mana{Points: 1}), // unregistered, fails
		nil, // skipped
		ecs.NewAddComponentCommand(e, position{X: 2}), // applies anyway
	}
	err := w.ApplyCommands(cmds)
	require.ErrorIs(t, err, ecs.ErrComponentNotRegistered)

	positions, _ := ecs.StoreFor[position](w)
	got, ok := positions.Get(e)
	require.True(t, ok, "failures must not stop later commands")
	assert.Equal(t, position{X: 2}, got)
}
