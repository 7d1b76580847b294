package mining_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashkettle/ecs"
	"github.com/ashkettle/ecs/docs/examples/mining"
)

func TestColonyMinesEveryDepositDry(t *testing.T) {
	colony, err := mining.NewColony(2)
	require.NoError(t, err)
	defer colony.Close()

	_, err = colony.AddMiner(mining.HandMiner, mining.Position{X: 0, Y: 0})
	require.NoError(t, err)
	_, err = colony.AddMiner(mining.DrillMiner, mining.Position{X: 10, Y: 0})
	require.NoError(t, err)
	_, err = colony.AddDeposit(6, mining.Position{X: 3, Y: 0})
	require.NoError(t, err)
	_, err = colony.AddDeposit(8, mining.Position{X: -5, Y: 0})
	require.NoError(t, err)

	require.NoError(t, colony.Run(40))

	assert.Zero(t, colony.RemainingOre())
	assert.Equal(t, 14, colony.Stockpile(), "every unit of ore ends up banked")
	assert.Equal(t, 2, colony.World().Allocator().Count(), "exhausted deposits are destroyed")

	fatigues, err := ecs.StoreFor[mining.Fatigue](colony.World())
	require.NoError(t, err)
	assert.Zero(t, fatigues.Len(), "fatigue rests off once the work is done")
}

func TestColonyDeliversOnlyFullLoadsWhileOreRemains(t *testing.T) {
	colony, err := mining.NewColony(2)
	require.NoError(t, err)
	defer colony.Close()

	// A drill right on top of a big deposit fills up in eight steps and
	// banks exactly one full load.
	_, err = colony.AddMiner(mining.DrillMiner, mining.Position{X: 0, Y: 0})
	require.NoError(t, err)
	_, err = colony.AddDeposit(100, mining.Position{X: 1, Y: 0})
	require.NoError(t, err)

	require.NoError(t, colony.Run(9))

	assert.Equal(t, 40, colony.Stockpile())
	assert.Equal(t, 60, colony.RemainingOre())
}

func TestColonyWorkersShareProfiles(t *testing.T) {
	colony, err := mining.NewColony(2)
	require.NoError(t, err)
	defer colony.Close()

	for i := 0; i < 5; i++ {
		_, err = colony.AddMiner(mining.HandMiner, mining.Position{X: float64(i), Y: 0})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err = colony.AddMiner(mining.DrillMiner, mining.Position{X: float64(i), Y: 5})
		require.NoError(t, err)
	}
	_, err = colony.AddDeposit(20, mining.Position{X: 2, Y: 2})
	require.NoError(t, err)

	stats := colony.ProfileStats()
	assert.Equal(t, 8, stats.Entities)
	assert.Equal(t, 2, stats.UniqueValues, "one box per worker kind")
	assert.InDelta(t, 4.0, stats.SharingRatio, 1e-9)

	// Planning reads profiles by value, so working the colony must not
	// split the shared boxes.
	require.NoError(t, colony.Run(3))
	assert.Equal(t, 2, colony.ProfileStats().UniqueValues)
}

func TestColonyIdlesWithoutDeposits(t *testing.T) {
	colony, err := mining.NewColony(2)
	require.NoError(t, err)
	defer colony.Close()

	miner, err := colony.AddMiner(mining.HandMiner, mining.Position{X: 1, Y: 1})
	require.NoError(t, err)

	require.NoError(t, colony.Run(5))

	assert.Zero(t, colony.Stockpile())
	positions, err := ecs.StoreFor[mining.Position](colony.World())
	require.NoError(t, err)
	pos, ok := positions.Get(miner)
	require.True(t, ok)
	assert.Equal(t, mining.Position{X: 1, Y: 1}, pos, "idle miners stay put")
}

func TestAddDepositRejectsEmpty(t *testing.T) {
	colony, err := mining.NewColony(1)
	require.NoError(t, err)
	defer colony.Close()

	_, err = colony.AddDeposit(0, mining.Position{})
	require.Error(t, err)
}
