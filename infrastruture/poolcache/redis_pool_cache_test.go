package poolcache

import (
	"testing"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolCodec(t *testing.T) {
	specs := []game.TrialSpec{
		{Category: game.CarSmall},
		{Category: game.Truck, Hazard: true, HazardProb: 0.9},
		{Category: game.TowTruck, Hazard: true, HazardProb: 1, Memory: true},
	}
	pool, err := maze.BuildPool(specs, "maze-plan-v2", "plan", nil)
	require.NoError(t, err)

	data, err := encodePool(pool)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tow_truck_medium"`)
	assert.Contains(t, string(data), `"reward"`)

	decoded, err := decodePool(data)
	require.NoError(t, err)
	assert.Equal(t, pool, decoded)
	for i := range pool {
		assert.Equal(t, pool[i].Signature(), decoded[i].Signature())
	}

	_, err = decodePool([]byte(`[{"grid":[["lava"]]}]`))
	assert.Error(t, err)
}
