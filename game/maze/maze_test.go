package maze

import (
	"errors"
	"fmt"
	"testing"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertValidMaze checks the structural invariants every generated maze holds.
func assertValidMaze(t *testing.T, m *Maze) {
	t.Helper()

	require.Len(t, m.Path, PathSteps+1)
	require.Len(t, m.Rewards, PathSteps)
	require.Len(t, m.OptimalDirections, PathSteps)
	assert.Equal(t, m.Start, m.Path[0])

	seen := map[CellPosition]bool{}
	for i, p := range m.Path {
		assert.True(t, m.InBound(p), "path cell %s out of bounds", p)
		assert.False(t, seen[p], "path revisits %s", p)
		seen[p] = true
		if i > 0 {
			assert.Equal(t, p, m.Path[i-1].Step(m.OptimalDirections[i-1]))
			assert.Equal(t, Reward, m.At(p))
		}
	}

	hasHazards := len(m.Hazards) > 0
	hasBlock := m.Block != nil
	assert.True(t, hasHazards != hasBlock, "exactly one of hazards or block must be set")

	terrain := append([]CellPosition(nil), m.Hazards...)
	if hasBlock {
		terrain = append(terrain, *m.Block)
	}
	for _, p := range terrain {
		assert.False(t, seen[p], "terrain %s overlaps the path", p)
	}
	for _, h := range m.Hazards {
		assert.Equal(t, Hazard, m.At(h))
	}
	if hasBlock {
		assert.Equal(t, Block, m.At(*m.Block))
	}
}

func TestGenerate(t *testing.T) {
	t.Run("block maze for non-hazard spec", func(t *testing.T) {
		m, err := Generate(rng.New("maze-learn-v2-0-0"), 3, game.TrialSpec{Category: game.CarSmall})
		require.NoError(t, err)
		assertValidMaze(t, m)
		assert.NotNil(t, m.Block)
		assert.Empty(t, m.Hazards)
	})

	t.Run("two hazards for hazard spec", func(t *testing.T) {
		m, err := Generate(rng.New("maze-plan-v2-0-0"), 3, game.TrialSpec{Category: game.Truck, Hazard: true, HazardProb: 1})
		require.NoError(t, err)
		assertValidMaze(t, m)
		assert.Len(t, m.Hazards, 2)
		assert.Nil(t, m.Block)
	})

	t.Run("same seed yields the same maze", func(t *testing.T) {
		spec := game.TrialSpec{Category: game.CarBig, Hazard: true}
		a, err := Generate(rng.New("determinism"), 3, spec)
		require.NoError(t, err)
		b, err := Generate(rng.New("determinism"), 3, spec)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("every start cell of a 3x3 grid admits a path", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			m, err := Generate(rng.New(fmt.Sprintf("sweep-%d", i)), 3, game.TrialSpec{Category: game.CarSmall, Hazard: i%2 == 0})
			require.NoError(t, err)
			assertValidMaze(t, m)
		}
	})

	t.Run("larger grids are supported", func(t *testing.T) {
		m, err := Generate(rng.New("big"), 6, game.TrialSpec{Category: game.Truck, Hazard: true})
		require.NoError(t, err)
		assertValidMaze(t, m)
	})

	t.Run("2x2 grid cannot hold a four-step path", func(t *testing.T) {
		_, err := Generate(rng.New("tiny"), 2, game.TrialSpec{Category: game.CarSmall})
		require.Error(t, err)

		var pse *PathSynthesisError
		assert.True(t, errors.As(err, &pse))
		assert.ErrorIs(t, err, game.ErrPathSynthesis)
		assert.True(t, game.IsFatal(err))
	})

	t.Run("grid smaller than two is rejected", func(t *testing.T) {
		_, err := Generate(rng.New("tiny"), 1, game.TrialSpec{})
		assert.ErrorIs(t, err, game.ErrPathSynthesis)
	})
}

func TestSignature(t *testing.T) {
	m, err := Generate(rng.New("sig"), 3, game.TrialSpec{Category: game.Truck, Hazard: true})
	require.NoError(t, err)

	clone := m.Clone()
	clone.Hazards[0], clone.Hazards[1] = clone.Hazards[1], clone.Hazards[0]
	assert.Equal(t, m.Signature(), clone.Signature(), "hazard order must not matter")

	clone.Path[1], clone.Path[2] = clone.Path[2], clone.Path[1]
	assert.NotEqual(t, m.Signature(), clone.Signature(), "path order matters")
}

func TestClone(t *testing.T) {
	m, err := Generate(rng.New("clone"), 3, game.TrialSpec{Category: game.CarSmall})
	require.NoError(t, err)

	c := m.Clone()
	c.Grid[m.Rewards[0].Row][m.Rewards[0].Col] = Empty
	c.Block.Row = 99

	assert.Equal(t, Reward, m.At(m.Rewards[0]))
	assert.NotEqual(t, 99, m.Block.Row)
}

func TestString(t *testing.T) {
	m := Practice()
	want := "+---+---+---+\n" +
		"|   |   | V |\n" +
		"+---+---+---+\n" +
		"|   | $ | ! |\n" +
		"+---+---+---+\n" +
		"| $ |   | ! |\n" +
		"+---+---+---+\n"
	assert.Equal(t, want, m.String())
}

func TestPractice(t *testing.T) {
	m := Practice()

	pos := m.Start
	collected := 0
	for _, d := range m.OptimalDirections {
		pos = pos.Step(d)
		require.True(t, m.InBound(pos))
		require.NotEqual(t, Block, m.At(pos))
		require.NotEqual(t, Hazard, m.At(pos))
		if m.At(pos) == Reward {
			collected++
		}
	}
	assert.Equal(t, len(m.Rewards), collected)
	assert.Equal(t, game.CarSmall, m.Spec.Category)
	assert.Equal(t, []CellPosition{{Row: 1, Col: 2}, {Row: 2, Col: 2}}, m.Hazards)
	assert.Nil(t, m.Block)
	for _, h := range m.Hazards {
		assert.Equal(t, Hazard, m.At(h))
	}
}
