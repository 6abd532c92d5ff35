package play

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/record"
	"github.com/beka-birhanu/navstudy/game/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type recordingRenderer struct {
	mu     sync.Mutex
	frames []Frame
}

func (r *recordingRenderer) Render(f Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingRenderer) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

type chanPersister chan record.SessionExport

func (c chanPersister) Persist(_ context.Context, export record.SessionExport) error {
	c <- export
	return nil
}

// emptyMaze is a hand-built maze with no terrain other than what the test adds.
func emptyMaze(category game.Category, start maze.CellPosition) *maze.Maze {
	grid := make([][]maze.Cell, 3)
	for i := range grid {
		grid[i] = make([]maze.Cell, 3)
	}
	return &maze.Maze{ID: "test-0", Size: 3, Grid: grid, Start: start, Spec: game.TrialSpec{Category: category}}
}

func place(m *maze.Maze, kind maze.Cell, cells ...maze.CellPosition) {
	for _, c := range cells {
		m.Grid[c.Row][c.Col] = kind
		switch kind {
		case maze.Reward:
			m.Rewards = append(m.Rewards, c)
		case maze.Hazard:
			m.Hazards = append(m.Hazards, c)
		case maze.Block:
			b := c
			m.Block = &b
		}
	}
}

func singlePool(m *maze.Maze) Pool {
	return Pool{Mazes: []*maze.Maze{m}, Order: []int{0}}
}

func keyFor(t *testing.T, v game.Vehicle, d game.Direction) string {
	t.Helper()
	keys := v.KeysFor(d)
	require.NotEmpty(t, keys)
	return keys[0]
}

func TestLearningRules(t *testing.T) {
	catalog := game.MustDefaultCatalog()
	car := catalog[game.CarSmall]

	setup := func(t *testing.T, m *maze.Maze) (*Engine, *Session, *recordingRenderer) {
		t.Helper()
		r := &recordingRenderer{}
		e := NewEngine(r, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{SessionID: "s"}, nil, singlePool(m), Pool{}, 0)
		require.NoError(t, e.Start(context.Background(), s, t0))
		return e, s, r
	}

	t.Run("moves are clamped to the grid", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Reward, maze.CellPosition{Row: 2, Col: 2})
		e, s, r := setup(t, m)

		require.NoError(t, e.HandleInput(context.Background(), s, KeyInput{Key: keyFor(t, car, game.Up), At: t0.Add(time.Second)}))
		require.NoError(t, e.HandleInput(context.Background(), s, KeyInput{Key: keyFor(t, car, game.Left), At: t0.Add(2 * time.Second)}))

		assert.Equal(t, maze.CellPosition{Row: 0, Col: 0}, r.last().Vehicle)
		assert.Equal(t, PhaseLearning, s.Status().Phase)
	})

	t.Run("block cancels the move but is logged", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 1, Col: 1})
		place(m, maze.Block, maze.CellPosition{Row: 1, Col: 2})
		place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 1})
		e, s, r := setup(t, m)

		require.NoError(t, e.HandleInput(context.Background(), s, KeyInput{Key: keyFor(t, car, game.Right), At: t0.Add(time.Second)}))
		assert.Equal(t, maze.CellPosition{Row: 1, Col: 1}, r.last().Vehicle)
		assert.Equal(t, maze.Block, r.last().Grid[1][2])

		require.NoError(t, e.HandleInput(context.Background(), s, KeyInput{Key: keyFor(t, car, game.Up), At: t0.Add(2 * time.Second)}))
		records := s.Records()
		require.Len(t, records, 1)
		require.Len(t, records[0].Moves, 2)
		assert.True(t, records[0].Moves[0].Blocked)
		assert.Equal(t, game.Right, records[0].Moves[0].Direction)
		assert.Equal(t, 1, records[0].BlockedMoves)
	})

	t.Run("hazard and reward scoring", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Hazard, maze.CellPosition{Row: 0, Col: 1})
		place(m, maze.Reward, maze.CellPosition{Row: 1, Col: 0}, maze.CellPosition{Row: 2, Col: 0})
		e, s, r := setup(t, m)
		ctx := context.Background()

		right, left, down := keyFor(t, car, game.Right), keyFor(t, car, game.Left), keyFor(t, car, game.Down)

		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: right, At: t0.Add(time.Second)}))
		assert.Equal(t, record.Tally{Score: -10, Failures: 1}, s.Status().Tally)
		assert.Equal(t, maze.Empty, r.last().Grid[0][1], "hazard is removed after the hit")

		// Re-entering the cleared hazard cell costs nothing.
		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: left, At: t0.Add(2 * time.Second)}))
		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: right, At: t0.Add(3 * time.Second)}))
		assert.Equal(t, -10, s.Status().Tally.Score)

		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: left, At: t0.Add(4 * time.Second)}))
		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: down, At: t0.Add(5 * time.Second)}))
		assert.Equal(t, record.Tally{Score: 0, Successes: 1, Failures: 1}, s.Status().Tally)
		assert.Equal(t, maze.Empty, r.last().Grid[1][0])

		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: down, At: t0.Add(6 * time.Second)}))
		status := s.Status()
		assert.Equal(t, PhaseComplete, status.Phase)
		assert.Equal(t, record.Tally{Score: 10, Successes: 2, Failures: 1}, status.Tally)

		rec := s.Records()[0]
		assert.Equal(t, 2, rec.RewardsCollected)
		assert.Equal(t, 1, rec.HazardsHit)
	})

	t.Run("unbound key is rejected without moving", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 1, Col: 1})
		place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 1})
		e, s, r := setup(t, m)

		err := e.HandleInput(context.Background(), s, KeyInput{Key: "m", At: t0.Add(time.Second)})
		require.Error(t, err)
		assert.ErrorIs(t, err, game.ErrInvalidInput)
		assert.ErrorIs(t, err, game.ErrUnboundKey)
		assert.False(t, game.IsFatal(err))

		assert.Equal(t, "m", r.last().Rejected)
		assert.Equal(t, maze.CellPosition{Row: 1, Col: 1}, r.last().Vehicle)

		require.NoError(t, e.HandleInput(context.Background(), s, KeyInput{Key: keyFor(t, car, game.Up), At: t0.Add(2 * time.Second)}))
		rec := s.Records()[0]
		assert.Len(t, rec.RejectedKeys, 1)
		assert.Len(t, rec.Moves, 1)
	})
}

func TestScenarioA(t *testing.T) {
	m, err := maze.Generate(rng.New("maze-learn-v2-0-0"), 3, game.TrialSpec{Category: game.CarSmall})
	require.NoError(t, err)
	require.NotNil(t, m.Block)
	require.Empty(t, m.Hazards)

	persisted := make(chanPersister, 1)
	e := NewEngine(nil, persisted, nil)
	s := NewSession(record.Meta{SessionID: "scenario-a", StartedAt: t0}, nil, singlePool(m), Pool{}, 0)
	ctx := context.Background()
	require.NoError(t, e.Start(ctx, s, t0))

	car := game.MustDefaultCatalog()[game.CarSmall]
	for i, d := range m.OptimalDirections {
		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: keyFor(t, car, d), At: t0.Add(time.Duration(i+1) * time.Second)}))
	}

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].RewardsCollected)
	assert.Equal(t, 0, records[0].HazardsHit)
	assert.Equal(t, 1.0, records[0].Accuracy)
	assert.Equal(t, PhaseComplete, s.Status().Phase)

	select {
	case export := <-persisted:
		assert.Equal(t, "scenario-a", export.SessionID)
		assert.Equal(t, 4*time.Second, export.Elapsed)
		assert.Len(t, export.Records, 1)
	case <-time.After(time.Second):
		t.Fatal("session export was not persisted")
	}
}

func TestPlanning(t *testing.T) {
	catalog := game.MustDefaultCatalog()
	truck := catalog[game.Truck]

	// start (2,2); rewards along up, up, left, left; hazards off the route.
	build := func() *maze.Maze {
		m := emptyMaze(game.Truck, maze.CellPosition{Row: 2, Col: 2})
		place(m, maze.Reward,
			maze.CellPosition{Row: 1, Col: 2},
			maze.CellPosition{Row: 0, Col: 2},
			maze.CellPosition{Row: 0, Col: 1},
			maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Hazard, maze.CellPosition{Row: 2, Col: 1}, maze.CellPosition{Row: 1, Col: 1})
		m.OptimalDirections = []game.Direction{game.Up, game.Up, game.Left, game.Left}
		m.Spec = game.TrialSpec{Category: game.Truck, Hazard: true, HazardProb: 1}
		return m
	}

	setup := func(t *testing.T) (*Engine, *Session, *maze.Maze) {
		t.Helper()
		m := build()
		e := NewEngine(nil, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{}, nil, Pool{}, Pool{Mazes: []*maze.Maze{m, build()}, Order: []int{1, 0}}, 0)
		require.NoError(t, e.Start(context.Background(), s, t0))
		require.Equal(t, PhasePlanning, s.Status().Phase)
		return e, s, m
	}

	t.Run("wrong length is rejected before simulation", func(t *testing.T) {
		e, s, _ := setup(t)
		for _, plan := range []string{"ttn", "ttnnn", ""} {
			err := e.HandleInput(context.Background(), s, PlanInput{Plan: plan, At: t0.Add(time.Second)})
			require.Error(t, err, plan)
			assert.ErrorIs(t, err, game.ErrPlanLength)
			assert.ErrorIs(t, err, game.ErrInvalidInput)
		}
		status := s.Status()
		assert.Equal(t, 1, status.Trial)
		assert.Zero(t, status.Finished)
		assert.Equal(t, record.Tally{}, status.Tally)
	})

	t.Run("invalid character decodes to invalid without error", func(t *testing.T) {
		e, s, _ := setup(t)
		plan := keyFor(t, truck, game.Up) + "q" + keyFor(t, truck, game.Left) + keyFor(t, truck, game.Left)

		require.NoError(t, e.HandleInput(context.Background(), s, PlanInput{Plan: plan, At: t0.Add(3 * time.Second)}))

		rec := s.Records()[0]
		require.NotNil(t, rec.Plan)
		assert.Equal(t, game.DirectionInvalid, rec.Plan.Translated[1])
		assert.Equal(t, []bool{true, false, true, true}, rec.Plan.Valid)
		assert.Equal(t, 0.75, rec.Accuracy)
		assert.Equal(t, 3*time.Second, rec.ReactionTime)

		// up to (1,2) reward, stay, left into hazard (1,1), left to (1,0)
		assert.Equal(t, []maze.Cell{maze.Reward, maze.Empty, maze.Hazard, maze.Empty}, rec.PlanHits)
		assert.Equal(t, maze.CellPosition{Row: 1, Col: 0}, rec.End)
		assert.Equal(t, 1, rec.RewardsCollected)
		assert.Equal(t, 1, rec.HazardsHit)
		assert.Equal(t, 2, s.Status().Trial)
	})

	t.Run("optimal plan scores full accuracy", func(t *testing.T) {
		e, s, _ := setup(t)
		plan := "ttnn"
		require.NoError(t, e.HandleInput(context.Background(), s, PlanInput{Plan: plan, At: t0.Add(time.Second)}))
		require.NoError(t, e.HandleInput(context.Background(), s, PlanInput{Plan: plan, At: t0.Add(2 * time.Second)}))

		records := s.Records()
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, 1.0, rec.Accuracy)
			assert.Equal(t, 4, rec.RewardsCollected)
			assert.Equal(t, record.PhasePlanning, rec.Phase)
		}
		assert.Equal(t, PhaseComplete, s.Status().Phase)
	})

	t.Run("simulation leaves the pool maze untouched", func(t *testing.T) {
		m := build()
		before := m.Clone()
		out := SimulatePlan(m, []game.Direction{game.Up, game.Up, game.Left, game.Left})
		assert.Equal(t, before, m)
		assert.Equal(t, maze.CellPosition{Row: 0, Col: 0}, out.End)
	})
}

func TestPhaseSequence(t *testing.T) {
	catalog := game.MustDefaultCatalog()
	ctx := context.Background()

	t.Run("practice then learning then planning", func(t *testing.T) {
		learn := emptyMaze(game.CarBig, maze.CellPosition{Row: 0, Col: 0})
		place(learn, maze.Reward, maze.CellPosition{Row: 0, Col: 1})
		plan := emptyMaze(game.Truck, maze.CellPosition{Row: 0, Col: 0})
		place(plan, maze.Reward, maze.CellPosition{Row: 1, Col: 0})
		plan.OptimalDirections = []game.Direction{game.Down}

		r := &recordingRenderer{}
		e := NewEngine(r, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{}, maze.Practice(), singlePool(learn), singlePool(plan), 0)

		assert.ErrorIs(t, e.HandleInput(ctx, s, KeyInput{Key: "q", At: t0}), game.ErrPhaseSequence)
		require.NoError(t, e.Start(ctx, s, t0))
		assert.Equal(t, PhasePractice, s.Status().Phase)
		assert.ErrorIs(t, e.Start(ctx, s, t0), game.ErrPhaseSequence)

		assert.ErrorIs(t, e.HandleInput(ctx, s, PlanInput{Plan: "qqqq", At: t0}), game.ErrPhaseSequence)

		for _, k := range []string{"q", "c", "q", "c"} {
			require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: k, At: t0}))
		}
		assert.Equal(t, PhaseLearning, s.Status().Phase)
		assert.Equal(t, game.CarBig, r.last().Category)

		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: "x", At: t0}))
		assert.Equal(t, PhasePlanning, s.Status().Phase)
		assert.True(t, r.last().AwaitingPlan)
		assert.ErrorIs(t, e.HandleInput(ctx, s, KeyInput{Key: "t", At: t0}), game.ErrPhaseSequence)

		require.NoError(t, e.HandleInput(ctx, s, PlanInput{Plan: "bbbb", At: t0}))
		assert.Equal(t, PhaseComplete, s.Status().Phase)
		assert.ErrorIs(t, e.HandleInput(ctx, s, PlanInput{Plan: "bbbb", At: t0}), game.ErrPhaseSequence)

		records := s.Records()
		require.Len(t, records, 3)
		assert.Equal(t, []record.Phase{record.PhasePractice, record.PhaseLearning, record.PhasePlanning},
			[]record.Phase{records[0].Phase, records[1].Phase, records[2].Phase})
		assert.Equal(t, 1.0, records[0].Accuracy)

		export, ok := s.Export()
		require.True(t, ok)
		assert.Len(t, export.Records, 3)
	})

	t.Run("memory trials hide controls", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 1})
		m.Spec.Memory = true

		r := &recordingRenderer{}
		e := NewEngine(r, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{}, nil, singlePool(m), Pool{}, 0)
		require.NoError(t, e.Start(ctx, s, t0))
		assert.True(t, r.last().HideControls)
	})

	t.Run("reading beyond the pool is out of range", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 1})

		e := NewEngine(nil, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{}, nil, Pool{Mazes: []*maze.Maze{m}, Order: []int{3}}, Pool{}, 0)
		err := e.Start(ctx, s, t0)

		var tie *game.TrialIndexError
		require.True(t, errors.As(err, &tie))
		assert.ErrorIs(t, err, game.ErrTrialIndexOutOfRange)
		assert.True(t, game.IsFatal(err))
	})

	t.Run("start trial with a trial already open", func(t *testing.T) {
		m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 0, Col: 0})
		place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 1})

		e := NewEngine(nil, nil, &Options{Catalog: catalog})
		s := NewSession(record.Meta{}, nil, singlePool(m), Pool{}, 0)
		require.NoError(t, e.Start(ctx, s, t0))
		assert.ErrorIs(t, e.StartTrial(s, t0), game.ErrPhaseSequence)
	})
}

func TestSessionSerializesInputs(t *testing.T) {
	m := emptyMaze(game.CarSmall, maze.CellPosition{Row: 1, Col: 1})
	place(m, maze.Reward, maze.CellPosition{Row: 0, Col: 0})

	e := NewEngine(nil, nil, nil)
	s := NewSession(record.Meta{}, nil, singlePool(m), Pool{}, 0)
	require.NoError(t, e.Start(context.Background(), s, t0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.HandleInput(context.Background(), s, KeyInput{Key: "e", At: t0})
		}()
	}
	wg.Wait()

	status := s.Status()
	assert.Equal(t, PhaseLearning, status.Phase)
	assert.Equal(t, 1, status.Trial)
	assert.Zero(t, status.Finished)
}

func TestPracticeHazards(t *testing.T) {
	catalog := game.MustDefaultCatalog()
	ctx := context.Background()

	r := &recordingRenderer{}
	e := NewEngine(r, nil, &Options{Catalog: catalog, Penalty: 10, Reward: 10})
	s := NewSession(record.Meta{}, maze.Practice(), Pool{}, Pool{}, 0)
	require.NoError(t, e.Start(ctx, s, t0))
	require.Equal(t, PhasePractice, s.Status().Phase)

	t.Run("leaving the route costs the penalty", func(t *testing.T) {
		require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: "c", At: t0}))
		f := r.last()
		assert.Equal(t, maze.CellPosition{Row: 1, Col: 2}, f.Vehicle)
		assert.Equal(t, record.Tally{Score: -10, Failures: 1}, f.Tally)
		assert.Equal(t, maze.Empty, f.Grid[1][2])
		assert.Equal(t, maze.Hazard, f.Grid[2][2])
	})

	t.Run("collecting both rewards ends practice", func(t *testing.T) {
		for _, k := range []string{"q", "c", "q"} {
			require.NoError(t, e.HandleInput(ctx, s, KeyInput{Key: k, At: t0}))
		}
		status := s.Status()
		assert.Equal(t, PhaseComplete, status.Phase)
		assert.Equal(t, record.Tally{Score: 10, Successes: 2, Failures: 1}, status.Tally)

		records := s.Records()
		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].HazardsHit)
		assert.Equal(t, 2, records[0].RewardsCollected)
	})
}
