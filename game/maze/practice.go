package maze

import "github.com/beka-birhanu/navstudy/game"

// PracticeSize is the side length of the practice maze.
const PracticeSize = 3

// Practice returns the fixed warm-up maze: the small car starts in the
// top-right corner, two rewards sit on the route left, down, left, down and
// two hazards fill the right column below the start.
func Practice() *Maze {
	m := &Maze{
		ID:    "practice-0",
		Size:  PracticeSize,
		Grid:  newGrid(PracticeSize),
		Start: CellPosition{Row: 0, Col: PracticeSize - 1},
		Path: []CellPosition{
			{Row: 0, Col: 2},
			{Row: 0, Col: 1},
			{Row: 1, Col: 1},
			{Row: 1, Col: 0},
			{Row: 2, Col: 0},
		},
		Rewards:           []CellPosition{{Row: 1, Col: 1}, {Row: 2, Col: 0}},
		OptimalDirections: []game.Direction{game.Left, game.Down, game.Left, game.Down},
		Hazards:           []CellPosition{{Row: 1, Col: 2}, {Row: 2, Col: 2}},
		Spec:              game.TrialSpec{Category: game.CarSmall},
	}

	for _, r := range m.Rewards {
		m.Grid[r.Row][r.Col] = Reward
	}
	for _, h := range m.Hazards {
		m.Grid[h.Row][h.Col] = Hazard
	}
	return m
}
