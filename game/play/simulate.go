package play

import (
	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
)

// PlanOutcome is the result of replaying a plan offline.
type PlanOutcome struct {
	Hits []maze.Cell // cell entered (or bumped, for blocks) at each step
	End  maze.CellPosition
}

// step moves from pos in direction d on m, mutating m's grid. The target is
// clamped to the grid. Blocks cancel the move; hazards and rewards are
// consumed on entry. Invalid directions do not move.
func step(m *maze.Maze, pos maze.CellPosition, d game.Direction) (to maze.CellPosition, hit maze.Cell, blocked bool) {
	to = pos.Step(d)
	to.Row = clamp(to.Row, m.Size)
	to.Col = clamp(to.Col, m.Size)

	switch cell := m.At(to); cell {
	case maze.Block:
		return pos, maze.Block, true
	case maze.Hazard, maze.Reward:
		m.Grid[to.Row][to.Col] = maze.Empty
		return to, cell, false
	default:
		return to, maze.Empty, false
	}
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v > size-1 {
		return size - 1
	}
	return v
}

// SimulatePlan replays dirs from the maze's start cell on a private copy of
// the maze with the live-play movement rules. The maze itself is not modified.
func SimulatePlan(m *maze.Maze, dirs []game.Direction) PlanOutcome {
	local := m.Clone()
	pos := local.Start
	out := PlanOutcome{Hits: make([]maze.Cell, 0, len(dirs))}

	for _, d := range dirs {
		var hit maze.Cell
		pos, hit, _ = step(local, pos, d)
		out.Hits = append(out.Hits, hit)
	}
	out.End = pos
	return out
}
