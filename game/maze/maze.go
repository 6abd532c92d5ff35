/*
Package maze provides tools for creating trial mazes.

A maze is a square grid holding a four-step reward path that starts at the
vehicle's start cell, plus either two hazard tiles or one block tile. Layouts
are synthesized with a randomized breadth-first search driven by a seeded
random source, so a seed fully determines the maze.

The package also builds deduplicated maze pools and offers an ASCII
visualization of a maze.
*/
package maze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/rng"
)

const (
	// PathSteps is the number of moves in every reward path.
	PathSteps = 4

	hazardCount = 2
	minGridSize = 2
)

// PathSynthesisError reports that no simple path of PathSteps moves exists
// from the chosen start cell.
type PathSynthesisError struct {
	Start CellPosition
	Size  int
}

func (e *PathSynthesisError) Error() string {
	return fmt.Sprintf("no %d-step path from %s in a %dx%d grid", PathSteps, e.Start, e.Size, e.Size)
}

// Unwrap returns game.ErrPathSynthesis.
func (e *PathSynthesisError) Unwrap() error {
	return game.ErrPathSynthesis
}

// Maze is one trial layout.
type Maze struct {
	ID                string           `json:"id"`
	Size              int              `json:"size"`
	Grid              [][]Cell         `json:"grid"`
	Start             CellPosition     `json:"start"`
	Path              []CellPosition   `json:"path"` // start followed by one cell per optimal move
	Rewards           []CellPosition   `json:"rewards"`
	OptimalDirections []game.Direction `json:"optimalDirections"`
	Hazards           []CellPosition   `json:"hazards,omitempty"`
	Block             *CellPosition    `json:"block,omitempty"`
	Spec              game.TrialSpec   `json:"spec"`
}

// newGrid returns a size x size grid of empty cells.
func newGrid(size int) [][]Cell {
	grid := make([][]Cell, size)
	for i := range grid {
		grid[i] = make([]Cell, size)
	}
	return grid
}

// Generate builds one maze for spec using r. The reward path is synthesized
// from a uniformly drawn start cell; hazard specs get two hazard tiles and all
// others a single block tile.
func Generate(r rng.Float64er, size int, spec game.TrialSpec) (*Maze, error) {
	if size < minGridSize {
		return nil, fmt.Errorf("%w: grid size %d", game.ErrPathSynthesis, size)
	}

	m := &Maze{
		Size: size,
		Grid: newGrid(size),
		Spec: spec,
	}

	start := CellPosition{Col: rng.Intn(r, size), Row: rng.Intn(r, size)}
	path, err := m.synthesizePath(r, start)
	if err != nil {
		return nil, err
	}

	m.Start = start
	m.Path = path
	for i := 1; i < len(path); i++ {
		m.Grid[path[i].Row][path[i].Col] = Reward
		m.Rewards = append(m.Rewards, path[i])
		m.OptimalDirections = append(m.OptimalDirections, directionBetween(path[i-1], path[i]))
	}

	if spec.Hazard {
		m.Hazards, err = m.placeTerrain(r, Hazard, hazardCount)
	} else {
		var blocks []CellPosition
		blocks, err = m.placeTerrain(r, Block, 1)
		if err == nil {
			m.Block = &blocks[0]
		}
	}
	if err != nil {
		return nil, err
	}

	return m, nil
}

// InBound reports whether the position lies inside the grid.
func (m *Maze) InBound(p CellPosition) bool {
	return p.Row >= 0 && p.Row < m.Size && p.Col >= 0 && p.Col < m.Size
}

// At returns the cell at p. p must be in bounds.
func (m *Maze) At(p CellPosition) Cell {
	return m.Grid[p.Row][p.Col]
}

// neighbors finds all in-bound moves from a given cell position, in the order
// of dirs.
func (m *Maze) neighbors(pos CellPosition, dirs []game.Direction) []Move {
	var result []Move
	for _, dir := range dirs {
		neighbor := pos.Step(dir)
		if m.InBound(neighbor) {
			result = append(result, Move{From: pos, To: neighbor, Direction: dir})
		}
	}
	return result
}

// synthesizePath runs a breadth-first search over simple paths from start and
// returns the first path of PathSteps moves it discovers. Directions are
// reshuffled with r at every expansion.
func (m *Maze) synthesizePath(r rng.Float64er, start CellPosition) ([]CellPosition, error) {
	queue := [][]CellPosition{{start}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		dirs := game.Directions
		rng.Shuffle(r, len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

		for _, nbr := range m.neighbors(path[len(path)-1], dirs[:]) {
			if contains(path, nbr.To) {
				continue
			}

			next := make([]CellPosition, len(path), len(path)+1)
			copy(next, path)
			next = append(next, nbr.To)
			if len(next) == PathSteps+1 {
				return next, nil
			}
			queue = append(queue, next)
		}
	}

	return nil, &PathSynthesisError{Start: start, Size: m.Size}
}

// placeTerrain places count tiles of kind by rejection sampling over cells
// that are empty and not the start cell.
func (m *Maze) placeTerrain(r rng.Float64er, kind Cell, count int) ([]CellPosition, error) {
	free := 0
	for row := 0; row < m.Size; row++ {
		for col := 0; col < m.Size; col++ {
			p := CellPosition{Row: row, Col: col}
			if m.At(p) == Empty && p != m.Start {
				free++
			}
		}
	}
	if free < count {
		return nil, fmt.Errorf("%w: need %d %s tiles, %d free", game.ErrNoFreeCell, count, kind, free)
	}

	placed := make([]CellPosition, 0, count)
	for len(placed) < count {
		p := CellPosition{Col: rng.Intn(r, m.Size), Row: rng.Intn(r, m.Size)}
		if m.At(p) != Empty || p == m.Start {
			continue
		}
		m.Grid[p.Row][p.Col] = kind
		placed = append(placed, p)
	}

	return placed, nil
}

// Signature returns the canonical topology key of the maze: the ordered path
// coordinates, the sorted hazard coordinates and the block coordinate.
func (m *Maze) Signature() string {
	var b strings.Builder
	b.WriteString("P:")
	for i, p := range m.Path {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(p.String())
	}

	hazards := make([]string, 0, len(m.Hazards))
	for _, h := range m.Hazards {
		hazards = append(hazards, h.String())
	}
	sort.Strings(hazards)
	b.WriteString("|H:")
	b.WriteString(strings.Join(hazards, ";"))

	b.WriteString("|B:")
	if m.Block != nil {
		b.WriteString(m.Block.String())
	}
	return b.String()
}

// Clone returns a deep copy of the maze, so live play never mutates a pool.
func (m *Maze) Clone() *Maze {
	c := *m
	c.Grid = make([][]Cell, len(m.Grid))
	for i, row := range m.Grid {
		c.Grid[i] = append([]Cell(nil), row...)
	}
	c.Path = append([]CellPosition(nil), m.Path...)
	c.Rewards = append([]CellPosition(nil), m.Rewards...)
	c.OptimalDirections = append([]game.Direction(nil), m.OptimalDirections...)
	c.Hazards = append([]CellPosition(nil), m.Hazards...)
	if m.Block != nil {
		b := *m.Block
		c.Block = &b
	}
	return &c
}

// String provides a textual representation of the maze with the vehicle at
// its start cell.
func (m *Maze) String() string {
	return Render(m.Grid, m.Start)
}

// Render draws a grid with the vehicle marked as "V".
func Render(grid [][]Cell, vehicle CellPosition) string {
	var output strings.Builder
	width := len(grid)

	// Top boundary
	output.WriteString("+" + strings.Repeat("---+", width) + "\n")

	for row := range grid {
		output.WriteString("|")
		for col, cell := range grid[row] {
			symbol := cell.symbol()
			if vehicle.Row == row && vehicle.Col == col {
				symbol = "V"
			}
			output.WriteString(" " + symbol + " |")
		}
		output.WriteString("\n+" + strings.Repeat("---+", width) + "\n")
	}

	return output.String()
}

func contains(path []CellPosition, p CellPosition) bool {
	for _, c := range path {
		if c == p {
			return true
		}
	}
	return false
}
