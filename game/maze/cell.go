package maze

import (
	"fmt"

	"github.com/beka-birhanu/navstudy/game"
)

// Cell is the content of one grid square.
type Cell int

// Cell kinds.
const (
	Empty Cell = iota
	Reward
	Hazard
	Block
)

func (c Cell) String() string {
	switch c {
	case Reward:
		return "reward"
	case Hazard:
		return "hazard"
	case Block:
		return "block"
	default:
		return "empty"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cell) UnmarshalText(b []byte) error {
	switch string(b) {
	case "empty":
		*c = Empty
	case "reward":
		*c = Reward
	case "hazard":
		*c = Hazard
	case "block":
		*c = Block
	default:
		return fmt.Errorf("unknown cell %q", b)
	}
	return nil
}

// symbol is the single-character ASCII rendering of the cell.
func (c Cell) symbol() string {
	switch c {
	case Reward:
		return "$"
	case Hazard:
		return "!"
	case Block:
		return "#"
	default:
		return " "
	}
}

// CellPosition represents the position of a cell in the maze grid.
type CellPosition struct {
	Row int `json:"row" bson:"row"` // Row index of the cell
	Col int `json:"col" bson:"col"` // Column index of the cell
}

func (p CellPosition) String() string {
	return fmt.Sprintf("%d,%d", p.Row, p.Col)
}

// Step returns the position one move away in direction d, without bounds checks.
func (p CellPosition) Step(d game.Direction) CellPosition {
	dRow, dCol := d.Delta()
	return CellPosition{Row: p.Row + dRow, Col: p.Col + dCol}
}

// Move represents a movement from one cell to another in a specific direction.
type Move struct {
	From      CellPosition   // Starting cell
	To        CellPosition   // Destination cell
	Direction game.Direction // Direction of the move
}

// directionBetween returns the direction of a single cardinal step from a to b.
func directionBetween(a, b CellPosition) game.Direction {
	for _, d := range game.Directions {
		if a.Step(d) == b {
			return d
		}
	}
	return game.DirectionInvalid
}
