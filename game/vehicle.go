package game

import (
	"fmt"
	"sort"
	"strings"
)

// Direction is one of the four cardinal moves.
type Direction int

// Cardinal directions. DirectionInvalid marks a key that maps to no move.
const (
	DirectionInvalid Direction = iota
	Up
	Down
	Left
	Right
)

// Directions lists the four cardinal moves in canonical order.
var Directions = [4]Direction{Up, Down, Left, Right}

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "invalid"
	}
}

// Delta returns the row and column offsets of a single step.
func (d Direction) Delta() (dRow, dCol int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	default:
		return 0, 0
	}
}

// Vertical reports whether the direction is up or down.
func (d Direction) Vertical() bool {
	return d == Up || d == Down
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection parses a direction name.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "invalid":
		return DirectionInvalid, nil
	}
	return DirectionInvalid, fmt.Errorf("unknown direction %q", s)
}

// Size is the size class of a vehicle.
type Size int

// Vehicle size classes.
const (
	Small Size = iota + 1
	Medium
	Big
)

func (s Size) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Big:
		return "big"
	default:
		return "unknown"
	}
}

// Category is the closed set of vehicle categories used by the study.
type Category int

// Vehicle categories. CarMedium and TowTruck are composites: they accept the
// keys of both of their siblings.
const (
	CarSmall Category = iota + 1
	CarBig
	CarMedium
	Truck
	PickupTruck
	TowTruck
)

// Categories lists every category in declaration order.
var Categories = []Category{CarSmall, CarBig, CarMedium, Truck, PickupTruck, TowTruck}

var categoryNames = map[Category]string{
	CarSmall:    "car_small",
	CarBig:      "car_big",
	CarMedium:   "car_medium",
	Truck:       "truck_medium",
	PickupTruck: "pickup_truck_medium",
	TowTruck:    "tow_truck_medium",
}

// String returns the configuration name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Kind returns the vehicle body type, e.g. "car" or "pickup_truck".
func (c Category) Kind() string {
	switch c {
	case CarSmall, CarBig, CarMedium:
		return "car"
	case Truck:
		return "truck"
	case PickupTruck:
		return "pickup_truck"
	case TowTruck:
		return "tow_truck"
	default:
		return "unknown"
	}
}

// Size returns the size class of the category.
func (c Category) Size() Size {
	switch c {
	case CarSmall:
		return Small
	case CarBig:
		return Big
	default:
		return Medium
	}
}

// Siblings returns the two first-order categories whose keys a composite
// category accepts. The first sibling contributes a bias of -1, the second +1.
func (c Category) Siblings() (Category, Category, bool) {
	switch c {
	case CarMedium:
		return CarSmall, CarBig, true
	case TowTruck:
		return PickupTruck, Truck, true
	default:
		return 0, 0, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a configuration name such as "car_small".
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Bindings holds the key bound to each direction for a first-order vehicle.
type Bindings struct {
	Up    string
	Down  string
	Left  string
	Right string
}

// Vehicle is a category with its resolved key map and hazard eligibility.
type Vehicle struct {
	Category       Category
	HazardEligible bool
	keys           map[string]Direction
	bias           map[string]int
}

// Direction maps a key to its direction for this vehicle.
func (v Vehicle) Direction(key string) (Direction, bool) {
	d, ok := v.keys[strings.ToLower(key)]
	return d, ok
}

// Bias returns -1 or +1 when a composite vehicle's key belongs to only one
// sibling, and 0 otherwise.
func (v Vehicle) Bias(key string) int {
	return v.bias[strings.ToLower(key)]
}

// Composite reports whether the vehicle accepts the keys of two siblings.
func (v Vehicle) Composite() bool {
	_, _, ok := v.Category.Siblings()
	return ok
}

// Keys returns the bound keys in sorted order.
func (v Vehicle) Keys() []string {
	keys := make([]string, 0, len(v.keys))
	for k := range v.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeysFor returns the sorted keys bound to d.
func (v Vehicle) KeysFor(d Direction) []string {
	var keys []string
	for k, dir := range v.keys {
		if dir == d {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Catalog resolves categories to vehicles.
type Catalog map[Category]Vehicle

// DefaultBindings returns the key bindings of the first-order categories.
func DefaultBindings() map[Category]Bindings {
	return map[Category]Bindings{
		CarSmall:    {Up: "e", Down: "c", Left: "q", Right: "w"},
		CarBig:      {Up: "e", Down: "c", Left: "z", Right: "x"},
		Truck:       {Up: "t", Down: "b", Left: "n", Right: "m"},
		PickupTruck: {Up: "t", Down: "b", Left: "y", Right: "u"},
	}
}

// NewCatalog builds a catalog from first-order bindings. Composite categories
// are derived from their siblings. Every category not listed in ineligible is
// hazard eligible.
func NewCatalog(bindings map[Category]Bindings, ineligible ...Category) (Catalog, error) {
	noHazard := make(map[Category]bool, len(ineligible))
	for _, c := range ineligible {
		noHazard[c] = true
	}

	catalog := make(Catalog, len(Categories))
	for _, c := range Categories {
		if _, _, composite := c.Siblings(); composite {
			continue
		}
		b, ok := bindings[c]
		if !ok {
			return nil, fmt.Errorf("%w: no bindings for %s", ErrUnknownCategory, c)
		}
		keys, err := keyMap(b)
		if err != nil {
			return nil, fmt.Errorf("bindings for %s: %w", c, err)
		}
		catalog[c] = Vehicle{Category: c, HazardEligible: !noHazard[c], keys: keys}
	}

	for _, c := range Categories {
		a, b, composite := c.Siblings()
		if !composite {
			continue
		}
		keys := make(map[string]Direction)
		bias := make(map[string]int)
		for k, d := range catalog[a].keys {
			keys[k] = d
			bias[k] = -1
		}
		for k, d := range catalog[b].keys {
			if prev, ok := keys[k]; ok {
				if prev != d {
					return nil, fmt.Errorf("%w: key %q maps to %s and %s in %s", ErrConflictingBinding, k, prev, d, c)
				}
				bias[k] = 0
				continue
			}
			keys[k] = d
			bias[k] = 1
		}
		catalog[c] = Vehicle{Category: c, HazardEligible: !noHazard[c], keys: keys, bias: bias}
	}

	return catalog, nil
}

// MustDefaultCatalog returns the catalog built from DefaultBindings.
func MustDefaultCatalog() Catalog {
	c, err := NewCatalog(DefaultBindings())
	if err != nil {
		panic(err)
	}
	return c
}

func keyMap(b Bindings) (map[string]Direction, error) {
	keys := make(map[string]Direction, 4)
	for _, pair := range []struct {
		key string
		dir Direction
	}{{b.Up, Up}, {b.Down, Down}, {b.Left, Left}, {b.Right, Right}} {
		k := strings.ToLower(strings.TrimSpace(pair.key))
		if len(k) != 1 {
			return nil, fmt.Errorf("%w: %s key must be a single character, got %q", ErrConflictingBinding, pair.dir, pair.key)
		}
		if prev, ok := keys[k]; ok {
			return nil, fmt.Errorf("%w: key %q bound to %s and %s", ErrConflictingBinding, k, prev, pair.dir)
		}
		keys[k] = pair.dir
	}
	return keys, nil
}

// TrialSpec is one slot of a trial queue: the vehicle category and the
// realized terrain condition for that slot.
type TrialSpec struct {
	Category   Category `json:"category"`
	Hazard     bool     `json:"hazard"`
	HazardProb float64  `json:"hazardProb"`
	Memory     bool     `json:"memory,omitempty"`
}
