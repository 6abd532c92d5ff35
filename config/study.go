package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/queue"
	"gopkg.in/yaml.v3"
)

// minGridSize is the smallest grid holding a simple path of maze.PathSteps moves.
const minGridSize = 3

// KeyBindings are the four keys of a first-order vehicle.
type KeyBindings struct {
	Up    string `yaml:"up"`
	Down  string `yaml:"down"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// Seeds are the seed prefixes of the two maze pools.
type Seeds struct {
	Learning string `yaml:"learning"`
	Planning string `yaml:"planning"`
}

// Score holds the per-cell score changes.
type Score struct {
	Penalty int `yaml:"penalty"`
	Reward  int `yaml:"reward"`
}

// Study is the static configuration of one study.
type Study struct {
	ID               string                 `yaml:"id"`
	GridSize         int                    `yaml:"grid_size"`
	LearningTrials   int                    `yaml:"learning_trials"` // per category
	MemoryTrials     int                    `yaml:"memory_trials"`   // per category
	HighHazard       float64                `yaml:"high_hazard"`
	LowHazard        float64                `yaml:"low_hazard"`
	PlanningReps     map[string]int         `yaml:"planning_reps"`
	LearnAllowed     []string               `yaml:"learn_allowed"`
	PlanAllowed      []string               `yaml:"plan_allowed"`
	Bindings         map[string]KeyBindings `yaml:"bindings"`
	HazardIneligible []string               `yaml:"hazard_ineligible"`
	Seeds            Seeds                  `yaml:"seeds"`
	Score            Score                  `yaml:"score"`
	PlanLength       int                    `yaml:"plan_length"`
	MaxAttempts      int                    `yaml:"max_attempts"`
	Practice         bool                   `yaml:"practice"`
}

// DefaultStudy returns the configuration the study was run with.
func DefaultStudy() *Study {
	return &Study{
		ID:             "navstudy",
		GridSize:       3,
		LearningTrials: 15,
		MemoryTrials:   3,
		HighHazard:     0.9,
		LowHazard:      0.1,
		PlanningReps: map[string]int{
			"car_small":           3,
			"car_big":             3,
			"car_medium":          6,
			"truck_medium":        3,
			"pickup_truck_medium": 3,
			"tow_truck_medium":    6,
		},
		LearnAllowed: []string{"truck_medium", "pickup_truck_medium", "car_small", "car_big"},
		PlanAllowed:  []string{"truck_medium", "pickup_truck_medium", "car_small", "car_big", "car_medium", "tow_truck_medium"},
		Bindings: map[string]KeyBindings{
			"car_small":           {Up: "e", Down: "c", Left: "q", Right: "w"},
			"car_big":             {Up: "e", Down: "c", Left: "z", Right: "x"},
			"truck_medium":        {Up: "t", Down: "b", Left: "n", Right: "m"},
			"pickup_truck_medium": {Up: "t", Down: "b", Left: "y", Right: "u"},
		},
		Seeds:       Seeds{Learning: "maze-learn-v2", Planning: "maze-plan-v2"},
		Score:       Score{Penalty: 10, Reward: 10},
		PlanLength:  game.RouteLength,
		MaxAttempts: 1000,
		Practice:    true,
	}
}

// LoadStudy reads a YAML study file over the defaults. An empty path returns
// the defaults.
func LoadStudy(path string) (*Study, error) {
	study := DefaultStudy()
	if path == "" {
		return study, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading study config: %w", err)
	}
	if err := yaml.Unmarshal(data, study); err != nil {
		return nil, fmt.Errorf("parsing study config: %w", err)
	}
	if err := study.Validate(); err != nil {
		return nil, fmt.Errorf("invalid study config %s: %w", path, err)
	}
	return study, nil
}

// Validate checks that the configuration is usable.
func (s *Study) Validate() error {
	if s.GridSize < minGridSize {
		return fmt.Errorf("grid_size must be at least %d to fit a %d-step reward path, got %d",
			minGridSize, maze.PathSteps, s.GridSize)
	}
	if s.PlanLength <= 0 {
		return fmt.Errorf("plan_length must be positive, got %d", s.PlanLength)
	}
	if s.LearningTrials < 0 || s.MemoryTrials < 0 {
		return errors.New("learning_trials and memory_trials must not be negative")
	}
	for name, p := range map[string]float64{"high_hazard": s.HighHazard, "low_hazard": s.LowHazard} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, p)
		}
	}
	if s.Seeds.Learning == "" || s.Seeds.Planning == "" {
		return errors.New("both seed prefixes are required")
	}

	if _, err := s.Catalog(); err != nil {
		return err
	}
	if _, err := s.Quotas(); err != nil {
		return err
	}
	return nil
}

// Catalog resolves the bindings into a vehicle catalog.
func (s *Study) Catalog() (game.Catalog, error) {
	bindings := make(map[game.Category]game.Bindings, len(s.Bindings))
	for name, b := range s.Bindings {
		c, err := game.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("bindings: %w", err)
		}
		bindings[c] = game.Bindings{Up: b.Up, Down: b.Down, Left: b.Left, Right: b.Right}
	}

	ineligible, err := parseCategories(s.HazardIneligible)
	if err != nil {
		return nil, fmt.Errorf("hazard_ineligible: %w", err)
	}
	return game.NewCatalog(bindings, ineligible...)
}

// Quotas converts the trial tables into queue quotas.
func (s *Study) Quotas() (queue.Quotas, error) {
	learn, err := parseCategories(s.LearnAllowed)
	if err != nil {
		return queue.Quotas{}, fmt.Errorf("learn_allowed: %w", err)
	}
	plan, err := parseCategories(s.PlanAllowed)
	if err != nil {
		return queue.Quotas{}, fmt.Errorf("plan_allowed: %w", err)
	}

	reps := make(map[game.Category]int, len(s.PlanningReps))
	for name, n := range s.PlanningReps {
		c, err := game.ParseCategory(name)
		if err != nil {
			return queue.Quotas{}, fmt.Errorf("planning_reps: %w", err)
		}
		if n < 0 {
			return queue.Quotas{}, fmt.Errorf("planning_reps: %s must not be negative", name)
		}
		reps[c] = n
	}

	return queue.Quotas{
		LearningTrials: s.LearningTrials,
		MemoryTrials:   s.MemoryTrials,
		HighHazard:     s.HighHazard,
		LowHazard:      s.LowHazard,
		PlanningReps:   reps,
		LearnAllowed:   learn,
		PlanAllowed:    plan,
	}, nil
}

func parseCategories(names []string) ([]game.Category, error) {
	out := make([]game.Category, 0, len(names))
	for _, name := range names {
		c, err := game.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
