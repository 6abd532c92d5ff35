/*
Package queue expands per-category quotas into the ordered trial specs of each
phase and draws the per-participant presentation order over a pool.
*/
package queue

import (
	"errors"
	"fmt"
	"math"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/rng"
)

const planningHazard = 1.0

// Quotas is the declarative description of both trial queues.
type Quotas struct {
	LearningTrials int // regular learning trials per category
	MemoryTrials   int // hidden-controls learning trials per category
	HighHazard     float64
	LowHazard      float64
	PlanningReps   map[game.Category]int
	LearnAllowed   []game.Category
	PlanAllowed    []game.Category
}

// Queue is the ordered spec list of one phase.
type Queue struct {
	Specs []game.TrialSpec `json:"specs"`
	// HighHazard is the category picked for the high hazard probability. It
	// is zero for the planning queue.
	HighHazard game.Category `json:"highHazard,omitempty"`
}

// Builder builds trial queues for one study configuration.
type Builder struct {
	catalog game.Catalog
	quotas  Quotas
}

// NewBuilder validates the quotas against the catalog.
func NewBuilder(catalog game.Catalog, quotas Quotas) (*Builder, error) {
	for _, p := range []float64{quotas.HighHazard, quotas.LowHazard} {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("hazard probability %v outside [0, 1]", p)
		}
	}
	if quotas.LearningTrials < 0 || quotas.MemoryTrials < 0 {
		return nil, errors.New("negative learning quota")
	}

	for _, list := range [][]game.Category{quotas.LearnAllowed, quotas.PlanAllowed} {
		for _, c := range list {
			if _, ok := catalog[c]; !ok {
				return nil, fmt.Errorf("%w: %s", game.ErrUnknownCategory, c)
			}
		}
	}
	for c, n := range quotas.PlanningReps {
		if _, ok := catalog[c]; !ok {
			return nil, fmt.Errorf("%w: %s", game.ErrUnknownCategory, c)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative planning repetitions for %s", c)
		}
	}

	return &Builder{catalog: catalog, quotas: quotas}, nil
}

// Learning builds the learning queue. A hazard-eligible category drawn with r
// gets the high hazard probability, every other eligible category the low
// one and ineligible categories never see hazards. Each category's hazard
// share is realized exactly. Memory trials follow all regular trials.
func (b *Builder) Learning(r rng.Float64er) Queue {
	var eligible []game.Category
	for _, c := range b.quotas.LearnAllowed {
		if b.catalog[c].HazardEligible {
			eligible = append(eligible, c)
		}
	}

	q := Queue{}
	if len(eligible) > 0 {
		q.HighHazard = eligible[rng.Intn(r, len(eligible))]
	}

	prob := func(c game.Category) float64 {
		switch {
		case !b.catalog[c].HazardEligible:
			return 0
		case c == q.HighHazard:
			return b.quotas.HighHazard
		default:
			return b.quotas.LowHazard
		}
	}

	for _, c := range b.quotas.LearnAllowed {
		q.Specs = append(q.Specs, balanced(r, c, prob(c), b.quotas.LearningTrials, false)...)
	}
	for _, c := range b.quotas.LearnAllowed {
		q.Specs = append(q.Specs, balanced(r, c, prob(c), b.quotas.MemoryTrials, true)...)
	}

	return q
}

// Planning builds the planning queue from the repetition table. Every
// planning trial carries hazards.
func (b *Builder) Planning() Queue {
	q := Queue{}
	for _, c := range b.quotas.PlanAllowed {
		for i := 0; i < b.quotas.PlanningReps[c]; i++ {
			q.Specs = append(q.Specs, game.TrialSpec{Category: c, Hazard: true, HazardProb: planningHazard})
		}
	}
	return q
}

// PresentationOrder returns a permutation of the pool indices [0, n).
func PresentationOrder(r rng.Float64er, n int) []int {
	return rng.Perm(r, n)
}

// balanced returns n specs of category c of which exactly round(p*n) carry
// hazards, in shuffled order.
func balanced(r rng.Float64er, c game.Category, p float64, n int, memory bool) []game.TrialSpec {
	hazards := int(math.Round(p * float64(n)))
	specs := make([]game.TrialSpec, n)
	for i := range specs {
		specs[i] = game.TrialSpec{Category: c, Hazard: i < hazards, HazardProb: p, Memory: memory}
	}
	rng.Shuffle(r, n, func(i, j int) { specs[i], specs[j] = specs[j], specs[i] })
	return specs
}
