/*
Package record accumulates per-trial telemetry and assembles the session
export handed to persistence.

A Recorder holds at most one open TrialRecord. Begin opens it, Move, Reject
and Plan append to it, and Finalize closes it, computes its totals and appends
it to the session's ordered list. Finalized records are never touched again.
*/
package record

import (
	"errors"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
)

// Phase tags a record with the phase it was played in.
type Phase string

// Phases in session order.
const (
	PhasePractice Phase = "practice"
	PhaseLearning Phase = "learning"
	PhasePlanning Phase = "planning"
)

var (
	ErrNoOpenTrial    = errors.New("no trial is being recorded")
	ErrTrialStillOpen = errors.New("previous trial was not finalized")
)

// MoveEntry is one accepted key press during live play.
type MoveEntry struct {
	Key       string            `json:"key" bson:"key"`
	Direction game.Direction    `json:"direction" bson:"direction"`
	From      maze.CellPosition `json:"from" bson:"from"`
	To        maze.CellPosition `json:"to" bson:"to"`
	Blocked   bool              `json:"blocked,omitempty" bson:"blocked,omitempty"`
	Hit       maze.Cell         `json:"hit" bson:"hit"`
	At        time.Time         `json:"at" bson:"at"`
	Latency   time.Duration     `json:"latency" bson:"latency"` // since the previous move or the trial start
}

// Rejection is a key outside the active vehicle's bindings.
type Rejection struct {
	Key string    `json:"key" bson:"key"`
	At  time.Time `json:"at" bson:"at"`
}

// TrialRecord is the telemetry of one trial.
type TrialRecord struct {
	Phase        Phase         `json:"phase" bson:"phase"`
	Index        int           `json:"index" bson:"index"` // 1-based within the phase
	MazeID       string        `json:"mazeId" bson:"maze_id"`
	Category     game.Category `json:"category" bson:"category"`
	Size         string        `json:"size" bson:"size"`
	Kind         string        `json:"kind" bson:"kind"`
	Hazard       bool          `json:"hazard" bson:"hazard"`
	HazardProb   float64       `json:"hazardProb" bson:"hazard_prob"`
	Memory       bool          `json:"memory,omitempty" bson:"memory,omitempty"`
	ControlsKeys []string      `json:"controlsKeys" bson:"controls_keys"`

	Start   maze.CellPosition   `json:"start" bson:"start"`
	End     maze.CellPosition   `json:"end" bson:"end"`
	Optimal []game.Direction    `json:"optimal" bson:"optimal"`
	Rewards []maze.CellPosition `json:"rewards" bson:"rewards"`
	Hazards []maze.CellPosition `json:"hazards,omitempty" bson:"hazards,omitempty"`
	Block   *maze.CellPosition  `json:"block,omitempty" bson:"block,omitempty"`

	Moves        []MoveEntry   `json:"moves,omitempty" bson:"moves,omitempty"`
	RejectedKeys []Rejection   `json:"rejectedKeys,omitempty" bson:"rejected_keys,omitempty"`
	Plan         *PlanDecoding `json:"plan,omitempty" bson:"plan,omitempty"`
	PlanHits     []maze.Cell   `json:"planHits,omitempty" bson:"plan_hits,omitempty"`
	ReactionTime time.Duration `json:"reactionTime,omitempty" bson:"reaction_time,omitempty"`

	Realized         []game.Direction `json:"realized" bson:"realized"`
	RewardsCollected int              `json:"rewardsCollected" bson:"rewards_collected"`
	HazardsHit       int              `json:"hazardsHit" bson:"hazards_hit"`
	BlockedMoves     int              `json:"blockedMoves" bson:"blocked_moves"`
	Accuracy         float64          `json:"accuracy" bson:"accuracy"`

	StartedAt time.Time     `json:"startedAt" bson:"started_at"`
	EndedAt   time.Time     `json:"endedAt" bson:"ended_at"`
	Duration  time.Duration `json:"duration" bson:"duration"`
}

// Recorder builds the ordered record list of one session. It is not safe for
// concurrent use; the engine serializes access through the session.
type Recorder struct {
	open      *TrialRecord
	lastEvent time.Time
	records   []TrialRecord
}

// Begin opens a record for a trial played on m with vehicle v.
func (r *Recorder) Begin(phase Phase, index int, m *maze.Maze, v game.Vehicle, at time.Time) error {
	if r.open != nil {
		return ErrTrialStillOpen
	}

	r.open = &TrialRecord{
		Phase:        phase,
		Index:        index,
		MazeID:       m.ID,
		Category:     m.Spec.Category,
		Size:         m.Spec.Category.Size().String(),
		Kind:         m.Spec.Category.Kind(),
		Hazard:       m.Spec.Hazard,
		HazardProb:   m.Spec.HazardProb,
		Memory:       m.Spec.Memory,
		ControlsKeys: v.Keys(),
		Start:        m.Start,
		End:          m.Start,
		Optimal:      append([]game.Direction(nil), m.OptimalDirections...),
		Rewards:      append([]maze.CellPosition(nil), m.Rewards...),
		Hazards:      append([]maze.CellPosition(nil), m.Hazards...),
		StartedAt:    at,
	}
	if m.Block != nil {
		b := *m.Block
		r.open.Block = &b
	}
	r.lastEvent = at
	return nil
}

// Move appends an accepted move and stamps its latency.
func (r *Recorder) Move(e MoveEntry) error {
	if r.open == nil {
		return ErrNoOpenTrial
	}
	e.Latency = e.At.Sub(r.lastEvent)
	r.lastEvent = e.At

	r.open.Moves = append(r.open.Moves, e)
	r.open.Realized = append(r.open.Realized, e.Direction)
	r.open.End = e.To
	switch {
	case e.Blocked:
		r.open.BlockedMoves++
	case e.Hit == maze.Reward:
		r.open.RewardsCollected++
	case e.Hit == maze.Hazard:
		r.open.HazardsHit++
	}
	return nil
}

// Reject logs a key that mapped to no direction.
func (r *Recorder) Reject(key string, at time.Time) error {
	if r.open == nil {
		return ErrNoOpenTrial
	}
	r.open.RejectedKeys = append(r.open.RejectedKeys, Rejection{Key: key, At: at})
	return nil
}

// Plan stores a decoded planning submission with its simulated outcome.
func (r *Recorder) Plan(dec PlanDecoding, hits []maze.Cell, end maze.CellPosition, at time.Time) error {
	if r.open == nil {
		return ErrNoOpenTrial
	}
	r.open.Plan = &dec
	r.open.PlanHits = hits
	r.open.Realized = append([]game.Direction(nil), dec.Translated...)
	r.open.ReactionTime = at.Sub(r.open.StartedAt)
	r.open.End = end
	for _, h := range hits {
		switch h {
		case maze.Reward:
			r.open.RewardsCollected++
		case maze.Hazard:
			r.open.HazardsHit++
		case maze.Block:
			r.open.BlockedMoves++
		}
	}
	return nil
}

// Finalize closes the open record, computes its accuracy and duration and
// appends it to the session list.
func (r *Recorder) Finalize(at time.Time) (TrialRecord, error) {
	if r.open == nil {
		return TrialRecord{}, ErrNoOpenTrial
	}
	rec := *r.open
	rec.EndedAt = at
	rec.Duration = at.Sub(rec.StartedAt)
	rec.Accuracy = game.Accuracy(rec.Realized, rec.Optimal)

	r.records = append(r.records, rec)
	r.open = nil
	r.lastEvent = time.Time{}
	return rec, nil
}

// Open reports whether a trial is being recorded.
func (r *Recorder) Open() bool {
	return r.open != nil
}

// Records returns a copy of the finalized records in play order.
func (r *Recorder) Records() []TrialRecord {
	return append([]TrialRecord(nil), r.records...)
}
