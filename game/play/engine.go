/*
Package play runs the study's phase state machine.

An Engine drives a Session through practice, learning and planning to
completion. Learning trials are played key by key with the vehicle moving on a
live copy of the maze; planning trials take one fixed-length sequence that is
simulated offline from the start cell. Frames go to a RenderSink after every
state change and the finished session export goes to a PersistenceSink
without being awaited.
*/
package play

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/record"
)

const (
	defaultPenalty = 10
	defaultReward  = 10
)

// Input is an event dispatched into HandleInput: a KeyInput or a PlanInput.
type Input interface {
	input()
}

// KeyInput is a single key press during practice or learning.
type KeyInput struct {
	Key string
	At  time.Time
}

// PlanInput is an atomically submitted planning sequence.
type PlanInput struct {
	Plan string
	At   time.Time
}

func (KeyInput) input()  {}
func (PlanInput) input() {}

// Frame is what a renderer needs to draw the current state.
type Frame struct {
	SessionID    string
	Phase        Phase
	Trial        int
	Total        int
	Grid         [][]maze.Cell
	Vehicle      maze.CellPosition
	Category     game.Category
	Keys         []string
	HideControls bool
	AwaitingPlan bool
	Rejected     string // key or plan that was just rejected
	Tally        record.Tally
}

// RenderSink receives a frame after every state change.
type RenderSink interface {
	Render(f Frame)
}

// PersistenceSink receives the export of a finished session.
type PersistenceSink interface {
	Persist(ctx context.Context, export record.SessionExport) error
}

// Options configures an Engine.
type Options struct {
	Catalog    game.Catalog
	PlanLength int
	Penalty    int // score lost on a hazard
	Reward     int // score gained on a reward
}

// Engine applies inputs to sessions. It holds no per-session state, so one
// engine serves any number of sessions.
type Engine struct {
	render  RenderSink
	persist PersistenceSink
	opts    *Options
}

// NewEngine creates an engine. Either sink may be nil.
func NewEngine(render RenderSink, persist PersistenceSink, opts *Options) *Engine {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Catalog == nil {
		opts.Catalog = game.MustDefaultCatalog()
	}
	if opts.PlanLength <= 0 {
		opts.PlanLength = game.RouteLength
	}
	if opts.Penalty <= 0 {
		opts.Penalty = defaultPenalty
	}
	if opts.Reward <= 0 {
		opts.Reward = defaultReward
	}
	return &Engine{render: render, persist: persist, opts: opts}
}

// Start moves an idle session into its first non-empty phase and opens the
// first trial.
func (e *Engine) Start(ctx context.Context, s *Session, at time.Time) error {
	s.Lock()
	defer s.Unlock()

	if s.phase != PhaseIdle {
		return fmt.Errorf("%w: start in phase %s", game.ErrPhaseSequence, s.phase)
	}
	return e.enterNextPhase(ctx, s, at)
}

// StartTrial loads the trial under the cursor into live state and opens its
// record.
func (e *Engine) StartTrial(s *Session, at time.Time) error {
	s.Lock()
	defer s.Unlock()
	return e.startTrial(s, at)
}

// HandleInput applies one input event. Invalid keys and malformed plans
// return a *game.InvalidInputError and leave the trial running; every other
// error is fatal for the session.
func (e *Engine) HandleInput(ctx context.Context, s *Session, in Input) error {
	s.Lock()
	defer s.Unlock()

	if s.active == nil {
		return fmt.Errorf("%w: input in phase %s with no open trial", game.ErrPhaseSequence, s.phase)
	}

	switch in := in.(type) {
	case KeyInput:
		if s.phase != PhasePractice && s.phase != PhaseLearning {
			return fmt.Errorf("%w: key input in phase %s", game.ErrPhaseSequence, s.phase)
		}
		return e.handleKey(ctx, s, in)
	case PlanInput:
		if s.phase != PhasePlanning {
			return fmt.Errorf("%w: plan input in phase %s", game.ErrPhaseSequence, s.phase)
		}
		return e.handlePlan(ctx, s, in)
	default:
		return fmt.Errorf("%w: unsupported input %T", game.ErrPhaseSequence, in)
	}
}

func (e *Engine) handleKey(ctx context.Context, s *Session, in KeyInput) error {
	d, ok := s.vehicle.Direction(in.Key)
	if !ok {
		if err := s.recorder.Reject(in.Key, in.At); err != nil {
			return err
		}
		e.emit(s, in.Key)
		return &game.InvalidInputError{Input: in.Key, Reason: game.ErrUnboundKey}
	}

	from := s.pos
	to, hit, blocked := step(s.active, s.pos, d)
	s.pos = to
	e.score(s, hit)

	err := s.recorder.Move(record.MoveEntry{
		Key:       in.Key,
		Direction: d,
		From:      from,
		To:        to,
		Blocked:   blocked,
		Hit:       hit,
		At:        in.At,
	})
	if err != nil {
		return err
	}
	e.emit(s, "")

	if s.left > 0 {
		return nil
	}
	return e.finishTrial(ctx, s, in.At)
}

func (e *Engine) handlePlan(ctx context.Context, s *Session, in PlanInput) error {
	if n := utf8.RuneCountInString(in.Plan); n != e.opts.PlanLength {
		if err := s.recorder.Reject(in.Plan, in.At); err != nil {
			return err
		}
		e.emit(s, in.Plan)
		return &game.InvalidInputError{
			Input:  in.Plan,
			Reason: fmt.Errorf("%w: got %d characters, want %d", game.ErrPlanLength, n, e.opts.PlanLength),
		}
	}

	original, err := s.currentMaze()
	if err != nil {
		return err
	}
	dec := record.Decode(s.vehicle, in.Plan, original.OptimalDirections)
	outcome := SimulatePlan(original, dec.Translated)
	for _, hit := range outcome.Hits {
		e.score(s, hit)
	}
	s.pos = outcome.End

	if err := s.recorder.Plan(dec, outcome.Hits, outcome.End, in.At); err != nil {
		return err
	}
	return e.finishTrial(ctx, s, in.At)
}

// score applies the tally change of entering a cell.
func (e *Engine) score(s *Session, hit maze.Cell) {
	switch hit {
	case maze.Reward:
		s.tally.Score += e.opts.Reward
		s.tally.Successes++
		s.left--
	case maze.Hazard:
		s.tally.Score -= e.opts.Penalty
		s.tally.Failures++
	}
}

// finishTrial finalizes the open record and advances the cursor, moving to the
// next phase once the current one is exhausted.
func (e *Engine) finishTrial(ctx context.Context, s *Session, at time.Time) error {
	if _, err := s.recorder.Finalize(at); err != nil {
		return err
	}
	s.active = nil

	if s.cursor < s.phaseLen(s.phase) {
		s.cursor++
		return e.startTrial(s, at)
	}
	return e.enterNextPhase(ctx, s, at)
}

// enterNextPhase advances past empty phases. Reaching PhaseComplete builds the
// export and hands it to persistence.
func (e *Engine) enterNextPhase(ctx context.Context, s *Session, at time.Time) error {
	for s.phase < PhaseComplete {
		s.phase++
		if s.phase == PhaseComplete {
			break
		}
		if s.phaseLen(s.phase) > 0 {
			s.cursor = 1
			return e.startTrial(s, at)
		}
	}

	s.cursor = 0
	export := record.NewExport(s.meta, s.tally, s.highHazard, s.recorder.Records(), at)
	s.export = &export
	e.emit(s, "")

	if e.persist != nil {
		go e.persist.Persist(context.WithoutCancel(ctx), export)
	}
	return nil
}

func (e *Engine) startTrial(s *Session, at time.Time) error {
	if s.recorder.Open() {
		return fmt.Errorf("%w: trial %d of %s still open", game.ErrPhaseSequence, s.cursor, s.phase)
	}

	m, err := s.currentMaze()
	if err != nil {
		return err
	}
	v, ok := e.opts.Catalog[m.Spec.Category]
	if !ok {
		return fmt.Errorf("%w: %s", game.ErrUnknownCategory, m.Spec.Category)
	}

	s.active = m.Clone()
	s.vehicle = v
	s.pos = m.Start
	s.left = len(m.Rewards)

	if err := s.recorder.Begin(s.phase.recordPhase(), s.cursor, m, v, at); err != nil {
		return err
	}
	e.emit(s, "")
	return nil
}

// emit sends the current frame to the render sink.
func (e *Engine) emit(s *Session, rejected string) {
	if e.render == nil {
		return
	}

	f := Frame{
		SessionID: s.meta.SessionID,
		Phase:     s.phase,
		Trial:     s.cursor,
		Total:     s.phaseLen(s.phase),
		Rejected:  rejected,
		Tally:     s.tally,
	}
	if s.active != nil {
		f.Grid = cloneGrid(s.active.Grid)
		f.Vehicle = s.pos
		f.Category = s.vehicle.Category
		f.Keys = s.vehicle.Keys()
		f.HideControls = s.active.Spec.Memory
		f.AwaitingPlan = s.phase == PhasePlanning
	}
	e.render.Render(f)
}

func cloneGrid(grid [][]maze.Cell) [][]maze.Cell {
	c := make([][]maze.Cell, len(grid))
	for i, row := range grid {
		c[i] = append([]maze.Cell(nil), row...)
	}
	return c
}
