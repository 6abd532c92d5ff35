package play

import (
	"sync"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/record"
)

// Phase is a step of the session state machine.
type Phase int

// Phases in the only order they are entered.
const (
	PhaseIdle Phase = iota
	PhasePractice
	PhaseLearning
	PhasePlanning
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePractice:
		return "practice"
	case PhaseLearning:
		return "learning"
	case PhasePlanning:
		return "planning"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p Phase) recordPhase() record.Phase {
	switch p {
	case PhasePractice:
		return record.PhasePractice
	case PhasePlanning:
		return record.PhasePlanning
	default:
		return record.PhaseLearning
	}
}

// Pool is a built maze pool together with its presentation order.
type Pool struct {
	Mazes []*maze.Maze
	Order []int // permutation of pool indices
}

// Len returns the number of trials in the pool.
func (p Pool) Len() int {
	return len(p.Mazes)
}

// trial returns the maze shown at 1-based cursor position.
func (p Pool) trial(phase Phase, cursor int) (*maze.Maze, error) {
	if cursor < 1 || cursor > len(p.Order) || len(p.Order) != len(p.Mazes) {
		return nil, &game.TrialIndexError{Phase: phase.String(), Index: cursor, Len: len(p.Order)}
	}
	idx := p.Order[cursor-1]
	if idx < 0 || idx >= len(p.Mazes) {
		return nil, &game.TrialIndexError{Phase: phase.String(), Index: idx + 1, Len: len(p.Mazes)}
	}
	return p.Mazes[idx], nil
}

// Session is the live state of one participant's run. The engine is its only
// writer; every engine call holds the session lock for its full duration.
type Session struct {
	meta       record.Meta
	practice   *maze.Maze
	learning   Pool
	planning   Pool
	highHazard game.Category

	phase   Phase
	cursor  int
	active  *maze.Maze // private copy of the current trial's maze
	vehicle game.Vehicle
	pos     maze.CellPosition
	left    int // rewards not yet collected

	tally    record.Tally
	recorder record.Recorder
	export   *record.SessionExport

	sync.Mutex
}

// NewSession prepares a session. practice may be nil to skip the practice
// phase.
func NewSession(meta record.Meta, practice *maze.Maze, learning, planning Pool, highHazard game.Category) *Session {
	return &Session{
		meta:       meta,
		practice:   practice,
		learning:   learning,
		planning:   planning,
		highHazard: highHazard,
	}
}

// Meta returns the session identity.
func (s *Session) Meta() record.Meta {
	return s.meta
}

// Status is a consistent snapshot of the session's progress.
type Status struct {
	Phase    Phase
	Trial    int
	Total    int
	Tally    record.Tally
	Finished int // finalized trial records
}

// Status returns a snapshot of the session's progress.
func (s *Session) Status() Status {
	s.Lock()
	defer s.Unlock()
	return Status{
		Phase:    s.phase,
		Trial:    s.cursor,
		Total:    s.phaseLen(s.phase),
		Tally:    s.tally,
		Finished: len(s.recorder.Records()),
	}
}

// Records returns the finalized trial records in play order.
func (s *Session) Records() []record.TrialRecord {
	s.Lock()
	defer s.Unlock()
	return s.recorder.Records()
}

// Export returns the session export once the session is complete.
func (s *Session) Export() (record.SessionExport, bool) {
	s.Lock()
	defer s.Unlock()
	if s.export == nil {
		return record.SessionExport{}, false
	}
	return *s.export, true
}

func (s *Session) phaseLen(p Phase) int {
	switch p {
	case PhasePractice:
		if s.practice != nil {
			return 1
		}
		return 0
	case PhaseLearning:
		return s.learning.Len()
	case PhasePlanning:
		return s.planning.Len()
	default:
		return 0
	}
}

// currentMaze resolves the pool maze behind the cursor.
func (s *Session) currentMaze() (*maze.Maze, error) {
	switch s.phase {
	case PhasePractice:
		if s.practice == nil || s.cursor != 1 {
			return nil, &game.TrialIndexError{Phase: s.phase.String(), Index: s.cursor, Len: s.phaseLen(s.phase)}
		}
		return s.practice, nil
	case PhaseLearning:
		return s.learning.trial(s.phase, s.cursor)
	case PhasePlanning:
		return s.planning.trial(s.phase, s.cursor)
	default:
		return nil, game.ErrPhaseSequence
	}
}
