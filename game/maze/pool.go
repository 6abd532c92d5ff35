package maze

import (
	"errors"
	"fmt"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/rng"
)

const (
	defaultGridSize    = 3
	defaultMaxAttempts = 1000
	seedFmt            = "%s-%d-%d"
	idFmt              = "%s-%d"
)

// FatalPoolError reports that a pool slot exhausted its retry budget without
// finding an unseen layout.
type FatalPoolError struct {
	Tag      string
	Index    int
	Attempts int
	Last     error
}

func (e *FatalPoolError) Error() string {
	msg := fmt.Sprintf("pool %q slot %d: no unique maze after %d attempts", e.Tag, e.Index, e.Attempts)
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}
	return msg
}

// Unwrap returns game.ErrFatalPool.
func (e *FatalPoolError) Unwrap() error {
	return game.ErrFatalPool
}

// PoolOptions tunes BuildPool.
type PoolOptions struct {
	GridSize    int
	MaxAttempts int
}

// BuildPool generates one maze per spec. Slot i tries the sub-seeds
// "{seedPrefix}-{i}-{attempt}" in order and keeps the first layout whose
// signature is not already in the pool. Mazes get the id "{tag}-{i}".
func BuildPool(specs []game.TrialSpec, seedPrefix, tag string, opts *PoolOptions) ([]*Maze, error) {
	if opts == nil {
		opts = &PoolOptions{}
	}
	size := opts.GridSize
	if size <= 0 {
		size = defaultGridSize
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	pool := make([]*Maze, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))

	for i, spec := range specs {
		var accepted *Maze
		var lastErr error

		for attempt := 0; attempt < maxAttempts; attempt++ {
			candidate, err := Generate(rng.New(fmt.Sprintf(seedFmt, seedPrefix, i, attempt)), size, spec)
			if err != nil {
				// Another start cell may still admit a path.
				if errors.Is(err, game.ErrPathSynthesis) || errors.Is(err, game.ErrNoFreeCell) {
					lastErr = err
					continue
				}
				return nil, err
			}

			sig := candidate.Signature()
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
			accepted = candidate
			break
		}

		if accepted == nil {
			return nil, &FatalPoolError{Tag: tag, Index: i, Attempts: maxAttempts, Last: lastErr}
		}
		accepted.ID = fmt.Sprintf(idFmt, tag, i)
		pool = append(pool, accepted)
	}

	return pool, nil
}
