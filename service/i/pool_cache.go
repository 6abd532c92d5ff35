package i

import (
	"context"

	"github.com/beka-birhanu/navstudy/game/maze"
)

// PoolCache stores built maze pools so identical pools are generated once.
type PoolCache interface {
	// GetOrBuild returns the pool cached under key, calling build and storing
	// its result when the key is missing.
	GetOrBuild(ctx context.Context, key string, build func() ([]*maze.Maze, error)) ([]*maze.Maze, error)
}
