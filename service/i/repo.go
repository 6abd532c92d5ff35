package i

import (
	"context"

	"github.com/beka-birhanu/navstudy/game/record"
)

// SessionRepo defines the interface for session persistence.
type SessionRepo interface {
	// Save stores a finished session. Saving the same session twice
	// replaces the earlier copy.
	Save(ctx context.Context, export record.SessionExport) error
}
