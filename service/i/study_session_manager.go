package i

import (
	"context"

	"github.com/beka-birhanu/navstudy/game/play"
	"github.com/google/uuid"
)

// StudySessionManager prepares sessions and routes participant input to them.
type StudySessionManager interface {
	// Prepare builds the queues and pools of a new session and starts it.
	Prepare(ctx context.Context, participantID string) (*play.Session, error)

	// Handle applies one input to the session with the given id.
	Handle(ctx context.Context, id uuid.UUID, in play.Input) error

	// Session looks up a running session.
	Session(id uuid.UUID) (*play.Session, bool)

	// Close waits for pending persistence of finished sessions.
	Close(ctx context.Context) error
}
