package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/beka-birhanu/navstudy/config"
	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/maze"
	"github.com/beka-birhanu/navstudy/game/play"
	"github.com/beka-birhanu/navstudy/game/queue"
	"github.com/beka-birhanu/navstudy/game/record"
	"github.com/beka-birhanu/navstudy/game/rng"
	"github.com/beka-birhanu/navstudy/service/i"
	"github.com/google/uuid"
)

const (
	defaultPersistTimeout = 10 * time.Second
	learnTag              = "learn"
	planTag               = "plan"
	poolKeyFmt            = "%s:%s:%x"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Config wires the collaborators of a StudySessionManager.
type Config struct {
	Study          *config.Study
	Cache          i.PoolCache     // optional
	Repos          []i.SessionRepo // every finished session is saved to each
	Render         play.RenderSink // optional
	Logger         i.Logger
	PersistTimeout time.Duration
	Clock          func() time.Time
}

type entry struct {
	session *play.Session
	done    chan struct{} // closed once persistence of the session finished
}

// StudySessionManager prepares sessions, drives them through the engine and
// fans finished sessions out to the repositories.
type StudySessionManager struct {
	study   *config.Study
	builder *queue.Builder
	engine  *play.Engine
	cache   i.PoolCache
	repos   []i.SessionRepo
	logger  i.Logger
	timeout time.Duration
	now     func() time.Time

	sessions map[uuid.UUID]*entry
	finished map[uuid.UUID]*entry
	sync.RWMutex
}

// NewStudySessionManager validates the study and builds the engine.
func NewStudySessionManager(c *Config) (*StudySessionManager, error) {
	if c.Study == nil {
		c.Study = config.DefaultStudy()
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := c.Study.Validate(); err != nil {
		return nil, err
	}

	catalog, err := c.Study.Catalog()
	if err != nil {
		return nil, err
	}
	quotas, err := c.Study.Quotas()
	if err != nil {
		return nil, err
	}
	builder, err := queue.NewBuilder(catalog, quotas)
	if err != nil {
		return nil, err
	}

	m := &StudySessionManager{
		study:    c.Study,
		builder:  builder,
		cache:    c.Cache,
		repos:    c.Repos,
		logger:   c.Logger,
		timeout:  c.PersistTimeout,
		now:      c.Clock,
		sessions: make(map[uuid.UUID]*entry),
		finished: make(map[uuid.UUID]*entry),
	}
	if m.timeout <= 0 {
		m.timeout = defaultPersistTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}

	m.engine = play.NewEngine(c.Render, m, &play.Options{
		Catalog:    catalog,
		PlanLength: c.Study.PlanLength,
		Penalty:    c.Study.Score.Penalty,
		Reward:     c.Study.Score.Reward,
	})
	return m, nil
}

// Prepare builds both queues and pools for a new session and starts it.
func (m *StudySessionManager) Prepare(ctx context.Context, participantID string) (*play.Session, error) {
	id := uuid.New()
	r := rng.New(id.String())

	learnQueue := m.builder.Learning(r)
	planQueue := m.builder.Planning()

	learnPool, err := m.pool(ctx, learnQueue.Specs, m.study.Seeds.Learning, learnTag)
	if err != nil {
		m.logger.Error(fmt.Sprintf("Building learning pool for session %s: %v", id, err))
		return nil, err
	}
	planPool, err := m.pool(ctx, planQueue.Specs, m.study.Seeds.Planning, planTag)
	if err != nil {
		m.logger.Error(fmt.Sprintf("Building planning pool for session %s: %v", id, err))
		return nil, err
	}

	var practice *maze.Maze
	if m.study.Practice {
		practice = maze.Practice()
	}

	startedAt := m.now()
	s := play.NewSession(
		record.Meta{ParticipantID: participantID, StudyID: m.study.ID, SessionID: id.String(), StartedAt: startedAt},
		practice,
		play.Pool{Mazes: learnPool, Order: queue.PresentationOrder(r, len(learnPool))},
		play.Pool{Mazes: planPool, Order: queue.PresentationOrder(r, len(planPool))},
		learnQueue.HighHazard,
	)

	m.Lock()
	m.sessions[id] = &entry{session: s, done: make(chan struct{})}
	m.Unlock()

	m.logger.Info(fmt.Sprintf("Session prepared: ID=%s participant=%s learning=%d planning=%d highHazard=%s",
		id, participantID, len(learnPool), len(planPool), learnQueue.HighHazard))

	if err := m.engine.Start(ctx, s, startedAt); err != nil {
		m.terminate(id, err)
		return nil, err
	}
	m.afterInput(id, s)
	return s, nil
}

// Handle applies one input to a running session. Invalid input is logged and
// returned; any other error terminates the session.
func (m *StudySessionManager) Handle(ctx context.Context, id uuid.UUID, in play.Input) error {
	m.RLock()
	e, ok := m.sessions[id]
	m.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	before := e.session.Status()
	err := m.engine.HandleInput(ctx, e.session, in)
	if err != nil {
		if game.IsFatal(err) {
			m.terminate(id, err)
			return err
		}
		m.logger.Warning(fmt.Sprintf("Rejected input in session %s: %v", id, err))
		return err
	}

	after := m.afterInput(id, e.session)
	if after.Finished > before.Finished {
		m.logger.Debug(fmt.Sprintf("Session %s finished %s trial %d", id, before.Phase, before.Trial))
	}
	if after.Phase != before.Phase {
		m.logger.Info(fmt.Sprintf("Session %s entered phase %s", id, after.Phase))
	}
	return nil
}

// afterInput moves completed sessions to the finished set.
func (m *StudySessionManager) afterInput(id uuid.UUID, s *play.Session) play.Status {
	status := s.Status()
	if status.Phase != play.PhaseComplete {
		return status
	}

	m.Lock()
	if e, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		select {
		case <-e.done:
			// Already persisted; nothing left to wait for.
		default:
			m.finished[id] = e
		}
	}
	m.Unlock()

	m.logger.Info(fmt.Sprintf("Session %s complete: score=%d successes=%d failures=%d",
		id, status.Tally.Score, status.Tally.Successes, status.Tally.Failures))
	return status
}

func (m *StudySessionManager) terminate(id uuid.UUID, err error) {
	m.Lock()
	delete(m.sessions, id)
	m.Unlock()
	m.logger.Error(fmt.Sprintf("Session %s terminated: %v", id, err))
}

// Session looks up a running session.
func (m *StudySessionManager) Session(id uuid.UUID) (*play.Session, bool) {
	m.RLock()
	defer m.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Persist saves a finished session to every repository. It is called by the
// engine without being awaited; failures are logged and not retried.
func (m *StudySessionManager) Persist(ctx context.Context, export record.SessionExport) error {
	defer m.markPersisted(export.SessionID)

	var errs []error
	for _, repo := range m.repos {
		saveCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := repo.Save(saveCtx, export)
		cancel()
		if err != nil {
			m.logger.Error(fmt.Sprintf("Persisting session %s: %v", export.SessionID, err))
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		m.logger.Info(fmt.Sprintf("Session %s persisted to %d repositories", export.SessionID, len(m.repos)))
	}
	return errors.Join(errs...)
}

func (m *StudySessionManager) markPersisted(sessionID string) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return
	}

	m.Lock()
	defer m.Unlock()
	if e, ok := m.finished[id]; ok {
		close(e.done)
		delete(m.finished, id)
		return
	}
	// Persistence can outrun afterInput; leave a closed marker behind.
	if e, ok := m.sessions[id]; ok {
		close(e.done)
	}
}

// Close waits until every finished session has been persisted or ctx ends.
func (m *StudySessionManager) Close(ctx context.Context) error {
	m.RLock()
	pending := make([]chan struct{}, 0, len(m.finished))
	for _, e := range m.finished {
		pending = append(pending, e.done)
	}
	m.RUnlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// pool builds a maze pool, going through the cache when one is configured.
func (m *StudySessionManager) pool(ctx context.Context, specs []game.TrialSpec, seedPrefix, tag string) ([]*maze.Maze, error) {
	build := func() ([]*maze.Maze, error) {
		return maze.BuildPool(specs, seedPrefix, tag, &maze.PoolOptions{
			GridSize:    m.study.GridSize,
			MaxAttempts: m.study.MaxAttempts,
		})
	}
	if m.cache == nil {
		return build()
	}

	key, err := poolKey(specs, m.study.GridSize, seedPrefix, tag)
	if err != nil {
		return nil, err
	}
	return m.cache.GetOrBuild(ctx, key, build)
}

// poolKey identifies a pool by everything that determines its content.
func poolKey(specs []game.TrialSpec, gridSize int, seedPrefix, tag string) (string, error) {
	data, err := json.Marshal(struct {
		Specs    []game.TrialSpec
		GridSize int
	}{specs, gridSize})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(poolKeyFmt, tag, seedPrefix, sha256.Sum256(data)), nil
}
