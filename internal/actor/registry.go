package actor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/repository/state"
)

// maxAttempts bounds how often a message is re-sent after racing with an eviction.
const maxAttempts = 3

// Registry maps robot ids to their resident actors.
type Registry struct {
	ctx       context.Context
	repo      state.Repository
	publisher Publisher
	opts      *Options

	mu       sync.Mutex
	entities map[string]*entity
	// retiring holds instances that are being deactivated; a new instance of
	// the same robot waits for them before loading state.
	retiring map[string]*entity
	closed   bool
}

// NewRegistry returns an empty registry. ctx scopes actor logging only.
func NewRegistry(ctx context.Context, repo state.Repository, publisher Publisher, opts ...Option) *Registry {
	return &Registry{
		ctx:       ctx,
		repo:      repo,
		publisher: publisher,
		opts:      newOptions(opts),
		entities:  make(map[string]*entity),
		retiring:  make(map[string]*entity),
	}
}

// ExecuteDiscrete arbitrates, applies and persists a discrete command.
func (r *Registry) ExecuteDiscrete(ctx context.Context, cmd *robot.DiscreteCommand) Result {
	var res Result

	err := r.send(ctx, cmd.RobotID, func(e *entity) error {
		return e.call(ctx, func(ctx context.Context) {
			res = e.executeDiscrete(ctx, cmd)
		})
	})
	if err != nil {
		return failed(err)
	}

	return res
}

// ExecuteStream applies a stream command. The mutation stands even when the
// returned error reports a failed edge persistence.
func (r *Registry) ExecuteStream(ctx context.Context, robotID string, cmd *robot.StreamCommand) error {
	var res error

	err := r.send(ctx, robotID, func(e *entity) error {
		return e.call(ctx, func(ctx context.Context) {
			res = e.executeStream(ctx, cmd)
		})
	})
	if err != nil {
		return err
	}

	return res
}

// EndStreamSession persists the state together with the recent stream history.
func (r *Registry) EndStreamSession(ctx context.Context, robotID string) error {
	var res error

	err := r.send(ctx, robotID, func(e *entity) error {
		return e.call(ctx, func(ctx context.Context) {
			res = e.endStreamSession(ctx)
		})
	})
	if err != nil {
		return err
	}

	return res
}

// GetStatus returns a snapshot of the robot state.
func (r *Registry) GetStatus(ctx context.Context, robotID string) (*robot.State, error) {
	var snapshot *robot.State

	err := r.send(ctx, robotID, func(e *entity) error {
		return e.call(ctx, func(context.Context) {
			snapshot = e.snapshot()
		})
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// GetRecentStream returns the retained stream commands, oldest first.
func (r *Registry) GetRecentStream(ctx context.Context, robotID string) ([]robot.StreamCommand, error) {
	var history []robot.StreamCommand

	err := r.send(ctx, robotID, func(e *entity) error {
		return e.call(ctx, func(context.Context) {
			history = e.history.Snapshot()
		})
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

// Activate makes robotID resident and reports any activation error.
func (r *Registry) Activate(ctx context.Context, robotID string) error {
	return r.send(ctx, robotID, func(e *entity) error {
		return e.call(ctx, func(context.Context) {})
	})
}

// Deactivate flushes robotID and removes it from memory. It is a no-op for a
// robot that is not resident.
func (r *Registry) Deactivate(ctx context.Context, robotID string) error {
	r.mu.Lock()

	e, ok := r.entities[robotID]
	if ok {
		delete(r.entities, robotID)
		r.retiring[robotID] = e
	}

	r.mu.Unlock()

	if !ok {
		return nil
	}

	return r.retire(ctx, e)
}

// EvictIdle deactivates every robot unused for at least idleFor and returns
// how many were evicted.
func (r *Registry) EvictIdle(ctx context.Context, idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	r.mu.Lock()

	var victims []*entity

	for id, e := range r.entities {
		if e.idleSince().After(cutoff) {
			continue
		}

		delete(r.entities, id)
		r.retiring[id] = e
		victims = append(victims, e)
	}

	r.mu.Unlock()

	for _, e := range victims {
		if err := r.retire(ctx, e); err != nil {
			logger.ErrorKV(r.ctx, "Failed to evict robot", "robot_id", e.id, "error", err)
		}
	}

	if len(victims) > 0 {
		logger.DebugKV(r.ctx, "Evicted idle robots", "count", len(victims))
	}

	return len(victims)
}

// RunEvictor calls EvictIdle every interval until ctx is done.
func (r *Registry) RunEvictor(ctx context.Context, interval, idleFor time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle(ctx, idleFor)
		}
	}
}

// Resident returns the number of robots currently in memory.
func (r *Registry) Resident() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entities)
}

// Shutdown deactivates every robot concurrently and refuses further work.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()

	r.closed = true

	victims := make([]*entity, 0, len(r.entities)+len(r.retiring))
	for id, e := range r.entities {
		delete(r.entities, id)
		r.retiring[id] = e
		victims = append(victims, e)
	}

	for _, e := range r.retiring {
		if !slices.Contains(victims, e) {
			victims = append(victims, e)
		}
	}

	r.mu.Unlock()

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(victims))
	)

	for i, e := range victims {
		wg.Go(func() {
			errs[i] = r.retire(ctx, e)
		})
	}

	wg.Wait()

	logger.InfoKV(r.ctx, "Actor registry stopped", "robots", len(victims))

	return errors.Join(errs...)
}

// send delivers a message, retrying against a fresh instance when it raced
// with a deactivation.
func (r *Registry) send(ctx context.Context, robotID string, deliver func(*entity) error) error {
	for attempt := 1; ; attempt++ {
		e, err := r.acquire(robotID)
		if err != nil {
			return err
		}

		err = deliver(e)
		if !errors.Is(err, errDeactivated) || attempt >= maxAttempts {
			return err
		}

		logger.DebugKV(ctx, "Message raced with deactivation, retrying", "robot_id", robotID, "attempt", attempt)
	}
}

func (r *Registry) acquire(robotID string) (*entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	if e, ok := r.entities[robotID]; ok {
		return e, nil
	}

	e := newEntity(r.ctx, robotID, r.repo, r.publisher, r.opts)
	r.entities[robotID] = e

	go e.run(r.retiring[robotID], r.release)

	return e, nil
}

// release forgets an instance whose activation failed so the next message
// activates a new one.
func (r *Registry) release(e *entity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entities[e.id] == e {
		delete(r.entities, e.id)
	}
}

func (r *Registry) retire(ctx context.Context, e *entity) error {
	err := e.deactivate(ctx)
	if err != nil && ctx.Err() != nil {
		// Still shutting down; a successor keeps waiting on done.
		return err
	}

	r.mu.Lock()

	if r.retiring[e.id] == e {
		delete(r.retiring, e.id)
	}

	r.mu.Unlock()

	return err
}
