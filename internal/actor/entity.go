package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/telerobot/internal/domain/robot"
	"github.com/oshokin/telerobot/internal/logger"
	"github.com/oshokin/telerobot/internal/repository/state"
)

// envelope is one queued message. handled is closed after handle returns.
type envelope struct {
	ctx     context.Context
	handle  func(ctx context.Context)
	handled chan struct{}
}

// entity serializes every operation on one robot through its mailbox.
type entity struct {
	id        string
	ctx       context.Context
	repo      state.Repository
	publisher Publisher
	window    time.Duration

	mailbox  chan *envelope
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// exitErr and flushErr are written by run before done is closed.
	exitErr  error
	flushErr error

	lastActive atomic.Int64

	// Owned by the run goroutine.
	state     *robot.State
	history   robot.History
	heartbeat time.Time
}

func newEntity(ctx context.Context, id string, repo state.Repository, publisher Publisher, opts *Options) *entity {
	e := &entity{
		id:        id,
		ctx:       context.WithoutCancel(logger.WithKV(ctx, "robot_id", id)),
		repo:      repo,
		publisher: publisher,
		window:    opts.ArbitrationWindow,
		mailbox:   make(chan *envelope, opts.MailboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.touch()

	return e
}

func (e *entity) touch() {
	e.lastActive.Store(time.Now().UnixNano())
}

func (e *entity) idleSince() time.Time {
	return time.Unix(0, e.lastActive.Load())
}

// call enqueues handle and waits until it has run. Once enqueued the message
// runs to completion even if ctx is canceled.
func (e *entity) call(ctx context.Context, handle func(ctx context.Context)) error {
	env := &envelope{
		ctx:     context.WithoutCancel(ctx),
		handle:  handle,
		handled: make(chan struct{}),
	}

	e.touch()

	select {
	case e.mailbox <- env:
	case <-e.quit:
		return errDeactivated
	case <-e.done:
		return e.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-env.handled:
		return nil
	case <-e.done:
		// The drain may have run it just before exiting.
		select {
		case <-env.handled:
			return nil
		default:
			return e.exitErr
		}
	}
}

// run is the actor loop. prev is an earlier instance of the same robot that
// must finish flushing before this one loads state.
func (e *entity) run(prev *entity, release func(*entity)) {
	defer close(e.done)

	if prev != nil {
		<-prev.done
	}

	if err := e.activate(); err != nil {
		e.exitErr = fmt.Errorf("activate robot %q: %w", e.id, err)
		logger.ErrorKV(e.ctx, "Robot activation failed", "error", err)
		release(e)

		return
	}

	for {
		select {
		case env := <-e.mailbox:
			e.dispatch(env)
		case <-e.quit:
			e.drain()
			e.flushErr = e.flush()
			e.exitErr = errDeactivated

			logger.DebugKV(e.ctx, "Robot deactivated")

			return
		}
	}
}

func (e *entity) dispatch(env *envelope) {
	env.handle(env.ctx)
	close(env.handled)
	e.touch()
}

func (e *entity) drain() {
	for {
		select {
		case env := <-e.mailbox:
			e.dispatch(env)
		default:
			return
		}
	}
}

func (e *entity) activate() error {
	loaded, err := e.repo.Load(e.ctx, e.id)

	switch {
	case err == nil:
		e.state = loaded
		e.state.RobotID = e.id
		e.state.Rotation = robot.NormalizeRotation(e.state.Rotation)
	case errors.Is(err, state.ErrNotFound):
		e.state = robot.NewState(e.id, time.Now().UTC())
	default:
		return fmt.Errorf("load state: %w", err)
	}

	e.history.Restore(e.state.RecentStreamCommands)
	e.state.RecentStreamCommands = nil
	e.heartbeat = time.Time{}

	logger.DebugKV(e.ctx, "Robot activated", "task", e.state.Task, "history", e.history.Len())

	return nil
}

// deactivate stops accepting messages, waits for the queue to drain and the
// final flush, and returns the flush error.
func (e *entity) deactivate(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.quit) })

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if errors.Is(e.exitErr, errDeactivated) {
		return e.flushErr
	}

	return nil
}

func (e *entity) underStreamControl(now time.Time) bool {
	return !e.heartbeat.IsZero() && now.Sub(e.heartbeat) < e.window
}

func (e *entity) executeDiscrete(ctx context.Context, cmd *robot.DiscreteCommand) Result {
	now := time.Now()

	if e.underStreamControl(now) {
		logger.InfoKV(e.ctx, "Discrete command rejected",
			"command_id", cmd.ID,
			"command_type", cmd.Type,
			"retry_in", e.window-now.Sub(e.heartbeat),
		)

		return rejected(ErrControlConflict)
	}

	if !robot.ApplyDiscrete(e.state, cmd, now.UTC()) {
		logger.WarnKV(e.ctx, "Move on unknown axis left position unchanged", "command_id", cmd.ID, "axis", cmd.Axis)
	}

	if err := e.save(ctx); err != nil {
		logger.ErrorKV(e.ctx, "Failed to persist discrete command", "command_id", cmd.ID, "error", err)

		return failed(fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	logger.InfoKV(e.ctx, "Discrete command applied",
		"command_id", cmd.ID,
		"command_type", cmd.Type,
		"task", e.state.Task,
	)

	return accepted(e.publish())
}

func (e *entity) executeStream(ctx context.Context, cmd *robot.StreamCommand) error {
	now := time.Now()
	edge := !e.state.Streaming()

	e.heartbeat = now
	robot.ApplyStream(e.state, cmd, now.UTC())
	e.history.Push(*cmd)

	var err error

	if edge {
		if err = e.save(ctx); err != nil {
			logger.ErrorKV(e.ctx, "Failed to persist entry into streaming mode", "error", err)
			err = fmt.Errorf("%w: %w", ErrPersistence, err)
		} else {
			logger.InfoKV(e.ctx, "Robot entered streaming mode")
		}
	}

	e.publish()

	return err
}

func (e *entity) endStreamSession(ctx context.Context) error {
	if err := e.save(ctx); err != nil {
		logger.ErrorKV(e.ctx, "Failed to flush stream session", "error", err)

		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	logger.InfoKV(e.ctx, "Stream session flushed", "history", e.history.Len())

	return nil
}

func (e *entity) flush() error {
	if err := e.save(e.ctx); err != nil {
		logger.ErrorKV(e.ctx, "Failed to flush robot on deactivation", "error", err)

		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

// snapshot returns a copy of the state with the current history attached.
func (e *entity) snapshot() *robot.State {
	s := e.state.Clone()
	s.RecentStreamCommands = e.history.Snapshot()

	return s
}

func (e *entity) save(ctx context.Context) error {
	return e.repo.Save(ctx, e.snapshot())
}

func (e *entity) publish() *robot.State {
	s := e.snapshot()

	if e.publisher != nil {
		e.publisher.Publish(e.id, *s.Clone())
	}

	return s
}
