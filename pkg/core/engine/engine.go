package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/pkg/core/allocator"
)

var (
	// ErrEngineClosed fails tasks submitted after Close
	ErrEngineClosed = errors.New("allocation engine is closed")

	// ErrStrategyPanic wraps a panic recovered from a strategy. The group's
	// write-back is skipped so its owners keep their previous allocation.
	ErrStrategyPanic = errors.New("allocation strategy panicked")

	// ErrWriteBackPanic wraps a panic recovered from an owner during commit
	ErrWriteBackPanic = errors.New("allocation write-back panicked")
)

// DefaultKeepAlive is how long an idle pool worker waits for work before exiting
const DefaultKeepAlive = 30 * time.Second

// DefaultWorkers leaves one core for the simulation loop
func DefaultWorkers() int {
	return max(1, runtime.NumCPU()-1)
}

// Recorder receives engine measurements. Implementations must be safe for
// concurrent use; ObserveTask is called from pool workers.
type Recorder interface {
	ObserveTask(strategy string, duration time.Duration, fellBack bool, err error)
	ObserveCommit(profiles int)
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Workers bounds the compute pool, defaults to DefaultWorkers()
	Workers int

	// KeepAlive is the idle window before a pool worker exits, defaults to DefaultKeepAlive
	KeepAlive time.Duration

	// Committer runs every write-back. Defaults to a SerialExecutor owned by the engine.
	Committer Executor

	Recorder Recorder
	Logger   *zap.Logger
}

// Engine computes allocation groups on a bounded worker pool and funnels
// every write-back through a single serial committer
type Engine struct {
	pool      *pool
	committer Executor
	owned     *SerialExecutor
	recorder  Recorder
	logger    *zap.Logger
}

// New creates an engine. The pool starts empty and spawns workers on demand.
func New(opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		pool:      newPool(workers, keepAlive),
		committer: opts.Committer,
		recorder:  opts.Recorder,
		logger:    logger,
	}

	if e.committer == nil {
		e.owned = NewSerialExecutor()
		e.committer = e.owned
	}

	logger.Debug("Allocation engine started",
		zap.Int("workers", workers),
		zap.Duration("keep_alive", keepAlive))

	return e
}

// Compute submits one task per group and returns immediately.
// Groups must not share profiles.
func (e *Engine) Compute(groups []*allocator.Group) []*Task {
	tasks := make([]*Task, len(groups))

	for i, g := range groups {
		task := newTask(g)
		tasks[i] = task

		if g == nil {
			task.finish(allocator.Outcome{}, fmt.Errorf("%w: group %d is nil", allocator.ErrInvalidGroup, i))
			continue
		}

		if !e.pool.submit(func() { e.run(task) }) {
			task.finish(allocator.Outcome{Strategy: strategyName(g)}, ErrEngineClosed)
		}
	}

	return tasks
}

// Close stops accepting groups and waits for every queued group to be
// computed. An owned committer is drained and stopped; a caller-supplied
// committer keeps whatever write-backs it still holds.
func (e *Engine) Close() {
	e.pool.close()
	if e.owned != nil {
		e.owned.Close()
	}
	e.logger.Debug("Allocation engine closed")
}

// run executes on a pool worker
func (e *Engine) run(task *Task) {
	g := task.group
	name := strategyName(g)

	start := time.Now()
	outcome, err := allocate(g)
	duration := time.Since(start)

	if e.recorder != nil {
		e.recorder.ObserveTask(name, duration, outcome.FellBack, err)
	}

	if err != nil {
		e.logger.Error("Allocation failed, write-back skipped",
			zap.String("strategy", name),
			zap.Int("profiles", len(g.Profiles)),
			zap.Error(err))
		task.finish(outcome, err)
		return
	}

	if outcome.FellBack {
		e.logger.Warn("Strategy broke a conservation property, fell back to uniform_damage_aware",
			zap.String("strategy", name),
			zap.Int("profiles", len(g.Profiles)))
	}
	if len(outcome.Violations) > 0 {
		e.logger.Warn("Allocation has conservation violations",
			zap.String("strategy", name),
			zap.Any("violations", outcome.Violations))
	}

	e.logger.Debug("Group allocated",
		zap.String("strategy", name),
		zap.Int("profiles", len(g.Profiles)),
		zap.Int("workers_allocated", outcome.WorkerAllocated),
		zap.Int("energy_consumed", outcome.EnergyConsumed),
		zap.Duration("duration", duration))

	e.committer.Submit(func() {
		committed, err := commit(g)
		if err != nil {
			e.logger.Error("Write-back failed", zap.String("strategy", name), zap.Error(err))
		}
		if e.recorder != nil {
			e.recorder.ObserveCommit(committed)
		}
		task.finish(outcome, err)
	})
}

func allocate(g *allocator.Group) (outcome allocator.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStrategyPanic, r)
		}
	}()
	return g.Allocate(), nil
}

func commit(g *allocator.Group) (committed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWriteBackPanic, r)
		}
	}()
	return g.Commit(), nil
}

func strategyName(g *allocator.Group) string {
	if g == nil || g.Strategy == nil {
		return "none"
	}
	return g.Strategy.Name()
}

// Task is the handle for one group's computation. It is done once the
// group's write-back has run, or as soon as the computation failed.
type Task struct {
	group   *allocator.Group
	done    chan struct{}
	outcome allocator.Outcome
	err     error
}

func newTask(g *allocator.Group) *Task {
	return &Task{
		group: g,
		done:  make(chan struct{}),
	}
}

func (t *Task) finish(outcome allocator.Outcome, err error) {
	t.outcome = outcome
	t.err = err
	close(t.done)
}

// Group returns the group this task computes
func (t *Task) Group() *allocator.Group {
	return t.group
}

// Done is closed when the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done
func (t *Task) Wait(ctx context.Context) (allocator.Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.err
	case <-ctx.Done():
		return allocator.Outcome{}, ctx.Err()
	}
}
