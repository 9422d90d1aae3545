package sync

import (
	"context"
	"errors"
	"sync"
)

// ErrNoTask no synchronization was started for the project
var ErrNoTask = errors.New("no synchronization task for project")

type task struct {
	sync   *Synchronizer
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error
}

func (t *task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Runner запускает синхронизации в фоне, не больше одной на проект.
type Runner struct {
	tasks map[string]*task
	mu    sync.Mutex
}

// NewRunner creates an empty runner.
func NewRunner() *Runner {
	return &Runner{tasks: make(map[string]*task)}
}

// Start runs s in the background. A synchronization already running for the
// same project is cancelled first, and Start waits until it has released
// its server session. The runner is not locked while waiting.
func (r *Runner) Start(ctx context.Context, s *Synchronizer) {
	project := s.Project()

	r.mu.Lock()
	for {
		prev, ok := r.tasks[project]
		if !ok || prev.finished() {
			break
		}
		prev.cancel()
		r.mu.Unlock()
		<-prev.done
		r.mu.Lock()
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &task{
		sync:   s,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.tasks[project] = t
	r.mu.Unlock()

	go func() {
		defer close(t.done)
		defer cancel()
		t.result, t.err = s.Run(ctx)
	}()
}

func (r *Runner) task(project string) (*task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[project]
	return t, ok
}

// Cancel requests cancellation of the project's synchronization.
func (r *Runner) Cancel(project string) {
	if t, ok := r.task(project); ok {
		t.cancel()
	}
}

// Wait blocks until the project's synchronization finishes.
func (r *Runner) Wait(project string) (*Result, error) {
	t, ok := r.task(project)
	if !ok {
		return nil, ErrNoTask
	}
	<-t.done
	return t.result, t.err
}

// Synchronizer returns the last synchronization started for the project.
func (r *Runner) Synchronizer(project string) (*Synchronizer, bool) {
	t, ok := r.task(project)
	if !ok {
		return nil, false
	}
	return t.sync, true
}
