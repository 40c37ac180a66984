// Package pool runs CPU-heavy render tasks on a bounded set of reusable
// workers. A single manager goroutine owns all queue and worker state via
// message passing; there is no shared-lock bookkeeping.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cardforge/cardforge/internal/constants"
)

// ErrDestroyed is returned for jobs submitted to or queued on a pool that
// has been destroyed.
var ErrDestroyed = errors.New("worker pool destroyed")

// Task is one unit of work. The context is the pool's lifetime context.
type Task func(ctx context.Context) (any, error)

// Result is the outcome of a submitted task.
type Result struct {
	Value any
	Err   error
}

// pending couples a task with its promise channel.
type pending struct {
	task Task
	out  chan Result
}

// worker is one reusable executor goroutine. taskCh is buffered so the
// manager never blocks dispatching; retireCh resolves the race between an
// idle expiry request and a concurrent dispatch.
type worker struct {
	taskCh   chan *pending
	retireCh chan struct{}
}

// Pool executes tasks on at most maxWorkers concurrent workers. Idle
// workers are terminated after an idle timeout; submissions beyond the
// worker bound queue FIFO. Safe for concurrent use.
type Pool struct {
	maxWorkers  int
	idleTimeout time.Duration

	submitCh  chan *pending
	doneCh    chan *worker
	crashCh   chan *worker
	expireCh  chan *worker
	destroyCh chan chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	// Observability counters.
	spawned atomic.Int64
	retired atomic.Int64
	crashed atomic.Int64
}

// Option adjusts pool behavior.
type Option func(*Pool)

// WithIdleTimeout overrides how long an idle worker survives.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Pool) { p.idleTimeout = d }
}

// DefaultMaxWorkers returns the default worker bound: the CPU count,
// capped so oversized machines do not thrash the page compositor.
func DefaultMaxWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}
	if n > constants.MaxWorkersCap {
		n = constants.MaxWorkersCap
	}
	return n
}

// New creates a pool with the given worker bound and starts its manager.
func New(maxWorkers int, opts ...Option) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		maxWorkers:  maxWorkers,
		idleTimeout: constants.WorkerIdleTimeout,
		submitCh:    make(chan *pending),
		doneCh:      make(chan *worker),
		crashCh:     make(chan *worker),
		expireCh:    make(chan *worker),
		destroyCh:   make(chan chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.manage()
	return p
}

// MaxWorkers returns the worker bound.
func (p *Pool) MaxWorkers() int { return p.maxWorkers }

// Spawned returns how many workers have ever been started.
func (p *Pool) Spawned() int64 { return p.spawned.Load() }

// Retired returns how many workers were terminated for idleness.
func (p *Pool) Retired() int64 { return p.retired.Load() }

// Crashed returns how many workers were terminated by a task panic.
func (p *Pool) Crashed() int64 { return p.crashed.Load() }

// Submit enqueues a task and returns its promise channel. The channel is
// buffered and receives exactly one Result.
func (p *Pool) Submit(task Task) <-chan Result {
	out := make(chan Result, 1)
	job := &pending{task: task, out: out}
	select {
	case p.submitCh <- job:
	case <-p.ctx.Done():
		out <- Result{Err: ErrDestroyed}
	}
	return out
}

// DestroyAll terminates all workers and fails every queued job. The pool
// must not be used afterwards.
func (p *Pool) DestroyAll() {
	ack := make(chan struct{})
	select {
	case p.destroyCh <- ack:
		<-ack
	case <-p.ctx.Done():
	}
}

// manage is the single control goroutine. It owns the FIFO queue, the idle
// worker stack and the live set; workers communicate only through channels.
func (p *Pool) manage() {
	var queue []*pending
	var idle []*worker
	live := make(map[*worker]bool)

	dispatch := func(w *worker, job *pending) {
		w.taskCh <- job
	}

	for {
		select {
		case job := <-p.submitCh:
			if n := len(idle); n > 0 {
				w := idle[n-1]
				idle = idle[:n-1]
				dispatch(w, job)
			} else if len(live) < p.maxWorkers {
				w := p.spawn()
				live[w] = true
				dispatch(w, job)
			} else {
				queue = append(queue, job)
			}

		case w := <-p.doneCh:
			if len(queue) > 0 {
				job := queue[0]
				queue = queue[1:]
				dispatch(w, job)
			} else {
				idle = append(idle, w)
			}

		case w := <-p.crashCh:
			// The worker already failed its in-flight job and exited.
			delete(live, w)
			p.crashed.Add(1)
			if len(queue) > 0 {
				job := queue[0]
				queue = queue[1:]
				nw := p.spawn()
				live[nw] = true
				dispatch(nw, job)
			}

		case w := <-p.expireCh:
			if i := indexOf(idle, w); i >= 0 {
				idle = append(idle[:i], idle[i+1:]...)
				delete(live, w)
				close(w.retireCh)
				p.retired.Add(1)
			}
			// Not idle: a task was dispatched concurrently with the
			// expiry request, the worker keeps running it.

		case ack := <-p.destroyCh:
			for _, job := range queue {
				job.out <- Result{Err: ErrDestroyed}
			}
			for w := range live {
				close(w.retireCh)
			}
			p.cancel()
			close(ack)
			return
		}
	}
}

// spawn starts one worker goroutine.
func (p *Pool) spawn() *worker {
	w := &worker{
		taskCh:   make(chan *pending, 1),
		retireCh: make(chan struct{}),
	}
	p.spawned.Add(1)
	go p.run(w)
	return w
}

// run is the worker loop: execute tasks until retired or idle-expired.
// Each completed task resets the idle timer. Every retirement path drains
// a concurrently dispatched task so its promise channel still resolves.
func (p *Pool) run(w *worker) {
	for {
		idleTimer := time.NewTimer(p.idleTimeout)
		select {
		case job := <-w.taskCh:
			idleTimer.Stop()
			if !p.execute(w, job) {
				return
			}
			select {
			case p.doneCh <- w:
			case <-w.retireCh:
				p.failDispatched(w)
				return
			}

		case <-idleTimer.C:
			// Ask the manager to retire us; it may have dispatched a
			// task in the same instant, in which case keep working.
			select {
			case p.expireCh <- w:
			case <-w.retireCh:
				p.failDispatched(w)
				return
			}
			select {
			case job := <-w.taskCh:
				if !p.execute(w, job) {
					return
				}
				select {
				case p.doneCh <- w:
				case <-w.retireCh:
					p.failDispatched(w)
					return
				}
			case <-w.retireCh:
				p.failDispatched(w)
				return
			}

		case <-w.retireCh:
			idleTimer.Stop()
			p.failDispatched(w)
			return
		}
	}
}

// failDispatched resolves a task that was dispatched into the worker's
// buffer concurrently with retirement. DestroyAll can close retireCh while
// a job sits unclaimed in taskCh; without the drain its promise channel
// would never receive a Result.
func (p *Pool) failDispatched(w *worker) {
	select {
	case job := <-w.taskCh:
		job.out <- Result{Err: ErrDestroyed}
	default:
	}
}

// execute runs one task, converting panics into job failures. It returns
// false when the worker must terminate (task panicked).
func (p *Pool) execute(w *worker, job *pending) (alive bool) {
	alive = true
	defer func() {
		if r := recover(); r != nil {
			job.out <- Result{Err: fmt.Errorf("worker crashed: %v", r)}
			alive = false
			select {
			case p.crashCh <- w:
			case <-p.ctx.Done():
			}
		}
	}()

	value, err := job.task(p.ctx)
	job.out <- Result{Value: value, Err: err}
	return alive
}

func indexOf(ws []*worker, w *worker) int {
	for i, c := range ws {
		if c == w {
			return i
		}
	}
	return -1
}
