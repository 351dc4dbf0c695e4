package dispatch

import (
	"sync"
)

// Executor is a single-consumer task queue: submitted tasks run strictly in
// submission order on one dedicated goroutine. Submit never blocks the
// caller. Each handler owns exactly one Executor.
type Executor struct {
	mu       sync.Mutex
	tasks    []func()
	shutdown bool

	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewExecutor creates an Executor and starts its consumer goroutine.
func NewExecutor() *Executor {
	e := &Executor{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

// Submit enqueues a task. Reports false once shutdown has begun.
func (e *Executor) Submit(task func()) bool {
	if task == nil {
		return false
	}
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return false
	}
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// Shutdown stops the executor: no new work is accepted, the in-flight task
// finishes, queued tasks are abandoned. Safe to call more than once; only the
// first call does anything. Must not be called from a submitted task.
func (e *Executor) Shutdown() {
	e.once.Do(func() {
		e.mu.Lock()
		e.shutdown = true
		e.tasks = nil
		e.mu.Unlock()

		select {
		case e.wake <- struct{}{}:
		default:
		}
	})
	<-e.stopped
}

func (e *Executor) run() {
	defer close(e.stopped)
	for {
		e.mu.Lock()
		if e.shutdown {
			e.mu.Unlock()
			return
		}
		var task func()
		if len(e.tasks) > 0 {
			task = e.tasks[0]
			e.tasks = e.tasks[1:]
		}
		e.mu.Unlock()

		if task != nil {
			task()
			continue
		}
		<-e.wake
	}
}
