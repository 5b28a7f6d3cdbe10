// Package queue implements the bounded single-lane work queue used for
// embedding and similarity detection jobs.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ErrQueueFull is returned by Enqueue when the lane is at capacity.
// Callers surface this as a retry-later condition; Enqueue never blocks.
var ErrQueueFull = errors.New("queue is full")

// Task is one unit of queued work. A non-nil error marks the attempt as
// failed and triggers a retry, unless wrapped with backoff.Permanent.
type Task func(ctx context.Context) error

// NoRetries disables retries: a failed task is reported to its caller after
// the first attempt.
const NoRetries = -1

// Config holds the lane configuration.
type Config struct {
	// Capacity bounds the number of pending tasks. Defaults to 100.
	Capacity int
	// MaxRetries is how many times a failed task is retried before giving
	// up. Zero means the default of 3; set NoRetries to disable retries.
	MaxRetries int
	// BaseDelay is the delay before the first retry; each subsequent retry
	// doubles it. Defaults to 1s.
	BaseDelay time.Duration
}

type queuedTask struct {
	name string
	run  Task
	done chan error
}

// Stats is a point-in-time snapshot of the lane.
type Stats struct {
	Pending  int `json:"pending"`
	Running  int `json:"running"`
	Capacity int `json:"capacity"`
}

// Lane is a bounded FIFO queue drained by a single worker goroutine, so at
// most one task runs at a time. Tasks are retried with exponential backoff
// on failure.
type Lane struct {
	config Config
	tasks  chan *queuedTask

	mu      sync.Mutex
	running bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a lane. Call Start before enqueueing.
func New(config Config) *Lane {
	if config.Capacity <= 0 {
		config.Capacity = 100
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	return &Lane{
		config: config,
		tasks:  make(chan *queuedTask, config.Capacity),
	}
}

// Start launches the worker goroutine. The worker stops when ctx is canceled
// or Shutdown is called.
func (l *Lane) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.worker(ctx)
}

// Enqueue adds a task to the lane. It never blocks: when the lane is at
// capacity it returns ErrQueueFull immediately. The returned channel receives
// the task's final error (nil on success) once all attempts are exhausted.
func (l *Lane) Enqueue(name string, task Task) (<-chan error, error) {
	qt := &queuedTask{
		name: name,
		run:  task,
		done: make(chan error, 1),
	}
	select {
	case l.tasks <- qt:
		return qt.done, nil
	default:
		return nil, ErrQueueFull
	}
}

// Stats reports the current queue depth.
func (l *Lane) Stats() Stats {
	l.mu.Lock()
	running := 0
	if l.running {
		running = 1
	}
	l.mu.Unlock()

	return Stats{
		Pending:  len(l.tasks),
		Running:  running,
		Capacity: l.config.Capacity,
	}
}

// Shutdown stops the worker and waits for the in-flight task to finish.
// Pending tasks are discarded; their done channels receive a cancellation
// error.
func (l *Lane) Shutdown() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

func (l *Lane) worker(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return
		case qt := <-l.tasks:
			l.setRunning(true)
			err := l.runWithRetry(ctx, qt)
			l.setRunning(false)
			qt.done <- err
		}
	}
}

// runWithRetry executes a task, retrying failures with exponential backoff:
// the first retry waits BaseDelay, each subsequent one doubles the wait.
// RandomizationFactor is zero so the schedule is deterministic.
func (l *Lane) runWithRetry(ctx context.Context, qt *queuedTask) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := qt.run(ctx)
		if err != nil {
			slog.Warn("queued task attempt failed",
				"task", qt.name,
				"attempt", attempt,
				"error", err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.config.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(l.config.MaxRetries)), ctx))
	if err != nil {
		slog.Error("queued task failed permanently",
			"task", qt.name,
			"attempts", attempt,
			"error", err)
	}
	return err
}

func (l *Lane) drain() {
	for {
		select {
		case qt := <-l.tasks:
			qt.done <- errors.New("queue shut down before task ran")
		default:
			return
		}
	}
}

func (l *Lane) setRunning(running bool) {
	l.mu.Lock()
	l.running = running
	l.mu.Unlock()
}
