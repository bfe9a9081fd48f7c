package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/freekieb7/thimble/http"
)

const DefaultTick = time.Second

var (
	ErrInvalidInterval = errors.New("schedule: job interval must be greater than 0")
	ErrNoTasks         = errors.New("schedule: job must have at least one task")
)

// Task is one unit of work in a job. Tasks running on an http.Loop should
// block only through http.Await or http.Sleep with the ctx they are given.
type Task func(ctx context.Context) error

// Executor starts fn as an independent task. *http.Loop is one.
type Executor interface {
	Go(ctx context.Context, fn func(ctx context.Context))
}

// Goroutines runs every task on a plain goroutine, detached from any loop.
type Goroutines struct{}

func (Goroutines) Go(ctx context.Context, fn func(ctx context.Context)) {
	go fn(http.Detach(ctx))
}

type Scheduler struct {
	// Executor runs due jobs; Goroutines when nil.
	Executor Executor
	Logger   *slog.Logger
	Tick     time.Duration

	jobs []*Job
	mu   sync.RWMutex
}

func NewScheduler(executor Executor) *Scheduler {
	return &Scheduler{
		Executor: executor,
		Logger:   slog.Default(),
		Tick:     DefaultTick,
		jobs:     make([]*Job, 0),
	}
}

// AddJob panics on an invalid job; jobs are registered at startup.
func (scheduler *Scheduler) AddJob(job *Job) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if err := scheduler.validateJob(job); err != nil {
		panic(fmt.Sprintf("invalid job: %v", err))
	}

	scheduler.jobs = append(scheduler.jobs, job)
}

func (scheduler *Scheduler) validateJob(job *Job) error {
	if job.interval <= 0 {
		return ErrInvalidInterval
	}
	if len(job.tasks) == 0 {
		return ErrNoTasks
	}
	if job.nextExecuteAt.IsZero() {
		job.nextExecuteAt = time.Now().Add(job.interval)
	}
	return nil
}

type Job struct {
	tasks             []Task
	interval          time.Duration
	nextExecuteAt     time.Time
	previousExecuteAt time.Time
	name              string
	maxRetries        int
	timeout           time.Duration
	running           bool
	mu                sync.RWMutex
}

func NewJob() *Job {
	return &Job{
		tasks: make([]Task, 0),
	}
}

func (job *Job) WithTasks(tasks ...Task) *Job {
	job.tasks = tasks
	return job
}

func (job *Job) WithInterval(interval time.Duration) *Job {
	job.interval = interval
	return job
}

// WithExecuteAt sets the first run; by default a job first runs one interval
// after it is added.
func (job *Job) WithExecuteAt(executeAt time.Time) *Job {
	job.nextExecuteAt = executeAt
	return job
}

func (job *Job) AddTask(task Task) {
	job.tasks = append(job.tasks, task)
}

func (job *Job) WithName(name string) *Job {
	job.name = name
	return job
}

// WithTimeout bounds every task attempt through its context deadline.
func (job *Job) WithTimeout(timeout time.Duration) *Job {
	job.timeout = timeout
	return job
}

func (job *Job) WithRetries(maxRetries int) *Job {
	job.maxRetries = maxRetries
	return job
}

// PreviousExecuteAt reports when the job last started, zero if never.
func (job *Job) PreviousExecuteAt() time.Time {
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.previousExecuteAt
}

// Run checks for due jobs every Tick until ctx is done. The wait between
// ticks goes through http.Sleep, so Run can itself be a task on an
// http.Loop without starving it.
func (scheduler *Scheduler) Run(ctx context.Context) error {
	executor := scheduler.Executor
	if executor == nil {
		executor = Goroutines{}
	}
	logger := scheduler.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tick := scheduler.Tick
	if tick <= 0 {
		tick = DefaultTick
	}

	for {
		if err := http.Sleep(ctx, tick); err != nil {
			return err
		}

		scheduler.mu.RLock()
		jobs := make([]*Job, len(scheduler.jobs))
		copy(jobs, scheduler.jobs)
		scheduler.mu.RUnlock()

		now := time.Now()
		for _, job := range jobs {
			if job.claim(now) {
				executor.Go(ctx, func(ctx context.Context) {
					scheduler.executeJob(ctx, logger, job, now)
				})
			}
		}
	}
}

// claim marks a due job as running so a slow job is never started twice.
func (job *Job) claim(now time.Time) bool {
	job.mu.Lock()
	defer job.mu.Unlock()

	if job.running || job.nextExecuteAt.After(now) {
		return false
	}
	job.running = true
	job.previousExecuteAt = now
	return true
}

func (job *Job) finish(now time.Time) {
	job.mu.Lock()
	defer job.mu.Unlock()
	job.running = false
	job.nextExecuteAt = now.Add(job.interval)
}

func (scheduler *Scheduler) executeJob(ctx context.Context, logger *slog.Logger, job *Job, now time.Time) {
	defer job.finish(now)

	for i, task := range job.tasks {
		if err := scheduler.executeTask(ctx, task, job); err != nil {
			logger.WarnContext(ctx, "task execution failed", "job", job.name, "task", i, "error", err)
		}
	}
}

func (scheduler *Scheduler) executeTask(ctx context.Context, task Task, job *Job) error {
	var err error
	for attempt := 0; attempt <= job.maxRetries; attempt++ {
		if err = runTask(ctx, task, job.timeout); err == nil || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func runTask(ctx context.Context, task Task, timeout time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v\n%s", r, debug.Stack())
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return task(ctx)
}
