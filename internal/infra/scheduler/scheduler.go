// Package scheduler drives the Dispatcher's periodic cycle and the
// Janitor's periodic cleanup on cron-expression ticks, grounded in
// cmd/worker's original startCronWorker. It wraps github.com/robfig/cron/v3
// with a per-job overlap guard so a slow cycle is skipped rather than
// stacked when the next tick fires while one is still running.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Name identifies it in logs and
// metrics; Schedule is a standard 5-field cron expression; Run is invoked
// on each tick with a context cancelled on shutdown or timeout.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs cron-ticked Jobs, each with max_instances=1: if a job's
// previous run has not finished by the next tick, the tick is skipped and
// logged rather than queued.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]*scheduledJob
}

type scheduledJob struct {
	job     Job
	entryID cron.EntryID
	running int32 // atomic guard
}

// New builds a Scheduler ticking in loc (falls back to UTC if loc is nil).
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		jobs: make(map[string]*scheduledJob),
	}
}

// Add registers a job under its Name. Returns an error if the cron
// expression is invalid or the name is already taken.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", job.Name)
	}

	sj := &scheduledJob{job: job}
	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.runOnce(sj) })
	if err != nil {
		return fmt.Errorf("scheduler: add job %q: %w", job.Name, err)
	}
	sj.entryID = entryID
	s.jobs[job.Name] = sj
	return nil
}

// Get returns the registered job with the given name.
func (s *Scheduler) Get(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sj, ok := s.jobs[name]
	if !ok {
		return Job{}, false
	}
	return sj.job, true
}

// Remove unregisters the named job, stopping its future ticks. An in-flight
// run is left to finish. Reports whether the job existed.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sj, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(sj.entryID)
	delete(s.jobs, name)
	return true
}

// Reschedule replaces the named job's cron expression, keeping its Run
// function, timeout and overlap guard. The new expression is validated
// before the old schedule is dropped.
func (s *Scheduler) Reschedule(name, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: reschedule: job %q not registered", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() { s.runOnce(sj) })
	if err != nil {
		return fmt.Errorf("scheduler: reschedule job %q: %w", name, err)
	}
	s.cron.Remove(sj.entryID)
	sj.entryID = entryID
	sj.job.Schedule = schedule
	return nil
}

// runOnce executes sj.job.Run once, skipping the tick entirely if the
// previous invocation of the same job is still in flight.
func (s *Scheduler) runOnce(sj *scheduledJob) {
	if !atomic.CompareAndSwapInt32(&sj.running, 0, 1) {
		slog.Warn("scheduler: skipping tick, previous run still in progress",
			slog.String("job", sj.job.Name))
		return
	}
	defer atomic.StoreInt32(&sj.running, 0)

	ctx := context.Background()
	var cancel context.CancelFunc
	if sj.job.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, sj.job.Timeout)
		defer cancel()
	}

	start := time.Now()
	slog.Info("scheduler: job starting", slog.String("job", sj.job.Name))
	if err := sj.job.Run(ctx); err != nil {
		slog.Error("scheduler: job failed",
			slog.String("job", sj.job.Name), slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return
	}
	slog.Info("scheduler: job completed",
		slog.String("job", sj.job.Name), slog.Duration("duration", time.Since(start)))
}

// Start begins ticking every registered job. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop requests the cron scheduler to stop producing new ticks and waits
// (bounded by ctx) for any in-flight job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
