package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier receives operational events from the scheduler. Implemented
// by the Telegram ops channel; a nil Notifier disables notifications.
type Notifier interface {
	JobFailed(jobName string, err error)
	DailySummary(postsCreated int)
}

// Job is one recurring unit of scheduled work.
type Job struct {
	Name string
	// Next returns the first run time strictly after now.
	Next func(now time.Time) time.Time
	Run  func(ctx context.Context) error

	running atomic.Bool
}

// Scheduler drives independent recurring jobs on a wall-clock cadence.
// Each job runs in its own goroutine behind its own error boundary; a
// failing or slow job never affects the others.
type Scheduler struct {
	jobs     []*Job
	location *time.Location
	logger   *zap.Logger
	notifier Notifier

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(location *time.Location, notifier Notifier, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		location: location,
		logger:   logger,
		notifier: notifier,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Register(job *Job) {
	s.jobs = append(s.jobs, job)
}

func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(job *Job) {
	defer s.wg.Done()

	for {
		now := time.Now().In(s.location)
		next := job.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			s.runJob(job)
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// runJob executes one tick. If the previous run of the same job is
// still going, the tick is skipped rather than stacked.
func (s *Scheduler) runJob(job *Job) {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping job tick, previous run still in progress",
			zap.String("job", job.Name))
		return
	}
	defer job.running.Store(false)

	runID := uuid.New().String()
	start := time.Now()
	s.logger.Info("Job started",
		zap.String("job", job.Name),
		zap.String("run_id", runID))

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		return job.Run(context.Background())
	}()

	if err != nil {
		s.logger.Error("Job failed",
			zap.Error(err),
			zap.String("job", job.Name),
			zap.String("run_id", runID))
		if s.notifier != nil {
			s.notifier.JobFailed(job.Name, err)
		}
		return
	}

	s.logger.Info("Job finished",
		zap.String("job", job.Name),
		zap.String("run_id", runID),
		zap.Duration("took", time.Since(start)))
}

// NextDaily schedules a run once per day at the given hour.
func NextDaily(hour int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// NextHourly schedules a run once per hour at the given minute.
func NextHourly(minute int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
		return next
	}
}

// NextHalfHourly schedules runs aligned to :00 and :30.
func NextHalfHourly() func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
		for !next.After(now) {
			next = next.Add(30 * time.Minute)
		}
		return next
	}
}
