// Package scheduler runs the periodic housekeeping jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"learnstack/internal/logger"
)

// Default job intervals
const (
	LeaderboardInterval = 15 * time.Minute
	PurgeInterval       = time.Hour
)

// Job is one periodic task
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type LeaderboardRegenerator interface {
	RegenerateAll(ctx context.Context) error
}

type DoubtPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type OTPCleaner interface {
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	log       *logger.Logger
	scheduler *gocron.Scheduler
	jobs      []Job
}

// New creates a scheduler for the given jobs. Nothing runs until Start.
func New(log *logger.Logger, jobs ...Job) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		log:       log.With("component", "scheduler"),
		scheduler: s,
		jobs:      jobs,
	}
}

// DefaultJobs wires the leaderboard, doubt and OTP housekeeping jobs
func DefaultJobs(boards LeaderboardRegenerator, doubts DoubtPurger, otps OTPCleaner, leaderboardEvery time.Duration) []Job {
	if leaderboardEvery <= 0 {
		leaderboardEvery = LeaderboardInterval
	}
	return []Job{
		{Name: "leaderboards", Every: leaderboardEvery, Run: boards.RegenerateAll},
		{Name: "doubt-purge", Every: PurgeInterval, Run: counted(doubts.PurgeExpired)},
		{Name: "otp-cleanup", Every: PurgeInterval, Run: counted(otps.CleanupExpiredOTPs)},
	}
}

// counted drops the row count of a purge so it fits Job.Run
func counted(fn func(context.Context) (int64, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

// Start registers every job and begins running them in the background. Each
// job runs once immediately, then on its interval. ctx is handed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Every <= 0 {
			return fmt.Errorf("job %s: interval must be positive", job.Name)
		}
		if _, err := s.scheduler.Every(job.Every).Tag(job.Name).Do(s.runJob, ctx, job); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
	}
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.log.Info("scheduler stopped")
}

// RunAll runs every job once in order and returns the first error
func (s *Scheduler) RunAll(ctx context.Context) error {
	for _, job := range s.jobs {
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", job.Name, err)
		}
	}
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.log.Error("scheduled job failed", "job", job.Name, "error", err)
		return
	}
	s.log.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start))
}
