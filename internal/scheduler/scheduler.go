// Package scheduler runs the periodic maintenance jobs: expiring
// revoked tokens and pruning stale rate-limiter windows.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/normanking/taskdeck/internal/auth"
	"github.com/normanking/taskdeck/internal/logging"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron      *cron.Cron
	blacklist *auth.MemoryBlacklist
	limiter   *auth.RateLimiter
	log       *logging.Logger
}

// New creates a scheduler. blacklist may be nil when Redis handles
// revocation TTLs; limiter may be nil when rate limiting is disabled.
func New(blacklist *auth.MemoryBlacklist, limiter *auth.RateLimiter, log *logging.Logger) *Scheduler {
	s := &Scheduler{
		cron:      cron.New(),
		blacklist: blacklist,
		limiter:   limiter,
		log:       log,
	}
	s.scheduleCleanup()
	return s
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// scheduleCleanup runs the hourly expiry sweep.
func (s *Scheduler) scheduleCleanup() {
	_, err := s.cron.AddFunc("@hourly", s.runCleanup)
	if err != nil {
		s.log.Error("failed to schedule cleanup job", "error", err)
	}
}

func (s *Scheduler) runCleanup() {
	if s.blacklist != nil {
		removed := s.blacklist.PurgeExpired()
		s.log.Info("token blacklist cleanup", "removed", removed)
	}
	if s.limiter != nil {
		removed := s.limiter.Purge(time.Minute)
		s.log.Debug("rate limiter cleanup", "removed", removed)
	}
}
