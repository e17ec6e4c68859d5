// Package scheduler runs migrations on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/logging"
)

// ErrBusy is returned by RunNow while a migration is in progress.
var ErrBusy = errors.New("a migration is already in progress")

// DefaultRunTimeout bounds one scheduled migration.
const DefaultRunTimeout = time.Hour

// RunFunc performs one full migration.
type RunFunc func(ctx context.Context) error

// LastRun describes the most recent migration started by the scheduler.
type LastRun struct {
	Trigger    string     `json:"trigger"` // "schedule" or "manual"
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// MigrationScheduler triggers migrations from a cron schedule or on demand.
// At most one migration runs at a time; a tick that arrives while one is in
// progress is skipped.
type MigrationScheduler struct {
	run        RunFunc
	schedule   string
	runTimeout time.Duration
	logger     *zap.SugaredLogger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	lastRun    *LastRun
	cancelFunc context.CancelFunc
}

// NewMigrationScheduler creates a new scheduler instance
func NewMigrationScheduler(run RunFunc, schedule string, logger *zap.SugaredLogger) *MigrationScheduler {
	return &MigrationScheduler{
		run:        run,
		schedule:   schedule,
		runTimeout: DefaultRunTimeout,
		logger:     logging.OrNop(logger),
		cron:       cron.New(cron.WithParser(parser)),
	}
}

// SetRunTimeout overrides DefaultRunTimeout (optional).
func (s *MigrationScheduler) SetRunTimeout(timeout time.Duration) {
	s.runTimeout = timeout
}

// Start begins the cron schedule. It stops when ctx is cancelled.
func (s *MigrationScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return errors.Wrapf(err, "invalid cron schedule '%s'", s.schedule)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runMigration("schedule")
	})
	if err != nil {
		return errors.Wrap(err, "failed to schedule migration job")
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.schedule, time.Now())
	s.logger.Infow("migration scheduler started",
		"schedule", s.schedule,
		"description", GetCronDescription(s.schedule),
		"next_run", nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running migration.
func (s *MigrationScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.mu.Unlock()

	// Stop accepting new jobs and wait for running jobs to complete.
	// The lock is released first: a finishing run needs it.
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Infow("migration scheduler stopped")
}

// RunNow triggers an immediate migration in the background. The run is
// claimed before returning, so concurrent callers get ErrBusy.
func (s *MigrationScheduler) RunNow() error {
	last, ok := s.claim("manual")
	if !ok {
		return ErrBusy
	}

	go s.execute(last)
	return nil
}

// IsRunning returns whether the schedule is active
func (s *MigrationScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a migration is currently in progress
func (s *MigrationScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// LastRun returns a copy of the most recent run, or nil.
func (s *MigrationScheduler) LastRun() *LastRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return nil
	}
	last := *s.lastRun
	return &last
}

// GetNextRunTime returns when the next migration will occur
func (s *MigrationScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// Schedule returns the cron expression.
func (s *MigrationScheduler) Schedule() string {
	return s.schedule
}

func (s *MigrationScheduler) runMigration(trigger string) {
	last, ok := s.claim(trigger)
	if !ok {
		s.logger.Infow("migration skipped, already in progress", "trigger", trigger)
		return
	}
	s.execute(last)
}

// claim marks a migration as in progress. It reports false when one already is.
func (s *MigrationScheduler) claim(trigger string) (*LastRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSyncing {
		return nil, false
	}
	s.isSyncing = true
	s.lastRun = &LastRun{Trigger: trigger, StartedAt: time.Now()}
	return s.lastRun, true
}

func (s *MigrationScheduler) execute(last *LastRun) {
	trigger := last.Trigger
	s.logger.Infow("migration starting", "trigger", trigger)

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	err := s.run(ctx)

	s.mu.Lock()
	finished := time.Now()
	last.FinishedAt = &finished
	if err != nil {
		last.Error = err.Error()
	}
	s.isSyncing = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorw("migration failed", "trigger", trigger, "error", err)
		return
	}
	s.logger.Infow("migration finished", "trigger", trigger, "duration", finished.Sub(last.StartedAt).Round(time.Millisecond))
}
