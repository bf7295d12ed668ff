package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/hotel-price-tracker/internal/metrics"
	"github.com/donaldgifford/hotel-price-tracker/internal/store"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

// Scheduled job names, also used as job_runs.job_name and lock keys.
const (
	JobPriceCheck   = "price_check"
	JobAlertCleanup = "alert_cleanup"
	JobDigestDaily  = "alert_digest_daily"
	JobDigestWeekly = "alert_digest_weekly"
)

// KnownJobs lists every job the scheduler can register, in display order.
var KnownJobs = []string{JobPriceCheck, JobAlertCleanup, JobDigestDaily, JobDigestWeekly}

const (
	staleRunsAfter    = 2 * time.Hour
	defaultJobLockTTL = 30 * time.Minute

	jobStatusOK     = "succeeded"
	jobStatusFailed = "failed"
)

// ScheduleConfig sets when each job runs. Intervals of zero and empty
// cron specs disable the job.
type ScheduleConfig struct {
	CheckInterval   time.Duration
	CleanupInterval time.Duration
	DigestDaily     string
	DigestWeekly    string
}

// Scheduler runs monitor jobs on a cron schedule. Each run takes a
// distributed job lock and is recorded in job_runs; a run that cannot
// take the lock is skipped.
type Scheduler struct {
	cron    *cron.Cron
	monitor *Monitor
	store   store.Store
	log     *slog.Logger
	holder  string
	entries map[string]cron.EntryID
}

// NewScheduler registers the configured jobs. It does not start them.
func NewScheduler(
	m *Monitor,
	s store.Store,
	cfg ScheduleConfig,
	log *slog.Logger,
) (*Scheduler, error) {
	sched := &Scheduler{
		cron:    cron.New(),
		monitor: m,
		store:   s,
		log:     log,
		holder:  uuid.NewString(),
		entries: make(map[string]cron.EntryID),
	}

	if cfg.CheckInterval > 0 {
		if err := sched.add(JobPriceCheck, "@every "+cfg.CheckInterval.String(), sched.runPriceCheck); err != nil {
			return nil, err
		}
	}
	if cfg.CleanupInterval > 0 {
		if err := sched.add(JobAlertCleanup, "@every "+cfg.CleanupInterval.String(), sched.runCleanup); err != nil {
			return nil, err
		}
	}
	if cfg.DigestDaily != "" {
		if err := sched.add(JobDigestDaily, cfg.DigestDaily, sched.digestRunner(domain.FrequencyDaily)); err != nil {
			return nil, err
		}
	}
	if cfg.DigestWeekly != "" {
		if err := sched.add(JobDigestWeekly, cfg.DigestWeekly, sched.digestRunner(domain.FrequencyWeekly)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func (s *Scheduler) add(name, spec string, fn func(context.Context) (int, error)) error {
	id, err := s.cron.AddFunc(spec, func() {
		_ = s.RunJob(context.Background(), name, fn)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "jobs", len(s.entries))
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.entries))
	for _, n := range KnownJobs {
		if _, ok := s.entries[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// NextRuns returns when each registered job fires next. Times are zero
// until the scheduler is started.
func (s *Scheduler) NextRuns() map[string]time.Time {
	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// SyncNextRunTimestamps publishes each job's next run time as a metric.
func (s *Scheduler) SyncNextRunTimestamps() {
	for name, id := range s.entries {
		next := s.cron.Entry(id).Next
		if next.IsZero() {
			continue
		}
		metrics.SchedulerNextRunTimestamp.WithLabelValues(name).Set(float64(next.Unix()))
	}
}

// RecoverStaleJobRuns marks runs left "running" by a dead process as crashed.
func (s *Scheduler) RecoverStaleJobRuns(ctx context.Context) {
	n, err := s.store.RecoverStaleJobRuns(ctx, staleRunsAfter)
	if err != nil {
		s.log.Error("recovering stale job runs", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("marked stale job runs as crashed", "count", n)
	}
}

// RunJob runs fn as the named job under the job lock and records the run.
// It returns nil without running fn when another holder has the lock.
func (s *Scheduler) RunJob(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	acquired, err := s.store.AcquireSchedulerLock(ctx, name, s.holder, defaultJobLockTTL)
	if err != nil {
		s.log.Error("acquiring job lock", "job", name, "error", err)
		return fmt.Errorf("acquiring lock for %s: %w", name, err)
	}
	if !acquired {
		s.log.Info("job already running elsewhere, skipping", "job", name)
		return nil
	}
	defer func() {
		if err := s.store.ReleaseSchedulerLock(context.WithoutCancel(ctx), name, s.holder); err != nil {
			s.log.Error("releasing job lock", "job", name, "error", err)
		}
		s.SyncNextRunTimestamps()
	}()

	runID, err := s.store.InsertJobRun(ctx, name)
	if err != nil {
		s.log.Error("recording job start", "job", name, "error", err)
	}

	s.log.Info("job starting", "job", name)
	start := time.Now()
	rows, jobErr := fn(ctx)
	elapsed := time.Since(start)

	status, errText := jobStatusOK, ""
	if jobErr != nil {
		status, errText = jobStatusFailed, jobErr.Error()
		s.log.Error("job failed", "job", name, "duration", elapsed, "error", jobErr)
	} else {
		s.log.Info("job complete", "job", name, "duration", elapsed, "rows", rows)
	}
	metrics.SchedulerJobDuration.WithLabelValues(name, status).Observe(elapsed.Seconds())

	if runID != "" {
		if err := s.store.CompleteJobRun(context.WithoutCancel(ctx), runID, status, errText, rows); err != nil {
			s.log.Error("recording job completion", "job", name, "error", err)
		}
	}
	return jobErr
}

func (s *Scheduler) runPriceCheck(ctx context.Context) (int, error) {
	return s.monitor.RunCycle(ctx, "")
}

func (s *Scheduler) runCleanup(ctx context.Context) (int, error) {
	return s.monitor.CleanupOldAlerts(ctx)
}

func (s *Scheduler) digestRunner(freq domain.Frequency) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return s.monitor.SendDigests(ctx, freq)
	}
}
