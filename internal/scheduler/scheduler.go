package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/lease"
	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
)

// Lock keys shared by every replica.
const (
	SyncLockKey  = "sync-transaction-lock"
	GetLockKey   = "get-transaction-lock"
	PurgeLockKey = "purge-transaction-lock"
)

var (
	ErrUnknownJob = errors.New("scheduler: unknown job")
	ErrStopped    = errors.New("scheduler: stopped")
)

// Job is one periodically triggered unit of work guarded by a lease.
type Job struct {
	Name         string
	Schedule     string
	LockKey      string
	LeaseTimeout time.Duration
	LeaseRefresh time.Duration
	Run          func(ctx context.Context) error
}

// JobStatus is the outcome of a job's most recent tick on this replica.
type JobStatus struct {
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule"`
	LastRun      time.Time `json:"lastRun,omitempty"`
	LastResult   string    `json:"lastResult,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	LastDuration string    `json:"lastDuration,omitempty"`
	NextRun      time.Time `json:"nextRun,omitempty"`
	Runs         int64     `json:"runs"`
}

// Scheduler fires each job on its cron schedule. A tick only does work on the replica
// that wins the job's lease, and a replica never overlaps two ticks of the same job.
type Scheduler struct {
	cron    *cron.Cron
	chain   cron.Chain
	locker  lease.ILocker
	logger  *logrus.Logger
	metrics *metrics.Collector

	ctx    context.Context
	cancel context.CancelFunc

	// triggered tracks manual runs, which cron's own Stop does not wait for.
	triggered sync.WaitGroup

	mu      sync.RWMutex
	jobs    map[string]cron.Job
	entries map[string]cron.EntryID
	status  map[string]*JobStatus
}

func New(locker lease.ILocker, location *time.Location, logger *logrus.Logger, collector *metrics.Collector) *Scheduler {
	cronLogger := cron.PrintfLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cronLogger),
		),
		chain:   cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		locker:  locker,
		logger:  logger,
		metrics: collector,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(map[string]cron.Job),
		entries: make(map[string]cron.EntryID),
		status:  make(map[string]*JobStatus),
	}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.LockKey == "" || job.Run == nil {
		return fmt.Errorf("scheduler: job %q is incomplete", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("scheduler: job %q already registered", job.Name)
	}

	schedule, err := cron.ParseStandard(job.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: job %q schedule %q: %w", job.Name, job.Schedule, err)
	}

	// Scheduled and manual runs share one wrapped job, so they never overlap on this replica.
	wrapped := s.chain.Then(cron.FuncJob(func() { s.tick(job) }))
	id := s.cron.Schedule(schedule, wrapped)

	s.jobs[job.Name] = wrapped
	s.entries[job.Name] = id
	s.status[job.Name] = &JobStatus{Name: job.Name, Schedule: job.Schedule}
	return nil
}

func (s *Scheduler) Start() {
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler.Start")
	s.cron.Start()
}

// Stop stops firing new ticks, cancels the running ones and waits for them to return
// or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	allDone := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.triggered.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		s.logger.Info("Scheduler.Stop.complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: running jobs did not stop: %w", ctx.Err())
	}
}

// runNow runs one tick of the named job right away, outside its schedule, and returns
// once it finished. A tick of the same job already running on this replica makes it a no-op.
func (s *Scheduler) runNow(name string) error {
	run, err := s.startTriggered(name)
	if err != nil {
		return err
	}
	defer s.triggered.Done()
	run.Run()
	return nil
}

// TriggerAsync starts one tick of the named job in the background, outside its schedule,
// through the same Recover and SkipIfStillRunning chain as scheduled ticks. Stop waits for it.
func (s *Scheduler) TriggerAsync(name string) error {
	run, err := s.startTriggered(name)
	if err != nil {
		return err
	}
	go func() {
		defer s.triggered.Done()
		run.Run()
	}()
	return nil
}

func (s *Scheduler) startTriggered(name string) (cron.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if s.ctx.Err() != nil {
		return nil, ErrStopped
	}
	s.triggered.Add(1)
	s.logger.WithField("job", name).Info("Scheduler.Trigger")
	return run, nil
}

// Status returns the status of every job ordered by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.status))
	for name, st := range s.status {
		copied := *st
		if id, ok := s.entries[name]; ok {
			copied.NextRun = s.cron.Entry(id).Next
		}
		statuses = append(statuses, copied)
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (s *Scheduler) tick(job Job) {
	start := time.Now()
	entry := s.logger.WithField("job", job.Name)

	ran, err := s.locker.AcquireAndRun(s.ctx, job.LockKey, job.LeaseTimeout, job.LeaseRefresh, func(ctx context.Context) error {
		return logging.WithSpan(ctx, s.logger, "Job."+job.Name, job.Run)
	})
	duration := time.Since(start)

	var result string
	switch {
	case !ran && err != nil:
		// The lease store could not be reached; nobody can be sure who holds the lease.
		result = metrics.ResultError
		entry.WithError(err).Warn("Scheduler.Tick.lockUnavailable")
	case !ran:
		result = metrics.ResultSkipped
		entry.Debug("Scheduler.Tick.skipped")
	case errors.Is(err, lease.ErrLeaseLost):
		result = metrics.ResultError
		s.metrics.RecordLeaseLost(job.Name)
	case err != nil:
		result = metrics.ResultError
	default:
		result = metrics.ResultSuccess
	}

	s.metrics.RecordJobRun(job.Name, result, duration)
	s.record(job.Name, start, duration, result, err)
}

func (s *Scheduler) record(name string, start time.Time, duration time.Duration, result string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.status[name]
	if !ok {
		return
	}
	st.LastRun = start
	st.LastResult = result
	st.LastDuration = duration.String()
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
	if result != metrics.ResultSkipped {
		st.Runs++
	}
}
