package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"printpoller/internal/domain/entity"
	"printpoller/internal/domain/repository"
	"printpoller/internal/infrastructure/metrics"

	"golang.org/x/sync/errgroup"
)

const panicFailureReason = "internal error while processing job"

type PollerConfig struct {
	Interval     time.Duration
	StoreTimeout time.Duration
	FetchTimeout time.Duration
	PrintTimeout time.Duration
}

func (c *PollerConfig) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Minute
	}
	if c.PrintTimeout <= 0 {
		c.PrintTimeout = time.Minute
	}
}

// PrintPoller discovers processing jobs on a fixed interval and runs each
// one in its own goroutine.
type PrintPoller struct {
	jobs        repository.JobRepository
	content     repository.ContentStore
	transformer repository.Transformer
	dispatcher  repository.Dispatcher
	workspace   repository.Workspace

	claims *ClaimSet
	logger *slog.Logger
	cfg    PollerConfig

	mu       sync.Mutex
	degraded bool
	lastTick time.Time

	inflight sync.WaitGroup

	// control
	stopOnce sync.Once
	stop     chan struct{}
	stopped  chan struct{}
}

func NewPrintPoller(
	jobs repository.JobRepository,
	content repository.ContentStore,
	transformer repository.Transformer,
	dispatcher repository.Dispatcher,
	workspace repository.Workspace,
	claims *ClaimSet,
	logger *slog.Logger,
	cfg PollerConfig,
) *PrintPoller {
	cfg.setDefaults()
	if claims == nil {
		claims = NewClaimSet()
	}
	return &PrintPoller{
		jobs:        jobs,
		content:     content,
		transformer: transformer,
		dispatcher:  dispatcher,
		workspace:   workspace,
		claims:      claims,
		logger:      logger,
		cfg:         cfg,
		// connectivity is unknown until the first probe
		degraded: true,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (s *PrintPoller) Claims() *ClaimSet {
	return s.claims
}

func (s *PrintPoller) Start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.logger.Info("PrintPoller started", "interval", s.cfg.Interval)

		if err := s.runOnce(ctx); err != nil {
			s.logger.Warn("initial runOnce failed", "err", err)
		}

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("PrintPoller context canceled")
				return
			case <-s.stop:
				s.logger.Info("PrintPoller stopped by Stop()")
				return
			case <-ticker.C:
				if err := s.runOnce(ctx); err != nil {
					s.logger.Warn("runOnce failed", "err", err)
				}
			}
		}
	}()
}

// Stop halts discovery. Jobs already running are not interrupted; see Drain.
func (s *PrintPoller) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.stopped
	s.logger.Info("PrintPoller fully stopped")
}

// Drain waits for in-flight jobs until ctx is done, then clears the claim set.
func (s *PrintPoller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	defer s.claims.Clear()

	select {
	case <-done:
		s.logger.Info("all in-flight jobs finished")
		return nil
	case <-ctx.Done():
		s.logger.Warn("drain interrupted", "in_flight", s.claims.Snapshot(), "err", ctx.Err())
		return ctx.Err()
	}
}

func (s *PrintPoller) isDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *PrintPoller) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

// LastTick returns the start time of the most recent completed discovery.
func (s *PrintPoller) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Probe checks the job store, content store and print subsystem concurrently.
func (s *PrintPoller) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return s.jobs.Ping(ctx) })
	g.Go(func() error { return s.content.Ping(ctx) })
	g.Go(func() error { return s.dispatcher.Probe(ctx) })
	return g.Wait()
}

func (s *PrintPoller) runOnce(ctx context.Context) error {
	if s.isDegraded() {
		if err := s.Probe(ctx); err != nil {
			metrics.IncTick("skipped")
			s.logger.Warn("dependencies unavailable, skipping tick", "err", err)
			return nil
		}
		s.setDegraded(false)
		s.logger.Info("dependencies reachable, resuming discovery")
	}

	started := time.Now()

	listCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	jobs, err := s.jobs.FindActionable(listCtx, s.claims.Snapshot())
	cancel()
	if err != nil {
		metrics.IncTick("error")
		if entity.IsTransient(err) {
			s.setDegraded(true)
		}
		return fmt.Errorf("find actionable jobs: %w", err)
	}

	s.mu.Lock()
	s.lastTick = started
	s.mu.Unlock()
	metrics.IncTick("ok")

	if len(jobs) == 0 {
		return nil
	}
	s.logger.Debug("found actionable jobs", "count", len(jobs))

	// a claimed job runs to a terminal state even if discovery is shut down
	jobCtx := context.WithoutCancel(ctx)

	for _, job := range jobs {
		if !s.claims.TryClaim(job.JobID) {
			continue
		}
		metrics.IncJobsClaimed()
		metrics.SetActiveJobs(s.claims.Len())
		s.logger.Info("job claimed", "job_id", job.JobID, "files", len(job.Files))

		s.inflight.Add(1)
		go s.runJob(jobCtx, job)
	}
	return nil
}

// runJob owns the claim for job and always releases it.
func (s *PrintPoller) runJob(ctx context.Context, job *entity.Job) {
	defer s.inflight.Done()

	started := time.Now()
	log := s.logger.With("job_id", job.JobID)
	outcome := "released"

	defer func() {
		s.claims.Release(job.JobID)
		metrics.SetActiveJobs(s.claims.Len())
		metrics.ObserveJobDuration(outcome, time.Since(started))
		log.Info("claim released", "outcome", outcome, "duration", time.Since(started))
	}()

	defer func() {
		if r := recover(); r != nil {
			metrics.IncError("print_poller", "panic")
			log.Error("job task panicked", "panic", r)
			outcome = s.commitFailed(ctx, log, job.JobID, panicFailureReason)
		}
	}()

	err := s.processJob(ctx, log, job)
	switch {
	case err == nil:
		outcome = s.commitCompleted(ctx, log, job.JobID)
	case entity.IsTransient(err):
		s.setDegraded(true)
		log.Warn("transient failure, job left for a later tick", "err", err)
	default:
		log.Error("job failed", "err", err)
		outcome = s.commitFailed(ctx, log, job.JobID, err.Error())
	}
}

func (s *PrintPoller) processJob(ctx context.Context, log *slog.Logger, job *entity.Job) error {
	startCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	err := s.jobs.MarkStarted(startCtx, job.JobID)
	cancel()
	if err != nil {
		if entity.IsTransient(err) {
			return err
		}
		log.Warn("failed to stamp processingStarted", "err", err)
	}

	if len(job.Files) == 0 {
		return errors.New("job has no files")
	}

	annotation := job.Annotation()
	for i, file := range job.Files {
		if err := s.printFile(ctx, log, job.JobID, annotation, file); err != nil {
			result := "fatal"
			if entity.IsTransient(err) {
				result = "transient"
			}
			metrics.IncFileProcessed(result)
			return fmt.Errorf("file %d (%s): %w", i+1, file.Filename, err)
		}
		metrics.IncFileProcessed("dispatched")
	}
	return nil
}

func (s *PrintPoller) commitCompleted(ctx context.Context, log *slog.Logger, jobID string) string {
	commitCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.jobs.MarkCompleted(commitCtx, jobID); err != nil {
		metrics.IncError("print_poller", "commit_completed")
		log.Error("failed to commit completed status", "err", err)
		return "commit_error"
	}
	log.Info("job completed")
	return string(entity.JobStatusCompleted)
}

func (s *PrintPoller) commitFailed(ctx context.Context, log *slog.Logger, jobID, reason string) string {
	commitCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.jobs.MarkFailed(commitCtx, jobID, reason); err != nil {
		metrics.IncError("print_poller", "commit_failed")
		log.Error("failed to commit failed status", "err", err, "reason", reason)
		return "commit_error"
	}
	log.Info("job marked failed", "reason", reason)
	return string(entity.JobStatusFailed)
}
