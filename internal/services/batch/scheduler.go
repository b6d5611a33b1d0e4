package batch

import (
	"context"
	"sync"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ItemFunc runs one job's resolve → execute → materialize sequence and
// returns its normalized outcome. Retries re-run the whole sequence,
// resolution included.
type ItemFunc func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile)

// Scheduler drives a batch of edit jobs over a bounded worker pool and
// aggregates per-item outcomes into a report that preserves submission
// order regardless of completion order.
type Scheduler struct {
	cfg    config.BatchConfig
	logger *zap.Logger
}

func NewScheduler(cfg config.BatchConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{cfg: cfg, logger: logger}
}

// Run executes the batch under the requested concurrency and error policy.
// It always returns a complete report: every job appears in Items exactly
// once and Succeeded+Failed == Total.
func (s *Scheduler) Run(ctx context.Context, jobs []models.EditJob, settings models.BatchSettings, process ItemFunc) *models.BatchReport {
	total := len(jobs)
	concurrency := s.clampConcurrency(settings.MaxConcurrent)
	policy := settings.ErrorHandling
	if policy == "" {
		policy = models.PolicyContinueOnError
	}

	concurrencyUsed := concurrency
	if total < concurrencyUsed {
		concurrencyUsed = total
	}

	batchID := uuid.NewString()
	s.logger.Info("Starting batch",
		zap.String("batch_id", batchID),
		zap.Int("total", total),
		zap.Int("concurrency", concurrencyUsed),
		zap.String("policy", string(policy)))

	// Results are indexed by submission position, never appended in
	// completion order. Each slot is written by exactly one worker.
	items := make([]models.BatchItem, total)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(concurrency))
	var wg sync.WaitGroup
	start := time.Now()

	for i := range jobs {
		// Admission blocks until a slot frees up; a cancelled batch stops
		// admitting and marks the leftovers without attempting them.
		if err := sem.Acquire(runCtx, 1); err != nil {
			items[i] = cancelledItem(i, jobs[i].Reference)
			continue
		}

		wg.Add(1)
		go func(idx int, job models.EditJob) {
			defer wg.Done()
			defer sem.Release(1)
			items[idx] = s.runJob(runCtx, idx, job, policy, process, cancel)
		}(i, jobs[i])
	}

	wg.Wait()
	elapsed := time.Since(start).Milliseconds()

	report := &models.BatchReport{
		BatchID:         batchID,
		Total:           total,
		Items:           items,
		TotalElapsedMS:  elapsed,
		ConcurrencyUsed: concurrencyUsed,
	}
	for i := range items {
		if items[i].Outcome.OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	s.logger.Info("Batch finished",
		zap.String("batch_id", batchID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int64("elapsed_ms", elapsed))
	return report
}

// runJob drives one job through its attempt loop. Retry eligibility is a
// small state machine (attempt count plus next delay) kept here so a
// fail_fast cancellation can abort a pending retry between attempts.
func (s *Scheduler) runJob(ctx context.Context, idx int, job models.EditJob, policy models.ErrorHandling, process ItemFunc, cancel context.CancelFunc) models.BatchItem {
	budget := 0
	if policy == models.PolicyRetryFailed || policy == models.PolicyFailFast {
		budget = s.cfg.RetryBudget
	}

	var (
		outcome models.EditOutcome
		file    *models.MaterializedFile
	)
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return cancelledItem(idx, job.Reference)
		}

		outcome, file = process(ctx, idx, job)
		if outcome.OK {
			break
		}
		// A failure observed after batch cancellation is the cancellation
		// itself, not a result worth reporting.
		if ctx.Err() != nil {
			return cancelledItem(idx, job.Reference)
		}
		if !outcome.ErrorKind.Retryable() || attempt >= budget {
			break
		}

		delay := s.backoffDelay(attempt)
		s.logger.Debug("Retrying job",
			zap.Int("index", idx),
			zap.Int("attempt", attempt+1),
			zap.String("error_kind", string(outcome.ErrorKind)),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return cancelledItem(idx, job.Reference)
		case <-time.After(delay):
		}
	}

	// Under fail_fast a job cancels the batch only once its own retry
	// budget is spent; terminal kinds spend nothing and cancel at once.
	if !outcome.OK && policy == models.PolicyFailFast {
		s.logger.Warn("Job failed, cancelling batch",
			zap.Int("index", idx),
			zap.String("error_kind", string(outcome.ErrorKind)))
		cancel()
	}

	return models.BatchItem{
		Index:     idx,
		Reference: job.Reference,
		Outcome:   outcome,
		File:      file,
	}
}

func (s *Scheduler) backoffDelay(attempt int) time.Duration {
	delay := s.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if s.cfg.RetryMaxDelay > 0 && delay >= s.cfg.RetryMaxDelay {
			return s.cfg.RetryMaxDelay
		}
	}
	if s.cfg.RetryMaxDelay > 0 && delay > s.cfg.RetryMaxDelay {
		delay = s.cfg.RetryMaxDelay
	}
	return delay
}

func (s *Scheduler) clampConcurrency(requested int) int {
	if requested <= 0 {
		requested = s.cfg.DefaultConcurrency
	}
	if requested <= 0 {
		requested = 1
	}
	max := s.cfg.MaxConcurrency
	if max <= 0 {
		max = 10
	}
	if requested > max {
		requested = max
	}
	return requested
}

func cancelledItem(idx int, ref models.ImageReference) models.BatchItem {
	return models.BatchItem{
		Index:     idx,
		Reference: ref,
		Outcome: models.EditOutcome{
			OK:        false,
			ErrorKind: models.ErrKindCancelled,
			Message:   "batch cancelled before this job completed",
		},
	}
}
