package batch

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		DefaultConcurrency: 2,
		MaxConcurrency:     10,
		RetryBudget:        2,
		RetryBaseDelay:     time.Millisecond,
		RetryMaxDelay:      10 * time.Millisecond,
	}
}

func testJobs(n int) []models.EditJob {
	jobs := make([]models.EditJob, n)
	for i := range jobs {
		jobs[i] = models.EditJob{
			Reference: models.ImageReference{Kind: models.RefLocalPath, Value: "/tmp/img.png"},
			Prompt:    "make it vintage",
			EditType:  models.EditTypeGeneral,
		}
	}
	return jobs
}

func okOutcome() models.EditOutcome {
	return models.EditOutcome{OK: true, ElapsedMS: 1}
}

func failOutcome(kind models.ErrorKind) models.EditOutcome {
	return models.EditOutcome{OK: false, ErrorKind: kind, Message: "boom", ElapsedMS: 1}
}

// sleepOrCancel returns true when the context was cancelled while waiting.
func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func TestRunPreservesSubmissionOrder(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	// Randomized per-job delays force completions out of submission
	// order; the report must not care.
	const n = 12
	jobs := testJobs(n)
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		out := okOutcome()
		out.RevisedPrompt = string(rune('a' + index))
		return out, nil
	}

	report := s.Run(context.Background(), jobs, models.BatchSettings{MaxConcurrent: 5}, process)

	require.Len(t, report.Items, n)
	for i, item := range report.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, string(rune('a'+i)), item.Outcome.RevisedPrompt)
	}
	assert.Equal(t, n, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, report.Total, report.Succeeded+report.Failed)
}

func TestSucceededPlusFailedAlwaysEqualsTotal(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	jobs := testJobs(9)
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if index%3 == 0 {
			return failOutcome(models.ErrKindContentPolicy), nil
		}
		return okOutcome(), nil
	}

	report := s.Run(context.Background(), jobs, models.BatchSettings{
		MaxConcurrent: 4,
		ErrorHandling: models.PolicyContinueOnError,
	}, process)

	assert.Equal(t, 9, report.Total)
	assert.Equal(t, 6, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.Len(t, report.Items, 9)
}

func TestContinueOnErrorIsolatesFailures(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	// 3 images, concurrency 2, item 2 hits the content policy; its
	// siblings still succeed and materialize.
	jobs := testJobs(3)
	file := &models.MaterializedFile{AbsolutePath: "/out/a.png", Filename: "a.png"}
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if index == 1 {
			return failOutcome(models.ErrKindContentPolicy), nil
		}
		return okOutcome(), file
	}

	report := s.Run(context.Background(), jobs, models.BatchSettings{
		MaxConcurrent: 2,
		ErrorHandling: models.PolicyContinueOnError,
	}, process)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.ErrKindContentPolicy, report.Items[1].Outcome.ErrorKind)
	assert.Nil(t, report.Items[1].File)
	assert.NotNil(t, report.Items[0].File)
	assert.NotNil(t, report.Items[2].File)
}

func TestFailFastCancelsUnstartedJobs(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	// Concurrency 1 makes admission strictly sequential: job 0 fails
	// terminally, so jobs 1-3 must never be attempted.
	var attempts int32
	jobs := testJobs(4)
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		atomic.AddInt32(&attempts, 1)
		return failOutcome(models.ErrKindAuthFailed), nil
	}

	report := s.Run(context.Background(), jobs, models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyFailFast,
	}, process)

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Equal(t, models.ErrKindAuthFailed, report.Items[0].Outcome.ErrorKind)
	for i := 1; i < 4; i++ {
		assert.Equal(t, models.ErrKindCancelled, report.Items[i].Outcome.ErrorKind, "item %d", i)
	}
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 4, report.Failed)
}

func TestFailFastCancelsInflightJobs(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	jobs := testJobs(4)
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if index == 0 {
			time.Sleep(5 * time.Millisecond)
			return failOutcome(models.ErrKindAuthFailed), nil
		}
		// Siblings block until the batch-wide cancellation reaches them.
		if sleepOrCancel(ctx, 5*time.Second) {
			return failOutcome(models.ErrKindTimeout), nil
		}
		return okOutcome(), nil
	}

	start := time.Now()
	report := s.Run(context.Background(), jobs, models.BatchSettings{
		MaxConcurrent: 4,
		ErrorHandling: models.PolicyFailFast,
	}, process)

	assert.Less(t, time.Since(start), 2*time.Second, "cancellation must stop in-flight jobs promptly")
	assert.Equal(t, models.ErrKindAuthFailed, report.Items[0].Outcome.ErrorKind)
	for i := 1; i < 4; i++ {
		assert.Equal(t, models.ErrKindCancelled, report.Items[i].Outcome.ErrorKind, "item %d", i)
	}
}

func TestRetryFailedExhaustsBudget(t *testing.T) {
	cfg := testBatchConfig()
	cfg.RetryBudget = 2
	s := NewScheduler(cfg, zap.NewNop())

	var attempts int32
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		atomic.AddInt32(&attempts, 1)
		return failOutcome(models.ErrKindRateLimited), nil
	}

	report := s.Run(context.Background(), testJobs(1), models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyRetryFailed,
	}, process)

	// 1 initial attempt + 2 retries, then the last observed kind sticks.
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.ErrKindRateLimited, report.Items[0].Outcome.ErrorKind)
}

func TestRetryFailedNeverRetriesTerminalKinds(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	var attempts int32
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		atomic.AddInt32(&attempts, 1)
		return failOutcome(models.ErrKindContentPolicy), nil
	}

	report := s.Run(context.Background(), testJobs(1), models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyRetryFailed,
	}, process)

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Equal(t, models.ErrKindContentPolicy, report.Items[0].Outcome.ErrorKind)
}

func TestRetryFailedRecoversAfterTransientFailure(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	var attempts int32
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return failOutcome(models.ErrKindServiceUnavailable), nil
		}
		return okOutcome(), nil
	}

	report := s.Run(context.Background(), testJobs(1), models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyRetryFailed,
	}, process)

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, 1, report.Succeeded)
}

func TestFailFastSpendsRetryBudgetBeforeCancelling(t *testing.T) {
	cfg := testBatchConfig()
	cfg.RetryBudget = 1
	s := NewScheduler(cfg, zap.NewNop())

	// A retryable failure under fail_fast gets its retry budget; only the
	// final failure triggers cancellation of the rest.
	var attempts int32
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if index == 0 {
			atomic.AddInt32(&attempts, 1)
			return failOutcome(models.ErrKindRateLimited), nil
		}
		return okOutcome(), nil
	}

	report := s.Run(context.Background(), testJobs(2), models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyFailFast,
	}, process)

	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, models.ErrKindRateLimited, report.Items[0].Outcome.ErrorKind)
	assert.Equal(t, models.ErrKindCancelled, report.Items[1].Outcome.ErrorKind)
}

func TestConcurrencyIsBounded(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	const limit = 3
	var inFlight, peak int32
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return okOutcome(), nil
	}

	report := s.Run(context.Background(), testJobs(12), models.BatchSettings{MaxConcurrent: limit}, process)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
	assert.Equal(t, limit, report.ConcurrencyUsed)
	assert.Equal(t, 12, report.Succeeded)
}

func TestConcurrencyUsedCappedByJobCount(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		return okOutcome(), nil
	}

	report := s.Run(context.Background(), testJobs(2), models.BatchSettings{MaxConcurrent: 8}, process)
	assert.Equal(t, 2, report.ConcurrencyUsed)
}

func TestRequestedConcurrencyIsClamped(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	assert.Equal(t, 2, s.clampConcurrency(0), "defaults when unset")
	assert.Equal(t, 10, s.clampConcurrency(50), "clamped to configured max")
	assert.Equal(t, 7, s.clampConcurrency(7))
}

func TestEmptyBatchReturnsEmptyReport(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	report := s.Run(context.Background(), nil, models.BatchSettings{}, func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		t.Fatal("process must not be called for an empty batch")
		return models.EditOutcome{}, nil
	})

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, report.Items)
}

func TestCallerCancellationMarksRemainingJobs(t *testing.T) {
	s := NewScheduler(testBatchConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		if index == 0 {
			cancel()
		}
		if sleepOrCancel(ctx, time.Second) {
			return failOutcome(models.ErrKindTimeout), nil
		}
		return okOutcome(), nil
	}

	report := s.Run(ctx, testJobs(5), models.BatchSettings{
		MaxConcurrent: 1,
		ErrorHandling: models.PolicyContinueOnError,
	}, process)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 0, report.Succeeded)
	for _, item := range report.Items {
		assert.Equal(t, models.ErrKindCancelled, item.Outcome.ErrorKind)
	}
}
