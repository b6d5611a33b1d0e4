package editor

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/doanvu/image-editing/internal/models"
	"go.uber.org/zap"
)

// ResultCache is an optional, non-authoritative cache of edited results.
// Lookup and store failures are soft; the remote call is the fallback.
type ResultCache interface {
	GetResult(ctx context.Context, key string) ([]byte, string, error)
	SetResult(ctx context.Context, key string, data []byte, revisedPrompt string) error
}

// Executor performs exactly one remote edit call per invocation and
// normalizes the result into an EditOutcome. It enforces the per-job
// timeout by cancelling the call; it never writes files.
type Executor struct {
	client  Client
	cache   ResultCache
	timeout time.Duration
	logger  *zap.Logger
}

func NewExecutor(client Client, cache ResultCache, timeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		client:  client,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute runs one edit for the already-resolved image bytes. The returned
// outcome always carries elapsed time; failures carry a stable error kind.
func (e *Executor) Execute(ctx context.Context, job models.EditJob, image []byte) models.EditOutcome {
	start := time.Now()

	key := cacheKey(job, image)
	if e.cache != nil {
		if data, revised, err := e.cache.GetResult(ctx, key); err != nil {
			e.logger.Warn("Result cache lookup failed", zap.Error(err))
		} else if data != nil {
			e.logger.Debug("Result cache hit", zap.String("reference", job.Reference.Display()))
			return models.EditOutcome{
				OK:            true,
				Bytes:         data,
				RevisedPrompt: revised,
				ElapsedMS:     time.Since(start).Milliseconds(),
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Edit(callCtx, &EditRequest{
		Image:      image,
		Prompt:     job.Prompt,
		EditType:   job.EditType,
		Strength:   job.Strength,
		Format:     job.Format,
		Quality:    job.Quality,
		Background: job.Background,
	})
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		// A call that ran out the per-job budget reports TIMEOUT, whatever
		// shape the transport error took.
		if callCtx.Err() == context.DeadlineExceeded {
			err = models.NewEditError(models.ErrKindTimeout,
				fmt.Sprintf("edit exceeded %s timeout", e.timeout))
		}
		outcome := models.Failure(err, elapsed)
		e.logger.Debug("Edit failed",
			zap.String("reference", job.Reference.Display()),
			zap.String("error_kind", string(outcome.ErrorKind)),
			zap.Int64("elapsed_ms", elapsed))
		return outcome
	}

	if e.cache != nil {
		if err := e.cache.SetResult(ctx, key, resp.Bytes, resp.RevisedPrompt); err != nil {
			e.logger.Warn("Result cache store failed", zap.Error(err))
		}
	}

	return models.EditOutcome{
		OK:            true,
		Bytes:         resp.Bytes,
		RevisedPrompt: resp.RevisedPrompt,
		ElapsedMS:     elapsed,
	}
}

// cacheKey is a digest of the input bytes and every parameter that changes
// the output, so identical requests dedupe and nothing else does.
func cacheKey(job models.EditJob, image []byte) string {
	h := sha256.New()
	h.Write(image)
	fmt.Fprintf(h, "|%s|%s|%.2f|%s|%s|%s",
		job.Prompt, job.EditType, job.Strength, job.Format, job.Quality, job.Background)
	return fmt.Sprintf("edit_cache:%x", h.Sum(nil))
}
