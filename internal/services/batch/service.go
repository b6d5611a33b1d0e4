package batch

import (
	"context"
	"time"

	"github.com/doanvu/image-editing/internal/config"
	"github.com/doanvu/image-editing/internal/models"
	"github.com/doanvu/image-editing/internal/services/storage"
	"go.uber.org/zap"
)

// ImageResolver turns a tagged reference into raw image bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, ref models.ImageReference) ([]byte, error)
}

// EditExecutor performs one remote edit call for resolved bytes.
type EditExecutor interface {
	Execute(ctx context.Context, job models.EditJob, image []byte) models.EditOutcome
}

// FileMaterializer durably writes result bytes per a naming policy.
type FileMaterializer interface {
	Materialize(data []byte, policy models.NamingPolicy, item storage.ItemContext) (*models.MaterializedFile, error)
}

// Service wires the resolver, executor and materializer into the per-item
// pipeline the scheduler drives.
type Service struct {
	resolver     ImageResolver
	executor     EditExecutor
	materializer FileMaterializer
	scheduler    *Scheduler
	cfg          *config.Config
	logger       *zap.Logger
}

func NewService(
	resolver ImageResolver,
	executor EditExecutor,
	materializer FileMaterializer,
	scheduler *Scheduler,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		resolver:     resolver,
		executor:     executor,
		materializer: materializer,
		scheduler:    scheduler,
		cfg:          cfg,
		logger:       logger,
	}
}

// EditBatch runs a whole batch and returns its report. The report is
// metadata-only; edited bytes live on disk, never in the response.
func (s *Service) EditBatch(ctx context.Context, req *models.BatchEditRequest) *models.BatchReport {
	policy := s.namingPolicy(req.Output)
	jobs := make([]models.EditJob, len(req.Images))
	for i, ref := range req.Images {
		jobs[i] = models.EditJob{
			Reference:  ref,
			Prompt:     req.EditPrompt,
			EditType:   defaultEditType(req.EditType),
			Strength:   req.Strength,
			Format:     req.Output.Format,
			Quality:    req.Output.Quality,
			Background: req.Output.Background,
		}
	}

	process := func(ctx context.Context, index int, job models.EditJob) (models.EditOutcome, *models.MaterializedFile) {
		return s.processItem(ctx, index, job, policy, req.Output.SaveToFile)
	}
	return s.scheduler.Run(ctx, jobs, req.Batch, process)
}

// EditSingle runs one edit through the same pipeline and returns its item.
func (s *Service) EditSingle(ctx context.Context, req *models.EditImageRequest) *models.BatchItem {
	policy := s.namingPolicy(req.Output)
	job := models.EditJob{
		Reference:  req.Image,
		Prompt:     req.Prompt,
		EditType:   defaultEditType(req.EditType),
		Strength:   req.Strength,
		Format:     req.Output.Format,
		Quality:    req.Output.Quality,
		Background: req.Output.Background,
	}

	outcome, file := s.processItem(ctx, 0, job, policy, req.Output.SaveToFile)
	return &models.BatchItem{
		Index:     0,
		Reference: req.Image,
		Outcome:   outcome,
		File:      file,
	}
}

// processItem is one job's full resolve → execute → materialize sequence.
// A materialization failure marks the item failed even though the remote
// edit succeeded; a generated image that cannot be saved is never silently
// dropped.
func (s *Service) processItem(ctx context.Context, index int, job models.EditJob, policy models.NamingPolicy, save bool) (models.EditOutcome, *models.MaterializedFile) {
	start := time.Now()

	data, err := s.resolver.Resolve(ctx, job.Reference)
	if err != nil {
		s.logger.Debug("Resolution failed",
			zap.Int("index", index),
			zap.String("reference", job.Reference.Display()),
			zap.Error(err))
		return models.Failure(err, time.Since(start).Milliseconds()), nil
	}

	outcome := s.executor.Execute(ctx, job, data)
	if !outcome.OK || !save {
		outcome.Bytes = nil
		return outcome, nil
	}

	file, err := s.materializer.Materialize(outcome.Bytes, policy, storage.ItemContext{
		Prompt: job.Prompt,
		Index:  index,
	})
	outcome.Bytes = nil
	if err != nil {
		return models.Failure(err, outcome.ElapsedMS), nil
	}
	return outcome, file
}

func (s *Service) namingPolicy(out models.OutputOptions) models.NamingPolicy {
	policy := models.NamingPolicy{
		Strategy:      out.NamingStrategy,
		OrganizeBy:    out.OrganizeBy,
		Conflict:      out.Conflict,
		BaseDirectory: out.Directory,
		Prefix:        out.Prefix,
		ExplicitName:  out.Filename,
		Extension:     out.Format,
		Quality:       out.Quality,
		Thumbnail:     out.Thumbnail,
	}
	if policy.Strategy == "" {
		policy.Strategy = models.NameByTimestamp
	}
	if policy.OrganizeBy == "" {
		policy.OrganizeBy = models.OrganizeNone
	}
	if policy.Conflict == "" {
		policy.Conflict = models.ConflictAutoRename
	}
	if policy.BaseDirectory == "" {
		policy.BaseDirectory = s.cfg.Output.BaseDirectory
	}
	return policy
}

func defaultEditType(t models.EditType) models.EditType {
	if t == "" {
		return models.EditTypeGeneral
	}
	return t
}
