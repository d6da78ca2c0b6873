package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultRecorder persist the outcome of a successful run
type ResultRecorder interface {
	Record(ctx context.Context, userID, originalFilename string, outcome domain.PipelineOutcome) (*domain.Video, error)
}

// Pipeline run every job for a source and report one outcome
type Pipeline interface {
	Run(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome
}

// Orchestrator fan out one job per rendition plus a thumbnail, join on all of them, then record.
// Files left behind by failed runs are not removed here.
type Orchestrator struct {
	engine   CodecEngine
	namer    ArtifactNamer
	recorder ResultRecorder
	failFast bool
}

// OrchestratorOption configure an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithFailFast cancel sibling jobs once one fails. The run still waits for all of them.
func WithFailFast(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.failFast = enabled
	}
}

// NewOrchestrator create an Orchestrator
func NewOrchestrator(engine CodecEngine, namer ArtifactNamer, recorder ResultRecorder, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{engine: engine, namer: namer, recorder: recorder}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run 執行一次完整的轉碼流程
func (o *Orchestrator) Run(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome {
	outcome := domain.PipelineOutcome{Source: src}

	jobs, err := o.plan(src)
	if err != nil {
		outcome.Status = domain.OutcomeFailure
		outcome.Err = err
		return outcome
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]domain.JobResult, len(jobs))
	var g errgroup.Group
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = o.execute(runCtx, src, job)
			if results[i].Err != nil && o.failFast {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()
	outcome.Jobs = results

	if err := firstFailure(results); err != nil {
		outcome.Status = domain.OutcomeFailure
		outcome.Err = err
		logger.Log.Warn("pipeline failed",
			zap.String("source", src.ID),
			zap.String("user", src.UserID),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Status = domain.OutcomeSuccess
	outcome.Artifacts = make([]domain.Artifact, 0, len(jobs))
	for _, job := range jobs {
		outcome.Artifacts = append(outcome.Artifacts, domain.Artifact{Label: job.Label(), Kind: job.Kind, Path: job.TargetPath})
	}

	video, err := o.recorder.Record(ctx, src.UserID, src.OriginalName, outcome)
	if err != nil {
		outcome.Status = domain.OutcomePartialFailure
		outcome.Err = err
		logger.Log.Error("pipeline artifacts produced but record failed",
			zap.String("source", src.ID),
			zap.String("user", src.UserID),
			zap.Error(err),
		)
		return outcome
	}
	outcome.VideoID = video.ID

	logger.Log.Info("pipeline completed", zap.String("source", src.ID), zap.Uint("video_id", video.ID))
	return outcome
}

// plan ladder jobs in ladder order, thumbnail last
func (o *Orchestrator) plan(src domain.SourceFile) ([]*domain.TranscodeJob, error) {
	ladder := domain.Ladder()
	jobs := make([]*domain.TranscodeJob, 0, len(ladder)+1)
	for _, spec := range ladder {
		target, err := o.namer.RenditionPath(src.ID, spec)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, domain.NewRenditionJob(spec, target))
	}

	thumb, err := o.namer.ThumbnailPath(src.ID)
	if err != nil {
		return nil, err
	}
	return append(jobs, domain.NewThumbnailJob(thumb)), nil
}

func (o *Orchestrator) execute(ctx context.Context, src domain.SourceFile, job *domain.TranscodeJob) domain.JobResult {
	start := time.Now()
	_ = job.Advance(domain.JobRunning)

	var err error
	switch job.Kind {
	case domain.JobThumbnail:
		err = o.engine.Thumbnail(ctx, src.StoragePath, job.TargetPath)
	default:
		err = o.engine.Transcode(ctx, src.StoragePath, job.TargetPath, job.Spec.Width, job.Spec.Height)
	}

	if err != nil {
		err = withJob(err, job.Label())
		_ = job.Fail(err)

		fields := []zap.Field{
			zap.String("source", src.ID),
			zap.String("job", job.Label()),
			zap.Error(err),
		}
		var te *domain.TranscodeError
		if errors.As(err, &te) && te.Diagnostic != "" {
			fields = append(fields, zap.String("diagnostic", te.Diagnostic))
		}
		logger.Log.Error("transcode job failed", fields...)
	} else {
		_ = job.Advance(domain.JobCompleted)
	}

	return domain.JobResult{
		Label:      job.Label(),
		Kind:       job.Kind,
		TargetPath: job.TargetPath,
		State:      job.State,
		Err:        job.Err,
		Duration:   time.Since(start),
	}
}

// withJob stamp the job label on a TranscodeError; anything else becomes an EngineFailure
func withJob(err error, label string) error {
	var te *domain.TranscodeError
	if errors.As(err, &te) {
		te.Job = label
		return err
	}
	return domain.NewTranscodeError(domain.ErrEngineFailure, label, "", fmt.Errorf("engine: %w", err))
}

// firstFailure first failed job in ladder order, thumbnail last.
// Jobs that only stopped because a sibling cancelled them are skipped unless nothing else failed.
func firstFailure(results []domain.JobResult) error {
	var cancelled error
	for _, r := range results {
		if r.State != domain.JobFailed {
			continue
		}
		if errors.Is(r.Err, context.Canceled) {
			if cancelled == nil {
				cancelled = r.Err
			}
			continue
		}
		return r.Err
	}
	return cancelled
}
