package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/internal/transcode/repository"
	"video_transcode_service/pkg/config"
	"video_transcode_service/pkg/database"
	errprocess "video_transcode_service/pkg/err"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const defaultRecordRetryInterval = 500 * time.Millisecond

// TranscodeUseCase 上傳, 轉碼與查詢影片
type TranscodeUseCase interface {
	Submit(ctx context.Context, req domain.UploadVideoReq) (*domain.UploadVideoRes, error)
	Process(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome
	RetryRecord(ctx context.Context, outcome domain.PipelineOutcome) domain.PipelineOutcome
	ListVideos(ctx context.Context, userID string) ([]domain.Video, error)
	ArtifactPath(name string) (string, error)
}

// TranscodeDeps collaborators of the usecase. Optional sinks may be nil.
type TranscodeDeps struct {
	Receiver  UploadReceiver
	Pipeline  Pipeline
	Recorder  ResultRecorder
	Namer     ArtifactNamer
	VideoRepo repository.VideoRepo
	Cache     repository.VideoCache
	Journal   repository.RunJournal
	Publisher repository.OutcomePublisher
	Store     repository.ArtifactStore

	// Rabbit only needed in queue mode
	Rabbit database.RabbitRepo
}

// TranscodeOptions usecase behaviour
type TranscodeOptions struct {
	Mode       string
	KeepSource bool

	// RecordRetryLimit total time spent retrying a failed record write, 0 disables retry
	RecordRetryLimit    time.Duration
	RecordRetryInterval time.Duration
}

type transcodeUseCase struct {
	deps TranscodeDeps
	opts TranscodeOptions
}

// NewTranscodeUseCase create TranscodeUseCase
func NewTranscodeUseCase(deps TranscodeDeps, opts TranscodeOptions) TranscodeUseCase {
	if deps.Cache == nil {
		deps.Cache = repository.NewNoopVideoCache()
	}
	if deps.Journal == nil {
		deps.Journal = repository.NewNoopRunJournal()
	}
	if deps.Publisher == nil {
		deps.Publisher = repository.NewNoopOutcomePublisher()
	}
	if deps.Store == nil {
		deps.Store = repository.NewNoopArtifactStore()
	}
	if opts.RecordRetryInterval <= 0 {
		opts.RecordRetryInterval = defaultRecordRetryInterval
	}
	return &transcodeUseCase{deps: deps, opts: opts}
}

// Submit 接收上傳. Inline mode runs the pipeline before returning, queue mode hands it to the worker.
func (s *transcodeUseCase) Submit(ctx context.Context, req domain.UploadVideoReq) (*domain.UploadVideoRes, error) {
	src, err := s.deps.Receiver.Accept(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.opts.Mode == config.PipelineModeQueue {
		if err := s.enqueue(*src); err != nil {
			s.removeSource(*src)
			return nil, err
		}
		return &domain.UploadVideoRes{
			Status:   domain.UploadAccepted,
			Message:  "video accepted, processing",
			SourceID: src.ID,
		}, nil
	}

	outcome := s.Process(ctx, *src)
	if !outcome.Succeeded() {
		return nil, outcome.Err
	}
	return &domain.UploadVideoRes{
		Status:    domain.UploadCompleted,
		Message:   "video uploaded and processed",
		SourceID:  src.ID,
		VideoID:   outcome.VideoID,
		Artifacts: outcome.Artifacts,
	}, nil
}

func (s *transcodeUseCase) enqueue(src domain.SourceFile) error {
	if s.deps.Rabbit == nil {
		return errprocess.Set(fmt.Sprintf("fileName[%s] queue mode without rabbitmq", src.OriginalName))
	}

	body, err := json.Marshal(domain.PipelineMessage{Source: src, EnqueuedAt: timeNow()})
	if err != nil {
		return errprocess.Set(fmt.Sprintf("fileName[%s] 轉碼訊息序列化失敗 : %v", src.OriginalName, err))
	}

	err = s.deps.Rabbit.Publish("", domain.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return errprocess.Set(fmt.Sprintf("fileName[%s] 發送轉碼工作訊息失敗 : %v", src.OriginalName, err))
	}
	return nil
}

// Process 執行 pipeline, retry a failed record, then journal, publish and mirror the outcome
func (s *transcodeUseCase) Process(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome {
	started := timeNow()
	outcome := s.deps.Pipeline.Run(ctx, src)
	if outcome.Status == domain.OutcomePartialFailure {
		outcome = s.RetryRecord(ctx, outcome)
	}
	finished := timeNow()

	if outcome.Interrupted() {
		metrics.PipelineRunsTotal.WithLabelValues("interrupted").Inc()
		s.discardRun(outcome)
		if s.opts.Mode == config.PipelineModeQueue {
			// source 留給重新投遞的訊息
			logger.Log.Warn("pipeline interrupted, source kept for redelivery", zap.String("source", src.ID))
			return outcome
		}
		logger.Log.Warn("pipeline interrupted", zap.String("source", src.ID))
		if !s.opts.KeepSource {
			s.removeSource(src)
		}
		return outcome
	}

	metrics.PipelineRunsTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.PipelineDuration.Observe(finished.Sub(started).Seconds())

	// 紀錄與通知使用獨立的 context, 呼叫端取消後仍然寫入
	sideCtx := context.WithoutCancel(ctx)

	if err := s.deps.Journal.Save(sideCtx, domain.NewRunEntry(outcome, started, finished)); err != nil {
		logger.Log.Warn("save run entry failed", zap.String("source", src.ID), zap.Error(err))
	}
	if err := s.deps.Publisher.Publish(sideCtx, domain.NewPipelineEvent(outcome, finished)); err != nil {
		logger.Log.Warn("publish pipeline event failed", zap.String("source", src.ID), zap.Error(err))
	}
	if outcome.Succeeded() {
		if err := s.deps.Store.Mirror(sideCtx, src.ID, outcome.Artifacts); err != nil {
			logger.Log.Warn("mirror artifacts failed", zap.String("source", src.ID), zap.Error(err))
		}
	}

	if !s.opts.KeepSource && outcome.Status != domain.OutcomePartialFailure {
		s.removeSource(src)
	}
	return outcome
}

// RetryRecord 重新寫入影片紀錄, exponential backoff bounded by RecordRetryLimit.
// A missing owner is not retried.
func (s *transcodeUseCase) RetryRecord(ctx context.Context, outcome domain.PipelineOutcome) domain.PipelineOutcome {
	if outcome.Status != domain.OutcomePartialFailure || s.opts.RecordRetryLimit <= 0 {
		return outcome
	}

	recorded := outcome
	recorded.Status = domain.OutcomeSuccess
	recorded.Err = nil

	var video *domain.Video
	var lastErr error
	operation := func() error {
		v, err := s.deps.Recorder.Record(ctx, outcome.Source.UserID, outcome.Source.OriginalName, recorded)
		if err != nil {
			lastErr = err
			var re *domain.RecordError
			if errors.As(err, &re) && re.Reason == domain.RecordUserNotFound {
				return backoff.Permanent(err)
			}
			return err
		}
		video = v
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.RecordRetryInterval
	b.MaxElapsedTime = s.opts.RecordRetryLimit

	notify := func(err error, next time.Duration) {
		logger.Log.Warn("record retry",
			zap.String("source", outcome.Source.ID),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		// ctx 取消時 backoff 回傳 ctx.Err(), 保留最後一次的 RecordError
		if lastErr != nil {
			outcome.Err = lastErr
		}
		logger.Log.Warn("record retry gave up", zap.String("source", outcome.Source.ID), zap.Error(err))
		return outcome
	}

	recorded.VideoID = video.ID
	logger.Log.Info("record retry succeeded", zap.String("source", outcome.Source.ID), zap.Uint("video_id", video.ID))
	return recorded
}

// ListVideos 讀取會員影片列表, redis 快取優先.
// The list read from the database is cached under the generation seen before the read,
// so an invalidation that lands in between leaves it unreachable.
func (s *transcodeUseCase) ListVideos(ctx context.Context, userID string) ([]domain.Video, error) {
	videos, generation, err := s.deps.Cache.Get(ctx, userID)
	if err == nil {
		return videos, nil
	}
	cacheable := errors.Is(err, database.ErrCacheMiss)
	if !cacheable {
		logger.Log.Warn("read video list cache failed", zap.String("user", userID), zap.Error(err))
	}

	videos, err = s.deps.VideoRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("member[%s] 查詢影片失敗 : %v", userID, err))
	}
	if cacheable {
		if err := s.deps.Cache.Set(ctx, userID, generation, videos); err != nil {
			logger.Log.Warn("write video list cache failed", zap.String("user", userID), zap.Error(err))
		}
	}
	return videos, nil
}

// ArtifactPath resolve a retrieval name to an existing artifact
func (s *transcodeUseCase) ArtifactPath(name string) (string, error) {
	path, err := s.deps.Namer.Resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	return path, nil
}

// discardRun remove whatever an interrupted run wrote so a redelivery starts clean
func (s *transcodeUseCase) discardRun(outcome domain.PipelineOutcome) {
	for _, job := range outcome.Jobs {
		if job.TargetPath == "" {
			continue
		}
		if err := os.Remove(job.TargetPath); err != nil && !os.IsNotExist(err) {
			logger.Log.Warn("remove interrupted artifact failed", zap.String("path", job.TargetPath), zap.Error(err))
		}
	}
}

func (s *transcodeUseCase) removeSource(src domain.SourceFile) {
	if err := os.Remove(src.StoragePath); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn("remove source failed", zap.String("source", src.ID), zap.Error(err))
	}
}
