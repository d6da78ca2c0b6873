package app

import (
	"context"
	"errors"
	"fmt"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/internal/transcode/repository"
	"video_transcode_service/pkg/logger"
	"video_transcode_service/pkg/metrics"

	"go.uber.org/zap"
)

type resultRecorder struct {
	repo  repository.VideoRepo
	cache repository.VideoCache
}

// NewResultRecorder 寫入影片紀錄並清除該會員的列表快取. Artifacts are never rolled back on failure.
func NewResultRecorder(repo repository.VideoRepo, cache repository.VideoCache) ResultRecorder {
	return &resultRecorder{repo: repo, cache: cache}
}

func (r *resultRecorder) Record(ctx context.Context, userID, originalFilename string, outcome domain.PipelineOutcome) (*domain.Video, error) {
	if outcome.Status != domain.OutcomeSuccess {
		return nil, fmt.Errorf("%w: only a successful outcome can be recorded, got %s", domain.ErrInvalidInput, outcome.Status)
	}
	paths, err := domain.RenditionPathsFrom(outcome.Artifacts)
	if err != nil {
		return nil, err
	}
	thumbnail := outcome.Thumbnail()
	if thumbnail == "" {
		return nil, fmt.Errorf("%w: missing thumbnail", domain.ErrInvalidInput)
	}

	video, err := r.repo.InsertVideo(ctx, userID, originalFilename, thumbnail, paths)
	if err != nil {
		var re *domain.RecordError
		if !errors.As(err, &re) {
			re = domain.NewRecordError(domain.RecordStorageWrite, err)
		}
		metrics.RecordFailuresTotal.WithLabelValues(string(re.Reason)).Inc()
		return nil, re
	}

	if err := r.cache.Invalidate(ctx, userID); err != nil {
		logger.Log.Warn("invalidate video list cache failed", zap.String("user", userID), zap.Error(err))
	}
	return video, nil
}
