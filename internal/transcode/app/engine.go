package app

import (
	"context"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/metrics"

	"golang.org/x/sync/semaphore"
)

// CodecEngine 影音編碼引擎. Each call blocks until the output is written or an error is known.
type CodecEngine interface {
	Transcode(ctx context.Context, sourcePath, targetPath string, width, height int) error
	Thumbnail(ctx context.Context, sourcePath, targetPath string) error
}

type boundedEngine struct {
	inner CodecEngine
	sem   *semaphore.Weighted
}

// NewBoundedEngine share one ceiling of concurrent engine processes across every pipeline run
func NewBoundedEngine(inner CodecEngine, limit int) CodecEngine {
	if limit < 1 {
		limit = 1
	}
	return &boundedEngine{inner: inner, sem: semaphore.NewWeighted(int64(limit))}
}

func (b *boundedEngine) Transcode(ctx context.Context, sourcePath, targetPath string, width, height int) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return b.inner.Transcode(ctx, sourcePath, targetPath, width, height)
}

func (b *boundedEngine) Thumbnail(ctx context.Context, sourcePath, targetPath string) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return b.inner.Thumbnail(ctx, sourcePath, targetPath)
}

func (b *boundedEngine) acquire(ctx context.Context) error {
	start := time.Now()
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return contextError("", err)
	}
	metrics.EngineSlotWaitDuration.Observe(time.Since(start).Seconds())
	return nil
}

// contextError classify a context failure: deadline is a Timeout, cancellation an EngineFailure wrapping context.Canceled
func contextError(job string, err error) error {
	return domain.NewTranscodeError(contextKind(err), job, "", err)
}
