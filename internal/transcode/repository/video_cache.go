package repository

import (
	"context"
	"fmt"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/database"
)

const (
	// VideoListPrefix redis key prefix of the cached video lists
	VideoListPrefix = "videos:"

	// VideoListGenerationPrefix redis key prefix of the per member list generation
	VideoListGenerationPrefix = "video_gen:"
)

// VideoCache per member video list cache, Get returns database.ErrCacheMiss when absent.
// Lists are stored under the member's current generation; Invalidate moves to the next one,
// so a Set carrying the generation of an earlier Get can never be read after an invalidation.
type VideoCache interface {
	Get(ctx context.Context, memberID string) ([]domain.Video, int64, error)
	Set(ctx context.Context, memberID string, generation int64, videos []domain.Video) error
	Invalidate(ctx context.Context, memberID string) error
}

type videoCache struct {
	lists       database.RedisRepository[[]domain.Video]
	generations database.RedisCounter
	ttl         time.Duration
}

// NewVideoCache 以 redis 快取會員影片列表
func NewVideoCache(lists database.RedisRepository[[]domain.Video], generations database.RedisCounter, ttl time.Duration) VideoCache {
	return &videoCache{lists: lists, generations: generations, ttl: ttl}
}

func listKey(memberID string, generation int64) string {
	return fmt.Sprintf("%s:%d", memberID, generation)
}

func (c *videoCache) Get(ctx context.Context, memberID string) ([]domain.Video, int64, error) {
	generation, err := c.generations.Current(ctx, memberID)
	if err != nil {
		return nil, 0, err
	}
	videos, err := c.lists.Get(ctx, listKey(memberID, generation))
	return videos, generation, err
}

func (c *videoCache) Set(ctx context.Context, memberID string, generation int64, videos []domain.Video) error {
	return c.lists.Set(ctx, listKey(memberID, generation), videos, c.ttl)
}

// Invalidate 進入下一個 generation, 舊列表留給 TTL 清除
func (c *videoCache) Invalidate(ctx context.Context, memberID string) error {
	_, err := c.generations.Incr(ctx, memberID)
	return err
}

type noopVideoCache struct{}

// NewNoopVideoCache a cache that always misses
func NewNoopVideoCache() VideoCache {
	return noopVideoCache{}
}

func (noopVideoCache) Get(context.Context, string) ([]domain.Video, int64, error) {
	return nil, 0, database.ErrCacheMiss
}

func (noopVideoCache) Set(context.Context, string, int64, []domain.Video) error {
	return nil
}

func (noopVideoCache) Invalidate(context.Context, string) error {
	return nil
}
