package repository

import (
	"context"
	"time"

	"video_transcode_service/internal/transcode/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockVideoListRedis 針對 []domain.Video 的 Mock
type MockVideoListRedis struct {
	mock.Mock
}

func (m *MockVideoListRedis) Set(ctx context.Context, key string, value []domain.Video, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockVideoListRedis) Get(ctx context.Context, key string) ([]domain.Video, error) {
	args := m.Called(ctx, key)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVideoListRedis) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockVideoListRedis) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockVideoListRedis) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// MockCounter Mock RedisCounter
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounter) Current(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

// MockMinIO Mock MinIOClientRepo
type MockMinIO struct {
	mock.Mock
}

func (m *MockMinIO) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	args := m.Called(ctx, objectName, filePath, contentType)
	return args.Error(0)
}

func (m *MockMinIO) DownloadFile(ctx context.Context, objectName, destPath string) error {
	args := m.Called(ctx, objectName, destPath)
	return args.Error(0)
}

func (m *MockMinIO) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// MockWriter Mock kafka writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}
