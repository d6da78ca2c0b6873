package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"video_transcode_service/internal/transcode/domain"

	"github.com/stretchr/testify/mock"
)

// fakeEngine 依照 job 名稱回傳預設結果的假引擎
type fakeEngine struct {
	mu    sync.Mutex
	calls []string

	// fail job name ("WxH" or "thumbnail") -> error
	fail map[string]error
	// hold job names that block until their context is done
	hold map[string]bool
	// barrier every call waits here before returning when set
	barrier func() error

	inFlight    int32
	maxInFlight int32
}

func (f *fakeEngine) Transcode(ctx context.Context, sourcePath, targetPath string, width, height int) error {
	return f.do(ctx, fmt.Sprintf("%dx%d", width, height))
}

func (f *fakeEngine) Thumbnail(ctx context.Context, sourcePath, targetPath string) error {
	return f.do(ctx, "thumbnail")
}

func (f *fakeEngine) do(ctx context.Context, name string) error {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return contextError(name, err)
	}
	if f.barrier != nil {
		if err := f.barrier(); err != nil {
			return err
		}
	}
	if err, ok := f.fail[name]; ok {
		return err
	}
	if f.hold[name] {
		<-ctx.Done()
		return contextError(name, ctx.Err())
	}
	return nil
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// MockRecorder Mock ResultRecorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, userID, originalFilename string, outcome domain.PipelineOutcome) (*domain.Video, error) {
	args := m.Called(ctx, userID, originalFilename, outcome)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEngine Mock CodecEngine
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Transcode(ctx context.Context, sourcePath, targetPath string, width, height int) error {
	args := m.Called(ctx, sourcePath, targetPath, width, height)
	return args.Error(0)
}

func (m *MockEngine) Thumbnail(ctx context.Context, sourcePath, targetPath string) error {
	args := m.Called(ctx, sourcePath, targetPath)
	return args.Error(0)
}

// MockVideoRepo Mock VideoRepo
type MockVideoRepo struct {
	mock.Mock
}

func (m *MockVideoRepo) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockVideoRepo) InsertVideo(ctx context.Context, memberID, originalFilename, thumbnail string, renditions domain.RenditionPaths) (*domain.Video, error) {
	args := m.Called(ctx, memberID, originalFilename, thumbnail, renditions)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVideoRepo) ListByMember(ctx context.Context, memberID string) ([]domain.Video, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVideoRepo) GetByID(ctx context.Context, id uint) (*domain.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockVideoCache Mock VideoCache
type MockVideoCache struct {
	mock.Mock
}

func (m *MockVideoCache) Get(ctx context.Context, memberID string) ([]domain.Video, int64, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Video), args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

func (m *MockVideoCache) Set(ctx context.Context, memberID string, generation int64, videos []domain.Video) error {
	args := m.Called(ctx, memberID, generation, videos)
	return args.Error(0)
}

func (m *MockVideoCache) Invalidate(ctx context.Context, memberID string) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

// MockRunJournal Mock RunJournal
type MockRunJournal struct {
	mock.Mock
}

func (m *MockRunJournal) Save(ctx context.Context, entry domain.RunEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockPublisher Mock OutcomePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.PipelineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockArtifactStore Mock ArtifactStore
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Mirror(ctx context.Context, sourceID string, artifacts []domain.Artifact) error {
	args := m.Called(ctx, sourceID, artifacts)
	return args.Error(0)
}
