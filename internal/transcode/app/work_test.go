package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/config"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAcknowledger Mock amqp.Acknowledger
type MockAcknowledger struct {
	mock.Mock
}

func (m *MockAcknowledger) Ack(tag uint64, multiple bool) error {
	args := m.Called(tag, multiple)
	return args.Error(0)
}

func (m *MockAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	args := m.Called(tag, multiple, requeue)
	return args.Error(0)
}

func (m *MockAcknowledger) Reject(tag uint64, requeue bool) error {
	args := m.Called(tag, requeue)
	return args.Error(0)
}

// MockUseCase Mock TranscodeUseCase
type MockUseCase struct {
	mock.Mock
}

func (m *MockUseCase) Submit(ctx context.Context, req domain.UploadVideoReq) (*domain.UploadVideoRes, error) {
	args := m.Called(ctx, req)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UploadVideoRes), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUseCase) Process(ctx context.Context, src domain.SourceFile) domain.PipelineOutcome {
	args := m.Called(ctx, src)
	return args.Get(0).(domain.PipelineOutcome)
}

func (m *MockUseCase) RetryRecord(ctx context.Context, outcome domain.PipelineOutcome) domain.PipelineOutcome {
	args := m.Called(ctx, outcome)
	return args.Get(0).(domain.PipelineOutcome)
}

func (m *MockUseCase) ListVideos(ctx context.Context, userID string) ([]domain.Video, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Video), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUseCase) ArtifactPath(name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

type fakeDeliverySource struct {
	ch  chan amqp.Delivery
	err error
}

func (f *fakeDeliverySource) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.ch, f.err
}

func delivery(t *testing.T, ack amqp.Acknowledger, src domain.SourceFile) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(domain.PipelineMessage{Source: src, EnqueuedAt: time.Unix(1700000000, 0)})
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
}

func TestConsumer_HandleDelivery(t *testing.T) {
	ctx := context.Background()
	src := testSource()
	src.UploadedAt = src.UploadedAt.UTC()

	for _, status := range []domain.OutcomeStatus{domain.OutcomeSuccess, domain.OutcomeFailure} {
		t.Run("ack "+string(status), func(t *testing.T) {
			ack := new(MockAcknowledger)
			uc := new(MockUseCase)
			uc.On("Process", ctx, mock.MatchedBy(func(s domain.SourceFile) bool { return s.ID == src.ID })).
				Return(domain.PipelineOutcome{Status: status, Source: src}).Once()
			ack.On("Ack", uint64(1), false).Return(nil).Once()

			NewConsumer(nil, uc, domain.QueueName).handleDelivery(ctx, delivery(t, ack, src))

			ack.AssertExpectations(t)
			uc.AssertExpectations(t)
		})
	}

	t.Run("partial failure 不重新排入", func(t *testing.T) {
		ack := new(MockAcknowledger)
		uc := new(MockUseCase)
		uc.On("Process", ctx, mock.Anything).Return(domain.PipelineOutcome{
			Status: domain.OutcomePartialFailure,
			Source: src,
			Err:    domain.NewRecordError(domain.RecordStorageWrite, errors.New("db down")),
		}).Once()
		ack.On("Nack", uint64(1), false, false).Return(nil).Once()

		NewConsumer(nil, uc, domain.QueueName).handleDelivery(ctx, delivery(t, ack, src))
		ack.AssertExpectations(t)
	})

	t.Run("中斷的執行重新排入", func(t *testing.T) {
		ack := new(MockAcknowledger)
		uc := new(MockUseCase)
		uc.On("Process", ctx, mock.Anything).Return(domain.PipelineOutcome{
			Status: domain.OutcomeFailure,
			Source: src,
			Err:    domain.NewTranscodeError(domain.ErrEngineFailure, "720p", "", context.Canceled),
		}).Once()
		ack.On("Nack", uint64(1), false, true).Return(nil).Once()

		NewConsumer(nil, uc, domain.QueueName).handleDelivery(ctx, delivery(t, ack, src))
		ack.AssertExpectations(t)
		ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
	})

	t.Run("訊息格式錯誤", func(t *testing.T) {
		ack := new(MockAcknowledger)
		uc := new(MockUseCase)
		ack.On("Nack", uint64(7), false, false).Return(nil).Once()

		NewConsumer(nil, uc, domain.QueueName).handleDelivery(ctx, amqp.Delivery{Acknowledger: ack, DeliveryTag: 7, Body: []byte("{")})

		ack.AssertExpectations(t)
		uc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})
}

func TestConsumer_ShutdownKeepsMessageAndSource(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	namer := NewArtifactNamer(t.TempDir())
	engine := &fakeEngine{hold: map[string]bool{"1280x720": true, "854x480": true, "640x360": true, "thumbnail": true}}
	recorder := new(MockRecorder)
	journal := new(MockRunJournal)
	publisher := new(MockPublisher)
	uc := NewTranscodeUseCase(TranscodeDeps{
		Pipeline:  NewOrchestrator(engine, namer, recorder),
		Recorder:  recorder,
		Namer:     namer,
		Journal:   journal,
		Publisher: publisher,
	}, TranscodeOptions{Mode: config.PipelineModeQueue})

	src := sourceOnDisk(t)
	ack := new(MockAcknowledger)
	ack.On("Nack", uint64(1), false, true).Return(nil).Once()

	NewConsumer(nil, uc, domain.QueueName).handleDelivery(ctx, delivery(t, ack, src))

	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
	recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	journal.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)

	_, err := os.Stat(src.StoragePath)
	assert.NoError(t, err, "source stays for the redelivered message")
}

func TestConsumer_StartConsumer(t *testing.T) {
	t.Run("consume 失敗", func(t *testing.T) {
		c := NewConsumer(&fakeDeliverySource{err: errors.New("no channel")}, new(MockUseCase), domain.QueueName)
		assert.Error(t, c.StartConsumer(context.Background()))
	})

	t.Run("處理訊息直到 channel 關閉", func(t *testing.T) {
		src := testSource()
		ack := new(MockAcknowledger)
		uc := new(MockUseCase)
		uc.On("Process", mock.Anything, mock.Anything).Return(domain.PipelineOutcome{Status: domain.OutcomeSuccess, Source: src}).Twice()
		ack.On("Ack", uint64(1), false).Return(nil).Twice()

		ch := make(chan amqp.Delivery, 2)
		ch <- delivery(t, ack, src)
		ch <- delivery(t, ack, src)
		close(ch)

		err := NewConsumer(&fakeDeliverySource{ch: ch}, uc, domain.QueueName).StartConsumer(context.Background())
		require.NoError(t, err)
		ack.AssertExpectations(t)
	})

	t.Run("ctx 結束時停止", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewConsumer(&fakeDeliverySource{ch: make(chan amqp.Delivery)}, new(MockUseCase), domain.QueueName).StartConsumer(ctx)
		assert.NoError(t, err)
	})
}
