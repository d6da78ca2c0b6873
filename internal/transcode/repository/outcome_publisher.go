package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"video_transcode_service/internal/transcode/domain"

	"github.com/segmentio/kafka-go"
)

// MessageWriter the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutcomePublisher announce finished runs
type OutcomePublisher interface {
	Publish(ctx context.Context, event domain.PipelineEvent) error
}

type kafkaOutcomePublisher struct {
	writer MessageWriter
}

// NewKafkaOutcomePublisher 發佈轉碼結果事件, key 為會員 ID 讓同一會員的事件保持順序
func NewKafkaOutcomePublisher(writer MessageWriter) OutcomePublisher {
	return &kafkaOutcomePublisher{writer: writer}
}

func (p *kafkaOutcomePublisher) Publish(ctx context.Context, event domain.PipelineEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal pipeline event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(event.Status)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish pipeline event[%s]: %w", event.SourceID, err)
	}
	return nil
}

type noopOutcomePublisher struct{}

// NewNoopOutcomePublisher publisher used when kafka is disabled
func NewNoopOutcomePublisher() OutcomePublisher {
	return noopOutcomePublisher{}
}

func (noopOutcomePublisher) Publish(context.Context, domain.PipelineEvent) error {
	return nil
}
