package app

import (
	"context"
	"encoding/json"
	"fmt"

	"video_transcode_service/internal/transcode/domain"
	"video_transcode_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DeliverySource the part of *amqp.Channel the consumer needs
type DeliverySource interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Consumer 從 rabbitmq 取出轉碼工作並執行
type Consumer struct {
	source    DeliverySource
	usecase   TranscodeUseCase
	queueName string
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(source DeliverySource, usecase TranscodeUseCase, queueName string) *Consumer {
	return &Consumer{
		source:    source,
		usecase:   usecase,
		queueName: queueName,
	}
}

// StartConsumer 開始消費訊息, 直到 ctx 結束或 channel 關閉
func (c *Consumer) StartConsumer(ctx context.Context) error {
	msgs, err := c.source.Consume(
		c.queueName,
		"",    // consumer tag，留空由系統分配
		false, // 手動確認
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue[%s]: %w", c.queueName, err)
	}

	logger.Log.Info("consumer started", zap.String("queue", c.queueName))
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Warn("rabbitmq delivery channel closed", zap.String("queue", c.queueName))
				return nil
			}
			c.handleDelivery(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("consumer stopped", zap.String("queue", c.queueName))
			return nil
		}
	}
}

// handleDelivery ack success and failure, a failure will not succeed on redelivery.
// An interrupted run (shutdown) is requeued.
// Partial failures still unrecorded after the usecase retries are dropped without requeue.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var msg domain.PipelineMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Log.Error("decode pipeline message failed", zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("nack failed", zap.Error(err))
		}
		return
	}

	outcome := c.usecase.Process(ctx, msg.Source)
	if outcome.Interrupted() {
		logger.Log.Warn("pipeline interrupted, requeue message", zap.String("source", msg.Source.ID))
		if err := d.Nack(false, true); err != nil {
			logger.Log.Error("nack failed", zap.String("source", msg.Source.ID), zap.Error(err))
		}
		return
	}

	switch outcome.Status {
	case domain.OutcomeSuccess, domain.OutcomeFailure:
		if err := d.Ack(false); err != nil {
			logger.Log.Error("ack failed", zap.String("source", msg.Source.ID), zap.Error(err))
		}
	default:
		logger.Log.Error("pipeline record not written, dropping message",
			zap.String("source", msg.Source.ID),
			zap.Error(outcome.Err),
		)
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("nack failed", zap.String("source", msg.Source.ID), zap.Error(err))
		}
	}
}
