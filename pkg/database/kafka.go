package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaWriterWithRetry dial the first broker until it answers, then return a writer for the topic
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	if err := k.validate(); err != nil {
		return nil, err
	}

	err := withRetry(k.RetryCount, k.RetryInterval, func(attempt int) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		conn, err := kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err != nil {
			log.Printf("Kafka 連線失敗 (嘗試 %d/%d): %v", attempt, k.RetryCount, err)
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("connect kafka after %d attempts: %w", k.RetryCount, err)
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(k.Brokers...),
		Topic:                  k.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}, nil
}
