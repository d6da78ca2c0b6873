package database

import (
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// RabbitRepo definition rabbit repo
type RabbitRepo interface {
	GetRabbit() *amqp.Channel
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitRepo struct {
	channel *amqp.Channel
}

// NewRabbitRepository create a RabbitRepository
func NewRabbitRepository(ch *amqp.Channel) RabbitRepo {
	return &rabbitRepo{channel: ch}
}

// ConnectRabbitMQWithRetry dial rabbitmq with retry
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var conn *amqp.Connection
	err := withRetry(d.RetryCount, d.RetryInterval, func(attempt int) error {
		var err error
		conn, err = amqp.Dial(d.ConnectStr)
		if err != nil {
			log.Printf("RabbitMQ 連線失敗 (嘗試 %d/%d): %v", attempt, d.RetryCount, err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq after %d attempts: %w", d.RetryCount, err)
	}
	return conn, nil
}

// GetRabbitMQChannelWithRetry open a channel on an existing connection
func GetRabbitMQChannelWithRetry(conn *amqp.Connection, maxRetries int, baseDelay time.Duration) (*amqp.Channel, error) {
	var ch *amqp.Channel
	err := withRetry(maxRetries, baseDelay, func(attempt int) error {
		var err error
		ch, err = conn.Channel()
		if err != nil {
			log.Printf("建立 RabbitMQ Channel 失敗 (嘗試 %d/%d): %v", attempt, maxRetries, err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	return ch, nil
}

// DeclareDurableQueue declare a durable, non-exclusive queue and allow one unacked delivery per consumer
func DeclareDurableQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue[%s]: %w", name, err)
	}
	return ch.Qos(1, 0, false)
}

func (r *rabbitRepo) GetRabbit() *amqp.Channel {
	return r.channel
}

func (r *rabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return r.channel.Publish(exchange, key, mandatory, immediate, msg)
}
