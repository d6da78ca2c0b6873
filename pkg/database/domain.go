package database

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection DSN of a dial-once backend: the postgres metadata store (pgx pool / gorm),
// the rabbitmq job queue and the mongo run journal.
// RetryInterval is counted in whole seconds, the same unit as config.yaml.
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB run journal database handle
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Collection run journal collection by name
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// MinIOConnection artifact mirror bucket; renditions and thumbnails are copied here after a run
type MinIOConnection struct {
	Endpoint   string
	User       string
	Password   string
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

func (m MinIOConnection) validate() error {
	if m.Endpoint == "" {
		return errors.New("minio: endpoint is empty")
	}
	if m.BucketName == "" {
		return errors.New("minio: bucket is empty")
	}
	return nil
}

// KafkaConnection outcome event topic; one message per finished run, keyed by source id
type KafkaConnection struct {
	Brokers []string
	Topic   string

	RetryCount    int
	RetryInterval time.Duration
}

func (k KafkaConnection) validate() error {
	if len(k.Brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	if k.Topic == "" {
		return errors.New("kafka: topic is empty")
	}
	return nil
}
