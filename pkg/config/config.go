package config

import "time"

// Transcode definition transcode_service YAML structure
type Transcode struct {
	IP         string        `mapstructure:"ip"`
	Port       string        `mapstructure:"port"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	JWTSecret  string        `mapstructure:"jwt_secret"`

	Storage  StorageConfig  `mapstructure:"storage"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	Redis      RedisConfig    `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka      KafkaConfig    `mapstructure:"kafka"`
	MinIO      MinIOConfig    `mapstructure:"minio"`
	Mongo      MongoConfig    `mapstructure:"mongo"`
}

// StorageConfig definition local upload / artifact directories
type StorageConfig struct {
	UploadDir      string `mapstructure:"upload_dir"`
	ArtifactDir    string `mapstructure:"artifact_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	KeepSource     bool   `mapstructure:"keep_source"`
}

// EngineConfig definition codec engine setting
type EngineConfig struct {
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	Preset        string        `mapstructure:"preset"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	FailFast      bool          `mapstructure:"fail_fast"`
}

// PipelineConfig definition how uploads are handed to the pipeline
type PipelineConfig struct {
	// Mode inline | queue
	Mode             string        `mapstructure:"mode"`
	RecordRetryLimit time.Duration `mapstructure:"record_retry_limit"`
}

// RedisConfig definition redis setting, MasterName set means sentinel mode
type RedisConfig struct {
	Addrs      []string      `mapstructure:"addrs"`
	MasterName string        `mapstructure:"master_name"`
	Password   string        `mapstructure:"password"`
	RedisDB    int           `mapstructure:"redis_db"`
	ListTTL    time.Duration `mapstructure:"list_ttl"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	IP            string        `mapstructure:"ip"`
	Port          string        `mapstructure:"port"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// KafkaConfig definition kafka setting
type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	Topic         string        `mapstructure:"topic"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// MongoConfig definition mongo setting
type MongoConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URI           string        `mapstructure:"uri"`
	Database      string        `mapstructure:"database"`
	Collection    string        `mapstructure:"collection"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// PipelineModeQueue hand uploads to the rabbitmq worker
const PipelineModeQueue = "queue"
