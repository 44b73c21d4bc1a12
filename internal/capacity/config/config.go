// Package config loads the capacity service configuration from YAML.
// ${VAR} references are expanded from the environment, which is first
// populated from an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gartstein/capacity/internal/capacity/jobs"
	"github.com/gartstein/capacity/internal/capacity/storage"
	"github.com/gartstein/capacity/internal/pkg/logging"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "internal/capacity/config/config.yaml"

type Config struct {
	GRPCPort int `yaml:"grpc_port" validate:"gt=0,lte=65535"`
	// MaxUploadSize bounds a bulk upload in bytes; 0 disables the check.
	MaxUploadSize   int64          `yaml:"max_upload_size" validate:"gte=0"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	JWTSecret       string         `yaml:"jwt_secret" validate:"required"`
	DB              DBConfig       `yaml:"db"`
	Kafka           KafkaConfig    `yaml:"kafka"`
	Redis           RedisConfig    `yaml:"redis"`
	Jobs            jobs.Config    `yaml:"jobs"`
	Storage         storage.Config `yaml:"storage"`
	Log             logging.Config `yaml:"log"`
}

type DBConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" validate:"required"`
	SSLMode  string `yaml:"sslmode"`
	// ConnectTimeout bounds the retries of the initial connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// KafkaConfig configures event notifications. With no brokers, events
// are discarded.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic" validate:"required_with=Brokers"`
	Partitions int      `yaml:"partitions"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// Load reads the file at path, expands environment references and applies
// defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML configuration content.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Storage.Driver == storage.DriverS3 && cfg.Storage.S3.Bucket == "" {
		return nil, fmt.Errorf("invalid config: storage.s3.bucket is required for the s3 driver")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GRPCPort == 0 {
		c.GRPCPort = 50051
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.DB.ConnectTimeout == 0 {
		c.DB.ConnectTimeout = 30 * time.Second
	}
	brokers := c.Kafka.Brokers[:0]
	for _, b := range c.Kafka.Brokers {
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Kafka.Brokers = brokers
	if len(brokers) == 0 {
		c.Kafka.Brokers = nil
	}
	if c.Kafka.Partitions == 0 {
		c.Kafka.Partitions = 3
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = storage.DriverDB
	}

	j := &c.Jobs
	if j.Queue == "" {
		j.Queue = "ingestion"
	}
	if j.Concurrency == 0 {
		j.Concurrency = 4
	}
	if j.MaxRetry == 0 {
		j.MaxRetry = 3
	}
	if j.TaskTimeout == 0 {
		j.TaskTimeout = 10 * time.Minute
	}
	if j.JanitorSchedule == "" {
		j.JanitorSchedule = "@every 5m"
	}
	if j.StaleAfter == 0 {
		j.StaleAfter = 30 * time.Minute
	}
	if j.FileRetention == 0 {
		j.FileRetention = 72 * time.Hour
	}
}
