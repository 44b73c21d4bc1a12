package config

import (
	"testing"
	"time"

	"github.com/gartstein/capacity/internal/capacity/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_HOST", "postgres")
	t.Setenv("DB_USER", "capacity")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("REDIS_ADDR", "redis:6379")
}

func TestLoad_RepositoryConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKER", "kafka:9092")

	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "postgres", cfg.DB.Host)
	assert.Equal(t, "pw", cfg.DB.Password)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "capacity-events", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Minute, cfg.Jobs.TaskTimeout)
	assert.Equal(t, "@every 5m", cfg.Jobs.JanitorSchedule)
	assert.Equal(t, 72*time.Hour, cfg.Jobs.FileRetention)
	assert.Equal(t, storage.DriverDB, cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_KafkaDisabledWithoutBroker(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKER", "")

	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Nil(t, cfg.Kafka.Brokers)
}

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`
jwt_secret: x
db: {host: h, user: u, name: n}
redis: {addr: "r:6379"}
`))
		require.NoError(t, err)
		assert.Equal(t, 50051, cfg.GRPCPort)
		assert.Equal(t, 5432, cfg.DB.Port)
		assert.Equal(t, "disable", cfg.DB.SSLMode)
		assert.Equal(t, "ingestion", cfg.Jobs.Queue)
		assert.Equal(t, 4, cfg.Jobs.Concurrency)
		assert.Equal(t, 30*time.Minute, cfg.Jobs.StaleAfter)
		assert.Equal(t, storage.DriverDB, cfg.Storage.Driver)
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("CAPACITY_TEST_PORT", "6000")
		cfg, err := Parse([]byte(`
grpc_port: ${CAPACITY_TEST_PORT}
jwt_secret: x
db: {host: h, user: u, name: n}
redis: {addr: "r:6379"}
`))
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.GRPCPort)
	})

	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing secret", yaml: `{db: {host: h, user: u, name: n}, redis: {addr: a}}`},
		{name: "missing db host", yaml: `{jwt_secret: x, db: {user: u, name: n}, redis: {addr: a}}`},
		{name: "bad port", yaml: `{grpc_port: 70000, jwt_secret: x, db: {host: h, user: u, name: n}, redis: {addr: a}}`},
		{name: "kafka without topic", yaml: `{jwt_secret: x, db: {host: h, user: u, name: n}, redis: {addr: a}, kafka: {brokers: [k:9092]}}`},
		{name: "s3 without bucket", yaml: `{jwt_secret: x, db: {host: h, user: u, name: n}, redis: {addr: a}, storage: {driver: s3}}`},
		{name: "not yaml", yaml: `grpc_port: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
