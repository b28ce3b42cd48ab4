package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/geophoto")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("BLOB_BACKEND", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 5, cfg.Server.UploadConcurrency)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "photo_cleanup_queue", cfg.RabbitMQ.CleanupQueue)
	assert.Empty(t, cfg.RabbitMQ.URL)
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", testSecret)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"memory backend", func(c *Config) { c.BlobBackend = "memory" }, false},
		{"backend is case insensitive", func(c *Config) { c.BlobBackend = " LOCAL " }, false},
		{"unknown backend", func(c *Config) { c.BlobBackend = "ftp" }, true},
		{"s3 without endpoint", func(c *Config) { c.BlobBackend = "s3" }, true},
		{"s3 with credentials", func(c *Config) {
			c.BlobBackend = "s3"
			c.Minio.Endpoint = "localhost:9000"
			c.Minio.AccessKeyID = "key"
			c.Minio.SecretAccessKey = "secret"
		}, false},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{BlobBackend: "memory"}
			c.JWT.Secret = testSecret
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckWorker(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		url     string
		shared  bool
		wantErr bool
	}{
		{"s3", BlobBackendS3, "amqp://localhost", true, false},
		{"minio", BlobBackendMinio, "amqp://localhost", true, false},
		{"local holds badger lock", BlobBackendLocal, "amqp://localhost", false, true},
		{"memory is per process", BlobBackendMemory, "amqp://localhost", false, true},
		{"no queue", BlobBackendS3, "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{BlobBackend: tt.backend}
			c.RabbitMQ.URL = tt.url

			err := c.CheckWorker()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.shared, c.SharedBlobBackend())
		})
	}
}
