package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Поддерживаемые backend'ы blob storage
const (
	BlobBackendS3     = "s3"
	BlobBackendMinio  = "minio"
	BlobBackendLocal  = "local"
	BlobBackendMemory = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	Server struct {
		Port              string        `env:"SERVER_PORT" envDefault:"8080"`
		RequestTimeout    time.Duration `env:"SERVER_REQUEST_TIMEOUT" envDefault:"60s"`
		MaxUploadBytes    int64         `env:"SERVER_MAX_UPLOAD_BYTES" envDefault:"20971520"`
		UploadConcurrency int           `env:"SERVER_UPLOAD_CONCURRENCY" envDefault:"5"`
		CORSOrigins       []string      `env:"SERVER_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	JWT struct {
		Secret string        `env:"JWT_SECRET,required"`
		TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
		Issuer string        `env:"JWT_ISSUER" envDefault:"geophoto"`
	}

	// BLOB_BACKEND выбирает, где хранятся сами изображения
	BlobBackend string `env:"BLOB_BACKEND" envDefault:"s3"`

	// Настройки для S3/MinIO (оба backend'а читают одни и те же переменные)
	Minio struct {
		Endpoint        string `env:"MINIO_ENDPOINT"`
		AccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
		SecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
		UseSSL          bool   `env:"MINIO_USE_SSL"`
		BucketName      string `env:"MINIO_BUCKET_NAME" envDefault:"photos"`
		Region          string `env:"MINIO_REGION" envDefault:"us-east-1"`
	}

	// Локальный backend: файлы + индекс badger
	Local struct {
		Dir      string `env:"LOCAL_BLOB_DIR" envDefault:"./data/blobs"`
		IndexDir string `env:"LOCAL_BLOB_INDEX_DIR" envDefault:"./data/index"`
	}

	// Каталог старых загрузок (/uploads/...), существовавших до blob storage
	LegacyUploadDir string `env:"LEGACY_UPLOAD_DIR" envDefault:"./uploads"`

	RabbitMQ struct {
		URL          string `env:"RABBITMQ_URL"`
		CleanupQueue string `env:"RABBITMQ_CLEANUP_QUEUE" envDefault:"photo_cleanup_queue"`
	}
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SharedBlobBackend — хранилище доступно из нескольких процессов.
// local держит блокировку каталога badger, memory живёт в памяти одного процесса.
func (c *Config) SharedBlobBackend() bool {
	return c.BlobBackend == BlobBackendS3 || c.BlobBackend == BlobBackendMinio
}

// CheckWorker проверяет, что отдельный процесс worker может выполнять очистку.
// Для local и memory задания очистки потребляет сам сервер.
func (c *Config) CheckWorker() error {
	if c.RabbitMQ.URL == "" {
		return fmt.Errorf("config: режим worker требует RABBITMQ_URL")
	}
	if !c.SharedBlobBackend() {
		return fmt.Errorf("config: режим worker поддерживает только BLOB_BACKEND=s3 или minio, задан %q; очистку выполняет server", c.BlobBackend)
	}
	return nil
}

// Validate проверяет согласованность параметров, которые env не может проверить сам
func (c *Config) Validate() error {
	c.BlobBackend = strings.ToLower(strings.TrimSpace(c.BlobBackend))
	switch c.BlobBackend {
	case BlobBackendS3, BlobBackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.AccessKeyID == "" || c.Minio.SecretAccessKey == "" {
			return fmt.Errorf("config: для BLOB_BACKEND=%s нужны MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID и MINIO_SECRET_ACCESS_KEY", c.BlobBackend)
		}
	case BlobBackendLocal, BlobBackendMemory:
	default:
		return fmt.Errorf("config: неизвестный BLOB_BACKEND %q", c.BlobBackend)
	}

	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("config: JWT_SECRET должен быть не короче 32 байт")
	}
	if c.Server.UploadConcurrency < 1 {
		c.Server.UploadConcurrency = 1
	}
	return nil
}
