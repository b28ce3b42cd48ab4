// internal/adapter/storage/minio/client.go
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appconfig "github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

const ownerMetaKey = "owner-id"

// Client — blob storage на нативном клиенте minio-go.
type Client struct {
	client     *minio.Client
	bucketName string
	logger     *slog.Logger
}

var _ ports.BlobStorage = (*Client)(nil)

// NewMinioClient подключается к MinIO и создаёт бакет, если его нет.
func NewMinioClient(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*Client, error) {
	m := cfg.Minio
	mc, err := minio.New(m.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.AccessKeyID, m.SecretAccessKey, ""),
		Secure: m.UseSSL,
		Region: m.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: не удалось создать клиент: %w", err)
	}

	exists, err := mc.BucketExists(ctx, m.BucketName)
	if err != nil {
		return nil, fmt.Errorf("minio: ошибка проверки бакета '%s': %w", m.BucketName, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, m.BucketName, minio.MakeBucketOptions{Region: m.Region}); err != nil {
			return nil, fmt.Errorf("minio: не удалось создать бакет '%s': %w", m.BucketName, err)
		}
		logger.Info("bucket created", "bucket", m.BucketName)
	}

	return &Client{client: mc, bucketName: m.BucketName, logger: logger}, nil
}

// Store загружает поток неизвестной длины (minio-go режет его на части сам).
func (c *Client) Store(ctx context.Context, key string, r io.Reader, contentType string, ownerTag string) error {
	start := time.Now()
	info, err := c.client.PutObject(ctx, c.bucketName, key, r, -1, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{ownerMetaKey: ownerTag},
	})
	if err != nil {
		return fmt.Errorf("minio: ошибка загрузки %s: %w", key, err)
	}

	c.logger.Debug("blob stored", "backend", "minio", "key", key, "size", info.Size, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Open сначала делает StatObject: GetObject ленивый и не сообщает об отсутствии ключа.
func (c *Client) Open(ctx context.Context, key string) (*ports.Blob, error) {
	stat, err := c.client.StatObject(ctx, c.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}

	obj, err := c.client.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}

	return &ports.Blob{
		BlobInfo: blobInfo(key, stat),
		Body:     obj,
	}, nil
}

// Delete удаляет объект
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		if mapped := mapError(key, err); mapped == ports.ErrBlobNotFound {
			return nil
		}
		return fmt.Errorf("minio: ошибка удаления %s: %w", key, err)
	}
	return nil
}

func blobInfo(key string, stat minio.ObjectInfo) ports.BlobInfo {
	return ports.BlobInfo{
		Key:         key,
		ContentType: stat.ContentType,
		OwnerID:     userMeta(stat.UserMetadata, ownerMetaKey),
		Size:        stat.Size,
		StoredAt:    stat.LastModified,
	}
}

// userMeta ищет ключ без учёта регистра: сервер канонизирует заголовки (Owner-Id)
func userMeta(meta map[string]string, key string) string {
	for k, v := range meta {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func mapError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ports.ErrBlobNotFound
	}
	return fmt.Errorf("minio: ошибка чтения %s: %w", key, err)
}
