// internal/adapter/storage/s3/client.go
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	appconfig "github.com/GoArmGo/GeoPhoto/internal/config"
	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
)

// ownerMetaKey — ключ пользовательских метаданных объекта с id владельца
const ownerMetaKey = "owner-id"

// API — подмножество методов *awss3.Client, которыми пользуется адаптер.
type API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error)
}

// Client — blob storage поверх S3-совместимого хранилища (AWS S3, MinIO).
type Client struct {
	api        API
	uploader   *manager.Uploader
	bucketName string
	logger     *slog.Logger
}

var _ ports.BlobStorage = (*Client)(nil)

// NewS3Client создает клиент по конфигурации и при необходимости создаёт бакет.
func NewS3Client(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*Client, error) {
	m := cfg.Minio
	if m.AccessKeyID == "" || m.SecretAccessKey == "" || m.BucketName == "" || m.Endpoint == "" {
		return nil, fmt.Errorf("s3: MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY, MINIO_BUCKET_NAME и MINIO_ENDPOINT должны быть заданы")
	}

	scheme := "http"
	if m.UseSSL {
		scheme = "https"
	}
	endpoint := fmt.Sprintf("%s://%s", scheme, m.Endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(m.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.AccessKeyID, m.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: не удалось загрузить AWS конфигурацию: %w", err)
	}

	s3Client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	c := NewWithAPI(s3Client, m.BucketName, logger)
	if err := c.ensureBucket(ctx, m.Region); err != nil {
		return nil, err
	}
	return c, nil
}

// NewWithAPI собирает клиент поверх готового API. Бакет не проверяется.
func NewWithAPI(api API, bucketName string, logger *slog.Logger) *Client {
	return &Client{
		api:        api,
		uploader:   manager.NewUploader(api),
		bucketName: bucketName,
		logger:     logger,
	}
}

func (c *Client) ensureBucket(ctx context.Context, region string) error {
	headCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.api.HeadBucket(headCtx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucketName)})
	if err == nil {
		c.logger.Info("bucket already exists", "bucket", c.bucketName)
		return nil
	}

	c.logger.Info("bucket not found, creating", "bucket", c.bucketName)
	input := &awss3.CreateBucketInput{Bucket: aws.String(c.bucketName)}
	// us-east-1 не принимает явный LocationConstraint
	if region != "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("s3: не удалось создать бакет '%s': %w", c.bucketName, err)
	}

	waiter := awss3.NewBucketExistsWaiter(c.api)
	if err := waiter.Wait(ctx, &awss3.HeadBucketInput{Bucket: aws.String(c.bucketName)}, 30*time.Second); err != nil {
		return fmt.Errorf("s3: бакет '%s' не стал доступен: %w", c.bucketName, err)
	}

	c.logger.Info("bucket created", "bucket", c.bucketName)
	return nil
}

// Store загружает поток в бакет (multipart для больших файлов).
func (c *Client) Store(ctx context.Context, key string, r io.Reader, contentType string, ownerTag string) error {
	start := time.Now()
	_, err := c.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{ownerMetaKey: ownerTag},
	})
	if err != nil {
		return fmt.Errorf("s3: ошибка загрузки %s в бакет %s: %w", key, c.bucketName, err)
	}

	c.logger.Debug("blob stored", "backend", "s3", "key", key, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Open открывает объект на чтение.
func (c *Client) Open(ctx context.Context, key string) (*ports.Blob, error) {
	out, err := c.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ports.ErrBlobNotFound
		}
		return nil, fmt.Errorf("s3: ошибка получения %s из бакета %s: %w", key, c.bucketName, err)
	}

	info := ports.BlobInfo{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		OwnerID:     out.Metadata[ownerMetaKey],
		Size:        aws.ToInt64(out.ContentLength),
	}
	if out.LastModified != nil {
		info.StoredAt = *out.LastModified
	}
	return &ports.Blob{BlobInfo: info, Body: out.Body}, nil
}

// Delete удаляет объект. S3 не считает удаление отсутствующего ключа ошибкой.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3: ошибка удаления %s из бакета %s: %w", key, c.bucketName, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || strings.EqualFold(code, "NotFound")
	}
	return false
}
