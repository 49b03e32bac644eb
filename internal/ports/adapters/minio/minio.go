package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func (c Config) Enabled() bool { return c.Endpoint != "" }

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Bucket == "" {
		return errors.New("MINIO_BUCKET must be set when MINIO_ENDPOINT is set")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set when MINIO_ENDPOINT is set")
	}
	return nil
}

// Adapter stores rendered GIFs in an S3-compatible bucket.
type Adapter struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Adapter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	a := &Adapter{client: client, bucket: cfg.Bucket, logger: logger}
	if err := a.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) ensureBucket(ctx context.Context, region string) error {
	err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: region})
	if err == nil {
		a.logger.Info().Str("bucket", a.bucket).Msg("created archive bucket")
		return nil
	}
	exists, existsErr := a.client.BucketExists(ctx, a.bucket)
	if existsErr == nil && exists {
		a.logger.Debug().Str("bucket", a.bucket).Msg("archive bucket already exists")
		return nil
	}
	return fmt.Errorf("minio bucket %q: %w", a.bucket, err)
}

func (a *Adapter) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "image/gif",
	})
	if err != nil {
		a.logger.Error().Err(err).Str("bucket", a.bucket).Str("key", key).Msg("failed to upload gif")
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	a.logger.Debug().Str("bucket", a.bucket).Str("key", key).Int("bytes", len(data)).Msg("archived gif")
	return a.bucket + "/" + key, nil
}
