// File: /services/media_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
	"yonkoma-api/config"
)

// MediaHost stores an image and returns a durable URL for it
type MediaHost interface {
	Upload(ctx context.Context, data []byte, contentType, publicID string) (string, error)
}

// MinioMediaHost uploads to an S3 compatible bucket
type MinioMediaHost struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioMediaHost(cfg *config.Config) (*MinioMediaHost, error) {
	client, err := minio.New(cfg.MediaEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MediaAccessKey, cfg.MediaSecretKey, ""),
		Secure: cfg.MediaUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create media client: %w", err)
	}

	publicURL := cfg.MediaPublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.MediaBucket)
	}

	return &MinioMediaHost{
		client:    client,
		bucket:    cfg.MediaBucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (m *MinioMediaHost) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", m.bucket, err)
	}
	log.Info().Str("bucket", m.bucket).Msg("Created media bucket.")
	return nil
}

func (m *MinioMediaHost) Upload(ctx context.Context, data []byte, contentType, publicID string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, publicID, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMediaUpload, err)
	}
	return fmt.Sprintf("%s/%s", m.publicURL, publicID), nil
}

// MemoryMediaHost keeps uploads in memory. It backs local runs without a
// bucket and tests.
type MemoryMediaHost struct {
	baseURL string

	mutex   sync.RWMutex
	objects map[string][]byte
	fail    error
}

func NewMemoryMediaHost(baseURL string) *MemoryMediaHost {
	return &MemoryMediaHost{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

// FailWith makes every following upload fail with err; nil clears it
func (m *MemoryMediaHost) FailWith(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fail = err
}

func (m *MemoryMediaHost) Upload(ctx context.Context, data []byte, contentType, publicID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMediaUpload, err)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.fail != nil {
		return "", fmt.Errorf("%w: %w", ErrMediaUpload, m.fail)
	}
	m.objects[publicID] = bytes.Clone(data)
	return fmt.Sprintf("%s/%s", m.baseURL, publicID), nil
}

// Len returns the number of stored objects
func (m *MemoryMediaHost) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.objects)
}
