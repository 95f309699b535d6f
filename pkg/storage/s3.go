// Package storage fetches ingest input files from S3-compatible object
// storage so buckets of CSVs can feed bulk ingest jobs directly.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds the object store connection settings
type Config struct {
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
	TempDir         string
}

// LoadConfig reads the object store settings from the environment
func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		EndpointURL:     os.Getenv("S3_ENDPOINT_URL"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Bucket:          os.Getenv("S3_BUCKET"),
		Region:          os.Getenv("S3_REGION"),
		UseSSL:          os.Getenv("S3_USE_SSL") != "false",
		TempDir:         os.Getenv("tempDir"),
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	if cfg.EndpointURL == "" {
		return nil, fmt.Errorf("S3_ENDPOINT_URL is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required")
	}

	return cfg, nil
}

// ObjectStore wraps an S3-compatible bucket of ingest input files
type ObjectStore struct {
	client *minio.Client
	cfg    *Config
	logger *zap.Logger
}

// NewObjectStore creates an object store client from config
func NewObjectStore(cfg *Config, logger *zap.Logger) (*ObjectStore, error) {
	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %w", err)
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}

	useSSL := cfg.UseSSL
	if u.Scheme == "https" {
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// MatchKey reports whether an object key matches the glob pattern.
// Patterns follow path.Match syntax, so "*" does not cross "/" and a
// prefix folder must be spelled out (e.g. "BulkAPITests/*.csv").
func MatchKey(pattern, key string) bool {
	if ok, err := path.Match(pattern, key); err == nil && ok {
		return true
	}
	return false
}

// ForEachMatching downloads every object whose key matches pattern into the
// temp dir and invokes fn with the local path. The local copy is removed
// after fn returns. Processing stops on the first error.
func (s *ObjectStore) ForEachMatching(ctx context.Context, pattern string, fn func(localPath string) error) error {
	s.logger.Info("Listing objects",
		zap.String("bucket", s.cfg.Bucket),
		zap.String("pattern", pattern))

	matched := 0
	for object := range s.client.ListObjects(ctx, s.cfg.Bucket, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list bucket %s: %w", s.cfg.Bucket, object.Err)
		}
		if !MatchKey(pattern, object.Key) {
			continue
		}
		matched++

		localPath := filepath.Join(s.cfg.TempDir, filepath.Base(object.Key))
		s.logger.Info("Downloading object",
			zap.String("key", object.Key),
			zap.String("local_path", localPath))

		if err := s.client.FGetObject(ctx, s.cfg.Bucket, object.Key, localPath, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("failed to download %s: %w", object.Key, err)
		}

		err := fn(localPath)
		if rmErr := os.Remove(localPath); rmErr != nil {
			s.logger.Warn("Failed to remove downloaded file",
				zap.String("local_path", localPath),
				zap.Error(rmErr))
		}
		if err != nil {
			return err
		}
	}

	s.logger.Info("Finished processing objects", zap.Int("matched", matched))
	return nil
}
