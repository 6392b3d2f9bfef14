// Package s3store is an AWS S3-backed implementation of store.Store. Keys
// are <layer>/<id>, mirroring filestore's on-disk layout so a deployment can
// switch backends without changing how paths are interpreted elsewhere.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config configures an S3-backed store.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string // non-empty for S3-compatible services (e.g. MinIO)
	UsePathStyle bool
	AccessKey    string
	SecretKey    string
}

// Store is an S3-backed store.Store.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(cfg.Endpoint) })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

func (s *Store) key(path store.Path) string {
	if s.prefix == "" {
		return string(path)
	}
	return s.prefix + "/" + string(path)
}

// Add implements store.Store.
func (s *Store) Add(ctx context.Context, b []byte, chunkMeta chunk.Meta, indexMeta chunk.IndexMeta, layer string) (store.Path, error) {
	if layer == "" {
		layer = "default"
	}
	path := store.Path(layer + "/" + chunk.NewID().String())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String(chunkMeta.MimeType),
	})
	if err != nil {
		return "", &store.UpstreamFailure{Cause: err}
	}
	return path, nil
}

// GetOne implements store.Store.
func (s *Store) GetOne(ctx context.Context, path store.Path) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, store.ErrNotFound
		}
		return nil, &store.UpstreamFailure{Cause: err}
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &store.UpstreamFailure{Cause: err}
	}
	return b, nil
}

// GetManyParallel implements store.Store.
func (s *Store) GetManyParallel(ctx context.Context, paths <-chan store.Path, parallelism int) <-chan store.Item {
	return store.RunParallel(ctx, paths, parallelism, s.GetOne)
}

// Delete implements store.Store. Missing keys are silent successes, matching
// S3's own DeleteObject semantics.
func (s *Store) Delete(ctx context.Context, paths []store.Path) error {
	if len(paths) == 0 {
		return nil
	}
	objects := make([]s3types.ObjectIdentifier, len(paths))
	for i, p := range paths {
		objects[i] = s3types.ObjectIdentifier{Key: aws.String(s.key(p))}
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{Objects: objects},
	})
	if err != nil {
		return &store.UpstreamFailure{Cause: err}
	}
	return nil
}

// Close implements store.Store. The SDK client holds no resources that need
// releasing.
func (s *Store) Close() error { return nil }

func isNotFoundError(err error) bool {
	var notFound *s3types.NotFound
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) ||
		strings.Contains(err.Error(), "NoSuchKey")
}
