// Package storage keeps attachment bytes in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/macfixkou/repair-manager/internal/attachment/domain"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Store struct {
	client        *minio.Client
	bucket        string
	region        string
	publicBaseURL string
	log           *zap.Logger
}

func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (domain.ObjectStore, error) {
	sc := cfg.Storage
	client, err := minio.New(sc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(sc.AccessKey, sc.SecretKey, ""),
		Secure: sc.UseSSL,
		Region: sc.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}

	store := &Store{
		client:        client,
		bucket:        sc.Bucket,
		region:        sc.Region,
		publicBaseURL: sc.PublicBaseURL,
		log:           log.Named("attachment.storage"),
	}
	if store.publicBaseURL == "" {
		store.publicBaseURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + sc.Bucket
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Uploads fail with a dependency error until the bucket exists;
			// the server still starts so case work is not blocked.
			if err := store.ensureBucket(ctx); err != nil {
				store.log.Error("attachment bucket unavailable", zap.String("bucket", store.bucket), zap.Error(err))
			}
			return nil
		},
	})
	return store, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

func (s *Store) KeyFromURL(publicURL string) string {
	return KeyFromURL(s.publicBaseURL, s.bucket, publicURL)
}

// KeyFromURL strips base from publicURL. URLs under another base are split
// on the bucket name, and failing that the last path segment is used.
func KeyFromURL(base, bucket, publicURL string) string {
	if base != "" && strings.HasPrefix(publicURL, base+"/") {
		return strings.TrimPrefix(publicURL, base+"/")
	}
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == bucket && i+1 < len(segments) {
			return strings.Join(segments[i+1:], "/")
		}
	}
	return segments[len(segments)-1]
}
