// Package storage stores book cover images in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultCoverURLTTL is how long presigned cover links stay valid.
const DefaultCoverURLTTL = 15 * time.Minute

// CoverStore holds book cover images keyed by book.
type CoverStore interface {
	PutCover(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	CoverURL(ctx context.Context, key string) (string, error)
	DeleteCover(ctx context.Context, key string) error
}

// CoverKey derives the object key for a book's cover image.
func CoverKey(bookID, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	}
	return "covers/" + bookID + ext
}

// AllowedCoverType reports whether the upload content type is an accepted
// cover image format.
func AllowedCoverType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}

// MinioCoverStore implements CoverStore on MinIO/S3 compatible storage.
type MinioCoverStore struct {
	client *minio.Client
	bucket string
	urlTTL time.Duration
}

// NewMinioCoverStore connects to MinIO and ensures the cover bucket exists.
func NewMinioCoverStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioCoverStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioCoverStore{client: client, bucket: bucket, urlTTL: DefaultCoverURLTTL}, nil
}

// PutCover uploads a cover image.
func (m *MinioCoverStore) PutCover(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put cover: %w", err)
	}
	return nil
}

// CoverURL generates a short-lived presigned GET URL for the cover.
func (m *MinioCoverStore) CoverURL(ctx context.Context, key string) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign cover: %w", err)
	}
	return url.String(), nil
}

// DeleteCover removes a cover image.
func (m *MinioCoverStore) DeleteCover(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete cover: %w", err)
	}
	return nil
}
