// Package blob is the durable store for generated media. Object names are
// timestamped so retries never overwrite an earlier artifact.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

type Store interface {
	// Save writes a payload under a unique name derived from prefix and
	// ext, and returns the object URL.
	Save(ctx context.Context, data []byte, prefix, ext, contentType string) (string, error)
	// SaveFile uploads a local file under the given object name.
	SaveFile(ctx context.Context, localPath, objectName, contentType string) (string, error)
	// Fetch reads an object back by the URL Save returned.
	Fetch(ctx context.Context, url string) ([]byte, error)
	// FetchToFile downloads an object to a local path.
	FetchToFile(ctx context.Context, url, localPath string) error
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// objectName builds a collision-free name: prefix/timestamp-shortid.ext
func objectName(prefix, ext string) string {
	return path.Join(prefix, fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext))
}

func (s *MinioStore) Save(ctx context.Context, data []byte, prefix, ext, contentType string) (string, error) {
	name := objectName(prefix, ext)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save object %s: %w", name, err)
	}
	return s.url(name), nil
}

func (s *MinioStore) SaveFile(ctx context.Context, localPath, objectName, contentType string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save object %s: %w", objectName, err)
	}
	return s.url(objectName), nil
}

func (s *MinioStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectFromURL(url), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object: %w", err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (s *MinioStore) FetchToFile(ctx context.Context, url, localPath string) error {
	err := s.client.FGetObject(ctx, s.bucket, s.objectFromURL(url), localPath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to fetch object to %s: %w", localPath, err)
	}
	return nil
}

func (s *MinioStore) url(name string) string {
	return fmt.Sprintf("%s/%s", s.bucket, name)
}

func (s *MinioStore) objectFromURL(url string) string {
	prefix := s.bucket + "/"
	if len(url) > len(prefix) && url[:len(prefix)] == prefix {
		return url[len(prefix):]
	}
	return url
}
