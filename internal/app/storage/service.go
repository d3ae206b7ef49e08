/*
Package storage stores user avatars in S3-compatible object storage.

Clients normally upload through a presigned PUT URL and then reference the object key
in a profile update; small files may also be posted to the server, which streams them
to the bucket itself.
*/
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a referenced object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// S3PublicURL is the public base URL objects are served from. When empty the
	// endpoint and bucket are used.
	S3PublicURL string
}

// ObjectInfo is the subset of object metadata the server checks.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// StorageService defines the public interface for the avatar storage service.
type StorageService interface {
	// PresignUpload generates a pre-signed URL for uploading an object.
	PresignUpload(ctx context.Context, key, mimeType string, fileSize int64, duration time.Duration) (string, error)

	// Upload streams body to key.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Stat returns the object's metadata or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string

	// KeyFromURL returns the object key of a URL produced by PublicURL, or false
	// when the URL points elsewhere.
	KeyFromURL(url string) (string, bool)
}

// NewStorageService is the factory function for StorageService.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}
