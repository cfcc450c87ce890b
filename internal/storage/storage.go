package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs.
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the object-storage operations the devserver needs to
// broker media uploads: it presigns URLs so clients PUT files directly to the
// storage provider and the media bytes never transit the API.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a PUT
	// request uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows a GET
	// request downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
