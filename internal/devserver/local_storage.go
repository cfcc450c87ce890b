package devserver

import (
	"context"
	"sync"
	"time"

	"gymsync/internal/storage"
)

// LocalStorage implements storage.FileStorage against the devserver's own
// /storage endpoints. URLs are not actually signed; this exists so the full
// presign-then-PUT flow can run without an S3 bucket.
type LocalStorage struct {
	store *Store

	mu      sync.Mutex
	baseURL string
}

// NewLocalStorage creates the in-process storage backend. The base URL is
// usually set later, once the listener address is known.
func NewLocalStorage(store *Store) *LocalStorage {
	return &LocalStorage{store: store}
}

// SetBaseURL points generated URLs at the running server.
func (l *LocalStorage) SetBaseURL(baseURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baseURL = baseURL
}

func (l *LocalStorage) url(objectKey string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseURL + "/storage/" + objectKey
}

func (l *LocalStorage) GeneratePresignedUploadURL(_ context.Context, objectKey, _ string, _ time.Duration) (string, error) {
	return l.url(objectKey), nil
}

func (l *LocalStorage) GeneratePresignedDownloadURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return l.url(objectKey), nil
}

func (l *LocalStorage) DeleteObject(_ context.Context, objectKey string) error {
	l.store.DeleteObject(objectKey)
	return nil
}

var _ storage.FileStorage = (*LocalStorage)(nil)
