package service

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"gymsync/internal/domain"
	"gymsync/internal/remote"
	"gymsync/internal/repository"
	"gymsync/internal/syncerr"
)

// maxUploadAttempts bounds retries for a single file. A row that keeps
// failing is parked as failed so one broken file cannot wedge the queue.
const maxUploadAttempts = 5

// MediaService queues local media files (form-check videos, progress photos)
// and drains the queue to object storage via backend-presigned URLs.
type MediaService interface {
	// Enqueue records a local file for upload. The file must exist; its
	// bytes are read at push time, not now.
	Enqueue(ctx context.Context, profileID, workoutID, filePath, contentType string) (*domain.MediaUpload, error)

	// PushPending uploads every queued file, oldest first, isolating
	// per-file failures. Returns the number uploaded this pass.
	PushPending(ctx context.Context, profileID string) (int, error)

	Get(ctx context.Context, id string) (*domain.MediaUpload, error)
	Delete(ctx context.Context, id string) error
}

type mediaService struct {
	media   repository.MediaRepository
	gateway MediaGateway
	oracle  connectivityOracle
	logger  *log.Logger
	clock   Clock
	newID   IDGenerator
}

// NewMediaService creates a new instance of mediaService.
func NewMediaService(
	media repository.MediaRepository,
	gateway MediaGateway,
	oracle connectivityOracle,
	logger *log.Logger,
) MediaService {
	if logger == nil {
		logger = defaultLogger("media")
	}
	return &mediaService{
		media:   media,
		gateway: gateway,
		oracle:  oracle,
		logger:  logger,
		clock:   defaultClock,
		newID:   defaultIDGenerator,
	}
}

func (s *mediaService) Enqueue(ctx context.Context, profileID, workoutID, filePath, contentType string) (*domain.MediaUpload, error) {
	const op = "media.enqueue"

	if profileID == "" {
		return nil, syncerr.New(syncerr.KindValidation, op).With("field", "profileId").With("reason", "blank")
	}
	if contentType == "" {
		return nil, syncerr.New(syncerr.KindValidation, op).With("field", "contentType").With("reason", "blank")
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindValidation, op, err).With("field", "filePath")
	}
	if info.IsDir() {
		return nil, syncerr.New(syncerr.KindValidation, op).With("field", "filePath").With("reason", "is a directory")
	}

	upload := &domain.MediaUpload{
		ID:             s.newID(),
		ProfileID:      profileID,
		WorkoutID:      workoutID,
		FilePath:       filePath,
		ContentType:    contentType,
		Status:         domain.MediaStatusPending,
		LocalCreatedAt: s.clock(),
	}
	if err := s.media.Upsert(ctx, upload); err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	if s.oracle.IsOnline() {
		if err := s.pushOne(ctx, upload); err != nil {
			s.logger.Printf("WARNING: immediate upload of %s failed, left queued: %v", upload.ID, err)
		} else if fresh, err := s.media.GetByID(ctx, upload.ID); err == nil {
			return fresh, nil
		}
	}
	return upload, nil
}

// PushPending drains the queue. Files that have exhausted their attempts are
// parked as failed instead of retried forever.
func (s *mediaService) PushPending(ctx context.Context, profileID string) (int, error) {
	const op = "media.push"

	if !s.oracle.IsOnline() {
		return 0, syncerr.New(syncerr.KindNetworkUnavailable, op).With("reason", "offline")
	}

	queue, err := s.media.ListPending(ctx, profileID)
	if err != nil {
		return 0, syncerr.Wrap(syncerr.KindStorage, op, err)
	}

	uploaded := 0
	for i := range queue {
		m := &queue[i]
		if m.Attempts >= maxUploadAttempts {
			s.park(ctx, m)
			continue
		}
		if err := s.pushOne(ctx, m); err != nil {
			s.logger.Printf("WARNING: upload of %s (%s) failed: %v", m.ID, filepath.Base(m.FilePath), err)
			if err := s.media.MarkFailed(ctx, m.ID); err != nil {
				s.logger.Printf("WARNING: recording failed attempt for %s: %v", m.ID, err)
			}
			continue
		}
		uploaded++
	}
	return uploaded, nil
}

// park takes a repeatedly failing row out of the pending queue for good.
func (s *mediaService) park(ctx context.Context, m *domain.MediaUpload) {
	m.Status = domain.MediaStatusFailed
	if err := s.media.Upsert(ctx, m); err != nil {
		s.logger.Printf("WARNING: parking exhausted upload %s: %v", m.ID, err)
		return
	}
	s.logger.Printf("upload %s gave up after %d attempts", m.ID, m.Attempts)
}

// pushOne presigns, streams the file, and marks the row uploaded.
func (s *mediaService) pushOne(ctx context.Context, m *domain.MediaUpload) error {
	presigned, err := s.gateway.PresignUpload(ctx, remote.PresignRequest{
		WorkoutID:   m.WorkoutID,
		FileName:    filepath.Base(m.FilePath),
		ContentType: m.ContentType,
	})
	if err != nil {
		return err
	}

	f, err := os.Open(m.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	if err := s.gateway.UploadFile(ctx, presigned.URL, m.ContentType, f, info.Size()); err != nil {
		return err
	}
	return s.media.MarkUploaded(ctx, m.ID, presigned.ObjectKey, s.clock())
}

func (s *mediaService) Get(ctx context.Context, id string) (*domain.MediaUpload, error) {
	m, err := s.media.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, syncerr.New(syncerr.KindNotFound, "media.get").With("id", id)
	}
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindStorage, "media.get", err)
	}
	return m, nil
}

func (s *mediaService) Delete(ctx context.Context, id string) error {
	if err := s.media.DeleteByID(ctx, id); err != nil {
		return syncerr.Wrap(syncerr.KindStorage, "media.delete", err)
	}
	return nil
}
