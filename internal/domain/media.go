package domain

import "time"

// MediaStatus tracks the upload lifecycle of a queued media file.
type MediaStatus string

const (
	MediaStatusPending  MediaStatus = "pending"
	MediaStatusUploaded MediaStatus = "uploaded"
	MediaStatusFailed   MediaStatus = "failed"
)

// MediaUpload is a locally queued media file (form-check video, progress
// photo) attached to a workout. Files wait in the queue until the sync engine
// can obtain a presigned URL and push them to object storage.
type MediaUpload struct {
	ID          string      `json:"id"`
	ProfileID   string      `json:"profileId"`
	WorkoutID   string      `json:"workoutId"`
	FilePath    string      `json:"filePath"`    // Absolute path of the local file
	ContentType string      `json:"contentType"` // e.g. "video/mp4"
	ObjectKey   string      `json:"objectKey"`   // Remote object key once assigned
	Status      MediaStatus `json:"status"`
	Attempts    int         `json:"attempts"` // Failed push attempts so far

	LocalCreatedAt time.Time  `json:"localCreatedAt"`
	UploadedAt     *time.Time `json:"uploadedAt,omitempty"`
}
