package model

import (
	"errors"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Status represents the processing state of a video.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

// CanStartProcessing reports whether a video in this state may enter
// PROCESSING. Re-entry from PROCESSING itself is allowed (re-edit), as is
// re-processing a READY or FAILED video.
func (s Status) CanStartProcessing() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

var (
	ErrEmptyDescription      = errors.New("description cannot be empty")
	ErrDescriptionTooLong    = errors.New("description exceeds maximum length of 255 characters")
	ErrDescriptionCharset    = errors.New("description contains control characters")
	ErrEmptyStoragePath      = errors.New("storage path cannot be empty")
	ErrInvalidFileSize       = errors.New("file size must be positive")
	ErrInvalidOwner          = errors.New("owner is required")
	ErrNotProcessing         = errors.New("video is not in PROCESSING state")
	ErrEmptyProcessedPath    = errors.New("processed path cannot be empty")
	ErrProcessingNotAllowed  = errors.New("video cannot enter PROCESSING from its current state")
)

const maxDescriptionLength = 255

// Video is the central domain entity. PublicID and StoragePath are assigned
// at creation and never change; ProcessedStoragePath is non-nil exactly when
// Status is READY. Version increments on every persisted update and guards
// against lost updates.
type Video struct {
	ID                   int64
	PublicID             string
	OwnerID              int64
	OwnerUsername        string
	Description          string
	UploadDate           time.Time
	StoragePath          string
	ProcessedStoragePath *string
	FileSize             int64
	MimeType             string
	Duration             *float64
	Status               Status
	Version              int64
}

// NewVideo creates a freshly uploaded video in UPLOADED state with a newly
// assigned public ID.
func NewVideo(ownerID int64, ownerUsername, description, storagePath, mimeType string, fileSize int64) (*Video, error) {
	if ownerID <= 0 || ownerUsername == "" {
		return nil, ErrInvalidOwner
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	if storagePath == "" {
		return nil, ErrEmptyStoragePath
	}
	if fileSize <= 0 {
		return nil, ErrInvalidFileSize
	}

	return &Video{
		PublicID:      uuid.NewString(),
		OwnerID:       ownerID,
		OwnerUsername: ownerUsername,
		Description:   description,
		UploadDate:    time.Now(),
		StoragePath:   storagePath,
		FileSize:      fileSize,
		MimeType:      mimeType,
		Status:        StatusUploaded,
		Version:       0,
	}, nil
}

// ValidateDescription enforces the description contract: non-empty, at most
// 255 characters, printable runes only.
func ValidateDescription(description string) error {
	if description == "" {
		return ErrEmptyDescription
	}
	if len(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	for _, r := range description {
		if unicode.IsControl(r) {
			return ErrDescriptionCharset
		}
	}
	return nil
}

// MarkProcessing transitions the video into PROCESSING and clears the
// processed path, which only exists in READY.
func (v *Video) MarkProcessing() error {
	if !v.Status.CanStartProcessing() {
		return ErrProcessingNotAllowed
	}
	v.Status = StatusProcessing
	v.ProcessedStoragePath = nil
	return nil
}

// MarkReady transitions PROCESSING -> READY and records the processed path.
func (v *Video) MarkReady(processedPath string) error {
	if v.Status != StatusProcessing {
		return ErrNotProcessing
	}
	if processedPath == "" {
		return ErrEmptyProcessedPath
	}
	v.Status = StatusReady
	v.ProcessedStoragePath = &processedPath
	return nil
}

// MarkFailed transitions PROCESSING -> FAILED.
func (v *Video) MarkFailed() error {
	if v.Status != StatusProcessing {
		return ErrNotProcessing
	}
	v.Status = StatusFailed
	v.ProcessedStoragePath = nil
	return nil
}

// SetDuration records the media duration discovered after processing.
func (v *Video) SetDuration(seconds float64) {
	v.Duration = &seconds
}

// IsOwnedBy reports whether the given user owns this video.
func (v *Video) IsOwnedBy(username string) bool {
	return v.OwnerUsername == username
}
