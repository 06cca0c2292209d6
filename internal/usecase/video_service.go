package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/infrastructure/metrics"
)

var (
	// ErrForbidden is returned when a user touches a video they do not own.
	ErrForbidden = errors.New("not the owner of this video")

	// Upload validation errors. All map to HTTP 400.
	ErrUploadEmpty          = errors.New("uploaded file is empty")
	ErrUploadTooLarge       = errors.New("uploaded file exceeds the size limit")
	ErrUploadBadFilename    = errors.New("original filename contains forbidden characters")
	ErrUploadBadExtension   = errors.New("only .mp4 files are accepted")
	ErrUploadBadContentType = errors.New("content type must be video/mp4")
	ErrUploadBadMagic       = errors.New("file does not look like an MP4 container")

	// ErrNoProcessedFile is returned when downloading a processed rendition
	// of a video that is not READY.
	ErrNoProcessedFile = errors.New("video has no processed file")
)

// ProcessedKeyPrefix marks storage keys living in the processed root.
const ProcessedKeyPrefix = "processed/"

const uploadMimeType = "video/mp4"

// BlobStore is the storage contract the video services need.
// *blob.Store satisfies it.
type BlobStore interface {
	Save(key string, r io.Reader) (string, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
	Size(key string) (int64, error)
	Promote(srcPath, key string) error
	Path(key string) (string, error)
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	OwnerUsername string
	Filename      string
	Size          int64
	ContentType   string
	Description   string
	Content       io.Reader
}

// Download is a streamable video file.
type Download struct {
	Content     io.ReadCloser
	Filename    string
	Size        int64
	ContentType string
}

// VideoService defines the video CRUD and download operations.
type VideoService interface {
	// Upload validates the file, stores the bytes and creates the metadata
	// row in UPLOADED state.
	Upload(ctx context.Context, input UploadInput) (*model.Video, error)

	// List returns one page of the user's own videos.
	List(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error)

	// Get returns the video if the user owns it.
	Get(ctx context.Context, publicID, username string) (*model.Video, error)

	// UpdateDescription replaces the description if the user owns the video.
	UpdateDescription(ctx context.Context, publicID, username, description string) (*model.Video, error)

	// Delete removes the metadata row first, then best-effort deletes both
	// stored files.
	Delete(ctx context.Context, publicID, username string) error

	// DownloadProcessed streams the transcoded rendition (READY only).
	DownloadProcessed(ctx context.Context, publicID, username string) (*Download, error)

	// DownloadOriginal streams the uploaded bytes.
	DownloadOriginal(ctx context.Context, publicID, username string) (*Download, error)
}

// VideoServiceConfig holds configuration for VideoService.
type VideoServiceConfig struct {
	// MaxUploadBytes is the upload size limit.
	MaxUploadBytes int64
}

type videoService struct {
	repo      repository.VideoRepository
	users     repository.UserRepository
	originals BlobStore
	processed BlobStore
	logger    *slog.Logger

	maxUploadBytes int64
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(
	repo repository.VideoRepository,
	users repository.UserRepository,
	originals BlobStore,
	processed BlobStore,
	cfg VideoServiceConfig,
	logger *slog.Logger,
) VideoService {
	return &videoService{
		repo:           repo,
		users:          users,
		originals:      originals,
		processed:      processed,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

func (s *videoService) Upload(ctx context.Context, input UploadInput) (*model.Video, error) {
	if err := s.validateUpload(input); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
		return nil, err
	}

	owner, err := s.users.FindByUsername(ctx, input.OwnerUsername)
	if err != nil {
		return nil, fmt.Errorf("resolve owner: %w", err)
	}

	content, err := checkMagicBytes(input.Content)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
		return nil, err
	}

	// Filename generation happens here, never in the store: the blob layer
	// must not see user-controlled names.
	storageKey := uuid.NewString() + ".mp4"

	if _, err := s.originals.Save(storageKey, content); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
		return nil, fmt.Errorf("store upload: %w", err)
	}

	video, err := model.NewVideo(owner.ID, owner.Username, input.Description, storageKey, uploadMimeType, input.Size)
	if err != nil {
		s.discardBlob(s.originals, storageKey)
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
		return nil, err
	}

	if err := s.repo.Create(ctx, video); err != nil {
		s.discardBlob(s.originals, storageKey)
		metrics.UploadsTotal.WithLabelValues(metrics.UploadRejected).Inc()
		return nil, fmt.Errorf("create video: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues(metrics.UploadAccepted).Inc()
	return video, nil
}

func (s *videoService) List(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error) {
	return s.repo.FindByOwner(ctx, username, page)
}

func (s *videoService) Get(ctx context.Context, publicID, username string) (*model.Video, error) {
	return s.ownedVideo(ctx, publicID, username)
}

func (s *videoService) UpdateDescription(ctx context.Context, publicID, username, description string) (*model.Video, error) {
	if err := model.ValidateDescription(description); err != nil {
		return nil, err
	}

	video, err := s.ownedVideo(ctx, publicID, username)
	if err != nil {
		return nil, err
	}

	video.Description = description
	if err := s.repo.Update(ctx, video); err != nil {
		return nil, fmt.Errorf("update video: %w", err)
	}

	return video, nil
}

func (s *videoService) Delete(ctx context.Context, publicID, username string) error {
	video, err := s.ownedVideo(ctx, publicID, username)
	if err != nil {
		return err
	}

	// Row first: once it is gone the files are unreachable, so file cleanup
	// failures only leak disk space, never dangling metadata.
	if err := s.repo.Delete(ctx, video.ID); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	s.discardBlob(s.originals, video.StoragePath)
	if video.ProcessedStoragePath != nil {
		s.discardBlob(s.processed, StripProcessedPrefix(*video.ProcessedStoragePath))
	}

	return nil
}

func (s *videoService) DownloadProcessed(ctx context.Context, publicID, username string) (*Download, error) {
	video, err := s.ownedVideo(ctx, publicID, username)
	if err != nil {
		return nil, err
	}

	if video.Status != model.StatusReady || video.ProcessedStoragePath == nil {
		return nil, ErrNoProcessedFile
	}

	key := StripProcessedPrefix(*video.ProcessedStoragePath)
	return s.openDownload(s.processed, key)
}

func (s *videoService) DownloadOriginal(ctx context.Context, publicID, username string) (*Download, error) {
	video, err := s.ownedVideo(ctx, publicID, username)
	if err != nil {
		return nil, err
	}

	return s.openDownload(s.originals, video.StoragePath)
}

// ownedVideo loads by public ID and enforces ownership. The row is found
// before the ownership check so a 403 never leaks whether the ID exists to
// the legitimate owner's tooling, and a 404 stays a 404.
func (s *videoService) ownedVideo(ctx context.Context, publicID, username string) (*model.Video, error) {
	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !video.IsOwnedBy(username) {
		return nil, ErrForbidden
	}
	return video, nil
}

func (s *videoService) openDownload(store BlobStore, key string) (*Download, error) {
	size, err := store.Size(key)
	if err != nil {
		return nil, err
	}
	content, err := store.Open(key)
	if err != nil {
		return nil, err
	}
	return &Download{
		Content:     content,
		Filename:    key,
		Size:        size,
		ContentType: uploadMimeType,
	}, nil
}

func (s *videoService) validateUpload(input UploadInput) error {
	if input.Size <= 0 {
		return ErrUploadEmpty
	}
	if input.Size > s.maxUploadBytes {
		return ErrUploadTooLarge
	}
	if err := model.ValidateDescription(input.Description); err != nil {
		return err
	}
	if err := validateOriginalFilename(input.Filename); err != nil {
		return err
	}
	if !strings.EqualFold(input.ContentType, uploadMimeType) {
		return ErrUploadBadContentType
	}
	return nil
}

func (s *videoService) discardBlob(store BlobStore, key string) {
	if err := store.Delete(key); err != nil {
		s.logger.Warn("failed to delete stored file",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// validateOriginalFilename sanitizes the client-supplied name: no control
// characters, no parent references, no path separators, .mp4 extension.
func validateOriginalFilename(name string) error {
	if name == "" {
		return ErrUploadBadFilename
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return ErrUploadBadFilename
		}
	}
	if strings.Contains(name, "..") ||
		strings.Contains(name, "/") ||
		strings.Contains(name, `\`) {
		return ErrUploadBadFilename
	}
	if !strings.HasSuffix(strings.ToLower(name), ".mp4") {
		return ErrUploadBadExtension
	}
	return nil
}

// checkMagicBytes verifies bytes 4..7 spell "ftyp" (the MP4 box header) and
// returns a reader that replays the inspected prefix.
func checkMagicBytes(r io.Reader) (io.Reader, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	head = head[:n]

	if len(head) < 8 || !bytes.Equal(head[4:8], []byte("ftyp")) {
		return nil, ErrUploadBadMagic
	}

	return io.MultiReader(bytes.NewReader(head), r), nil
}

// StripProcessedPrefix turns a stored processed path into the blob key
// inside the processed root.
func StripProcessedPrefix(path string) string {
	return strings.TrimPrefix(path, ProcessedKeyPrefix)
}
