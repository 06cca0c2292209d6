package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/clipforge/internal/api/middleware"
	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/usecase"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// multipartMemoryLimit caps what multipart parsing buffers in memory;
	// the rest spills to disk.
	multipartMemoryLimit = 10 << 20
)

// Request/Response types

type UpdateVideoRequest struct {
	Description string `json:"description"`
}

type VideoResponse struct {
	PublicID    string   `json:"publicId"`
	Description string   `json:"description"`
	FileSize    int64    `json:"fileSize"`
	Status      string   `json:"status"`
	UploadDate  string   `json:"uploadDate"`
	Duration    *float64 `json:"duration,omitempty"`
}

type VideoPageResponse struct {
	Videos     []VideoResponse `json:"videos"`
	TotalCount int64           `json:"totalCount"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
}

// VideoHandler handles video-related HTTP requests.
type VideoHandler struct {
	videos     usecase.VideoService
	processing usecase.ProcessingService

	maxUploadBytes int64
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(videos usecase.VideoService, processing usecase.ProcessingService, maxUploadBytes int64) *VideoHandler {
	return &VideoHandler{
		videos:         videos,
		processing:     processing,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload handles POST /api/videos (multipart: "file" + "description").
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Hard cap on the whole request; a small margin covers multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, r, http.StatusRequestEntityTooLarge, "Uploaded file exceeds the size limit.")
			return
		}
		Error(w, r, http.StatusBadRequest, "Request is not valid multipart form data.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, r, http.StatusBadRequest, "Missing file part.")
		return
	}
	defer func() { _ = file.Close() }()

	video, err := h.videos.Upload(r.Context(), usecase.UploadInput{
		OwnerUsername: middleware.GetPrincipal(r.Context()),
		Filename:      header.Filename,
		Size:          header.Size,
		ContentType:   header.Header.Get("Content-Type"),
		Description:   r.FormValue("description"),
		Content:       file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, toVideoResponse(video))
}

// List handles GET /api/videos?page=0&size=10
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.videos.List(r.Context(), middleware.GetPrincipal(r.Context()), page)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	videos := make([]VideoResponse, 0, len(result.Videos))
	for _, v := range result.Videos {
		videos = append(videos, toVideoResponse(v))
	}
	JSON(w, http.StatusOK, VideoPageResponse{
		Videos:     videos,
		TotalCount: result.TotalCount,
		Page:       result.Page.Number,
		Size:       result.Page.Size,
	})
}

// Get handles GET /api/videos/{publicId}
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, err := h.videos.Get(r.Context(), chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Update handles PUT /api/videos/{publicId}
func (h *VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	video, err := h.videos.UpdateDescription(r.Context(),
		chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()), req.Description)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, toVideoResponse(video))
}

// Delete handles DELETE /api/videos/{publicId}
func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.videos.Delete(r.Context(), chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Process handles POST /api/videos/{publicId}/process
func (h *VideoHandler) Process(w http.ResponseWriter, r *http.Request) {
	var opts model.EditOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	err := h.processing.Request(r.Context(),
		chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()), opts)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// DownloadProcessed handles GET /api/videos/{publicId}/download
func (h *VideoHandler) DownloadProcessed(w http.ResponseWriter, r *http.Request) {
	download, err := h.videos.DownloadProcessed(r.Context(),
		chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.stream(w, r, download)
}

// DownloadOriginal handles GET /api/videos/{publicId}/download/original
func (h *VideoHandler) DownloadOriginal(w http.ResponseWriter, r *http.Request) {
	download, err := h.videos.DownloadOriginal(r.Context(),
		chi.URLParam(r, "publicId"), middleware.GetPrincipal(r.Context()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.stream(w, r, download)
}

func (h *VideoHandler) stream(w http.ResponseWriter, r *http.Request, download *usecase.Download) {
	defer func() { _ = download.Content.Close() }()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(download.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	// Copy failures mid-stream cannot change the response anymore.
	_, _ = io.Copy(w, download.Content)
}

func (h *VideoHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, r, http.StatusNotFound, "Video not found.")
	case errors.Is(err, usecase.ErrForbidden):
		Error(w, r, http.StatusForbidden, "You do not own this video.")
	case errors.Is(err, usecase.ErrIllegalTransition):
		Error(w, r, http.StatusConflict, "Video cannot be processed in its current state.")
	case errors.Is(err, usecase.ErrNoProcessedFile):
		Error(w, r, http.StatusNotFound, "Video has no processed file yet.")
	case errors.Is(err, usecase.ErrUploadTooLarge):
		Error(w, r, http.StatusRequestEntityTooLarge, "Uploaded file exceeds the size limit.")
	case errors.Is(err, usecase.ErrUploadEmpty),
		errors.Is(err, usecase.ErrUploadBadFilename),
		errors.Is(err, usecase.ErrUploadBadExtension),
		errors.Is(err, usecase.ErrUploadBadContentType),
		errors.Is(err, usecase.ErrUploadBadMagic),
		errors.Is(err, model.ErrEmptyDescription),
		errors.Is(err, model.ErrDescriptionTooLong),
		errors.Is(err, model.ErrDescriptionCharset),
		errors.Is(err, model.ErrResolutionTooSmall):
		Error(w, r, http.StatusBadRequest, err.Error())
	default:
		Error(w, r, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}

func parsePage(r *http.Request) (repository.Page, error) {
	page := repository.Page{Number: 0, Size: defaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, errors.New("page must be a non-negative integer")
		}
		page.Number = n
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return page, fmt.Errorf("size must be between 1 and %d", maxPageSize)
		}
		page.Size = n
	}
	return page, nil
}

func toVideoResponse(v *model.Video) VideoResponse {
	return VideoResponse{
		PublicID:    v.PublicID,
		Description: v.Description,
		FileSize:    v.FileSize,
		Status:      v.Status.String(),
		UploadDate:  v.UploadDate.Format(time.RFC3339),
		Duration:    v.Duration,
	}
}
