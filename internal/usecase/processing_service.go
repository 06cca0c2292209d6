package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/infrastructure/metrics"
	"github.com/hszk-dev/clipforge/internal/transcoder"
	"github.com/hszk-dev/clipforge/internal/worker"
)

// JobPool is the submission side of the worker pool.
type JobPool interface {
	Submit(job worker.Job) error
}

// ProcessingService accepts edit requests and runs them asynchronously.
type ProcessingService interface {
	// Request validates the edit, transitions the video to PROCESSING and
	// schedules the FFmpeg job. Returns before the job runs.
	Request(ctx context.Context, publicID, username string, opts model.EditOptions) error
}

// ProcessingServiceConfig holds configuration for ProcessingService.
type ProcessingServiceConfig struct {
	// FFmpegTimeout bounds a single FFmpeg run.
	FFmpegTimeout time.Duration
}

type processingService struct {
	repo      repository.VideoRepository
	status    StatusUpdater
	pool      JobPool
	tc        transcoder.Transcoder
	originals BlobStore
	processed BlobStore
	temp      BlobStore
	logger    *slog.Logger

	ffmpegTimeout time.Duration
}

// NewProcessingService creates a ProcessingService.
func NewProcessingService(
	repo repository.VideoRepository,
	status StatusUpdater,
	pool JobPool,
	tc transcoder.Transcoder,
	originals, processed, temp BlobStore,
	cfg ProcessingServiceConfig,
	logger *slog.Logger,
) ProcessingService {
	return &processingService{
		repo:          repo,
		status:        status,
		pool:          pool,
		tc:            tc,
		originals:     originals,
		processed:     processed,
		temp:          temp,
		logger:        logger,
		ffmpegTimeout: cfg.FFmpegTimeout,
	}
}

func (s *processingService) Request(ctx context.Context, publicID, username string, opts model.EditOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	video, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if !video.IsOwnedBy(username) {
		return ErrForbidden
	}

	if _, err := s.status.ToProcessing(ctx, video.ID); err != nil {
		return err
	}

	videoID := video.ID
	if err := s.pool.Submit(func(jobCtx context.Context) {
		s.process(jobCtx, videoID, opts)
	}); err != nil {
		// The row already says PROCESSING; put it back into a resolvable
		// state before reporting the scheduling failure.
		s.markFailed(ctx, videoID)
		return fmt.Errorf("schedule processing job: %w", err)
	}

	return nil
}

// process is the worker-side job. Every exit path removes both temp files;
// every failure path best-effort marks the video FAILED.
func (s *processingService) process(ctx context.Context, videoID int64, opts model.EditOptions) {
	started := time.Now()

	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		s.logger.Error("processing aborted, cannot reload video",
			slog.Int64("video_id", videoID),
			slog.String("error", err.Error()),
		)
		return
	}

	// Idempotency guard: someone else already moved the row on.
	if video.Status != model.StatusProcessing {
		s.logger.Info("processing skipped, video no longer in PROCESSING",
			slog.Int64("video_id", videoID),
			slog.String("status", video.Status.String()),
		)
		metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultSkipped).Inc()
		return
	}

	jobID := uuid.NewString()
	tempInKey := fmt.Sprintf("temp-in-%s-%s", jobID, video.StoragePath)
	tempOutKey := fmt.Sprintf("temp-out-%s.mp4", jobID)
	defer s.cleanupTemp(tempInKey, tempOutKey)

	if err := s.stageOriginal(video.StoragePath, tempInKey); err != nil {
		s.logger.Error("processing failed to stage original",
			slog.Int64("video_id", videoID),
			slog.String("error", err.Error()),
		)
		s.markFailed(ctx, videoID)
		metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultFailed).Inc()
		return
	}

	inputPath, err := s.temp.Path(tempInKey)
	if err == nil {
		var outputPath string
		outputPath, err = s.temp.Path(tempOutKey)
		if err == nil {
			err = s.runFFmpeg(ctx, inputPath, outputPath, opts)
		}
	}
	metrics.ProcessingDurationSeconds.Observe(time.Since(started).Seconds())

	if err != nil {
		s.logger.Error("ffmpeg processing failed",
			slog.Int64("video_id", videoID),
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		s.markFailed(ctx, videoID)
		metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultFailed).Inc()
		return
	}

	finalName := fmt.Sprintf("%d-processed-%s.mp4", videoID, jobID)
	var duration *float64
	outputPath, err := s.temp.Path(tempOutKey)
	if err == nil {
		// Best effort: a video without a known duration is still READY.
		if seconds, probeErr := s.tc.Probe(ctx, outputPath); probeErr != nil {
			s.logger.Warn("could not probe processed duration",
				slog.Int64("video_id", videoID),
				slog.String("error", probeErr.Error()),
			)
		} else {
			duration = &seconds
		}
		err = s.processed.Promote(outputPath, finalName)
	}
	if err != nil {
		s.logger.Error("failed to promote processed output",
			slog.Int64("video_id", videoID),
			slog.String("error", err.Error()),
		)
		s.markFailed(ctx, videoID)
		metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultFailed).Inc()
		return
	}

	if _, err := s.status.ToReady(ctx, videoID, ProcessedKeyPrefix+finalName, duration); err != nil {
		// The transaction rolled back (duplicate processed path or lost
		// race); the row keeps its previous state and no READY event was
		// emitted. Remove the orphaned output.
		s.logger.Error("READY transition rolled back",
			slog.Int64("video_id", videoID),
			slog.String("error", err.Error()),
		)
		s.discard(s.processed, finalName)
		metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultFailed).Inc()
		return
	}

	metrics.ProcessingJobsTotal.WithLabelValues(metrics.ProcessingResultReady).Inc()
	s.logger.Info("video processing completed",
		slog.Int64("video_id", videoID),
		slog.String("job_id", jobID),
		slog.Duration("duration", time.Since(started)),
	)
}

// stageOriginal copies the original blob into the temp store.
func (s *processingService) stageOriginal(storageKey, tempInKey string) error {
	original, err := s.originals.Open(storageKey)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	defer func() { _ = original.Close() }()

	if _, err := s.temp.Save(tempInKey, original); err != nil {
		return fmt.Errorf("copy original to temp: %w", err)
	}
	return nil
}

// runFFmpeg executes the edit under the configured hard timeout. Timeout
// cancellation kills the subprocess.
func (s *processingService) runFFmpeg(ctx context.Context, inputPath, outputPath string, opts model.EditOptions) error {
	runCtx, cancel := context.WithTimeout(ctx, s.ffmpegTimeout)
	defer cancel()
	return s.tc.Process(runCtx, inputPath, outputPath, opts)
}

// markFailed is best effort: processing already failed, a failure here only
// loses the FAILED marker, which the logs preserve.
func (s *processingService) markFailed(ctx context.Context, videoID int64) {
	// Survive cancelled job contexts so shutdown still records the failure.
	if err := s.status.ToFailed(context.WithoutCancel(ctx), videoID); err != nil {
		s.logger.Error("failed to mark video FAILED",
			slog.Int64("video_id", videoID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *processingService) cleanupTemp(keys ...string) {
	for _, key := range keys {
		s.discard(s.temp, key)
	}
}

func (s *processingService) discard(store BlobStore, key string) {
	if err := store.Delete(key); err != nil {
		s.logger.Warn("temp cleanup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
