package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/event"
)

var (
	// ErrIllegalTransition is returned when a status change violates the
	// state machine or lost a concurrent race. Maps to HTTP 409.
	ErrIllegalTransition = errors.New("illegal video status transition")
)

// failedMessage is the client-facing detail attached to FAILED events.
const failedMessage = "Video processing failed."

// EventPublisher publishes a committed status change. *event.Bus satisfies it.
type EventPublisher interface {
	Publish(ev event.VideoStatusChanged)
}

// StatusUpdater performs video status transitions. Each operation is a
// self-contained transaction; the matching event is published strictly
// after the commit, so a rollback emits nothing.
type StatusUpdater interface {
	// ToProcessing moves the video into PROCESSING and clears the processed
	// path. Re-entry from PROCESSING, READY and FAILED is allowed.
	ToProcessing(ctx context.Context, videoID int64) (*model.Video, error)

	// ToReady moves PROCESSING -> READY, records the processed path and the
	// probed media duration (nil when probing was not possible).
	ToReady(ctx context.Context, videoID int64, processedPath string, duration *float64) (*model.Video, error)

	// ToFailed moves PROCESSING -> FAILED. A video in any other state is
	// left untouched and no event is emitted.
	ToFailed(ctx context.Context, videoID int64) error
}

type statusUpdater struct {
	tx     repository.TxRunner
	events EventPublisher
	logger *slog.Logger
}

// NewStatusUpdater creates a StatusUpdater.
func NewStatusUpdater(tx repository.TxRunner, events EventPublisher, logger *slog.Logger) StatusUpdater {
	return &statusUpdater{tx: tx, events: events, logger: logger}
}

func (s *statusUpdater) ToProcessing(ctx context.Context, videoID int64) (*model.Video, error) {
	var updated *model.Video

	err := s.tx.WithinTx(ctx, func(repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, videoID)
		if err != nil {
			return err
		}
		if err := video.MarkProcessing(); err != nil {
			return fmt.Errorf("%w: %s", ErrIllegalTransition, err)
		}
		if err := repo.Update(ctx, video); err != nil {
			return err
		}
		updated = video
		return nil
	})
	if err != nil {
		return nil, s.observeRollback(videoID, model.StatusProcessing, err)
	}

	s.events.Publish(event.VideoStatusChanged{
		VideoID:  updated.ID,
		PublicID: updated.PublicID,
		Owner:    updated.OwnerUsername,
		Status:   model.StatusProcessing,
	})
	return updated, nil
}

func (s *statusUpdater) ToReady(ctx context.Context, videoID int64, processedPath string, duration *float64) (*model.Video, error) {
	var updated *model.Video

	err := s.tx.WithinTx(ctx, func(repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, videoID)
		if err != nil {
			return err
		}
		if err := video.MarkReady(processedPath); err != nil {
			return fmt.Errorf("%w: %s", ErrIllegalTransition, err)
		}
		if duration != nil {
			video.SetDuration(*duration)
		}
		if err := repo.Update(ctx, video); err != nil {
			return err
		}
		updated = video
		return nil
	})
	if err != nil {
		return nil, s.observeRollback(videoID, model.StatusReady, err)
	}

	s.events.Publish(event.VideoStatusChanged{
		VideoID:  updated.ID,
		PublicID: updated.PublicID,
		Owner:    updated.OwnerUsername,
		Status:   model.StatusReady,
	})
	return updated, nil
}

func (s *statusUpdater) ToFailed(ctx context.Context, videoID int64) error {
	var (
		updated *model.Video
		noop    bool
	)

	err := s.tx.WithinTx(ctx, func(repo repository.VideoRepository) error {
		video, err := repo.FindByID(ctx, videoID)
		if err != nil {
			return err
		}
		if video.Status != model.StatusProcessing {
			// Silent no-op: the row never changes and no event fires.
			noop = true
			return nil
		}
		if err := video.MarkFailed(); err != nil {
			return fmt.Errorf("%w: %s", ErrIllegalTransition, err)
		}
		if err := repo.Update(ctx, video); err != nil {
			return err
		}
		updated = video
		return nil
	})
	if err != nil {
		return s.observeRollback(videoID, model.StatusFailed, err)
	}
	if noop {
		return nil
	}

	s.events.Publish(event.VideoStatusChanged{
		VideoID:  updated.ID,
		PublicID: updated.PublicID,
		Owner:    updated.OwnerUsername,
		Status:   model.StatusFailed,
		Message:  failedMessage,
	})
	return nil
}

// observeRollback logs the aborted transition and normalizes concurrency
// conflicts to ErrIllegalTransition so handlers can answer 409.
func (s *statusUpdater) observeRollback(videoID int64, target model.Status, err error) error {
	s.logger.Warn("status transition rolled back",
		slog.Int64("video_id", videoID),
		slog.String("target_status", target.String()),
		slog.String("error", err.Error()),
	)
	if errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("%w: %s", ErrIllegalTransition, err)
	}
	return err
}
