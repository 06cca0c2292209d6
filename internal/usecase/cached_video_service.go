package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/infrastructure/cache"
)

// CachedVideoServiceConfig holds configuration for the caching decorator.
type CachedVideoServiceConfig struct {
	// TTL is the cache entry lifetime.
	TTL time.Duration
}

// cachedVideoService wraps a VideoService with a read-through cache on Get.
// Writes invalidate; list queries always hit the database.
type cachedVideoService struct {
	inner  VideoService
	cache  cache.VideoCache
	group  singleflight.Group
	ttl    time.Duration
	logger *slog.Logger
}

var _ VideoService = (*cachedVideoService)(nil)

// NewCachedVideoService decorates svc with Redis caching of single-video reads.
func NewCachedVideoService(svc VideoService, c cache.VideoCache, cfg CachedVideoServiceConfig, logger *slog.Logger) VideoService {
	return &cachedVideoService{
		inner:  svc,
		cache:  c,
		ttl:    cfg.TTL,
		logger: logger,
	}
}

func (s *cachedVideoService) Get(ctx context.Context, publicID, username string) (*model.Video, error) {
	cached, err := s.cache.Get(ctx, publicID)
	if err != nil {
		s.logger.Warn("cache lookup failed, falling back to database",
			slog.String("public_id", publicID),
			slog.String("error", err.Error()),
		)
	}
	if cached != nil {
		// Ownership is enforced on hits too; the cache key is per-video,
		// not per-user.
		if !cached.IsOwnedBy(username) {
			return nil, ErrForbidden
		}
		return cached, nil
	}

	// Singleflight keyed by video only: concurrent readers of the same video
	// share one database round trip, ownership is checked per caller.
	v, err, _ := s.group.Do(publicID, func() (any, error) {
		video, err := s.inner.Get(ctx, publicID, username)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, video, s.ttl); err != nil {
			s.logger.Warn("cache population failed",
				slog.String("public_id", publicID),
				slog.String("error", err.Error()),
			)
		}
		return video, nil
	})
	if err != nil {
		return nil, err
	}

	video := v.(*model.Video)
	if !video.IsOwnedBy(username) {
		return nil, ErrForbidden
	}
	return video, nil
}

func (s *cachedVideoService) UpdateDescription(ctx context.Context, publicID, username, description string) (*model.Video, error) {
	video, err := s.inner.UpdateDescription(ctx, publicID, username, description)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, publicID)
	return video, nil
}

func (s *cachedVideoService) Delete(ctx context.Context, publicID, username string) error {
	if err := s.inner.Delete(ctx, publicID, username); err != nil {
		return err
	}
	s.invalidate(ctx, publicID)
	return nil
}

func (s *cachedVideoService) Upload(ctx context.Context, input UploadInput) (*model.Video, error) {
	return s.inner.Upload(ctx, input)
}

func (s *cachedVideoService) List(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error) {
	return s.inner.List(ctx, username, page)
}

func (s *cachedVideoService) DownloadProcessed(ctx context.Context, publicID, username string) (*Download, error) {
	return s.inner.DownloadProcessed(ctx, publicID, username)
}

func (s *cachedVideoService) DownloadOriginal(ctx context.Context, publicID, username string) (*Download, error) {
	return s.inner.DownloadOriginal(ctx, publicID, username)
}

func (s *cachedVideoService) invalidate(ctx context.Context, publicID string) {
	if err := s.cache.Delete(ctx, publicID); err != nil {
		s.logger.Warn("cache invalidation failed",
			slog.String("public_id", publicID),
			slog.String("error", err.Error()),
		)
	}
}
