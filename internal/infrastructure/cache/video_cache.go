package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/infrastructure/metrics"
)

const (
	// videoCacheKeyPrefix is the prefix for video cache keys in Redis.
	videoCacheKeyPrefix = "video:"
)

// VideoCache caches video metadata keyed by public ID.
type VideoCache interface {
	// Get returns the cached video or (nil, nil) on a miss.
	Get(ctx context.Context, publicID string) (*model.Video, error)
	Set(ctx context.Context, video *model.Video, ttl time.Duration) error
	Delete(ctx context.Context, publicID string) error
}

// videoJSON is the JSON representation of a Video for caching.
// Using an explicit struct avoids coupling to the domain model's fields.
type videoJSON struct {
	ID                   int64    `json:"id"`
	PublicID             string   `json:"public_id"`
	OwnerID              int64    `json:"owner_id"`
	OwnerUsername        string   `json:"owner_username"`
	Description          string   `json:"description"`
	UploadDate           string   `json:"upload_date"`
	StoragePath          string   `json:"storage_path"`
	ProcessedStoragePath *string  `json:"processed_storage_path"`
	FileSize             int64    `json:"file_size"`
	MimeType             string   `json:"mime_type"`
	Duration             *float64 `json:"duration"`
	Status               string   `json:"status"`
	Version              int64    `json:"version"`
}

// RedisVideoCache implements VideoCache using Redis as the backing store.
type RedisVideoCache struct {
	client *redis.Client
}

// NewRedisVideoCache creates a new Redis-backed video cache.
func NewRedisVideoCache(client *redis.Client) *RedisVideoCache {
	return &RedisVideoCache{client: client}
}

// Get retrieves a video from Redis cache. Returns nil, nil on cache miss.
func (c *RedisVideoCache) Get(ctx context.Context, publicID string) (*model.Video, error) {
	data, err := c.client.Get(ctx, buildKey(publicID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss).Inc()
			return nil, nil
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	video, err := deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("deserialize video: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit).Inc()
	return video, nil
}

// Set stores a video in Redis cache with the specified TTL.
func (c *RedisVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	data, err := serialize(video)
	if err != nil {
		return fmt.Errorf("serialize video: %w", err)
	}

	if err := c.client.Set(ctx, buildKey(video.PublicID), data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess).Inc()
	return nil
}

// Delete removes a video from Redis cache.
func (c *RedisVideoCache) Delete(ctx context.Context, publicID string) error {
	if err := c.client.Del(ctx, buildKey(publicID)).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError).Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess).Inc()
	return nil
}

func buildKey(publicID string) string {
	return videoCacheKeyPrefix + publicID
}

func serialize(video *model.Video) ([]byte, error) {
	v := videoJSON{
		ID:                   video.ID,
		PublicID:             video.PublicID,
		OwnerID:              video.OwnerID,
		OwnerUsername:        video.OwnerUsername,
		Description:          video.Description,
		UploadDate:           video.UploadDate.Format(time.RFC3339Nano),
		StoragePath:          video.StoragePath,
		ProcessedStoragePath: video.ProcessedStoragePath,
		FileSize:             video.FileSize,
		MimeType:             video.MimeType,
		Duration:             video.Duration,
		Status:               string(video.Status),
		Version:              video.Version,
	}
	return json.Marshal(v)
}

func deserialize(data []byte) (*model.Video, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	uploadDate, err := time.Parse(time.RFC3339Nano, v.UploadDate)
	if err != nil {
		return nil, fmt.Errorf("parse upload date: %w", err)
	}

	return &model.Video{
		ID:                   v.ID,
		PublicID:             v.PublicID,
		OwnerID:              v.OwnerID,
		OwnerUsername:        v.OwnerUsername,
		Description:          v.Description,
		UploadDate:           uploadDate,
		StoragePath:          v.StoragePath,
		ProcessedStoragePath: v.ProcessedStoragePath,
		FileSize:             v.FileSize,
		MimeType:             v.MimeType,
		Duration:             v.Duration,
		Status:               model.Status(v.Status),
		Version:              v.Version,
	}, nil
}

// Compile-time verification that RedisVideoCache implements VideoCache.
var _ VideoCache = (*RedisVideoCache)(nil)
