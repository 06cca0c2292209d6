package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository implements repository.VideoRepository using PostgreSQL.
// Every read joins the owning user so the owner username is resolved in the
// same round trip.
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `
	v.id, v.public_id, v.owner_id, u.username, v.description, v.upload_date,
	v.storage_path, v.processed_storage_path, v.file_size, v.mime_type,
	v.duration, v.status, v.version
`

// Create persists a new video entity and fills in the generated ID.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	const query = `
		INSERT INTO videos (
			public_id, owner_id, description, upload_date, storage_path,
			processed_storage_path, file_size, mime_type, duration, status, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		video.PublicID,
		video.OwnerID,
		video.Description,
		video.UploadDate,
		video.StoragePath,
		video.ProcessedStoragePath,
		video.FileSize,
		video.MimeType,
		video.Duration,
		video.Status.String(),
		video.Version,
	).Scan(&video.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateStoragePath
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// FindByID retrieves a video by its internal identifier.
func (r *VideoRepository) FindByID(ctx context.Context, id int64) (*model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE v.id = $1
	`

	video, err := scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to find video by ID: %w", err)
	}

	return video, nil
}

// FindByPublicID retrieves a video by its public identifier.
func (r *VideoRepository) FindByPublicID(ctx context.Context, publicID string) (*model.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE v.public_id = $1
	`

	video, err := scanVideo(r.db.QueryRow(ctx, query, publicID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to find video by public ID: %w", err)
	}

	return video, nil
}

// FindByOwner returns one page of the user's videos, newest upload first.
func (r *VideoRepository) FindByOwner(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error) {
	query := `
		SELECT ` + videoColumns + `, COUNT(*) OVER() AS total_count
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE u.username = $1
		ORDER BY v.upload_date DESC, v.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, username, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to query videos by owner: %w", err)
	}
	defer rows.Close()

	result := &repository.VideoPage{Page: page}
	for rows.Next() {
		video, total, err := scanVideoWithCount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		result.TotalCount = total
		result.Videos = append(result.Videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}

	return result, nil
}

// Update persists changes to an existing video under the optimistic version
// guard. On success the entity's Version reflects the persisted value.
func (r *VideoRepository) Update(ctx context.Context, video *model.Video) error {
	const query = `
		UPDATE videos
		SET description = $3, processed_storage_path = $4, duration = $5,
		    status = $6, version = version + 1
		WHERE id = $1 AND version = $2
	`

	tag, err := r.db.Exec(ctx, query,
		video.ID,
		video.Version,
		video.Description,
		video.ProcessedStoragePath,
		video.Duration,
		video.Status.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateStoragePath
		}
		return fmt.Errorf("failed to update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone advanced the version first.
		if _, err := r.FindByID(ctx, video.ID); err != nil {
			return err
		}
		return repository.ErrVersionConflict
	}

	video.Version++
	return nil
}

// Delete removes the video row.
func (r *VideoRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM videos WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video  model.Video
		status string
	)

	err := row.Scan(
		&video.ID,
		&video.PublicID,
		&video.OwnerID,
		&video.OwnerUsername,
		&video.Description,
		&video.UploadDate,
		&video.StoragePath,
		&video.ProcessedStoragePath,
		&video.FileSize,
		&video.MimeType,
		&video.Duration,
		&status,
		&video.Version,
	)
	if err != nil {
		return nil, err
	}

	video.Status = model.Status(status)
	return &video, nil
}

func scanVideoWithCount(rows pgx.Rows) (*model.Video, int64, error) {
	var (
		video  model.Video
		status string
		total  int64
	)

	err := rows.Scan(
		&video.ID,
		&video.PublicID,
		&video.OwnerID,
		&video.OwnerUsername,
		&video.Description,
		&video.UploadDate,
		&video.StoragePath,
		&video.ProcessedStoragePath,
		&video.FileSize,
		&video.MimeType,
		&video.Duration,
		&status,
		&video.Version,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}

	video.Status = model.Status(status)
	return &video, total, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)
