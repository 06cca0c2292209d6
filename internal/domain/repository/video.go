package repository

import (
	"context"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

// Page describes a pagination window.
type Page struct {
	Number int // 0-based
	Size   int
}

// Offset returns the row offset for the window.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// VideoPage is one page of a user's videos plus the total count.
type VideoPage struct {
	Videos     []*model.Video
	TotalCount int64
	Page       Page
}

// VideoRepository defines persistence operations for videos.
// Implementations must resolve the owner username in the same round trip as
// the video row (no follow-up query per result).
type VideoRepository interface {
	// Create persists a new video and fills in its generated ID.
	Create(ctx context.Context, video *model.Video) error

	// FindByID retrieves a video (with owner username) by internal ID.
	// Returns ErrVideoNotFound if absent.
	FindByID(ctx context.Context, id int64) (*model.Video, error)

	// FindByPublicID retrieves a video (with owner username) by public ID.
	// Returns ErrVideoNotFound if absent.
	FindByPublicID(ctx context.Context, publicID string) (*model.Video, error)

	// FindByOwner returns one page of the user's videos ordered by upload
	// date descending.
	FindByOwner(ctx context.Context, username string, page Page) (*VideoPage, error)

	// Update persists changes guarded by the optimistic version check: the
	// row must still hold video.Version, and the persisted version becomes
	// video.Version+1 (reflected on the passed entity). Returns
	// ErrVersionConflict on a stale version and ErrDuplicateStoragePath when
	// a unique path constraint is violated.
	Update(ctx context.Context, video *model.Video) error

	// Delete removes the video row. Returns ErrVideoNotFound if absent.
	Delete(ctx context.Context, id int64) error
}

// TxRunner executes a function against a transaction-scoped repository.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(repo VideoRepository) error) error
}
