package usecase

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/event"
	"github.com/hszk-dev/clipforge/internal/worker"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	createFn         func(ctx context.Context, video *model.Video) error
	findByIDFn       func(ctx context.Context, id int64) (*model.Video, error)
	findByPublicIDFn func(ctx context.Context, publicID string) (*model.Video, error)
	findByOwnerFn    func(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error)
	updateFn         func(ctx context.Context, video *model.Video) error
	deleteFn         func(ctx context.Context, id int64) error
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) FindByID(ctx context.Context, id int64) (*model.Video, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) FindByPublicID(ctx context.Context, publicID string) (*model.Video, error) {
	if m.findByPublicIDFn != nil {
		return m.findByPublicIDFn(ctx, publicID)
	}
	return nil, repository.ErrVideoNotFound
}

func (m *mockVideoRepository) FindByOwner(ctx context.Context, username string, page repository.Page) (*repository.VideoPage, error) {
	if m.findByOwnerFn != nil {
		return m.findByOwnerFn(ctx, username, page)
	}
	return &repository.VideoPage{Page: page}, nil
}

func (m *mockVideoRepository) Update(ctx context.Context, video *model.Video) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockTxRunner hands the given repository to the transaction body. The
// "transaction" is the body itself; an error return stands in for rollback.
type mockTxRunner struct {
	repo    repository.VideoRepository
	beginFn func() error
}

func (m *mockTxRunner) WithinTx(ctx context.Context, fn func(repo repository.VideoRepository) error) error {
	if m.beginFn != nil {
		if err := m.beginFn(); err != nil {
			return err
		}
	}
	return fn(m.repo)
}

// mockUserRepository provides a configurable mock for UserRepository.
type mockUserRepository struct {
	createFn         func(ctx context.Context, user *model.User) error
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	markVerifiedFn   func(ctx context.Context, id int64) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) MarkVerified(ctx context.Context, id int64) error {
	if m.markVerifiedFn != nil {
		return m.markVerifiedFn(ctx, id)
	}
	return nil
}

// mockBlobStore provides a configurable mock for BlobStore.
type mockBlobStore struct {
	saveFn    func(key string, r io.Reader) (string, error)
	openFn    func(key string) (io.ReadCloser, error)
	deleteFn  func(key string) error
	sizeFn    func(key string) (int64, error)
	promoteFn func(srcPath, key string) error
	pathFn    func(key string) (string, error)
}

func (m *mockBlobStore) Save(key string, r io.Reader) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(key, r)
	}
	_, _ = io.Copy(io.Discard, r)
	return key, nil
}

func (m *mockBlobStore) Open(key string) (io.ReadCloser, error) {
	if m.openFn != nil {
		return m.openFn(key)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (m *mockBlobStore) Delete(key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(key)
	}
	return nil
}

func (m *mockBlobStore) Size(key string) (int64, error) {
	if m.sizeFn != nil {
		return m.sizeFn(key)
	}
	return 0, nil
}

func (m *mockBlobStore) Promote(srcPath, key string) error {
	if m.promoteFn != nil {
		return m.promoteFn(srcPath, key)
	}
	return nil
}

func (m *mockBlobStore) Path(key string) (string, error) {
	if m.pathFn != nil {
		return m.pathFn(key)
	}
	return "/tmp/" + key, nil
}

// mockEventPublisher records published events.
type mockEventPublisher struct {
	events []event.VideoStatusChanged
}

func (m *mockEventPublisher) Publish(ev event.VideoStatusChanged) {
	m.events = append(m.events, ev)
}

// mockStatusUpdater provides a configurable mock for StatusUpdater.
type mockStatusUpdater struct {
	toProcessingFn func(ctx context.Context, videoID int64) (*model.Video, error)
	toReadyFn      func(ctx context.Context, videoID int64, processedPath string, duration *float64) (*model.Video, error)
	toFailedFn     func(ctx context.Context, videoID int64) error
}

func (m *mockStatusUpdater) ToProcessing(ctx context.Context, videoID int64) (*model.Video, error) {
	if m.toProcessingFn != nil {
		return m.toProcessingFn(ctx, videoID)
	}
	return &model.Video{ID: videoID, Status: model.StatusProcessing}, nil
}

func (m *mockStatusUpdater) ToReady(ctx context.Context, videoID int64, processedPath string, duration *float64) (*model.Video, error) {
	if m.toReadyFn != nil {
		return m.toReadyFn(ctx, videoID, processedPath, duration)
	}
	return &model.Video{ID: videoID, Status: model.StatusReady, ProcessedStoragePath: &processedPath, Duration: duration}, nil
}

func (m *mockStatusUpdater) ToFailed(ctx context.Context, videoID int64) error {
	if m.toFailedFn != nil {
		return m.toFailedFn(ctx, videoID)
	}
	return nil
}

// mockTranscoder provides a configurable mock for Transcoder.
type mockTranscoder struct {
	processFn func(ctx context.Context, inputPath, outputPath string, opts model.EditOptions) error
	probeFn   func(ctx context.Context, path string) (float64, error)
}

func (m *mockTranscoder) Process(ctx context.Context, inputPath, outputPath string, opts model.EditOptions) error {
	if m.processFn != nil {
		return m.processFn(ctx, inputPath, outputPath, opts)
	}
	return nil
}

func (m *mockTranscoder) Probe(ctx context.Context, path string) (float64, error) {
	if m.probeFn != nil {
		return m.probeFn(ctx, path)
	}
	return 31.5, nil
}

// syncPool runs submitted jobs inline, which keeps processing tests
// deterministic.
type syncPool struct {
	submitFn func(job worker.Job) error
}

func (p *syncPool) Submit(job worker.Job) error {
	if p.submitFn != nil {
		return p.submitFn(job)
	}
	job(context.Background())
	return nil
}

// mockVideoCache provides a configurable mock for cache.VideoCache.
type mockVideoCache struct {
	getFn    func(ctx context.Context, publicID string) (*model.Video, error)
	setFn    func(ctx context.Context, video *model.Video, ttl time.Duration) error
	deleteFn func(ctx context.Context, publicID string) error
}

func (m *mockVideoCache) Get(ctx context.Context, publicID string) (*model.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, publicID)
	}
	return nil, nil
}

func (m *mockVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, video, ttl)
	}
	return nil
}

func (m *mockVideoCache) Delete(ctx context.Context, publicID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, publicID)
	}
	return nil
}

// mockTokenStore provides a configurable mock for VerificationTokenStore.
type mockTokenStore struct {
	putFn     func(ctx context.Context, token string, userID int64, ttl time.Duration) error
	consumeFn func(ctx context.Context, token string) (int64, error)
}

func (m *mockTokenStore) Put(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if m.putFn != nil {
		return m.putFn(ctx, token, userID, ttl)
	}
	return nil
}

func (m *mockTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, token)
	}
	return 0, nil
}

// mockMailer records sent verification links.
type mockMailer struct {
	sendFn func(ctx context.Context, email, link string) error
	sent   []string
}

func (m *mockMailer) SendVerification(ctx context.Context, email, link string) error {
	m.sent = append(m.sent, link)
	if m.sendFn != nil {
		return m.sendFn(ctx, email, link)
	}
	return nil
}
