package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/clipforge/internal/api/handler"
	"github.com/hszk-dev/clipforge/internal/api/middleware"
	"github.com/hszk-dev/clipforge/internal/auth"
	"github.com/hszk-dev/clipforge/internal/config"
	"github.com/hszk-dev/clipforge/internal/event"
	"github.com/hszk-dev/clipforge/internal/infrastructure/blob"
	"github.com/hszk-dev/clipforge/internal/infrastructure/cache"
	"github.com/hszk-dev/clipforge/internal/infrastructure/metrics"
	"github.com/hszk-dev/clipforge/internal/infrastructure/postgres"
	"github.com/hszk-dev/clipforge/internal/sse"
	"github.com/hszk-dev/clipforge/internal/transcoder"
	"github.com/hszk-dev/clipforge/internal/usecase"
	"github.com/hszk-dev/clipforge/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infrastructure

	db, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	originals, err := blob.NewStore(cfg.Storage.OriginalsPath)
	if err != nil {
		return fmt.Errorf("failed to open originals store: %w", err)
	}
	processed, err := blob.NewStore(cfg.Storage.ProcessedPath)
	if err != nil {
		return fmt.Errorf("failed to open processed store: %w", err)
	}
	temp, err := blob.NewStore(cfg.Storage.TempPath)
	if err != nil {
		return fmt.Errorf("failed to open temp store: %w", err)
	}

	videoRepo := postgres.NewVideoRepository(db.Pool())
	userRepo := postgres.NewUserRepository(db.Pool())
	txRunner := postgres.NewTxRunner(db.Pool())
	videoCache := cache.NewRedisVideoCache(redisClient)
	tokenStore := cache.NewRedisTokenStore(redisClient)

	// Domain wiring

	secretKey, err := cfg.JWT.SecretKey()
	if err != nil {
		return err
	}
	tokenManager, err := auth.NewTokenManager(auth.TokenManagerConfig{
		Key:    secretKey,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.Expiration(),
	})
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}

	bus := event.NewBus()
	hub := sse.NewHub(sse.Config{
		EmitterTimeout:    cfg.SSE.EmitterTimeout(),
		HeartbeatInterval: cfg.SSE.HeartbeatInterval(),
	}, logger)

	statusUpdater := usecase.NewStatusUpdater(txRunner, bus, logger)

	pool := worker.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, logger)

	ffmpegCfg := transcoder.DefaultFFmpegConfig()
	ffmpegCfg.FFmpegPath = cfg.FFmpeg.Path
	ffmpegCfg.FFprobePath = cfg.FFmpeg.ProbePath
	tc := transcoder.NewFFmpegTranscoder(ffmpegCfg)

	videoSvc := usecase.NewVideoService(videoRepo, userRepo, originals, processed,
		usecase.VideoServiceConfig{MaxUploadBytes: cfg.Upload.MaxSizeBytes()}, logger)
	cachedVideoSvc := usecase.NewCachedVideoService(videoSvc, videoCache,
		usecase.CachedVideoServiceConfig{TTL: 5 * time.Minute}, logger)

	processingSvc := usecase.NewProcessingService(videoRepo, statusUpdater, pool, tc,
		originals, processed, temp,
		usecase.ProcessingServiceConfig{FFmpegTimeout: cfg.FFmpeg.Timeout()}, logger)

	authSvc := usecase.NewAuthService(userRepo, tokenManager, tokenStore,
		&usecase.LogMailer{Logger: logger},
		usecase.AuthServiceConfig{FrontendBaseURL: cfg.App.FrontendBaseURL}, logger)

	// Status changes fan out to the cache and the owner's SSE emitters.
	bus.Subscribe(func(ctx context.Context, ev event.VideoStatusChanged) {
		if err := videoCache.Delete(ctx, ev.PublicID); err != nil {
			logger.Warn("cache invalidation on status change failed",
				slog.String("public_id", ev.PublicID),
				slog.String("error", err.Error()),
			)
		}

		payload := map[string]any{
			"publicId": ev.PublicID,
			"status":   ev.Status.String(),
		}
		if ev.Message != "" {
			payload["message"] = ev.Message
		}
		hub.SendToUser(ev.Owner, metrics.SSEEventStatusUpdate, payload)
	})

	go bus.Run(ctx)
	go hub.Run(ctx)
	pool.Start(ctx)

	// HTTP

	r := setupRouter(cfg, logger, routerDeps{
		verifier: tokenManager,
		auth: handler.NewAuthHandler(authSvc, handler.AuthHandlerConfig{
			FrontendBaseURL: cfg.App.FrontendBaseURL,
			CookieSecure:    true,
		}),
		videos: handler.NewVideoHandler(cachedVideoSvc, processingSvc, cfg.Upload.MaxSizeBytes()),
		stream: handler.NewSSEHandler(hub),
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		// No WriteTimeout: SSE connections outlive any sane value.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// In-flight transcodes get their own drain window after HTTP stops.
	pool.Shutdown(cfg.Worker.ShutdownTimeout)

	logger.Info("server stopped")
	return nil
}

type routerDeps struct {
	verifier middleware.Authenticator
	auth     *handler.AuthHandler
	videos   *handler.VideoHandler
	stream   *handler.SSEHandler
}

func setupRouter(cfg *config.Config, logger *slog.Logger, deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints are the brute-force surface.
			r.Use(httprate.LimitByIP(10, time.Minute))

			r.Post("/register", deps.auth.Register)
			r.Post("/login", deps.auth.Login)
			r.Post("/logout", deps.auth.Logout)
			r.Get("/verify-email", deps.auth.VerifyEmail)
			r.Post("/resend-verification", deps.auth.ResendVerification)
		})

		r.Route("/sse", func(r chi.Router) {
			r.Use(middleware.Auth(deps.verifier))

			r.Get("/subscribe", deps.stream.Subscribe)
		})

		r.Route("/videos", func(r chi.Router) {
			r.Use(middleware.Auth(deps.verifier))

			r.Post("/", deps.videos.Upload)
			r.Get("/", deps.videos.List)

			r.Route("/{publicId}", func(r chi.Router) {
				r.Get("/", deps.videos.Get)
				r.Put("/", deps.videos.Update)
				r.Delete("/", deps.videos.Delete)
				r.Post("/process", deps.videos.Process)
				r.Get("/download", deps.videos.DownloadProcessed)
				r.Get("/download/original", deps.videos.DownloadOriginal)
			})
		})
	})

	return r
}
