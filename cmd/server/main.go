package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/config"
	"github.com/skillswap/exchange-server-go/internal/database"
	"github.com/skillswap/exchange-server-go/internal/handler"
	"github.com/skillswap/exchange-server-go/internal/jobs"
	"github.com/skillswap/exchange-server-go/internal/metrics"
	"github.com/skillswap/exchange-server-go/internal/middleware"
	"github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
	"github.com/skillswap/exchange-server-go/internal/service"
	"github.com/skillswap/exchange-server-go/internal/sse"
	"github.com/skillswap/exchange-server-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogger(cfg.LogFormat)
	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction() || os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
		log.Info().Msg("schema applied")
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	store, filesHandler, closeStore, err := newStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up file storage")
	}
	defer closeStore()
	log.Info().Str("backend", cfg.StorageBackend).Msg("file storage ready")

	m := metrics.New()
	m.RegisterDB(db.DB.DB)

	userRepo := repository.NewUserRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	fileRepo := repository.NewFileRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	denyList := redis.NewTokenDenyList(redisClient)

	authService := service.NewAuthService(
		userRepo, profileRepo, db, denyList, broker, cfg.JWTSecret, cfg.AccessTokenTTL(),
	)
	profileService := service.NewProfileService(profileRepo, broker)
	matchService := service.NewMatchService(profileRepo, broker, m)
	sessionService := service.NewSessionService(sessionRepo, profileRepo, db, broker, m, service.SessionConfig{
		AtomicLedger: cfg.LedgerAtomic,
		VideoBaseURL: cfg.VideoBaseURL,
	})
	roomService := service.NewRoomService(sessionRepo, messageRepo, fileRepo, store, broker, m)

	limiter := middleware.NewRedisRateLimiter(redisClient.Client)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	userRateLimit := middleware.NewUserRateLimitMiddleware(limiter, cfg.RateLimitPerMin)
	loginRateLimit := middleware.NewIPRateLimitMiddleware(limiter, config.LoginAttemptsPerMin, time.Minute, "login")
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(authService, loginRateLimit.Handler, authMiddleware.Handler)
	profileHandler := handler.NewProfileHandler(profileService)
	matchHandler := handler.NewMatchHandler(matchService, sessionService)
	roomHandler := handler.NewRoomHandler(roomService, cfg.MaxUploadBytes())
	sessionHandler := handler.NewSessionHandler(sessionService, roomHandler)
	eventsHandler := handler.NewEventsHandler(matchService, sessionService, roomService, m)
	wsHandler := handler.NewWSHandler(matchService, sessionService, roomService, m)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Handle("/metrics", m.Handler())

	if filesHandler != nil {
		r.Handle(storage.LocalPathPrefix+"*", filesHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Use(bodyLimitMiddleware.Handler)

			r.Mount("/auth", authHandler.Routes())

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Handler)
				r.Use(userRateLimit.Handler)

				r.Get("/me", profileHandler.Me)
				r.Patch("/me", profileHandler.UpdateMe)
				r.Mount("/profiles", profileHandler.Routes())
				r.Mount("/matches", matchHandler.Routes())
				r.Mount("/sessions", sessionHandler.Routes())
			})
		})

		// Streams outlive the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(userRateLimit.Handler)

			r.Get("/events", eventsHandler.ServeHTTP)
			r.Get("/ws", wsHandler.ServeHTTP)
		})
	})

	auditJob := jobs.NewLedgerAuditJob(profileRepo, m, config.LedgerAuditInterval)
	auditJob.Start()
	defer auditJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newStore builds the configured blob store. The returned handler is non-nil
// only when blobs must be served by this process.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, http.Handler, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageBackendGCS:
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.StoragePublicBaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return gcs, nil, func() {
			if err := gcs.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close gcs client")
			}
		}, nil
	default:
		local, err := storage.NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return local, local.Handler(), func() {}, nil
	}
}

func setupLogger(format string) {
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
