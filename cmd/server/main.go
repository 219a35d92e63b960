package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/config"
	"github.com/famlink/assist-server-go/internal/database"
	"github.com/famlink/assist-server-go/internal/handler"
	"github.com/famlink/assist-server-go/internal/jobs"
	"github.com/famlink/assist-server-go/internal/middleware"
	"github.com/famlink/assist-server-go/internal/redis"
	"github.com/famlink/assist-server-go/internal/repository"
	"github.com/famlink/assist-server-go/internal/service"
	"github.com/famlink/assist-server-go/internal/signal"
	"github.com/famlink/assist-server-go/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Local development reads .env; deployed environments set real env vars.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
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

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	authRepo := repository.NewAuthSessionRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	inviteRepo := repository.NewInviteRepository(db.DB)
	relRepo := repository.NewRelationshipRepository(db.DB)
	supportRepo := repository.NewSupportSessionRepository(db.DB)
	camTokenRepo := repository.NewCameraTokenRepository(db.DB)

	broker := signal.NewBroker(redisClient)
	defer broker.Close()

	snapshotStore := storage.NewFileStore(cfg.SnapshotDir, cfg.SnapshotBaseURL)

	relService := service.NewRelationshipService(relRepo, userRepo)
	sessionService := service.NewSessionService(sessionRepo, userRepo, relService)
	inviteService := service.NewInviteService(db, inviteRepo, relRepo, cfg.InviteTTL())
	supportService := service.NewSupportService(supportRepo)
	camTokenService := service.NewCameraTokenService(camTokenRepo, supportRepo, cfg.CameraTokenTTL())
	snapshotService := service.NewSnapshotService(sessionRepo, snapshotStore)
	profileService := service.NewProfileService(userRepo)

	authMiddleware := middleware.NewAuthMiddleware(authRepo, cfg.AuthSessionSecret)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	ipRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(redisClient.Client, config.CodeGuessLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	sessionHandler := handler.NewSessionHandler(sessionService, cfg.StunURL)
	inviteHandler := handler.NewInviteHandler(inviteService)
	supportHandler := handler.NewSupportHandler(supportService, camTokenService)
	camTokenHandler := handler.NewCameraTokenHandler(camTokenService)
	snapshotHandler := handler.NewSnapshotHandler(snapshotService)
	profileHandler := handler.NewProfileHandler(profileService, relService)
	signalHandler := handler.NewSignalHandler(broker, camTokenService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	auth := authMiddleware.Handler
	userLimit := rateLimitMiddleware.Handler
	ipLimit := ipRateLimitMiddleware.Handler

	// Websocket routes skip the request timeout: a signaling bridge stays
	// open for the life of the call.
	r.Route("/v1", func(r chi.Router) {
		r.With(ipLimit).Get("/signal/{code}", signalHandler.Screen)
		r.With(ipLimit).Get("/signalcam/{code}", signalHandler.Camera)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

			r.Mount("/sessions", sessionHandler.Routes(auth, userLimit, ipLimit))
			r.Mount("/support", supportHandler.Routes(auth, userLimit, ipLimit))

			r.Group(func(r chi.Router) {
				r.Use(ipLimit)
				r.Mount("/camera-tokens", camTokenHandler.Routes())
			})

			r.Group(func(r chi.Router) {
				r.Use(auth, userLimit)
				r.Mount("/invites", inviteHandler.Routes())
				r.Mount("/snapshots", snapshotHandler.Routes())
				r.Mount("/profiles", profileHandler.Routes())
				r.Get("/related-users", profileHandler.RelatedUsers)
			})
		})
	})

	cleanupJob := jobs.NewCleanupJob(
		camTokenRepo, inviteRepo, authRepo, sessionRepo, supportRepo,
		config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// Write timeout stays off so websocket bridges are not cut.
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
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
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
