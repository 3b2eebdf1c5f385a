package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/wallet-relay-go/internal/config"
	"github.com/openclaw/wallet-relay-go/internal/handler"
	"github.com/openclaw/wallet-relay-go/internal/jobs"
	"github.com/openclaw/wallet-relay-go/internal/middleware"
	"github.com/openclaw/wallet-relay-go/internal/ratelimit"
	redisclient "github.com/openclaw/wallet-relay-go/internal/redis"
	"github.com/openclaw/wallet-relay-go/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	store := session.NewStore(cfg.MaxSessions)

	// With REDIS_URL set, session creation shares one rate-limit budget
	// across relay instances. Sessions themselves stay instance-local.
	var limiter ratelimit.Limiter
	var sweepable jobs.LimiterSweeper
	if cfg.RedisURL != "" {
		client, err := redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		log.Info().Msg("redis connected, using shared rate limiter")
		limiter = ratelimit.NewRedis(client, config.SessionRateLimitWindow, config.SessionRateLimitMax)
	} else {
		mem := ratelimit.NewMemory(config.SessionRateLimitWindow, config.SessionRateLimitMax)
		limiter = mem
		sweepable = mem
	}

	sweeper := jobs.NewSweeper(store, sweepable, config.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	sessionHandler := handler.NewSessionHandler(store, limiter)
	wsHandler := handler.NewWSHandler(store)
	pages := handler.NewPagesHandler(store, cfg.ConfigDir)

	bodyLimit := middleware.NewBodyLimitMiddleware(config.MaxBodySize)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimit.Handler)

	r.Get("/health", sessionHandler.Health)
	r.Get("/metrics", sessionHandler.Metrics)

	r.Mount("/session", sessionHandler.Routes())

	r.Get("/ws", wsHandler.ServeHTTP)

	r.Get("/", pages.Index)
	r.Get("/landing", pages.Landing)
	r.Get("/bridge", pages.Bridge)
	r.Get("/demo", pages.Demo)
	r.Get("/s/{id}", func(w http.ResponseWriter, req *http.Request) {
		pages.Session(w, req, chi.URLParam(req, "id"))
	})

	corsAll := cors.AllowAll().Handler
	for _, path := range []string{
		"/manifest.json",
		"/s/{id}/manifest.json",
		"/demo/manifest.json",
		"/bridge/manifest.json",
		"/landing/manifest.json",
	} {
		r.With(corsAll).Get(path, pages.Manifest)
	}
	r.Get("/logo.svg", pages.Logo)

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		// No write timeout: WebSocket connections live for hours.
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting relay")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down relay")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	store.CloseAll(session.CloseGoingAway, "Server shutting down")

	log.Info().Msg("relay stopped")
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
