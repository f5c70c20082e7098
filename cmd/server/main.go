package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdg-garage/cafe-das-mulheres/internal/config"
	"github.com/gdg-garage/cafe-das-mulheres/internal/database"
	"github.com/gdg-garage/cafe-das-mulheres/internal/handlers"
	"github.com/gdg-garage/cafe-das-mulheres/internal/notifier"
	"github.com/gdg-garage/cafe-das-mulheres/internal/ratelimit"
	"github.com/gdg-garage/cafe-das-mulheres/internal/session"
	"github.com/gdg-garage/cafe-das-mulheres/internal/stats"
	"github.com/gdg-garage/cafe-das-mulheres/internal/store"
	"github.com/gdg-garage/cafe-das-mulheres/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lot store
	lotStore, closeStore := openLotStore(ctx, cfg)
	defer closeStore()

	// Submission delivery
	var submitter webhook.Submitter = webhook.NewClient(cfg.WebhookURL, &http.Client{Timeout: cfg.WebhookTimeout})
	if cfg.WebhookURL == "" {
		logrus.Warn("WEBHOOK_URL is not set, every submission will fail")
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		dg, err := notifier.NewDiscordSession(cfg.DiscordBotToken)
		if err != nil {
			logrus.WithError(err).Warn("Discord notifier not initialized")
		} else {
			defer dg.Close()
			submitter = notifier.NewNotifyingSubmitter(submitter,
				notifier.NewDiscordNotifier(dg, cfg.DiscordNotificationsChannelID), lotStore)
		}
	}

	// Submission stats
	var recorder stats.Recorder = stats.NewMemoryRecorder()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		recorder = stats.NewRedisRecorder(rdb)
	}

	manager := session.NewManager(ctx, session.Options{
		Lots:              lotStore,
		Submitter:         submitter,
		Stats:             recorder,
		LotsTimeout:       cfg.LotsTimeout,
		SubmitTimeout:     cfg.WebhookTimeout,
		MessageClearDelay: cfg.MessageClearDelay,
	}, session.WithIdleTTL(cfg.SessionIdleTTL))
	limiter := ratelimit.NewStore(cfg.RateRPS, cfg.RateBurst)

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r,
		handlers.NewLotsHandler(lotStore, cfg.LotsTimeout),
		handlers.NewSessionHandler(manager),
		handlers.NewStatsHandler(recorder),
		handlers.RouterOptions{Limiter: limiter, EnableCORS: cfg.EnableCORS},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("Server stopped")
	}
	logrus.Info("Server stopped")
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func openLotStore(ctx context.Context, cfg *config.Config) (store.LotStore, func()) {
	switch cfg.LotsBackend {
	case config.LotsBackendPostgres:
		pool, err := store.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to postgres: %v", err)
		}
		s := store.NewPostgresLotStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			logrus.Fatalf("Failed to migrate lots table: %v", err)
		}
		return s, pool.Close

	case config.LotsBackendSQLite:
		db := database.Connect(cfg)
		return store.NewGormLotStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}

	default:
		logrus.Fatalf("Unknown LOTS_BACKEND %q", cfg.LotsBackend)
		return nil, nil
	}
}
