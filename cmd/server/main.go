package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/parking-reservation/internal/billing"
	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/router"
	"github.com/iliyamo/parking-reservation/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	setupLogger(cfg)

	db, err := openDB(cfg)
	if err != nil {
		slog.Error("database unavailable", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}

	users := repository.NewUserRepo(db)
	if created, err := users.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		slog.Error("seeding admin failed", "err", err)
		os.Exit(1)
	} else if created {
		slog.Info("default admin created", "username", cfg.AdminUsername)
	}

	rdb := config.NewRedisClient()
	cacheCfg := config.LoadCacheConfig()
	queueCfg := config.LoadQueueConfig()

	var events handler.EventPublisher = service.NopPublisher{}
	if queueCfg.PublishEnabled {
		events = service.NewAMQPPublisher(queueCfg.URL)
	}
	if queueCfg.ConsumerEnabled {
		go func() {
			if err := queue.StartParkingConsumer(ctx, queueCfg.URL, queueCfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("parking consumer stopped", "err", err)
			}
		}()
	}

	clock := billing.SystemClock{}
	lots := repository.NewLotRepo(db, clock)
	spots := repository.NewSpotRepo(db, clock)
	reservations := repository.NewReservationRepo(db, clock)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))

	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Health:    handler.NewHealthHandler(db, rdb),
		Auth:      handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db, clock)),
		Parking:   handler.NewParkingHandler(lots, spots, reservations, events),
		AdminLots: handler.NewAdminLotHandler(lots, middleware.NewCacheInvalidator(cacheCfg, rdb)),
		Dashboard: handler.NewAdminDashboardHandler(users, reservations, repository.NewStatsRepo(db)),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	slog.Info("server stopped")
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "dev" {
		opts.Level = slog.LevelDebug
	}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openDB(cfg config.Config) (*database.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
