package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/health-tracker/internal/config"
	"github.com/iliyamo/health-tracker/internal/database"
	"github.com/iliyamo/health-tracker/internal/handler"
	"github.com/iliyamo/health-tracker/internal/logger"
	"github.com/iliyamo/health-tracker/internal/middleware"
	"github.com/iliyamo/health-tracker/internal/queue"
	"github.com/iliyamo/health-tracker/internal/repository"
	"github.com/iliyamo/health-tracker/internal/router"
	"github.com/iliyamo/health-tracker/internal/service"
	"github.com/iliyamo/health-tracker/internal/store"
	"github.com/iliyamo/health-tracker/internal/store/mysqlstore"
	"github.com/iliyamo/health-tracker/internal/store/postgrest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(reportConfigError(os.Stderr, err))
	}
	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Error("open store failed", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	db = store.WithRetry(db, cfg.Store.RetryPolicy())

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled", "addr", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.Messaging.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.Messaging.RabbitMQURL)
		defer pub.Close()
		events = pub
		if cfg.Messaging.AuditConsumer {
			go func() {
				err := queue.StartAuditConsumer(ctx, cfg.Messaging.RabbitMQURL, cfg.Messaging.AuditLogPath, log)
				if err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit consumer stopped", "error", err)
				}
			}()
		}
	} else {
		log.Info("RABBITMQ_URL not set; record events disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	records := service.NewHealthRecordService(repository.NewHealthRecordRepo(db), events, log)

	authH := handler.NewAuthHandler(cfg.Auth, users, tokens, log)
	formH := handler.NewFormHandler(records)

	limiter := middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
	cache := middleware.NewRedisCache(cfg.Cache, rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.Auth.JWTSecret, limiter)
	router.RegisterForm(e, formH, cfg.Auth.JWTSecret, limiter, cache)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server stopped")
}

// reportConfigError prints a startup configuration failure and returns the
// exit code. Missing or invalid settings exit with 2, anything else (an
// unreadable .env, a malformed value) with 1.
func reportConfigError(w io.Writer, err error) int {
	if config.IsConfigError(err) {
		fmt.Fprintf(w, "%v\nset these variables in the environment or in .env\n", err)
		return 2
	}
	fmt.Fprintf(w, "load config: %v\n", err)
	return 1
}

// openStore builds the table store for the configured driver. The returned
// func releases driver resources.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Client, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgREST:
		var opts []postgrest.Option
		if cfg.SupabaseSchema != "" {
			opts = append(opts, postgrest.WithSchema(cfg.SupabaseSchema))
		}
		c, err := postgrest.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, opts...)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	case config.DriverMySQL:
		sqlDB, err := database.Open(cfg.MySQL())
		if err != nil {
			return nil, nil, err
		}
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, sqlDB); err != nil {
				_ = sqlDB.Close()
				return nil, nil, err
			}
		}
		return mysqlstore.New(sqlDB, repository.TableKeys), func() { _ = sqlDB.Close() }, nil
	case config.DriverMemory:
		return store.NewMemory(repository.TableKeys, repository.UniqueColumns), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
