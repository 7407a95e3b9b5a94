package main

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
	redis "github.com/redis/go-redis/v9"

	"github.com/fkhayef/forumcore/internal/app"
	"github.com/fkhayef/forumcore/internal/clock"
	"github.com/fkhayef/forumcore/internal/config"
	"github.com/fkhayef/forumcore/internal/database"
	"github.com/fkhayef/forumcore/internal/ephemeral"
	"github.com/fkhayef/forumcore/internal/queue"
)

// @title           Forum Core API
// @version         1.0
// @description     Forum messaging, membership, moderation and presence.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apikey UserID
// @in header
// @name X-User-ID
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts := app.Options{Config: cfg, Clock: clock.Real(), Logger: logger}

	// Database, unless running on the in-memory stores
	if cfg.StorageDriver == config.DriverPostgres {
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("connected to database")

		if cfg.AutoMigrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("migrations applied")
		}
		opts.DB = db
	}

	// Redis backs presence, typing and the notification queue
	if cfg.RedisURL != "" {
		rdb, client, server, err := connectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		defer client.Close()
		opts.Redis, opts.Queue, opts.QueueServer = rdb, client, server
		logger.Info("connected to redis")
	}

	a, err := app.New(opts)
	if err != nil {
		return err
	}

	errs := make(chan error, 2)
	if opts.QueueServer != nil {
		go func() { errs <- opts.QueueServer.Run(ctx) }()
	}
	go a.Sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server starting", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func connectRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, *queue.AsynqClient, *queue.AsynqServer, error) {
	rdb, err := ephemeral.NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := queue.NewAsynqClient(redisURL)
	if err != nil {
		rdb.Close()
		return nil, nil, nil, err
	}
	server, err := queue.NewAsynqServer(redisURL, 10, logger)
	if err != nil {
		rdb.Close()
		client.Close()
		return nil, nil, nil, err
	}
	return rdb, client, server, nil
}
