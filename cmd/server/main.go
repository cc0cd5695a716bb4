// Package main is the entry point for the game ratings API server.
//
// main stays small: load configuration, build the logger and the
// collaborators, hand them to the server and block until shutdown. All
// behaviour lives in internal/.
//
// Optional collaborators (Google sign-in, the completion API, Redis, S3)
// are only built when configured; the routes that need a missing one
// answer 503 instead of failing at startup.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/gameratings/internal/auth"
	"github.com/sakif/gameratings/internal/config"
	"github.com/sakif/gameratings/internal/recommend"
	"github.com/sakif/gameratings/internal/repository/sqlstore"
	"github.com/sakif/gameratings/internal/server"
	"github.com/sakif/gameratings/internal/storage"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// === DATABASE ===
	if err := ensureDataDir(cfg.Database); err != nil {
		return err
	}
	store, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	closers := []io.Closer{store}

	// === AUTH ===
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		_ = store.Close()
		return err
	}

	deps := server.Deps{
		Store:     store,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(),
		Logger:    logger,
	}

	if cfg.Auth.GoogleEnabled() {
		callback := cfg.Auth.GoogleCallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/api/auth/google/callback", cfg.Server.Port)
		}
		deps.Google = auth.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, callback)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set; Google sign-in is disabled")
	}

	// === REDIS (optional) ===
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// The cache falls through on errors, so keep going.
			logger.Warn("redis unreachable at startup", slog.String("addr", cfg.Redis.Addr), slog.String("error", err.Error()))
		}
		cancel()
		closers = append(closers, rdb)
	}

	// === RECOMMENDATIONS (optional) ===
	if cfg.Recommend.APIKey != "" {
		var rec recommend.Recommender = recommend.WithBreaker(
			recommend.NewCompletionClient(recommend.ClientConfig{
				APIKey:  cfg.Recommend.APIKey,
				BaseURL: cfg.Recommend.BaseURL,
				Model:   cfg.Recommend.Model,
				Timeout: cfg.Recommend.Timeout,
			}, logger),
			logger,
		)
		if rdb != nil {
			cache := recommend.WithCache(rec, rdb, cfg.Recommend.CacheTTL, logger)
			rec = cache
			deps.Cache = cache
		}
		deps.Recommender = rec
	} else {
		logger.Warn("OPENAI_API_KEY not set; recommendations are disabled")
	}

	// === OBJECT STORAGE (optional) ===
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.Config{
			Bucket:        cfg.Storage.Bucket,
			Region:        cfg.Storage.Region,
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			logger.Warn("object storage unavailable; avatar upload is disabled", slog.String("error", err.Error()))
		} else {
			deps.Uploader = s3
		}
	} else {
		logger.Warn("S3_BUCKET not set; avatar upload is disabled")
	}

	// === SERVE ===
	router := server.NewRouter(cfg.Server, deps)
	srv := server.New(cfg.Server, router, logger, closers...)

	logger.Info("configuration loaded",
		slog.String("database", cfg.Database.Driver),
		slog.Bool("google", deps.Google != nil),
		slog.Bool("recommendations", deps.Recommender != nil),
		slog.Bool("redis", rdb != nil),
		slog.Bool("avatars", deps.Uploader != nil),
	)
	return srv.Start(ctx)
}

// ensureDataDir creates the parent directory of a SQLite database file.
func ensureDataDir(db config.DatabaseConfig) error {
	if db.Driver != sqlstore.DriverSQLite || db.DSN == ":memory:" || strings.HasPrefix(db.DSN, "file:") {
		return nil
	}
	dir := filepath.Dir(db.DSN)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
