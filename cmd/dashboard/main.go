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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	api "github.com/mind-engage/mindengage-results/internal/api/http"
	"github.com/mind-engage/mindengage-results/internal/assignments"
	auth "github.com/mind-engage/mindengage-results/internal/auth/middleware"
	"github.com/mind-engage/mindengage-results/internal/config"
	"github.com/mind-engage/mindengage-results/internal/db"
	"github.com/mind-engage/mindengage-results/internal/exam"
	"github.com/mind-engage/mindengage-results/internal/lib/slogx"
	"github.com/mind-engage/mindengage-results/internal/scoreboard"
	"github.com/mind-engage/mindengage-results/internal/storage"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
	"github.com/mind-engage/mindengage-results/internal/users"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	addr := pflag.String("addr", "", "listen address (overrides HTTP_ADDR)")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "path", *envFile, "err", err)
	}
	cfg := config.FromEnv()
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	log := slogx.New(os.Stdout, slogx.ParseLevel(cfg.LogLevel), cfg.Mode == config.ModeOffline)
	slog.SetDefault(log)
	if cfg.Mode == config.ModeOnline && cfg.AuthSecret == config.DevAuthSecret {
		log.Warn("AUTH_HMAC_SECRET is the development default")
	}

	if err := run(cfg); err != nil {
		log.Error("dashboard stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return err
	}
	defer dbh.Close()

	userStore := users.NewStore(dbh)
	if cfg.AdminPassword != "" {
		if err := userStore.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
			return err
		}
	}

	// --- Leaderboard cache (optional) ---
	var cache scoreboard.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, leaderboard cache disabled", "addr", cfg.RedisAddr, "err", err)
		} else {
			cache = scoreboard.NewRedisCache(rdb, "results:")
		}
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return err
	}

	events := syncx.NewEventRepo(dbh)
	scores := scoreboard.NewService(scoreboard.NewSQLStore(dbh), cache, cfg.LeaderboardTTL)
	rec := syncx.Multi{events, scores}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, api.Deps{
		DB:          dbh,
		Auth:        auth.NewAuthService(cfg.AuthSecret, cfg.SessionTTL),
		Users:       userStore,
		Exams:       exam.NewService(exam.NewSQLStore(dbh), rec),
		Scores:      scores,
		Assignments: assignments.NewService(assignments.NewSQLStore(dbh), bs, rec),
		Events:      events,
		Recorder:    rec,
		AuthOptions: api.AuthOptions{
			CookieSecure:       cfg.CookieSecure,
			EnableRegistration: cfg.EnableRegistration,
		},
		StaticDir: cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", cfg.DBDriver, "redis", cache != nil)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
