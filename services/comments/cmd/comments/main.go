package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/config"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/events"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	"github.com/example/movie-platform/services/comments/internal/directory"
	"github.com/example/movie-platform/services/comments/internal/handlers"
	"github.com/example/movie-platform/services/comments/internal/movieclient"
	"github.com/example/movie-platform/services/comments/internal/sanitize"
	"github.com/example/movie-platform/services/comments/internal/store"
	"github.com/example/movie-platform/services/comments/internal/tree"
	"github.com/example/movie-platform/services/comments/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	comments, users, pool := initStores(cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	movies := initMovies(cfg, log)

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		// NATS is optional: without it, events are dropped and counters
		// are never reconciled, which is acceptable for development.
		var pub *events.Publisher
		nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATSURL, Name: cfg.ServiceName})
		if err != nil {
			log.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			js, err := nc.JetStream()
			if err != nil {
				log.Warn("jetstream unavailable, events disabled", zap.Error(err))
			} else {
				pub = events.New(js, log)
			}
			worker.StartReconciler(ctx, nc, comments, log)
		}

		manager := tree.New(comments, movies, users, sanitize.New(), pub, log)

		r := chi.NewRouter()
		httpserver.SetupRouter(r)

		r.Get("/v1/movies/{movie_id}/comments", handlers.ListMovieComments(manager))
		r.Get("/v1/comments/{comment_id}/replies", handlers.ListReplies(manager))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Post("/v1/movies/{movie_id}/comments", handlers.CreateComment(manager))
			r.Put("/v1/comments/{comment_id}", handlers.UpdateComment(manager))
			r.Delete("/v1/comments/{comment_id}", handlers.DeleteComment(manager))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Use(auth.RequireAdmin)
			r.Get("/v1/admin/comments/stats", handlers.CommentStats(manager))
			r.Get("/v1/admin/comments/recent", handlers.RecentComments(manager))
		})

		srv := httpserver.New(httpserver.Options{
			Addr:        cfg.HTTP.Addr,
			ServiceName: cfg.ServiceName,
			Logger:      log,
			Router:      r,
		})
		runner.Graceful(ctx, srv.Shutdown)
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the storage backends. In production a working
// Postgres connection is required and the process terminates otherwise;
// everywhere else it falls back to in-memory stores.
func initStores(cfg config.AppConfig, log *zap.Logger) (store.CommentStore, directory.UserDirectory, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		if cfg.Production() {
			log.Error("DATABASE_URL is required in production")
			run.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return store.NewInMemoryCommentStore(), directory.NewInMemoryDirectory(), nil
	}

	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		if cfg.Production() {
			log.Error("postgres connect failed", zap.Error(err))
			run.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory stores", zap.Error(err))
		return store.NewInMemoryCommentStore(), directory.NewInMemoryDirectory(), nil
	}

	log.Info("using postgres stores")
	return store.NewPostgresCommentStore(pool), directory.NewPostgresDirectory(pool), pool
}

// initMovies wires the movie existence check against the catalog service
// when MOVIE_API_URL is set, or a static stub for local development.
func initMovies(cfg config.AppConfig, log *zap.Logger) movieclient.Lookup {
	base := strings.TrimSpace(os.Getenv("MOVIE_API_URL"))
	if base != "" {
		log.Info("movie lookup via catalog service", zap.String("base_url", base))
		return movieclient.NewHTTPLookup(base)
	}
	if cfg.Production() {
		log.Error("MOVIE_API_URL is required in production")
		run.Exit(1)
	}
	log.Warn("MOVIE_API_URL not set, using static movie stub")
	return movieclient.NewStaticLookup(
		movieclient.Movie{ID: "demo-movie", Title: "Demo Movie"},
	)
}
