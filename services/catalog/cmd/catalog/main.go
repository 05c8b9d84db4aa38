package main

import (
	"context"
	"os"
	"strings"
	"time"

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
	"github.com/example/movie-platform/internal/platform/signing"
	"github.com/example/movie-platform/services/catalog/internal/cache"
	"github.com/example/movie-platform/services/catalog/internal/handlers"
	"github.com/example/movie-platform/services/catalog/internal/store"
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

	movies, pool := initStore(cfg, log)
	if pool != nil {
		defer pool.Close()
	}

	var movieCache *cache.RedisCache
	if cfg.RedisURL != "" {
		movieCache, err = cache.New(cfg.RedisURL, 5*time.Minute)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", zap.Error(err))
			movieCache = nil
		}
	} else {
		log.Warn("REDIS_URL not set, caching disabled")
	}

	signingSecret := strings.TrimSpace(os.Getenv("PLAYBACK_SIGNING_SECRET"))
	if signingSecret == "" {
		if cfg.Production() {
			log.Error("PLAYBACK_SIGNING_SECRET is required in production")
			run.Exit(1)
		}
		signingSecret = "dev-playback-secret"
	}
	signer := signing.New(signingSecret)

	playbackBase := strings.TrimSpace(os.Getenv("PLAYBACK_BASE_URL"))
	if playbackBase == "" {
		playbackBase = "http://localhost" + cfg.HTTP.Addr + "/v1/playback"
	}

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
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
		}

		deps := handlers.Deps{
			Store:           movies,
			Cache:           movieCache,
			Signer:          signer,
			Events:          pub,
			Log:             log,
			PlaybackTTL:     4 * time.Hour,
			PlaybackBaseURL: playbackBase,
		}

		r := chi.NewRouter()
		httpserver.SetupRouter(r)

		r.Get("/v1/movies", handlers.ListMovies(deps))
		r.Get("/v1/playback", handlers.Playback(signer))

		// Movie detail works anonymously; view events need the viewer, so
		// the auth middleware runs in optional fashion via the links group.
		r.Get("/v1/movies/{movie_id}", handlers.GetMovie(deps))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Get("/v1/movies/{movie_id}/links", handlers.GetStreamingLinks(deps))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Use(auth.RequireAdmin)
			r.Post("/v1/admin/movies", handlers.CreateMovie(deps))
			r.Put("/v1/admin/movies/{movie_id}", handlers.UpdateMovie(deps))
			r.Delete("/v1/admin/movies/{movie_id}", handlers.DeleteMovie(deps))
			r.Post("/v1/admin/movies/{movie_id}/links", handlers.AddStreamingLink(deps))
			r.Delete("/v1/admin/links/{link_id}", handlers.DeleteStreamingLink(deps))
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

// initStore selects the catalog backend. Production requires Postgres;
// everywhere else falls back to an in-memory store.
func initStore(cfg config.AppConfig, log *zap.Logger) (store.MovieStore, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		if cfg.Production() {
			log.Error("DATABASE_URL is required in production")
			run.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewInMemoryMovieStore(), nil
	}

	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		if cfg.Production() {
			log.Error("postgres connect failed", zap.Error(err))
			run.Exit(1)
		}
		log.Warn("postgres unavailable, using in-memory store", zap.Error(err))
		return store.NewInMemoryMovieStore(), nil
	}

	log.Info("using postgres store")
	return store.NewPostgresMovieStore(pool), pool
}
