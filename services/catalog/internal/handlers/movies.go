package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/events"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/signing"
	"github.com/example/movie-platform/services/catalog/internal/cache"
	"github.com/example/movie-platform/services/catalog/internal/store"
)

// Deps bundles the collaborators shared by the catalog handlers.
type Deps struct {
	Store  store.MovieStore
	Cache  *cache.RedisCache
	Signer *signing.Signer
	Events *events.Publisher
	Log    *zap.Logger

	// PlaybackTTL bounds how long a signed playback URL stays valid.
	PlaybackTTL time.Duration

	// PlaybackBaseURL is the playback gateway endpoint the signed params
	// are attached to.
	PlaybackBaseURL string
}

type movieListResponse struct {
	Data        []store.Movie `json:"data"`
	Total       int64         `json:"total"`
	Count       int           `json:"count"`
	HasMore     bool          `json:"has_more"`
	CurrentPage int           `json:"current_page"`
}

type playbackLink struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Quality   string `json:"quality,omitempty"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type movieRequest struct {
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title"`
	Overview      string   `json:"overview"`
	PosterURL     string   `json:"poster_url"`
	Genres        []string `json:"genres"`
	ReleaseYear   int32    `json:"release_year"`
	RuntimeMin    int32    `json:"runtime_min"`
	Rating        float32  `json:"rating"`
}

type linkRequest struct {
	Provider string `json:"provider"`
	Quality  string `json:"quality"`
	URL      string `json:"url"`
}

func movieKey(id string) string { return "catalog:movie:" + id }

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, store.ErrMovieNotFound):
		api.NotFound(w, "MOVIE_NOT_FOUND", "movie not found", rid)
	case errors.Is(err, store.ErrLinkNotFound):
		api.NotFound(w, "LINK_NOT_FOUND", "streaming link not found", rid)
	default:
		api.Internal(w, rid)
	}
}

// ListMovies handles GET /v1/movies
func ListMovies(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := 1, 20
		if p := r.URL.Query().Get("page"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
				page = parsed
			}
		}
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		movies, total, err := d.Store.ListMovies(r.Context(), page, limit)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, movieListResponse{
			Data:        movies,
			Total:       total,
			Count:       len(movies),
			HasMore:     total > int64(page*limit),
			CurrentPage: page,
		})
	}
}

// GetMovie handles GET /v1/movies/{movie_id}. Reads go through the cache;
// a view event is published for authenticated readers.
func GetMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}

		var m store.Movie
		hit, err := d.Cache.Get(r.Context(), movieKey(id), &m)
		if err != nil {
			d.Log.Warn("cache read failed", zap.Error(err))
		}
		if !hit {
			m, err = d.Store.GetMovie(r.Context(), id)
			if err != nil {
				writeStoreError(w, r, err)
				return
			}
			if err := d.Cache.Set(r.Context(), movieKey(id), m); err != nil {
				d.Log.Warn("cache write failed", zap.Error(err))
			}
		}

		if userID, ok := auth.UserIDFromContext(r.Context()); ok && userID != "" {
			d.Events.Publish(events.SubjectMovieViewed, "movie_viewed", userID, map[string]any{
				"movie_id": m.ID,
			})
		}

		api.WriteJSON(w, http.StatusOK, m)
	}
}

// GetStreamingLinks handles GET /v1/movies/{movie_id}/links. The raw
// provider URLs are wrapped in expiring signed playback URLs bound to the
// requesting user.
func GetStreamingLinks(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}
		if _, err := d.Store.GetMovie(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}

		links, err := d.Store.ListLinks(r.Context(), id)
		if err != nil {
			api.Internal(w, rid)
			return
		}

		exp := time.Now().Add(d.PlaybackTTL)
		out := make([]playbackLink, 0, len(links))
		for _, l := range links {
			signed := d.Signer.Sign(l.URL, userID, exp)
			playbackURL, err := signing.BuildSignedURL(d.PlaybackBaseURL, signed)
			if err != nil {
				api.Internal(w, rid)
				return
			}
			out = append(out, playbackLink{
				ID:        l.ID,
				Provider:  l.Provider,
				Quality:   l.Quality,
				URL:       playbackURL,
				ExpiresAt: signed.Exp,
			})
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"data": out, "count": len(out)})
	}
}

// CreateMovie handles POST /v1/admin/movies
func CreateMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		var req movieRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			api.BadRequest(w, "MISSING_TITLE", "title is required", rid, nil)
			return
		}

		created, err := d.Store.InsertMovie(r.Context(), store.Movie{
			Title:         req.Title,
			OriginalTitle: req.OriginalTitle,
			Overview:      req.Overview,
			PosterURL:     req.PosterURL,
			Genres:        req.Genres,
			ReleaseYear:   req.ReleaseYear,
			RuntimeMin:    req.RuntimeMin,
			Rating:        req.Rating,
		})
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// UpdateMovie handles PUT /v1/admin/movies/{movie_id}
func UpdateMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}

		var req movieRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			api.BadRequest(w, "MISSING_TITLE", "title is required", rid, nil)
			return
		}

		updated, err := d.Store.UpdateMovie(r.Context(), store.Movie{
			ID:            id,
			Title:         req.Title,
			OriginalTitle: req.OriginalTitle,
			Overview:      req.Overview,
			PosterURL:     req.PosterURL,
			Genres:        req.Genres,
			ReleaseYear:   req.ReleaseYear,
			RuntimeMin:    req.RuntimeMin,
			Rating:        req.Rating,
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := d.Cache.Invalidate(r.Context(), movieKey(id)); err != nil {
			d.Log.Warn("cache invalidate failed", zap.Error(err))
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeleteMovie handles DELETE /v1/admin/movies/{movie_id}
func DeleteMovie(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}

		if err := d.Store.DeleteMovie(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		if err := d.Cache.Invalidate(r.Context(), movieKey(id)); err != nil {
			d.Log.Warn("cache invalidate failed", zap.Error(err))
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}

// AddStreamingLink handles POST /v1/admin/movies/{movie_id}/links
func AddStreamingLink(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}
		if _, err := d.Store.GetMovie(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}

		var req linkRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.Provider) == "" || strings.TrimSpace(req.URL) == "" {
			api.BadRequest(w, "MISSING_FIELDS", "provider and url are required", rid, nil)
			return
		}

		created, err := d.Store.AddLink(r.Context(), store.StreamingLink{
			MovieID:  id,
			Provider: req.Provider,
			Quality:  req.Quality,
			URL:      req.URL,
		})
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// DeleteStreamingLink handles DELETE /v1/admin/links/{link_id}
func DeleteStreamingLink(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		id := strings.TrimSpace(chi.URLParam(r, "link_id"))
		if id == "" {
			api.BadRequest(w, "MISSING_ID", "link_id is required", rid, nil)
			return
		}

		if err := d.Store.DeleteLink(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	}
}
