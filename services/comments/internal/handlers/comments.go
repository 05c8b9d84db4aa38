package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/services/comments/internal/movieclient"
	"github.com/example/movie-platform/services/comments/internal/store"
	"github.com/example/movie-platform/services/comments/internal/tree"
)

type createCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_comment_id,omitempty"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

type deleteCommentResponse struct {
	Deleted bool `json:"deleted"`
}

type statsResponse struct {
	Total   int64 `json:"total"`
	InRange int64 `json:"in_range,omitempty"`
}

func actorFrom(r *http.Request) (tree.Actor, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok || userID == "" {
		return tree.Actor{}, false
	}
	role, _ := auth.RoleFromContext(r.Context())
	email, _ := auth.EmailFromContext(r.Context())
	return tree.Actor{UserID: userID, Role: role, Email: email}, true
}

func pageParams(r *http.Request) (int, int) {
	page, limit := 1, 10
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
	return page, limit
}

// writeManagerError maps the comment engine's sentinel errors onto the
// API error envelope.
func writeManagerError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	switch {
	case errors.Is(err, tree.ErrEmptyContent):
		api.BadRequest(w, "EMPTY_CONTENT", "content must not be empty after sanitization", rid, nil)
	case errors.Is(err, movieclient.ErrMovieNotFound):
		api.NotFound(w, "MOVIE_NOT_FOUND", "movie not found", rid)
	case errors.Is(err, store.ErrCommentNotFound):
		api.NotFound(w, "COMMENT_NOT_FOUND", "comment not found", rid)
	case errors.Is(err, tree.ErrForbidden):
		api.Forbidden(w, "FORBIDDEN", "only the comment author may do that", rid)
	default:
		api.Internal(w, rid)
	}
}

// CreateComment handles POST /v1/movies/{movie_id}/comments
func CreateComment(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		actor, ok := actorFrom(r)
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}

		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if movieID == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}

		var req createCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		created, err := m.Create(r.Context(), actor, movieID, req.Content, req.ParentID)
		if err != nil {
			writeManagerError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ListMovieComments handles GET /v1/movies/{movie_id}/comments
func ListMovieComments(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if movieID == "" {
			api.BadRequest(w, "MISSING_ID", "movie_id is required", rid, nil)
			return
		}

		page, limit := pageParams(r)
		out, err := m.ListTopLevel(r.Context(), movieID, page, limit)
		if err != nil {
			writeManagerError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListReplies handles GET /v1/comments/{comment_id}/replies
func ListReplies(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}

		movieID := strings.TrimSpace(r.URL.Query().Get("movie_id"))
		includeNested := r.URL.Query().Get("include_nested") == "true"

		page, limit := pageParams(r)
		out, err := m.ListReplies(r.Context(), commentID, movieID, page, limit, includeNested)
		if err != nil {
			writeManagerError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// UpdateComment handles PUT /v1/comments/{comment_id}
func UpdateComment(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		actor, ok := actorFrom(r)
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}

		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}

		var req updateCommentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid, nil)
			return
		}

		updated, err := m.Update(r.Context(), actor, commentID, req.Content)
		if err != nil {
			writeManagerError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		actor, ok := actorFrom(r)
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid)
			return
		}

		commentID := strings.TrimSpace(chi.URLParam(r, "comment_id"))
		if commentID == "" {
			api.BadRequest(w, "MISSING_ID", "comment_id is required", rid, nil)
			return
		}

		if err := m.Delete(r.Context(), actor, commentID); err != nil {
			writeManagerError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, deleteCommentResponse{Deleted: true})
	}
}

// CommentStats handles GET /v1/admin/comments/stats. Optional from/to
// query parameters (RFC 3339) add a date-range count.
func CommentStats(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		total, err := m.CountAll(r.Context())
		if err != nil {
			api.Internal(w, rid)
			return
		}
		resp := statsResponse{Total: total}

		fromParam := r.URL.Query().Get("from")
		toParam := r.URL.Query().Get("to")
		if fromParam != "" || toParam != "" {
			from, err := time.Parse(time.RFC3339, fromParam)
			if err != nil {
				api.BadRequest(w, "INVALID_RANGE", "from must be RFC 3339", rid, nil)
				return
			}
			to, err := time.Parse(time.RFC3339, toParam)
			if err != nil {
				api.BadRequest(w, "INVALID_RANGE", "to must be RFC 3339", rid, nil)
				return
			}
			if to.Before(from) {
				api.BadRequest(w, "INVALID_RANGE", "to must not precede from", rid, nil)
				return
			}
			inRange, err := m.CountByDateRange(r.Context(), from, to)
			if err != nil {
				api.Internal(w, rid)
				return
			}
			resp.InRange = inRange
		}

		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// RecentComments handles GET /v1/admin/comments/recent
func RecentComments(m *tree.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())

		limit := 20
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		recent, err := m.RecentTopLevel(r.Context(), limit)
		if err != nil {
			api.Internal(w, rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"data":  recent,
			"count": len(recent),
		})
	}
}
