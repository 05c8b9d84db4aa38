package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/services/comments/internal/directory"
	"github.com/example/movie-platform/services/comments/internal/movieclient"
	"github.com/example/movie-platform/services/comments/internal/sanitize"
	"github.com/example/movie-platform/services/comments/internal/store"
	"github.com/example/movie-platform/services/comments/internal/tree"
)

func newManager() *tree.Manager {
	cs := store.NewInMemoryCommentStore()
	movies := movieclient.NewStaticLookup(movieclient.Movie{ID: "movie-1", Title: "The Movie"})
	users := directory.NewInMemoryDirectory()
	users.Put(directory.User{ID: "user-a", FullName: "Ada Author"})
	users.Put(directory.User{ID: "user-b", FullName: "Ben Browser"})
	return tree.New(cs, movies, users, sanitize.New(), nil, zap.NewNop())
}

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url string, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func createVia(t *testing.T, m *tree.Manager, userID, content string, parentID *string) tree.CommentWithAuthor {
	t.Helper()
	c, err := m.Create(context.Background(), tree.Actor{UserID: userID}, "movie-1", content, parentID)
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return c
}

func errCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestCreateComment(t *testing.T) {
	m := newManager()
	handler := CreateComment(m)

	req := setupReq(http.MethodPost, "/v1/movies/movie-1/comments", `{"content":"hello world"}`,
		map[string]string{"movie_id": "movie-1"}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var c tree.CommentWithAuthor
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Content != "hello world" {
		t.Fatalf("expected content 'hello world', got %q", c.Content)
	}
	if c.UserID != "user-a" {
		t.Fatalf("expected user_id 'user-a', got %q", c.UserID)
	}
	if c.Author == nil || c.Author.FullName != "Ada Author" {
		t.Fatalf("expected author projection, got %+v", c.Author)
	}
}

func TestCreateComment_Unauthorized(t *testing.T) {
	handler := CreateComment(newManager())

	req := setupReq(http.MethodPost, "/v1/movies/movie-1/comments", `{"content":"hello"}`,
		map[string]string{"movie_id": "movie-1"}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateComment_MovieNotFound(t *testing.T) {
	handler := CreateComment(newManager())

	req := setupReq(http.MethodPost, "/v1/movies/movie-404/comments", `{"content":"hello"}`,
		map[string]string{"movie_id": "movie-404"}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := errCode(t, rr.Body); code != "MOVIE_NOT_FOUND" {
		t.Fatalf("expected MOVIE_NOT_FOUND, got %q", code)
	}
}

func TestCreateComment_EmptyContent(t *testing.T) {
	handler := CreateComment(newManager())

	req := setupReq(http.MethodPost, "/v1/movies/movie-1/comments", `{"content":"<p>   </p>"}`,
		map[string]string{"movie_id": "movie-1"}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errCode(t, rr.Body); code != "EMPTY_CONTENT" {
		t.Fatalf("expected EMPTY_CONTENT, got %q", code)
	}
}

func TestCreateComment_ReplyToMissingParent(t *testing.T) {
	handler := CreateComment(newManager())

	req := setupReq(http.MethodPost, "/v1/movies/movie-1/comments",
		`{"content":"hello","parent_comment_id":"no-such-comment"}`,
		map[string]string{"movie_id": "movie-1"}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := errCode(t, rr.Body); code != "COMMENT_NOT_FOUND" {
		t.Fatalf("expected COMMENT_NOT_FOUND, got %q", code)
	}
}

func TestListMovieComments(t *testing.T) {
	m := newManager()
	root := createVia(t, m, "user-a", "top level", nil)
	createVia(t, m, "user-b", "a reply", &root.ID)

	handler := ListMovieComments(m)
	req := setupReq(http.MethodGet, "/v1/movies/movie-1/comments?page=1&limit=10", "",
		map[string]string{"movie_id": "movie-1"}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page tree.Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Count != 1 {
		t.Fatalf("expected only the top-level comment, got %+v", page)
	}
	if page.Data[0].ID != root.ID {
		t.Fatal("unexpected comment in listing")
	}
}

func TestListReplies_Flattened(t *testing.T) {
	m := newManager()
	root := createVia(t, m, "user-a", "top level", nil)
	reply := createVia(t, m, "user-b", "a reply", &root.ID)
	createVia(t, m, "user-a", "deeper", &reply.ID)

	handler := ListReplies(m)
	req := setupReq(http.MethodGet, "/v1/comments/"+root.ID+"/replies?include_nested=true", "",
		map[string]string{"comment_id": root.ID}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var page tree.Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected flattened subtree of 2, got %d", page.Total)
	}
}

func TestListReplies_ParentNotFound(t *testing.T) {
	handler := ListReplies(newManager())

	req := setupReq(http.MethodGet, "/v1/comments/no-such-comment/replies", "",
		map[string]string{"comment_id": "no-such-comment"}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestUpdateComment(t *testing.T) {
	m := newManager()
	c := createVia(t, m, "user-a", "original", nil)

	handler := UpdateComment(m)
	req := setupReq(http.MethodPut, "/v1/comments/"+c.ID, `{"content":"edited"}`,
		map[string]string{"comment_id": c.ID}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var updated tree.CommentWithAuthor
	if err := json.NewDecoder(rr.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Content != "edited" || updated.EditedAt == nil {
		t.Fatalf("expected edited comment, got %+v", updated.Comment)
	}
}

func TestUpdateComment_NotAuthor(t *testing.T) {
	m := newManager()
	c := createVia(t, m, "user-a", "original", nil)

	handler := UpdateComment(m)
	req := setupReq(http.MethodPut, "/v1/comments/"+c.ID, `{"content":"hijacked"}`,
		map[string]string{"comment_id": c.ID}, "user-b")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// The owner-scoped match hides other users' comments behind a 404.
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteComment(t *testing.T) {
	m := newManager()
	c := createVia(t, m, "user-a", "doomed", nil)

	handler := DeleteComment(m)
	req := setupReq(http.MethodDelete, "/v1/comments/"+c.ID, "",
		map[string]string{"comment_id": c.ID}, "user-a")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp deleteCommentResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Deleted {
		t.Fatal("expected deleted=true")
	}
}

func TestDeleteComment_Forbidden(t *testing.T) {
	m := newManager()
	c := createVia(t, m, "user-a", "mine", nil)

	handler := DeleteComment(m)
	req := setupReq(http.MethodDelete, "/v1/comments/"+c.ID, "",
		map[string]string{"comment_id": c.ID}, "user-b")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if code := errCode(t, rr.Body); code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %q", code)
	}
}

func TestCommentStats(t *testing.T) {
	m := newManager()
	createVia(t, m, "user-a", "one", nil)
	createVia(t, m, "user-b", "two", nil)

	handler := CommentStats(m)
	req := setupReq(http.MethodGet, "/v1/admin/comments/stats", "", nil, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp statsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected total 2, got %d", resp.Total)
	}
}

func TestCommentStats_InvalidRange(t *testing.T) {
	handler := CommentStats(newManager())

	req := setupReq(http.MethodGet, "/v1/admin/comments/stats?from=not-a-date&to=also-not", "", nil, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRecentComments(t *testing.T) {
	m := newManager()
	root := createVia(t, m, "user-a", "top", nil)
	createVia(t, m, "user-b", "reply", &root.ID)

	handler := RecentComments(m)
	req := setupReq(http.MethodGet, "/v1/admin/comments/recent?limit=5", "", nil, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Data  []tree.CommentWithAuthor `json:"data"`
		Count int                      `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("expected only the top-level comment, got %d", resp.Count)
	}
}
