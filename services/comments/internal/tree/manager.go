// Package tree owns the threaded comment engine: a bounded-depth reply tree
// kept over the flat comment collection, with denormalized reply counters
// and overflow redirection onto the thread root.
package tree

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/events"
	"github.com/example/movie-platform/services/comments/internal/directory"
	"github.com/example/movie-platform/services/comments/internal/movieclient"
	"github.com/example/movie-platform/services/comments/internal/store"
)

// MaxNestingLevel bounds reply depth. Replies below the deepest level are
// re-parented onto the thread root instead of growing the chain.
const MaxNestingLevel = 5

// Sentinel errors
var (
	ErrEmptyContent = errors.New("comment content is empty")
	ErrForbidden    = errors.New("actor is not the comment author")
)

// Actor is the authenticated identity supplied by the auth collaborator.
type Actor struct {
	UserID string
	Role   string
	Email  string
}

// Sanitizer strips markup from raw comment text before it is stored.
type Sanitizer interface {
	Strip(raw string) string
}

// CommentWithAuthor is a comment joined with a minimal author projection.
type CommentWithAuthor struct {
	store.Comment
	Author *directory.User `json:"author,omitempty"`
}

// Page is the list envelope shared by top-level and reply queries.
type Page struct {
	Data        []CommentWithAuthor `json:"data"`
	Total       int64               `json:"total"`
	Count       int                 `json:"count"`
	HasMore     bool                `json:"has_more"`
	CurrentPage int                 `json:"current_page"`
}

// Manager coordinates all reads and writes of the comment collection.
// Counter updates are atomic per document but never span documents; the
// cross-document bookkeeping below is best-effort on the hot path and
// repaired asynchronously by the reconciliation worker.
type Manager struct {
	store  store.CommentStore
	movies movieclient.Lookup
	users  directory.UserDirectory
	san    Sanitizer
	pub    *events.Publisher
	log    *zap.Logger
}

func New(cs store.CommentStore, movies movieclient.Lookup, users directory.UserDirectory, san Sanitizer, pub *events.Publisher, log *zap.Logger) *Manager {
	return &Manager{store: cs, movies: movies, users: users, san: san, pub: pub, log: log}
}

// Create validates the movie and the author, computes the nesting placement
// for an optional parent, persists the comment and bumps the parent/root
// reply counters.
//
// Overflow redirection: replying to a comment already at MaxNestingLevel
// attaches the new comment to the thread root instead, itself reporting
// MaxNestingLevel. Depth stays bounded while reply chains stay open-ended.
func (m *Manager) Create(ctx context.Context, actor Actor, movieID, content string, parentID *string) (CommentWithAuthor, error) {
	content = strings.TrimSpace(m.san.Strip(content))
	if content == "" {
		return CommentWithAuthor{}, ErrEmptyContent
	}

	// Movie and author resolve independently; overlap the round-trips.
	movieErr := make(chan error, 1)
	go func() {
		_, err := m.movies.GetMovie(ctx, movieID)
		movieErr <- err
	}()
	author, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		<-movieErr
		return CommentWithAuthor{}, err
	}
	if err := <-movieErr; err != nil {
		return CommentWithAuthor{}, err
	}

	c := store.Comment{
		MovieID: movieID,
		UserID:  actor.UserID,
		Content: content,
	}

	if parentID != nil {
		parent, err := m.store.GetByID(ctx, *parentID)
		if err != nil {
			return CommentWithAuthor{}, err
		}

		level := parent.NestingLevel + 1
		if level > MaxNestingLevel {
			level = MaxNestingLevel
		}
		rootID := parent.ID
		if parent.RootParentID != nil {
			rootID = *parent.RootParentID
		}
		effectiveParent := parent.ID
		if level == MaxNestingLevel && parent.NestingLevel == MaxNestingLevel {
			effectiveParent = rootID
		}

		c.ParentID = &effectiveParent
		c.RootParentID = &rootID
		c.NestingLevel = level
	}

	created, err := m.store.Insert(ctx, c)
	if err != nil {
		return CommentWithAuthor{}, err
	}

	if created.ParentID != nil {
		m.bumpCounters(ctx, *created.ParentID, *created.RootParentID, 1, 1)
	}

	m.pub.Publish(events.SubjectCommentCreated, "comment_created", actor.UserID, map[string]any{
		"comment_id":     created.ID,
		"movie_id":       created.MovieID,
		"parent_id":      deref(created.ParentID),
		"root_parent_id": deref(created.RootParentID),
		"nesting_level":  created.NestingLevel,
	})

	return CommentWithAuthor{Comment: created, Author: &author}, nil
}

// Update edits the content of the actor's own comment. The {id, user_id}
// store match doubles as the ownership check; nesting fields never change.
func (m *Manager) Update(ctx context.Context, actor Actor, commentID, content string) (CommentWithAuthor, error) {
	content = strings.TrimSpace(m.san.Strip(content))
	if content == "" {
		return CommentWithAuthor{}, ErrEmptyContent
	}

	updated, err := m.store.UpdateContent(ctx, commentID, actor.UserID, content)
	if err != nil {
		return CommentWithAuthor{}, err
	}

	m.pub.Publish(events.SubjectCommentUpdated, "comment_updated", actor.UserID, map[string]any{
		"comment_id": updated.ID,
		"movie_id":   updated.MovieID,
	})

	author, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		// The write already happened; return it without the projection.
		m.log.Warn("author projection failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return CommentWithAuthor{Comment: updated}, nil
	}
	return CommentWithAuthor{Comment: updated, Author: &author}, nil
}

// Delete removes the actor's own comment and its whole subtree (direct
// children plus every row sharing it as root parent), then settles the
// parent/root counters for exactly the rows that went away.
func (m *Manager) Delete(ctx context.Context, actor Actor, commentID string) error {
	c, err := m.store.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if c.UserID != actor.UserID {
		return ErrForbidden
	}

	descendants, err := m.store.CountDescendants(ctx, commentID)
	if err != nil {
		return err
	}

	removed, err := m.store.DeleteSubtree(ctx, commentID)
	if err != nil {
		return err
	}

	if c.ParentID != nil {
		parentID, rootID := *c.ParentID, *c.RootParentID
		if parentID == rootID {
			// The parent heads the thread: it counted the comment and all
			// of its removed descendants.
			m.bumpCounters(ctx, parentID, rootID, -(descendants + 1), 0)
		} else {
			// A mid-tree parent only ever counted the comment itself;
			// the root counted the whole removed set.
			m.bumpCounters(ctx, parentID, rootID, -1, -(descendants + 1))
		}
	}

	m.pub.Publish(events.SubjectCommentDeleted, "comment_deleted", actor.UserID, map[string]any{
		"comment_id":     c.ID,
		"movie_id":       c.MovieID,
		"parent_id":      deref(c.ParentID),
		"root_parent_id": deref(c.RootParentID),
		"removed":        removed,
	})
	return nil
}

// bumpCounters issues the parent and root counter updates concurrently.
// Both are best-effort: a failed increment leaves counter drift, which is
// logged here and repaired by the reconciliation worker from the reference
// fields. The primary write is never rolled back.
func (m *Manager) bumpCounters(ctx context.Context, parentID, rootID string, parentDelta, rootDelta int64) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if rootDelta == 0 || rootID == parentID {
			return
		}
		if err := m.store.IncrReplyCount(ctx, rootID, rootDelta); err != nil {
			m.log.Warn("root reply_count update failed, counter drift until reconciled",
				zap.String("root_parent_id", rootID), zap.Int64("delta", rootDelta), zap.Error(err))
		}
	}()
	if parentDelta != 0 {
		if err := m.store.IncrReplyCount(ctx, parentID, parentDelta); err != nil {
			m.log.Warn("parent reply_count update failed, counter drift until reconciled",
				zap.String("parent_id", parentID), zap.Int64("delta", parentDelta), zap.Error(err))
		}
	}
	<-done
}

// ListTopLevel returns one page of a movie's thread heads, newest first.
func (m *Manager) ListTopLevel(ctx context.Context, movieID string, page, limit int) (Page, error) {
	if _, err := m.movies.GetMovie(ctx, movieID); err != nil {
		return Page{}, err
	}

	comments, total, err := m.store.ListTopLevel(ctx, movieID, page, limit)
	if err != nil {
		return Page{}, err
	}
	return m.buildPage(ctx, comments, total, page, limit)
}

// ListReplies returns one page of replies under a parent comment. Direct
// mode lists immediate children only; nested mode flattens the whole
// subtree under a thread root into a single list.
func (m *Manager) ListReplies(ctx context.Context, parentID, movieID string, page, limit int, includeNested bool) (Page, error) {
	parent, err := m.store.GetByID(ctx, parentID)
	if err != nil {
		return Page{}, err
	}
	if movieID != "" && parent.MovieID != movieID {
		return Page{}, store.ErrCommentNotFound
	}

	comments, total, err := m.store.ListReplies(ctx, parentID, page, limit, includeNested)
	if err != nil {
		return Page{}, err
	}
	return m.buildPage(ctx, comments, total, page, limit)
}

// CountAll reports the total number of live comments.
func (m *Manager) CountAll(ctx context.Context) (int64, error) {
	return m.store.CountAll(ctx)
}

// CountByDateRange reports comments created within [from, to].
func (m *Manager) CountByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	return m.store.CountByDateRange(ctx, from, to)
}

// RecentTopLevel returns the newest thread heads across all movies.
func (m *Manager) RecentTopLevel(ctx context.Context, limit int) ([]CommentWithAuthor, error) {
	comments, err := m.store.RecentTopLevel(ctx, limit)
	if err != nil {
		return nil, err
	}
	return m.joinAuthors(ctx, comments), nil
}

func (m *Manager) buildPage(ctx context.Context, comments []store.Comment, total int64, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	data := m.joinAuthors(ctx, comments)
	return Page{
		Data:        data,
		Total:       total,
		Count:       len(data),
		HasMore:     total > int64(page*limit),
		CurrentPage: page,
	}, nil
}

// joinAuthors batches the author projection join. A missing or failed
// lookup degrades to a comment without an author rather than failing the
// whole read.
func (m *Manager) joinAuthors(ctx context.Context, comments []store.Comment) []CommentWithAuthor {
	out := make([]CommentWithAuthor, len(comments))
	if len(comments) == 0 {
		return out
	}

	ids := make([]string, 0, len(comments))
	seen := make(map[string]struct{}, len(comments))
	for _, c := range comments {
		if _, ok := seen[c.UserID]; !ok {
			seen[c.UserID] = struct{}{}
			ids = append(ids, c.UserID)
		}
	}

	users, err := m.users.FindByIDs(ctx, ids)
	if err != nil {
		m.log.Warn("author projection join failed", zap.Int("users", len(ids)), zap.Error(err))
		users = nil
	}

	for i, c := range comments {
		out[i] = CommentWithAuthor{Comment: c}
		if u, ok := users[c.UserID]; ok {
			out[i].Author = &u
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
