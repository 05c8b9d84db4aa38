package store

import (
	"context"
	"errors"
	"time"
)

// Comment is a single row of the flat comments collection. Nesting is never
// physical; it is encoded entirely by ParentID and RootParentID.
type Comment struct {
	ID           string     `json:"id"`
	MovieID      string     `json:"movie_id"`
	UserID       string     `json:"user_id"`
	Content      string     `json:"content"`
	ParentID     *string    `json:"parent_id,omitempty"`
	RootParentID *string    `json:"root_parent_id,omitempty"`
	NestingLevel int        `json:"nesting_level"`
	ReplyCount   int64      `json:"reply_count"`
	EditedAt     *time.Time `json:"edited_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TopLevel reports whether the comment heads a thread.
// ParentID == nil, RootParentID == nil and NestingLevel == 0 always agree.
func (c Comment) TopLevel() bool {
	return c.ParentID == nil
}

// Sentinel errors
var (
	// ErrCommentNotFound covers both a missing row and, on owner-scoped
	// updates, a row owned by someone else (the {id, user_id} match doubles
	// as the ownership check).
	ErrCommentNotFound = errors.New("comment not found")
)

// CommentStore defines the document-store primitives the tree manager is
// built on. Implementations provide per-row write atomicity (including
// atomic field-level increments) but no multi-row transactions; the manager
// owns all cross-row bookkeeping.
//
// Required indexes for the Postgres backend:
//
//	(movie_id, parent_id, created_at DESC)  top-level listing
//	(parent_id)                             reply listing, cascade
//	(root_parent_id)                        flattened listing, cascade
type CommentStore interface {
	Insert(ctx context.Context, c Comment) (Comment, error)
	GetByID(ctx context.Context, id string) (Comment, error)
	UpdateContent(ctx context.Context, id, userID, content string) (Comment, error)

	// IncrReplyCount adjusts reply_count by delta as an atomic field-level
	// increment. Negative deltas decrement.
	IncrReplyCount(ctx context.Context, id string, delta int64) error

	// CountDescendants counts the other rows with parent_id == id or
	// root_parent_id == id. Every live descendant of a top-level comment
	// matches exactly once.
	CountDescendants(ctx context.Context, id string) (int64, error)

	// DeleteSubtree removes the comment plus all rows with parent_id == id
	// or root_parent_id == id, returning the number of rows removed.
	DeleteSubtree(ctx context.Context, id string) (int64, error)

	ListTopLevel(ctx context.Context, movieID string, page, limit int) ([]Comment, int64, error)
	ListReplies(ctx context.Context, parentID string, page, limit int, includeNested bool) ([]Comment, int64, error)

	// Reporting helpers
	CountAll(ctx context.Context) (int64, error)
	CountByDateRange(ctx context.Context, from, to time.Time) (int64, error)
	RecentTopLevel(ctx context.Context, limit int) ([]Comment, error)

	// RecomputeReplyCount rederives reply_count from the reference fields.
	// Used by the reconciliation worker to repair counter drift.
	RecomputeReplyCount(ctx context.Context, id string) error
}
