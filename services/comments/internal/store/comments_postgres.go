package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCommentStore persists the flat comment collection in Postgres.
type PostgresCommentStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCommentStore creates a store backed by Postgres.
func NewPostgresCommentStore(pool *pgxpool.Pool) *PostgresCommentStore {
	return &PostgresCommentStore{pool: pool}
}

const commentCols = `id, movie_id, user_id, content, parent_id, root_parent_id,
	nesting_level, reply_count, edited_at, created_at, updated_at`

func (s *PostgresCommentStore) Insert(ctx context.Context, c Comment) (Comment, error) {
	const q = `INSERT INTO comments
	           (id, movie_id, user_id, content, parent_id, root_parent_id, nesting_level)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)
	           RETURNING ` + commentCols
	row := s.pool.QueryRow(ctx, q,
		uuid.NewString(), c.MovieID, c.UserID, c.Content, c.ParentID, c.RootParentID, c.NestingLevel)
	return scanComment(row)
}

func (s *PostgresCommentStore) GetByID(ctx context.Context, id string) (Comment, error) {
	const q = `SELECT ` + commentCols + ` FROM comments WHERE id = $1`
	c, err := scanComment(s.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrCommentNotFound
	}
	return c, err
}

func (s *PostgresCommentStore) UpdateContent(ctx context.Context, id, userID, content string) (Comment, error) {
	const q = `UPDATE comments SET content = $3, edited_at = now(), updated_at = now()
	           WHERE id = $1 AND user_id = $2
	           RETURNING ` + commentCols
	c, err := scanComment(s.pool.QueryRow(ctx, q, id, userID, content))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, ErrCommentNotFound
	}
	return c, err
}

func (s *PostgresCommentStore) IncrReplyCount(ctx context.Context, id string, delta int64) error {
	const q = `UPDATE comments SET reply_count = reply_count + $2, updated_at = now() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *PostgresCommentStore) CountDescendants(ctx context.Context, id string) (int64, error) {
	const q = `SELECT count(*) FROM comments
	           WHERE parent_id = $1 OR (root_parent_id = $1 AND id <> $1)`
	var n int64
	err := s.pool.QueryRow(ctx, q, id).Scan(&n)
	return n, err
}

func (s *PostgresCommentStore) DeleteSubtree(ctx context.Context, id string) (int64, error) {
	const q = `DELETE FROM comments WHERE id = $1 OR parent_id = $1 OR root_parent_id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresCommentStore) ListTopLevel(ctx context.Context, movieID string, page, limit int) ([]Comment, int64, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	const countQ = `SELECT count(*) FROM comments WHERE movie_id = $1 AND parent_id IS NULL`
	if err := s.pool.QueryRow(ctx, countQ, movieID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT ` + commentCols + ` FROM comments
	           WHERE movie_id = $1 AND parent_id IS NULL
	           ORDER BY created_at DESC, id DESC
	           LIMIT $2 OFFSET $3`
	out, err := s.scanComments(ctx, q, movieID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) ListReplies(ctx context.Context, parentID string, page, limit int, includeNested bool) ([]Comment, int64, error) {
	page, limit = normalizePage(page, limit)

	where := `parent_id = $1`
	if includeNested {
		where = `parent_id = $1 OR (root_parent_id = $1 AND id <> $1)`
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE `+where, parentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + commentCols + ` FROM comments WHERE ` + where + `
	      ORDER BY nesting_level ASC, created_at DESC, id DESC
	      LIMIT $2 OFFSET $3`
	out, err := s.scanComments(ctx, q, parentID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *PostgresCommentStore) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM comments`).Scan(&n)
	return n, err
}

func (s *PostgresCommentStore) CountByDateRange(ctx context.Context, from, to time.Time) (int64, error) {
	const q = `SELECT count(*) FROM comments WHERE created_at >= $1 AND created_at <= $2`
	var n int64
	err := s.pool.QueryRow(ctx, q, from, to).Scan(&n)
	return n, err
}

func (s *PostgresCommentStore) RecentTopLevel(ctx context.Context, limit int) ([]Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	const q = `SELECT ` + commentCols + ` FROM comments
	           WHERE parent_id IS NULL
	           ORDER BY created_at DESC, id DESC
	           LIMIT $1`
	return s.scanComments(ctx, q, limit)
}

func (s *PostgresCommentStore) RecomputeReplyCount(ctx context.Context, id string) error {
	const q = `UPDATE comments SET reply_count =
	           (SELECT count(*) FROM comments c
	            WHERE c.parent_id = comments.id
	               OR (c.root_parent_id = comments.id AND c.id <> comments.id))
	           WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *PostgresCommentStore) scanComments(ctx context.Context, q string, args ...any) ([]Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.MovieID, &c.UserID, &c.Content, &c.ParentID, &c.RootParentID,
		&c.NestingLevel, &c.ReplyCount, &c.EditedAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return page, limit
}
