package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads author projections from the shared users table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT id, full_name, COALESCE(avatar_url, '') FROM users WHERE id = $1`
	var u User
	err := d.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.FullName, &u.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (d *PostgresDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]User, error) {
	if len(ids) == 0 {
		return map[string]User{}, nil
	}

	const q = `SELECT id, full_name, COALESCE(avatar_url, '') FROM users WHERE id = ANY($1)`
	rows, err := d.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]User, len(ids))
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FullName, &u.AvatarURL); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}
