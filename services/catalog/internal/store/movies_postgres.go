package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMovieStore is the production Postgres-backed implementation.
//
// Expected schema:
//
//	movies(id uuid pk, title text, original_title text, overview text,
//	       poster_url text, genres jsonb, release_year int, runtime_min int,
//	       rating real, created_at timestamptz, updated_at timestamptz)
//	streaming_links(id uuid pk, movie_id uuid fk, provider text,
//	       quality text, url text, created_at timestamptz)
type PostgresMovieStore struct {
	db *pgxpool.Pool
}

func NewPostgresMovieStore(db *pgxpool.Pool) *PostgresMovieStore {
	return &PostgresMovieStore{db: db}
}

const movieCols = `id, title, original_title, overview, poster_url, genres, release_year, runtime_min, rating, created_at, updated_at`

func (s *PostgresMovieStore) InsertMovie(ctx context.Context, m Movie) (Movie, error) {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return Movie{}, err
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO movies (id, title, original_title, overview, poster_url, genres, release_year, runtime_min, rating, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
RETURNING `+movieCols,
		uuid.NewString(), m.Title, m.OriginalTitle, m.Overview, m.PosterURL, genres, m.ReleaseYear, m.RuntimeMin, m.Rating)
	return scanMovie(row)
}

func (s *PostgresMovieStore) GetMovie(ctx context.Context, id string) (Movie, error) {
	row := s.db.QueryRow(ctx, `SELECT `+movieCols+` FROM movies WHERE id = $1`, id)
	return scanMovie(row)
}

func (s *PostgresMovieStore) ListMovies(ctx context.Context, page, limit int) ([]Movie, int64, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(ctx, `
SELECT `+movieCols+` FROM movies
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, m)
	}
	return movies, total, rows.Err()
}

func (s *PostgresMovieStore) UpdateMovie(ctx context.Context, m Movie) (Movie, error) {
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return Movie{}, err
	}
	row := s.db.QueryRow(ctx, `
UPDATE movies
SET title = $2, original_title = $3, overview = $4, poster_url = $5,
    genres = $6, release_year = $7, runtime_min = $8, rating = $9, updated_at = now()
WHERE id = $1
RETURNING `+movieCols,
		m.ID, m.Title, m.OriginalTitle, m.Overview, m.PosterURL, genres, m.ReleaseYear, m.RuntimeMin, m.Rating)
	return scanMovie(row)
}

func (s *PostgresMovieStore) DeleteMovie(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMovieNotFound
	}
	return nil
}

func (s *PostgresMovieStore) ListLinks(ctx context.Context, movieID string) ([]StreamingLink, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, movie_id, provider, quality, url, created_at
FROM streaming_links WHERE movie_id = $1
ORDER BY provider, quality`, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []StreamingLink{}
	for rows.Next() {
		var l StreamingLink
		if err := rows.Scan(&l.ID, &l.MovieID, &l.Provider, &l.Quality, &l.URL, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *PostgresMovieStore) AddLink(ctx context.Context, l StreamingLink) (StreamingLink, error) {
	row := s.db.QueryRow(ctx, `
INSERT INTO streaming_links (id, movie_id, provider, quality, url, created_at)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING id, movie_id, provider, quality, url, created_at`,
		uuid.NewString(), l.MovieID, l.Provider, l.Quality, l.URL)

	var out StreamingLink
	err := row.Scan(&out.ID, &out.MovieID, &out.Provider, &out.Quality, &out.URL, &out.CreatedAt)
	return out, err
}

func (s *PostgresMovieStore) DeleteLink(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM streaming_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func scanMovie(row pgx.Row) (Movie, error) {
	var m Movie
	var genres []byte
	err := row.Scan(&m.ID, &m.Title, &m.OriginalTitle, &m.Overview, &m.PosterURL,
		&genres, &m.ReleaseYear, &m.RuntimeMin, &m.Rating, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movie{}, ErrMovieNotFound
		}
		return Movie{}, err
	}
	if len(genres) > 0 {
		_ = json.Unmarshal(genres, &m.Genres)
	}
	return m, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return page, limit
}
