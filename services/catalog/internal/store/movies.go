package store

import (
	"context"
	"errors"
	"time"
)

// ErrMovieNotFound is returned for reads and writes against an unknown
// movie id.
var ErrMovieNotFound = errors.New("movie not found")

// ErrLinkNotFound is returned for writes against an unknown streaming link.
var ErrLinkNotFound = errors.New("streaming link not found")

// Movie is the internal catalog representation of a title.
type Movie struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title,omitempty"`
	Overview      string    `json:"overview,omitempty"`
	PosterURL     string    `json:"poster_url,omitempty"`
	Genres        []string  `json:"genres,omitempty"`
	ReleaseYear   int32     `json:"release_year,omitempty"`
	RuntimeMin    int32     `json:"runtime_min,omitempty"`
	Rating        float32   `json:"rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StreamingLink is a playback source attached to a movie. The raw URL is
// never served directly; handlers wrap it in a signed playback URL.
type StreamingLink struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movie_id"`
	Provider  string    `json:"provider"`
	Quality   string    `json:"quality,omitempty"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// MovieStore defines all persistence operations for the catalog service.
type MovieStore interface {
	InsertMovie(ctx context.Context, m Movie) (Movie, error)
	GetMovie(ctx context.Context, id string) (Movie, error)
	ListMovies(ctx context.Context, page, limit int) ([]Movie, int64, error)
	UpdateMovie(ctx context.Context, m Movie) (Movie, error)
	DeleteMovie(ctx context.Context, id string) error

	ListLinks(ctx context.Context, movieID string) ([]StreamingLink, error)
	AddLink(ctx context.Context, l StreamingLink) (StreamingLink, error)
	DeleteLink(ctx context.Context, id string) error
}
