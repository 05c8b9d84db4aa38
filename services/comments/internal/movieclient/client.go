// Package movieclient validates movie ids against the catalog service.
package movieclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Movie is the slice of the catalog record the comment engine cares about.
type Movie struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

var ErrMovieNotFound = errors.New("movie not found")

// Lookup is the movie-lookup collaborator contract.
type Lookup interface {
	GetMovie(ctx context.Context, id string) (Movie, error)
}

// HTTPLookup resolves movies over the catalog service's HTTP API.
type HTTPLookup struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPLookup(baseURL string) *HTTPLookup {
	return &HTTPLookup{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (l *HTTPLookup) GetMovie(ctx context.Context, id string) (Movie, error) {
	u := fmt.Sprintf("%s/v1/movies/%s", l.BaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Movie{}, err
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return Movie{}, fmt.Errorf("catalog lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var m Movie
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			return Movie{}, fmt.Errorf("catalog lookup decode: %w", err)
		}
		return m, nil
	case http.StatusNotFound:
		return Movie{}, ErrMovieNotFound
	default:
		return Movie{}, fmt.Errorf("catalog lookup: unexpected status %d", resp.StatusCode)
	}
}

// StaticLookup serves a fixed movie set. Development fallback and test double.
type StaticLookup struct {
	Movies map[string]Movie
}

func NewStaticLookup(movies ...Movie) *StaticLookup {
	m := make(map[string]Movie, len(movies))
	for _, mv := range movies {
		m[mv.ID] = mv
	}
	return &StaticLookup{Movies: m}
}

func (l *StaticLookup) GetMovie(_ context.Context, id string) (Movie, error) {
	m, ok := l.Movies[id]
	if !ok {
		return Movie{}, ErrMovieNotFound
	}
	return m, nil
}
