package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryMovieStore is a development and test implementation.
type InMemoryMovieStore struct {
	mu     sync.RWMutex
	movies map[string]Movie
	links  map[string]StreamingLink
	seq    map[string]int64
	next   int64
}

func NewInMemoryMovieStore() *InMemoryMovieStore {
	return &InMemoryMovieStore{
		movies: make(map[string]Movie),
		links:  make(map[string]StreamingLink),
		seq:    make(map[string]int64),
	}
}

func (s *InMemoryMovieStore) InsertMovie(_ context.Context, m Movie) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	m.ID = uuid.NewString()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.next++
	s.seq[m.ID] = s.next
	s.movies[m.ID] = m
	return m, nil
}

func (s *InMemoryMovieStore) GetMovie(_ context.Context, id string) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrMovieNotFound
	}
	return m, nil
}

func (s *InMemoryMovieStore) ListMovies(_ context.Context, page, limit int) ([]Movie, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return s.seq[all[i].ID] > s.seq[all[j].ID]
	})

	total := int64(len(all))
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(all) {
		return []Movie{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]Movie, end-start)
	copy(out, all[start:end])
	return out, total, nil
}

func (s *InMemoryMovieStore) UpdateMovie(_ context.Context, m Movie) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.movies[m.ID]
	if !ok {
		return Movie{}, ErrMovieNotFound
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.movies[m.ID] = m
	return m, nil
}

func (s *InMemoryMovieStore) DeleteMovie(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return ErrMovieNotFound
	}
	delete(s.movies, id)
	delete(s.seq, id)
	for lid, l := range s.links {
		if l.MovieID == id {
			delete(s.links, lid)
		}
	}
	return nil
}

func (s *InMemoryMovieStore) ListLinks(_ context.Context, movieID string) ([]StreamingLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []StreamingLink{}
	for _, l := range s.links {
		if l.MovieID == movieID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Quality < out[j].Quality
	})
	return out, nil
}

func (s *InMemoryMovieStore) AddLink(_ context.Context, l StreamingLink) (StreamingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()
	s.links[l.ID] = l
	return l, nil
}

func (s *InMemoryMovieStore) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return ErrLinkNotFound
	}
	delete(s.links, id)
	return nil
}
