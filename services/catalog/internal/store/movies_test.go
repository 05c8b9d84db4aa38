package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	_ MovieStore = (*InMemoryMovieStore)(nil)
	_ MovieStore = (*PostgresMovieStore)(nil)
)

func TestInsertAndGetMovie(t *testing.T) {
	s := NewInMemoryMovieStore()
	ctx := context.Background()

	m, err := s.InsertMovie(ctx, Movie{Title: "Heat", ReleaseYear: 1995, Genres: []string{"crime", "thriller"}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamps, got %+v", m)
	}

	got, err := s.GetMovie(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Heat" || len(got.Genres) != 2 {
		t.Fatalf("unexpected movie: %+v", got)
	}

	if _, err := s.GetMovie(ctx, "missing"); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestListMovies_Pagination(t *testing.T) {
	s := NewInMemoryMovieStore()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"Alien", "Blade Runner", "Contact"} {
		m, err := s.InsertMovie(ctx, Movie{Title: title})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, m.ID)
		time.Sleep(time.Millisecond)
	}

	page, total, err := s.ListMovies(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Fatalf("expected total 3, page of 2, got total=%d len=%d", total, len(page))
	}
	if page[0].ID != ids[2] {
		t.Fatal("expected newest first")
	}

	page, _, _ = s.ListMovies(ctx, 2, 2)
	if len(page) != 1 || page[0].ID != ids[0] {
		t.Fatalf("unexpected last page: %+v", page)
	}
}

func TestUpdateMovie(t *testing.T) {
	s := NewInMemoryMovieStore()
	ctx := context.Background()

	m, _ := s.InsertMovie(ctx, Movie{Title: "Drafts"})

	m.Title = "Final Cut"
	updated, err := s.UpdateMovie(ctx, m)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Final Cut" {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if !updated.CreatedAt.Equal(m.CreatedAt) {
		t.Fatal("created_at must not change on update")
	}

	if _, err := s.UpdateMovie(ctx, Movie{ID: "missing"}); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestDeleteMovie_CascadesLinks(t *testing.T) {
	s := NewInMemoryMovieStore()
	ctx := context.Background()

	m, _ := s.InsertMovie(ctx, Movie{Title: "Doomed"})
	_, _ = s.AddLink(ctx, StreamingLink{MovieID: m.ID, Provider: "acme", URL: "https://cdn.acme.test/doomed.m3u8"})

	if err := s.DeleteMovie(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	links, err := s.ListLinks(ctx, m.ID)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected links removed with the movie, got %d", len(links))
	}

	if err := s.DeleteMovie(ctx, m.ID); !errors.Is(err, ErrMovieNotFound) {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestLinks(t *testing.T) {
	s := NewInMemoryMovieStore()
	ctx := context.Background()

	m, _ := s.InsertMovie(ctx, Movie{Title: "Linked"})

	l, err := s.AddLink(ctx, StreamingLink{MovieID: m.ID, Provider: "acme", Quality: "1080p", URL: "https://cdn.acme.test/a.m3u8"})
	if err != nil {
		t.Fatalf("add link: %v", err)
	}
	_, _ = s.AddLink(ctx, StreamingLink{MovieID: m.ID, Provider: "acme", Quality: "720p", URL: "https://cdn.acme.test/b.m3u8"})

	links, err := s.ListLinks(ctx, m.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0].Quality > links[1].Quality {
		t.Fatal("expected quality-sorted links within a provider")
	}

	if err := s.DeleteLink(ctx, l.ID); err != nil {
		t.Fatalf("delete link: %v", err)
	}
	if err := s.DeleteLink(ctx, l.ID); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}
