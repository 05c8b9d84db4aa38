package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryCommentStore is a development and test implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment // id -> comment
	seq      map[string]int64   // id -> insertion order, tie-break for equal timestamps
	nextSeq  int64
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{
		comments: make(map[string]Comment),
		seq:      make(map[string]int64),
	}
}

func (s *InMemoryCommentStore) Insert(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.ReplyCount = 0
	s.nextSeq++
	s.seq[c.ID] = s.nextSeq
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) GetByID(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) UpdateContent(_ context.Context, id, userID, content string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.UserID != userID {
		return Comment{}, ErrCommentNotFound
	}
	now := time.Now().UTC()
	c.Content = content
	c.EditedAt = &now
	c.UpdatedAt = now
	s.comments[id] = c
	return c, nil
}

func (s *InMemoryCommentStore) IncrReplyCount(_ context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	c.ReplyCount += delta
	c.UpdatedAt = time.Now().UTC()
	s.comments[id] = c
	return nil
}

func (s *InMemoryCommentStore) CountDescendants(_ context.Context, id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countDescendantsLocked(id), nil
}

func (s *InMemoryCommentStore) countDescendantsLocked(id string) int64 {
	var n int64
	for _, c := range s.comments {
		if matchesSubtree(c, id) && c.ID != id {
			n++
		}
	}
	return n
}

// matchesSubtree is the cascade predicate: direct child or root-sharing row.
func matchesSubtree(c Comment, id string) bool {
	if c.ParentID != nil && *c.ParentID == id {
		return true
	}
	return c.RootParentID != nil && *c.RootParentID == id
}

func (s *InMemoryCommentStore) DeleteSubtree(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for cid, c := range s.comments {
		if cid == id || matchesSubtree(c, id) {
			delete(s.comments, cid)
			delete(s.seq, cid)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryCommentStore) ListTopLevel(_ context.Context, movieID string, page, limit int) ([]Comment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Comment
	for _, c := range s.comments {
		if c.MovieID == movieID && c.ParentID == nil {
			all = append(all, c)
		}
	}
	s.sortNewestLocked(all)
	total := int64(len(all))
	return paginate(all, page, limit), total, nil
}

func (s *InMemoryCommentStore) ListReplies(_ context.Context, parentID string, page, limit int, includeNested bool) ([]Comment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Comment
	for _, c := range s.comments {
		direct := c.ParentID != nil && *c.ParentID == parentID
		nested := c.RootParentID != nil && *c.RootParentID == parentID && c.ID != parentID
		if direct || (includeNested && nested) {
			all = append(all, c)
		}
	}

	// Shallower levels first, newest first within a level.
	sort.Slice(all, func(i, j int) bool {
		if all[i].NestingLevel != all[j].NestingLevel {
			return all[i].NestingLevel < all[j].NestingLevel
		}
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return s.seq[all[i].ID] > s.seq[all[j].ID]
	})
	total := int64(len(all))
	return paginate(all, page, limit), total, nil
}

func (s *InMemoryCommentStore) CountAll(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.comments)), nil
}

func (s *InMemoryCommentStore) CountByDateRange(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.comments {
		if !c.CreatedAt.Before(from) && !c.CreatedAt.After(to) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryCommentStore) RecentTopLevel(_ context.Context, limit int) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Comment
	for _, c := range s.comments {
		if c.ParentID == nil {
			all = append(all, c)
		}
	}
	s.sortNewestLocked(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []Comment{}
	}
	return all, nil
}

func (s *InMemoryCommentStore) RecomputeReplyCount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return ErrCommentNotFound
	}
	c.ReplyCount = s.countDescendantsLocked(id)
	s.comments[id] = c
	return nil
}

func (s *InMemoryCommentStore) sortNewestLocked(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.After(cs[j].CreatedAt)
		}
		return s.seq[cs[i].ID] > s.seq[cs[j].ID]
	})
}

func paginate(cs []Comment, page, limit int) []Comment {
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(cs) {
		return []Comment{}
	}
	end := start + limit
	if end > len(cs) {
		end = len(cs)
	}
	out := make([]Comment, end-start)
	copy(out, cs[start:end])
	return out
}
