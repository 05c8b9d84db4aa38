package directory

import (
	"context"
	"sync"
)

// InMemoryDirectory is a development and test implementation.
type InMemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{users: make(map[string]User)}
}

// Put registers a user. Useful for seeding tests and dev environments.
func (d *InMemoryDirectory) Put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *InMemoryDirectory) FindByID(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (d *InMemoryDirectory) FindByIDs(_ context.Context, ids []string) (map[string]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]User, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}
