// Package directory resolves commenter identities. The comment engine only
// needs a minimal author projection; the full user profile lives with the
// out-of-scope account system.
package directory

import (
	"context"
	"errors"
)

// User is the minimal author projection joined onto returned comments.
type User struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

var ErrUserNotFound = errors.New("user not found")

// UserDirectory is the user-lookup collaborator contract.
type UserDirectory interface {
	// FindByID resolves a single user or fails with ErrUserNotFound.
	FindByID(ctx context.Context, id string) (User, error)
	// FindByIDs resolves a batch; unknown ids are simply absent from the
	// result, they do not fail the call.
	FindByIDs(ctx context.Context, ids []string) (map[string]User, error)
}
