// Package storage persists manual posts and the identity keys of items that
// have already been published.
package storage

import (
	"context"
	"errors"

	"feedkeeper/internal/model"
)

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]model.Post, error)

	MarkSeen(ctx context.Context, keys ...string) error
	SeenKeys(ctx context.Context) ([]string, error)

	Close() error
}
