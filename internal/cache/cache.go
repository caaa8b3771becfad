// Package cache holds read-through caches for user records.
package cache

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"user-service/internal/domain"
)

// Backend stores sanitized user records by id.
type Backend interface {
	Get(ctx context.Context, id int64) (*domain.User, bool, error)
	Set(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

// LoadFunc fetches a user from the source of truth on a miss.
type LoadFunc func(ctx context.Context, id int64) (*domain.User, error)

// Users is a read-through, write-invalidate cache over a Backend. A fill
// that started before an invalidation is dropped, so a slow reader cannot
// resurrect a record that was updated or deleted meanwhile.
type Users struct {
	backend Backend
	logger  *logrus.Logger

	mu         sync.Mutex
	generation uint64
}

func NewUsers(backend Backend, logger *logrus.Logger) *Users {
	if logger == nil {
		logger = logrus.New()
	}
	return &Users{backend: backend, logger: logger}
}

// Get returns the cached user for id, loading and storing it on a miss.
// Backend failures degrade to calling load.
func (c *Users) Get(ctx context.Context, id int64, load LoadFunc) (*domain.User, error) {
	cached, ok, err := c.backend.Get(ctx, id)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("user cache read failed")
	} else if ok {
		return cached, nil
	}

	gen := c.currentGeneration()
	user, err := load(ctx, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen {
		if err := c.backend.Set(ctx, user.Sanitized()); err != nil {
			c.logger.WithError(err).WithField("user_id", id).Warn("user cache fill failed")
		}
	}
	return user, nil
}

// Invalidate evicts id and voids any fill that is still in flight.
func (c *Users) Invalidate(ctx context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if err := c.backend.Delete(ctx, id); err != nil {
		c.logger.WithError(err).WithField("user_id", id).Warn("user cache eviction failed")
	}
}

func (c *Users) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
