package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"user-service/internal/domain"
)

// LRU is an in-process Backend with a size bound and per-entry TTL.
type LRU struct {
	entries *expirable.LRU[int64, domain.User]
}

func NewLRU(size int, ttl time.Duration) *LRU {
	if size <= 0 {
		size = 1024
	}
	return &LRU{entries: expirable.NewLRU[int64, domain.User](size, nil, ttl)}
}

func (l *LRU) Get(_ context.Context, id int64) (*domain.User, bool, error) {
	user, ok := l.entries.Get(id)
	if !ok {
		return nil, false, nil
	}
	return &user, true, nil
}

func (l *LRU) Set(_ context.Context, user *domain.User) error {
	l.entries.Add(user.ID, *user)
	return nil
}

func (l *LRU) Delete(_ context.Context, id int64) error {
	l.entries.Remove(id)
	return nil
}

// Len reports the number of live entries.
func (l *LRU) Len() int {
	return l.entries.Len()
}

var _ Backend = (*LRU)(nil)
