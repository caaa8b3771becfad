package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"user-service/internal/domain"
)

// Redis is a Backend shared between service instances.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "usersvc"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

type cachedUser struct {
	ID                    int64     `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	FullName              string    `json:"fullName"`
	Role                  string    `json:"role"`
	ProfilePicture        string    `json:"profilePicture,omitempty"`
	AccountNonExpired     bool      `json:"accountNonExpired"`
	AccountNonLocked      bool      `json:"accountNonLocked"`
	CredentialsNonExpired bool      `json:"credentialsNonExpired"`
	Enabled               bool      `json:"enabled"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (r *Redis) key(id int64) string {
	return r.prefix + ":user:" + strconv.FormatInt(id, 10)
}

func (r *Redis) Get(ctx context.Context, id int64) (*domain.User, bool, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry cachedUser
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached user: %w", err)
	}
	return &domain.User{
		ID:                    entry.ID,
		Username:              entry.Username,
		Email:                 entry.Email,
		FullName:              entry.FullName,
		Role:                  domain.Role(entry.Role),
		ProfilePicture:        entry.ProfilePicture,
		AccountNonExpired:     entry.AccountNonExpired,
		AccountNonLocked:      entry.AccountNonLocked,
		CredentialsNonExpired: entry.CredentialsNonExpired,
		Enabled:               entry.Enabled,
		CreatedAt:             entry.CreatedAt,
		UpdatedAt:             entry.UpdatedAt,
	}, true, nil
}

func (r *Redis) Set(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(cachedUser{
		ID:                    user.ID,
		Username:              user.Username,
		Email:                 user.Email,
		FullName:              user.FullName,
		Role:                  string(user.Role),
		ProfilePicture:        user.ProfilePicture,
		AccountNonExpired:     user.AccountNonExpired,
		AccountNonLocked:      user.AccountNonLocked,
		CredentialsNonExpired: user.CredentialsNonExpired,
		Enabled:               user.Enabled,
		CreatedAt:             user.CreatedAt,
		UpdatedAt:             user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode cached user: %w", err)
	}
	if err := r.client.Set(ctx, r.key(user.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id int64) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ Backend = (*Redis)(nil)
