package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

// UserLookup is the slice of the user store the resolver needs.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// IdentityResolver turns usernames into principals and checks login credentials.
type IdentityResolver struct {
	users  UserLookup
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewIdentityResolver(users UserLookup, hasher PasswordHasher) *IdentityResolver {
	return &IdentityResolver{users: users, hasher: hasher}
}

// Resolve performs a single store lookup by username.
func (r *IdentityResolver) Resolve(ctx context.Context, username string) (*domain.Principal, error) {
	if username == "" {
		return nil, ErrIdentityNotFound
	}
	user, err := r.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve %q: %w", username, err)
	}
	return domain.NewPrincipal(*user), nil
}

// Authenticate verifies a username/password pair. Unknown users, wrong
// passwords and inactive accounts all yield domain.ErrInvalidCredentials.
func (r *IdentityResolver) Authenticate(ctx context.Context, username, password string) (*domain.Principal, error) {
	principal, err := r.Resolve(ctx, username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			r.burnCompare(password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := r.hasher.Compare(principal.User.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !principal.User.Active() {
		return nil, domain.ErrInvalidCredentials
	}
	return principal, nil
}

// burnCompare spends one hash comparison so unknown usernames cost the same as known ones.
func (r *IdentityResolver) burnCompare(password string) {
	r.dummyOnce.Do(func() {
		hash, err := r.hasher.Hash("user-service-placeholder")
		if err == nil {
			r.dummyHash = hash
		}
	})
	if r.dummyHash != "" {
		_ = r.hasher.Compare(r.dummyHash, password)
	}
}
