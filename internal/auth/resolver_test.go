package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

type stubLookup struct {
	users map[string]*domain.User
	err   error
	calls atomic.Int32
}

func (s *stubLookup) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

type countingHasher struct {
	PasswordHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, password string) error {
	h.compares.Add(1)
	return h.PasswordHasher.Compare(hash, password)
}

func activeUser(t *testing.T, hasher PasswordHasher, username, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	require.NoError(t, err)
	return &domain.User{
		ID:                    1,
		Username:              username,
		PasswordHash:          hash,
		Role:                  role,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Enabled:               true,
	}
}

func TestResolve(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	lookup := &stubLookup{users: map[string]*domain.User{
		"alice": activeUser(t, hasher, "alice", "password1", domain.RoleAdmin),
	}}
	resolver := NewIdentityResolver(lookup, hasher)

	principal, err := resolver.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username())
	assert.True(t, principal.Can(domain.Capability(domain.RoleAdmin)))
	assert.Equal(t, int32(1), lookup.calls.Load())

	_, err = resolver.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	_, err = resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	boom := errors.New("disk gone")
	resolver := NewIdentityResolver(&stubLookup{err: boom}, NewBcryptHasher(bcrypt.MinCost))

	_, err := resolver.Resolve(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrIdentityNotFound)
}

func TestAuthenticate(t *testing.T) {
	hasher := &countingHasher{PasswordHasher: NewBcryptHasher(bcrypt.MinCost)}
	locked := activeUser(t, hasher, "bob", "password2", domain.RoleUser)
	locked.AccountNonLocked = false

	lookup := &stubLookup{users: map[string]*domain.User{
		"alice": activeUser(t, hasher, "alice", "password1", domain.RoleUser),
		"bob":   locked,
	}}
	resolver := NewIdentityResolver(lookup, hasher)
	ctx := context.Background()

	principal, err := resolver.Authenticate(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.Username())

	_, err = resolver.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = resolver.Authenticate(ctx, "bob", "password2")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	before := hasher.compares.Load()
	_, err = resolver.Authenticate(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, before+1, hasher.compares.Load(), "unknown users still pay for one comparison")
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)

	assert.NoError(t, hasher.Compare(hash, "secret"))
	assert.ErrorIs(t, hasher.Compare(hash, "other"), ErrInvalidPassword)
	assert.Error(t, hasher.Compare("not-a-hash", "secret"))
}
