package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"user-service/internal/auth"
	"user-service/internal/cache"
	"user-service/internal/domain"
	"user-service/internal/notify"
	"user-service/internal/repository"
	"user-service/internal/storage"
)

// TokenIssuer is satisfied by *auth.TokenCodec.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
	ExtractSubject(token string) (string, error)
}

// CredentialChecker is satisfied by *auth.IdentityResolver.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Principal, error)
}

// NotificationDispatcher is satisfied by *notify.Dispatcher.
type NotificationDispatcher interface {
	Dispatch(msg notify.Message) bool
}

// Recorder receives account lifecycle events for metrics.
type Recorder interface {
	RecordRegistration(ctx context.Context)
	RecordLogin(ctx context.Context, success bool)
}

// Registration is the outcome of a successful sign-up.
type Registration struct {
	User  *domain.User
	Token string
}

// UserService describes account lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*Registration, error)
	CreateAccount(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (string, error)
	CheckAuth(ctx context.Context, token string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*domain.User, error)
	SetProfilePicture(ctx context.Context, id int64, ref string) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	PictureURL(ctx context.Context, ref string) string
}

// Deps wires a UserService. Cache, Notifier, Storage and Metrics are optional.
type Deps struct {
	Users      repository.UserRepository
	Hasher     auth.PasswordHasher
	Tokens     TokenIssuer
	Identities CredentialChecker
	Cache      *cache.Users
	Notifier   NotificationDispatcher
	Storage    storage.Service
	KeyPrefix  string
	PresignTTL time.Duration
	Metrics    Recorder
	Logger     *logrus.Logger
}

type userService struct {
	Deps
}

func NewUserService(deps Deps) UserService {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.PresignTTL <= 0 {
		deps.PresignTTL = 15 * time.Minute
	}
	return &userService{Deps: deps}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	user, err := s.CreateAccount(ctx, in, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.Notifier != nil {
		s.Notifier.Dispatch(notify.Message{
			Kind:     notify.KindWelcome,
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			FullName: user.FullName,
		})
	}
	if s.Metrics != nil {
		s.Metrics.RecordRegistration(ctx)
	}

	s.Logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return &Registration{User: user, Token: token}, nil
}

// CreateAccount validates in and persists a new active account with role.
// Uniqueness is checked before any write.
func (s *userService) CreateAccount(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	in.normalize()
	if err := asValidationError(in.Validate()); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	if err := s.ensureUnique(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:              in.Username,
		PasswordHash:          hash,
		Email:                 in.Email,
		FullName:              in.FullName,
		Role:                  role,
		ProfilePicture:        in.ProfilePicture,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Enabled:               true,
	}
	if _, err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			// Lost a race with a concurrent registration.
			if uniqueErr := s.ensureUnique(ctx, in.Username, in.Email); uniqueErr != nil {
				return nil, uniqueErr
			}
			return nil, domain.ErrDuplicateUsername
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *userService) ensureUnique(ctx context.Context, username, email string) error {
	taken, err := s.Users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateUsername
	}

	taken, err = s.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrDuplicateEmail
	}
	return nil
}

func (s *userService) Login(ctx context.Context, in LoginInput) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := asValidationError(in.Validate()); err != nil {
		return "", err
	}

	principal, err := s.Identities.Authenticate(ctx, in.Username, in.Password)
	if s.Metrics != nil {
		s.Metrics.RecordLogin(ctx, err == nil)
	}
	if err != nil {
		return "", err
	}

	token, err := s.Tokens.Issue(&principal.User)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// CheckAuth returns the account a token was issued to. Tokens whose subject
// no longer exists are reported as invalid tokens.
func (s *userService) CheckAuth(ctx context.Context, token string) (*domain.User, error) {
	subject, err := s.Tokens.ExtractSubject(token)
	if err != nil {
		return nil, err
	}

	user, err := s.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, auth.ErrTokenInvalid
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if s.Cache != nil {
		user, err := s.Cache.Get(ctx, id, s.load)
		if err != nil {
			return nil, err
		}
		return user.Sanitized(), nil
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err)
	}
	return user.Sanitized(), nil
}

func (s *userService) load(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.User, error) {
	in.normalize()
	if err := asValidationError(in.Validate()); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != user.Email {
		owner, err := s.Users.GetByEmail(ctx, in.Email)
		switch {
		case err == nil && owner.ID != id:
			return nil, domain.ErrDuplicateEmail
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}
	}

	user.Email = in.Email
	user.FullName = in.FullName
	user.ProfilePicture = in.ProfilePicture
	return s.save(ctx, user)
}

// SetProfilePicture points the account at a stored picture reference.
func (s *userService) SetProfilePicture(ctx context.Context, id int64, ref string) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ProfilePicture = ref
	return s.save(ctx, user)
}

func (s *userService) save(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := s.Users.Update(ctx, user)
	s.invalidate(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserExists):
			return nil, domain.ErrDuplicateEmail
		default:
			return nil, notFound(err)
		}
	}
	return user.Sanitized(), nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	err := s.Users.Delete(ctx, id)
	s.invalidate(ctx, id)
	if err != nil {
		return notFound(err)
	}

	if s.Storage != nil {
		prefix := storage.UserPrefix(s.KeyPrefix, id)
		if err := s.Storage.DeletePrefix(ctx, prefix); err != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("remove profile pictures failed")
		}
	}

	s.Logger.WithField("user_id", id).Info("user deleted")
	return nil
}

// PictureURL turns a stored profile picture reference into something a
// client can fetch. It returns "" when no URL can be produced.
func (s *userService) PictureURL(ctx context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	if storage.IsExternalURL(ref) {
		return ref
	}
	if s.Storage == nil {
		return ""
	}
	key, ok := storage.ObjectKey(ref, s.Storage.Bucket())
	if !ok {
		return ""
	}
	url, err := s.Storage.PresignURL(ctx, key, s.PresignTTL)
	if err != nil {
		s.Logger.WithError(err).WithField("key", key).Warn("presign profile picture failed")
		return ""
	}
	return url
}

func (s *userService) invalidate(ctx context.Context, id int64) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, id)
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return domain.ErrNotFound
	}
	return err
}
