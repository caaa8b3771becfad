package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"user-service/internal/domain"
	"user-service/internal/repository"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                    int64     `bun:"id,pk,autoincrement"`
	Username              string    `bun:"username,notnull,unique"`
	PasswordHash          string    `bun:"password_hash,notnull"`
	Email                 string    `bun:"email,notnull,unique"`
	FullName              string    `bun:"full_name,notnull"`
	Role                  string    `bun:"role,notnull"`
	ProfilePicture        string    `bun:"profile_picture,notnull"`
	AccountNonExpired     bool      `bun:"account_non_expired,notnull"`
	AccountNonLocked      bool      `bun:"account_non_locked,notnull"`
	CredentialsNonExpired bool      `bun:"credentials_non_expired,notnull"`
	Enabled               bool      `bun:"enabled,notnull"`
	CreatedAt             time.Time `bun:"created_at,notnull"`
	UpdatedAt             time.Time `bun:"updated_at,notnull"`
}

// UserRepository implements repository.UserRepository using bun.
type UserRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().
		Model((*userModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	model := toModel(user)
	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrUserExists)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	user.ID = model.ID
	return model.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getWhere(ctx, "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getWhere(ctx, "email = ?", email)
}

func (r *UserRepository) getWhere(ctx context.Context, query string, arg any) (*domain.User, error) {
	model := new(userModel)
	err := r.db.NewSelect().
		Model(model).
		Where(query, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return model.toDomain(), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *UserRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	found, err := r.db.NewSelect().
		Model((*userModel)(nil)).
		Where(query, arg).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return found, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var models []userModel
	if err := r.db.NewSelect().
		Model(&models).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, *models[i].toDomain())
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	model := toModel(user)
	res, err := r.db.NewUpdate().
		Model(model).
		Column("email", "full_name", "role", "profile_picture", "password_hash",
			"account_non_expired", "account_non_locked", "credentials_non_expired", "enabled",
			"updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %d: %w", user.ID, repository.ErrUserExists)
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return requireAffected(res, user.ID)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*userModel)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user %d rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("user %d: %w", id, repository.ErrUserNotFound)
	}
	return nil
}

// isUniqueViolation recognises unique_violation (23505) from postgres and the
// constraint message other drivers surface.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}

func toModel(user *domain.User) *userModel {
	return &userModel{
		ID:                    user.ID,
		Username:              user.Username,
		PasswordHash:          user.PasswordHash,
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
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:                    m.ID,
		Username:              m.Username,
		PasswordHash:          m.PasswordHash,
		Email:                 m.Email,
		FullName:              m.FullName,
		Role:                  domain.Role(m.Role),
		ProfilePicture:        m.ProfilePicture,
		AccountNonExpired:     m.AccountNonExpired,
		AccountNonLocked:      m.AccountNonLocked,
		CredentialsNonExpired: m.CredentialsNonExpired,
		Enabled:               m.Enabled,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
