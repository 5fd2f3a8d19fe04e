package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const userColumns = `id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, email, password_hash, name, role, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	user.ID = uuid.New()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err, "user")
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			email = $1,
			name = $2,
			role = $3,
			updated_at = $4
		WHERE id = $5
	`

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.Role,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return mapError(err, "user")
	}
	return expectOne(result, "user")
}

func (r *userRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET is_active = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns, active, id)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return mapError(err, "user")
	}
	return expectOne(result, "user")
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	return mapError(err, "user")
}

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	var w where
	if filters.Role != "" {
		w.add("role = $%d", filters.Role)
	}
	if filters.IsActive != nil {
		w.add("is_active = $%d", *filters.IsActive)
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY name ASC` + w.page(filters.Pagination)

	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// expectOne turns a zero-row update into NotFound.
func expectOne(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound(resource, nil)
	}
	return nil
}
