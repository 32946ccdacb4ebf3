package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuemail/internal/domain"
)

const userColumns = `id, login, email, display_name, language, admin, status, no_self_notified, created_at, updated_at`

// UserRepository handles user data access operations.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id %d: %w", id, err)
	}
	return &user, nil
}

// ActiveAdmins lists the administrators allowed to approve registrations.
func (r *UserRepository) ActiveAdmins(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users
		 WHERE admin AND status = $1
		 ORDER BY id`, domain.UserStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active admins: %w", err)
	}
	return users, nil
}
