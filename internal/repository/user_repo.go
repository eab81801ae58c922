package repository

import (
	"context"
	"fmt"

	"github.com/andy/billable/internal/domain"
)

// UserRepo is a SQLite implementation of UserRepository
type UserRepo struct {
	q Querier
}

// NewUserRepo creates a new UserRepo
func NewUserRepo(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

const userColumns = `id, username, email, full_name, password_hash, created_at, updated_at`

// Create inserts a new user
func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, full_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.q.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.FullName,
		user.PasswordHash,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return wrapWrite(err, "create user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

// GetByUsername retrieves a user by login name
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var createdAt, updatedAt string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return u, nil
}
