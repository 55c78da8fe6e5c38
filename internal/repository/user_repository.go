package repository

import (
	"context"
	"fmt"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// UserRepository handles account database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account. The unique index on email surfaces as
// an error for duplicate registrations.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, display_name, default_currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, user.Email, user.PasswordHash, user.DisplayName, user.DefaultCurrency,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, default_currency, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.DefaultCurrency, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, default_currency, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName,
		&user.DefaultCurrency, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the display name and default currency.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, displayName, defaultCurrency string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET
			display_name = $2,
			default_currency = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, displayName, defaultCurrency)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

// UpdateDefaultCurrency changes only the default currency.
func (r *UserRepository) UpdateDefaultCurrency(ctx context.Context, id int64, currency string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET default_currency = $2, updated_at = NOW() WHERE id = $1
	`, id, currency)
	if err != nil {
		return fmt.Errorf("failed to update default currency: %w", err)
	}
	return nil
}

// GetDefaultCurrency returns the user's default currency code.
func (r *UserRepository) GetDefaultCurrency(ctx context.Context, id int64) (string, error) {
	var currency string
	err := r.db.QueryRow(ctx, `
		SELECT default_currency FROM users WHERE id = $1
	`, id).Scan(&currency)
	if err != nil {
		return "", fmt.Errorf("failed to get default currency: %w", err)
	}
	return currency, nil
}
