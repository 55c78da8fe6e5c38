package repository

import (
	"context"
	"fmt"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// DependentRepository handles dependent database operations.
type DependentRepository struct {
	db database.PGXDB
}

// NewDependentRepository creates a new DependentRepository.
func NewDependentRepository(db database.PGXDB) *DependentRepository {
	return &DependentRepository{db: db}
}

// Create adds a new dependent.
func (r *DependentRepository) Create(ctx context.Context, dep *models.Dependent) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO dependents (user_id, name, relationship, monthly_cost)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, dep.UserID, dep.Name, dep.Relationship, dep.MonthlyCost,
	).Scan(&dep.ID, &dep.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dependent: %w", err)
	}
	return nil
}

// GetByUserID retrieves all dependents for a user.
func (r *DependentRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Dependent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, relationship, monthly_cost, created_at
		FROM dependents WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var deps []models.Dependent
	for rows.Next() {
		var dep models.Dependent
		if err := rows.Scan(&dep.ID, &dep.UserID, &dep.Name, &dep.Relationship, &dep.MonthlyCost, &dep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependents: %w", err)
	}
	return deps, nil
}

// Update modifies an existing dependent.
func (r *DependentRepository) Update(ctx context.Context, dep *models.Dependent) error {
	_, err := r.db.Exec(ctx, `
		UPDATE dependents SET name = $2, relationship = $3, monthly_cost = $4 WHERE id = $1
	`, dep.ID, dep.Name, dep.Relationship, dep.MonthlyCost)
	if err != nil {
		return fmt.Errorf("failed to update dependent: %w", err)
	}
	return nil
}

// Delete removes a dependent by ID.
func (r *DependentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM dependents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dependent: %w", err)
	}
	return nil
}
