package repository

import (
	"context"
	"fmt"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// IncomeRepository handles income source database operations.
type IncomeRepository struct {
	db database.PGXDB
}

// NewIncomeRepository creates a new IncomeRepository.
func NewIncomeRepository(db database.PGXDB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

// Create adds a new income source.
func (r *IncomeRepository) Create(ctx context.Context, income *models.IncomeSource) error {
	if income.Frequency == "" {
		income.Frequency = models.FrequencyMonthly
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO income_sources (user_id, name, amount, frequency)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, income.UserID, income.Name, income.Amount, income.Frequency,
	).Scan(&income.ID, &income.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income source: %w", err)
	}
	return nil
}

// GetByUserID retrieves all income sources for a user.
func (r *IncomeRepository) GetByUserID(ctx context.Context, userID int64) ([]models.IncomeSource, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, amount, frequency, created_at
		FROM income_sources WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income sources: %w", err)
	}
	defer rows.Close()

	var sources []models.IncomeSource
	for rows.Next() {
		var src models.IncomeSource
		if err := rows.Scan(&src.ID, &src.UserID, &src.Name, &src.Amount, &src.Frequency, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan income source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income sources: %w", err)
	}
	return sources, nil
}

// Update modifies an existing income source.
func (r *IncomeRepository) Update(ctx context.Context, income *models.IncomeSource) error {
	_, err := r.db.Exec(ctx, `
		UPDATE income_sources SET name = $2, amount = $3, frequency = $4 WHERE id = $1
	`, income.ID, income.Name, income.Amount, income.Frequency)
	if err != nil {
		return fmt.Errorf("failed to update income source: %w", err)
	}
	return nil
}

// Delete removes an income source by ID.
func (r *IncomeRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM income_sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete income source: %w", err)
	}
	return nil
}
