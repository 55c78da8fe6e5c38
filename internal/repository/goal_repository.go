package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// GoalRepository handles savings goal database operations.
type GoalRepository struct {
	db database.PGXDB
}

// NewGoalRepository creates a new GoalRepository.
func NewGoalRepository(db database.PGXDB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create adds a new goal.
func (r *GoalRepository) Create(ctx context.Context, goal *models.Goal) error {
	if goal.Status == "" {
		goal.Status = models.GoalStatusActive
	}
	if goal.PriorityLevel == 0 {
		goal.PriorityLevel = 3
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO goals (user_id, name, target_amount, current_amount, deadline, priority_level, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, goal.UserID, goal.Name, goal.TargetAmount, goal.CurrentAmount,
		goal.Deadline, goal.PriorityLevel, goal.Status,
	).Scan(&goal.ID, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// GetByID retrieves a goal by ID.
func (r *GoalRepository) GetByID(ctx context.Context, id int) (*models.Goal, error) {
	var goal models.Goal
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, priority_level, status, created_at, updated_at
		FROM goals WHERE id = $1
	`, id).Scan(&goal.ID, &goal.UserID, &goal.Name, &goal.TargetAmount, &goal.CurrentAmount,
		&goal.Deadline, &goal.PriorityLevel, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	return &goal, nil
}

// GetByUserID retrieves all goals for a user, highest priority first.
func (r *GoalRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Goal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, priority_level, status, created_at, updated_at
		FROM goals WHERE user_id = $1
		ORDER BY priority_level, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	return scanGoals(rows)
}

// GetActiveByUserID retrieves only active goals, highest priority first.
func (r *GoalRepository) GetActiveByUserID(ctx context.Context, userID int64) ([]models.Goal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, priority_level, status, created_at, updated_at
		FROM goals WHERE user_id = $1 AND status = $2
		ORDER BY priority_level, created_at
	`, userID, models.GoalStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query active goals: %w", err)
	}
	defer rows.Close()

	return scanGoals(rows)
}

// Contribute adds amount to the goal's saved total and returns the new
// total. Negative amounts withdraw.
func (r *GoalRepository) Contribute(ctx context.Context, id int, amount decimal.Decimal) (decimal.Decimal, error) {
	var current decimal.Decimal
	err := r.db.QueryRow(ctx, `
		UPDATE goals SET current_amount = current_amount + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING current_amount
	`, id, amount).Scan(&current)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to contribute to goal: %w", err)
	}
	return current, nil
}

// Update modifies an existing goal.
func (r *GoalRepository) Update(ctx context.Context, goal *models.Goal) error {
	_, err := r.db.Exec(ctx, `
		UPDATE goals SET
			name = $2,
			target_amount = $3,
			current_amount = $4,
			deadline = $5,
			priority_level = $6,
			status = $7,
			updated_at = NOW()
		WHERE id = $1
	`, goal.ID, goal.Name, goal.TargetAmount, goal.CurrentAmount,
		goal.Deadline, goal.PriorityLevel, goal.Status)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

// SetStatus changes the goal lifecycle state.
func (r *GoalRepository) SetStatus(ctx context.Context, id int, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE goals SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set goal status: %w", err)
	}
	return nil
}

// Delete removes a goal by ID.
func (r *GoalRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

func scanGoals(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.Goal, error) {
	var goals []models.Goal
	for rows.Next() {
		var goal models.Goal
		if err := rows.Scan(&goal.ID, &goal.UserID, &goal.Name, &goal.TargetAmount, &goal.CurrentAmount,
			&goal.Deadline, &goal.PriorityLevel, &goal.Status, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}
