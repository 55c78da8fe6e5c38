package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/finance"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// BudgetRepository handles monthly budget database operations.
type BudgetRepository struct {
	db database.PGXDB
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(db database.PGXDB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// GetOrCreate returns the budget row for a user month, creating an
// empty one on first access. Allocations and spending are not loaded;
// use GetByUserAndMonth for the composed view.
func (r *BudgetRepository) GetOrCreate(ctx context.Context, userID int64, year, month int) (*models.Budget, error) {
	b := models.Budget{UserID: userID, Year: year, Month: month}
	// The no-op DO UPDATE makes RETURNING fire on conflict too.
	err := r.db.QueryRow(ctx, `
		INSERT INTO budgets (user_id, year, month)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, year, month) DO UPDATE SET updated_at = budgets.updated_at
		RETURNING id, total_income, savings_target, savings_actual, emergency_buffer, created_at, updated_at
	`, userID, year, month).Scan(&b.ID, &b.TotalIncome, &b.SavingsTarget, &b.SavingsActual,
		&b.EmergencyBuffer, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create budget: %w", err)
	}
	return &b, nil
}

// UpdateFinancials writes the income, savings and buffer figures.
func (r *BudgetRepository) UpdateFinancials(ctx context.Context, b *models.Budget) error {
	_, err := r.db.Exec(ctx, `
		UPDATE budgets SET
			total_income = $2,
			savings_target = $3,
			savings_actual = $4,
			emergency_buffer = $5,
			updated_at = NOW()
		WHERE id = $1
	`, b.ID, b.TotalIncome, b.SavingsTarget, b.SavingsActual, b.EmergencyBuffer)
	if err != nil {
		return fmt.Errorf("failed to update budget financials: %w", err)
	}
	return nil
}

// SetAllocation creates or replaces the allocation for one category.
func (r *BudgetRepository) SetAllocation(ctx context.Context, budgetID, categoryID int, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO budget_allocations (budget_id, category_id, allocated_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (budget_id, category_id) DO UPDATE SET allocated_amount = EXCLUDED.allocated_amount
	`, budgetID, categoryID, amount)
	if err != nil {
		return fmt.Errorf("failed to set allocation: %w", err)
	}
	return nil
}

// RemoveAllocation drops the allocation for one category.
func (r *BudgetRepository) RemoveAllocation(ctx context.Context, budgetID, categoryID int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM budget_allocations WHERE budget_id = $1 AND category_id = $2
	`, budgetID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to remove allocation: %w", err)
	}
	return nil
}

// ClearAllocations drops every allocation of a budget. Combined with
// SetAllocation inside a transaction it replaces the whole plan.
func (r *BudgetRepository) ClearAllocations(ctx context.Context, budgetID int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM budget_allocations WHERE budget_id = $1`, budgetID)
	if err != nil {
		return fmt.Errorf("failed to clear allocations: %w", err)
	}
	return nil
}

// GetByUserAndMonth loads the fully composed budget for a user month:
// the stored figures, each allocation joined with its category and the
// month's spending in that category, the overall month spending, and
// the day counts relative to now. The composition is assembled fresh on
// every call and never written back.
func (r *BudgetRepository) GetByUserAndMonth(
	ctx context.Context,
	userID int64,
	year, month int,
	now time.Time,
) (*models.Budget, error) {
	b := models.Budget{UserID: userID, Year: year, Month: month}
	err := r.db.QueryRow(ctx, `
		SELECT id, total_income, savings_target, savings_actual, emergency_buffer, created_at, updated_at
		FROM budgets WHERE user_id = $1 AND year = $2 AND month = $3
	`, userID, year, month).Scan(&b.ID, &b.TotalIncome, &b.SavingsTarget, &b.SavingsActual,
		&b.EmergencyBuffer, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.budget_id, a.category_id, c.name, c.icon, c.color, c.is_essential,
		       a.allocated_amount,
		       COALESCE((
		           SELECT SUM(e.amount) FROM expenses e
		           WHERE e.user_id = $2 AND e.category_id = a.category_id
		             AND e.spent_at >= $3 AND e.spent_at < $4
		       ), 0)
		FROM budget_allocations a
		JOIN categories c ON a.category_id = c.id
		WHERE a.budget_id = $1
		ORDER BY c.is_essential DESC, c.name
	`, b.ID, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.BudgetAllocation
		if err := rows.Scan(&a.ID, &a.BudgetID, &a.CategoryID, &a.CategoryName,
			&a.Icon, &a.Color, &a.IsEssential, &a.AllocatedAmount, &a.SpentAmount); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		b.TotalAllocated = b.TotalAllocated.Add(a.AllocatedAmount)
		b.Allocations = append(b.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocations: %w", err)
	}

	// Whole-month spending, allocated categories or not.
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND spent_at >= $2 AND spent_at < $3
	`, userID, monthStart, monthEnd).Scan(&b.TotalSpent)
	if err != nil {
		return nil, fmt.Errorf("failed to sum month spending: %w", err)
	}

	b.DaysElapsed, b.DaysRemaining, b.TotalDays = finance.MonthTimeline(year, month, now)
	return &b, nil
}
