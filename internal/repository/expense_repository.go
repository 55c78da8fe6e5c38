package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Pool returns the underlying database pool. Used for testing.
func (r *ExpenseRepository) Pool() database.PGXDB {
	return r.db
}

// expenseColumns is the e.* column list shared by every expense query.
const expenseColumns = `e.id, e.user_expense_number, e.user_id, e.amount, e.currency, e.description, e.merchant,
	       e.category_id, e.emotion, e.was_planned, e.is_necessity, e.is_recurring,
	       e.spent_at, e.created_at, e.updated_at`

// Create adds a new expense. The per-user number is assigned inside the
// insert; the unique constraint on (user_id, user_expense_number) turns
// a concurrent collision into an error instead of a duplicate.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_expense_number, user_id, amount, currency, description, merchant,
			category_id, emotion, was_planned, is_necessity, is_recurring, spent_at)
		VALUES (
			(SELECT COALESCE(MAX(user_expense_number), 0) + 1 FROM expenses WHERE user_id = $1),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, user_expense_number, created_at, updated_at
	`, expense.UserID, expense.Amount, expense.Currency, expense.Description, expense.Merchant,
		expense.CategoryID, expense.Emotion, expense.WasPlanned, expense.IsNecessity,
		expense.IsRecurring, expense.SpentAt,
	).Scan(&expense.ID, &expense.UserExpenseNumber, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int) (*models.Expense, error) {
	var exp models.Expense
	err := r.db.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e WHERE e.id = $1
	`, id).Scan(&exp.ID, &exp.UserExpenseNumber, &exp.UserID, &exp.Amount, &exp.Currency,
		&exp.Description, &exp.Merchant, &exp.CategoryID, &exp.Emotion,
		&exp.WasPlanned, &exp.IsNecessity, &exp.IsRecurring,
		&exp.SpentAt, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &exp, nil
}

// GetByUserAndNumber retrieves an expense by user ID and per-user expense number.
func (r *ExpenseRepository) GetByUserAndNumber(ctx context.Context, userID int64, number int64) (*models.Expense, error) {
	var exp models.Expense
	err := r.db.QueryRow(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses e WHERE e.user_id = $1 AND e.user_expense_number = $2
	`, userID, number).Scan(&exp.ID, &exp.UserExpenseNumber, &exp.UserID, &exp.Amount, &exp.Currency,
		&exp.Description, &exp.Merchant, &exp.CategoryID, &exp.Emotion,
		&exp.WasPlanned, &exp.IsNecessity, &exp.IsRecurring,
		&exp.SpentAt, &exp.CreatedAt, &exp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense by user number: %w", err)
	}
	return &exp, nil
}

// GetByUserID retrieves the most recent expenses for a user.
func (r *ExpenseRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`,
		       c.id, c.name, c.icon, c.color, c.is_essential, c.created_at
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1
		ORDER BY e.spent_at DESC, e.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// GetByUserIDAndDateRange retrieves expenses for a user whose spend date
// falls within [startDate, endDate]. Both ends are inclusive.
func (r *ExpenseRepository) GetByUserIDAndDateRange(
	ctx context.Context,
	userID int64,
	startDate, endDate time.Time,
) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`,
		       c.id, c.name, c.icon, c.color, c.is_essential, c.created_at
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1 AND e.spent_at >= $2 AND e.spent_at <= $3
		ORDER BY e.spent_at DESC, e.id DESC
	`, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// GetByUserIDAndCategory retrieves expenses for a user filtered by category.
func (r *ExpenseRepository) GetByUserIDAndCategory(
	ctx context.Context,
	userID int64,
	categoryID int,
	limit int,
) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+`,
		       c.id, c.name, c.icon, c.color, c.is_essential, c.created_at
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1 AND e.category_id = $2
		ORDER BY e.spent_at DESC, e.id DESC
		LIMIT $3
	`, userID, categoryID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by category: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// GetTotalByUserIDAndCategory calculates total spending in a category.
func (r *ExpenseRepository) GetTotalByUserIDAndCategory(
	ctx context.Context,
	userID int64,
	categoryID int,
) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND category_id = $2
	`, userID, categoryID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get total by category: %w", err)
	}
	return total, nil
}

// GetTotalByUserIDAndDateRange calculates total spending within
// [startDate, endDate], both ends inclusive.
func (r *ExpenseRepository) GetTotalByUserIDAndDateRange(
	ctx context.Context,
	userID int64,
	startDate, endDate time.Time,
) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM expenses
		WHERE user_id = $1 AND spent_at >= $2 AND spent_at <= $3
	`, userID, startDate, endDate).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get total: %w", err)
	}
	return total, nil
}

// CategoryTotal is a per-category spending aggregate. CategoryID is nil
// for uncategorized spending.
type CategoryTotal struct {
	CategoryID  *int
	Name        string
	Icon        string
	Color       string
	IsEssential bool
	Total       decimal.Decimal
}

// GetCategoryTotals aggregates spending per category within
// [startDate, endDate]. Uncategorized expenses come back as a single
// row with a nil CategoryID, counted as non-essential.
func (r *ExpenseRepository) GetCategoryTotals(
	ctx context.Context,
	userID int64,
	startDate, endDate time.Time,
) ([]CategoryTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.category_id,
		       COALESCE(c.name, ''), COALESCE(c.icon, ''), COALESCE(c.color, ''),
		       COALESCE(c.is_essential, FALSE),
		       SUM(e.amount)
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1 AND e.spent_at >= $2 AND e.spent_at <= $3
		GROUP BY e.category_id, c.name, c.icon, c.color, c.is_essential
		ORDER BY SUM(e.amount) DESC
	`, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.Name, &ct.Icon, &ct.Color, &ct.IsEssential, &ct.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}
	return totals, nil
}

// EmotionSummary counts tagged spending per emotion.
type EmotionSummary struct {
	Emotion string
	Count   int
	Total   decimal.Decimal
}

// GetEmotionSummary aggregates emotion-tagged spending within
// [startDate, endDate]. Untagged expenses are excluded.
func (r *ExpenseRepository) GetEmotionSummary(
	ctx context.Context,
	userID int64,
	startDate, endDate time.Time,
) ([]EmotionSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT emotion, COUNT(*), SUM(amount)
		FROM expenses
		WHERE user_id = $1 AND emotion <> '' AND spent_at >= $2 AND spent_at <= $3
		GROUP BY emotion
		ORDER BY COUNT(*) DESC, SUM(amount) DESC
	`, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query emotion summary: %w", err)
	}
	defer rows.Close()

	var summaries []EmotionSummary
	for rows.Next() {
		var es EmotionSummary
		if err := rows.Scan(&es.Emotion, &es.Count, &es.Total); err != nil {
			return nil, fmt.Errorf("failed to scan emotion summary: %w", err)
		}
		summaries = append(summaries, es)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emotion summary: %w", err)
	}
	return summaries, nil
}

// Update modifies an existing expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	_, err := r.db.Exec(ctx, `
		UPDATE expenses SET
			amount = $2,
			currency = $3,
			description = $4,
			merchant = $5,
			category_id = $6,
			emotion = $7,
			was_planned = $8,
			is_necessity = $9,
			is_recurring = $10,
			spent_at = $11,
			updated_at = NOW()
		WHERE id = $1
	`, expense.ID, expense.Amount, expense.Currency, expense.Description,
		expense.Merchant, expense.CategoryID, expense.Emotion,
		expense.WasPlanned, expense.IsNecessity, expense.IsRecurring, expense.SpentAt)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return nil
}

// Delete removes an expense by ID.
func (r *ExpenseRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// scanExpenses is a helper to scan expense rows with category joins.
func scanExpenses(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.Expense, error) {
	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var catID *int
		var catName, catIcon, catColor *string
		var catEssential *bool
		var catCreatedAt *time.Time

		if err := rows.Scan(
			&exp.ID, &exp.UserExpenseNumber, &exp.UserID, &exp.Amount, &exp.Currency,
			&exp.Description, &exp.Merchant, &exp.CategoryID, &exp.Emotion,
			&exp.WasPlanned, &exp.IsNecessity, &exp.IsRecurring,
			&exp.SpentAt, &exp.CreatedAt, &exp.UpdatedAt,
			&catID, &catName, &catIcon, &catColor, &catEssential, &catCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if catID != nil {
			exp.Category = &models.Category{
				ID:          *catID,
				Name:        *catName,
				Icon:        *catIcon,
				Color:       *catColor,
				IsEssential: *catEssential,
				CreatedAt:   *catCreatedAt,
			}
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
