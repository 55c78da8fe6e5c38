package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// BillRepository handles bill database operations. Bills scanned from a
// photo enter as drafts and only count once confirmed.
type BillRepository struct {
	db database.PGXDB
}

// NewBillRepository creates a new BillRepository.
func NewBillRepository(db database.PGXDB) *BillRepository {
	return &BillRepository{db: db}
}

// Create adds a new bill. Defaults to confirmed if no status is set.
func (r *BillRepository) Create(ctx context.Context, bill *models.Bill) error {
	if bill.Status == "" {
		bill.Status = models.BillStatusConfirmed
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO bills (user_id, name, amount, currency, due_date, is_paid, is_recurring, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, bill.UserID, bill.Name, bill.Amount, bill.Currency, bill.DueDate,
		bill.IsPaid, bill.IsRecurring, bill.Status,
	).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// GetByID retrieves a bill by ID.
func (r *BillRepository) GetByID(ctx context.Context, id int) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, amount, currency, due_date, is_paid, is_recurring, status, created_at, updated_at
		FROM bills WHERE id = $1
	`, id).Scan(&bill.ID, &bill.UserID, &bill.Name, &bill.Amount, &bill.Currency, &bill.DueDate,
		&bill.IsPaid, &bill.IsRecurring, &bill.Status, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &bill, nil
}

// GetByUserID retrieves all confirmed bills for a user, unpaid first,
// nearest due date on top.
func (r *BillRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, amount, currency, due_date, is_paid, is_recurring, status, created_at, updated_at
		FROM bills
		WHERE user_id = $1 AND status = 'confirmed'
		ORDER BY is_paid, due_date
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	return scanBills(rows)
}

// GetUpcoming retrieves confirmed unpaid bills due on or before the
// given instant, soonest first. Overdue bills are included.
func (r *BillRepository) GetUpcoming(ctx context.Context, userID int64, until time.Time) ([]models.Bill, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, amount, currency, due_date, is_paid, is_recurring, status, created_at, updated_at
		FROM bills
		WHERE user_id = $1 AND status = 'confirmed' AND is_paid = FALSE AND due_date <= $2
		ORDER BY due_date
	`, userID, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming bills: %w", err)
	}
	defer rows.Close()

	return scanBills(rows)
}

// MarkPaid flips the paid flag on a bill.
func (r *BillRepository) MarkPaid(ctx context.Context, id int, paid bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bills SET is_paid = $2, updated_at = NOW() WHERE id = $1
	`, id, paid)
	if err != nil {
		return fmt.Errorf("failed to mark bill paid: %w", err)
	}
	return nil
}

// Update modifies an existing bill.
func (r *BillRepository) Update(ctx context.Context, bill *models.Bill) error {
	_, err := r.db.Exec(ctx, `
		UPDATE bills SET
			name = $2,
			amount = $3,
			currency = $4,
			due_date = $5,
			is_paid = $6,
			is_recurring = $7,
			status = $8,
			updated_at = NOW()
		WHERE id = $1
	`, bill.ID, bill.Name, bill.Amount, bill.Currency, bill.DueDate,
		bill.IsPaid, bill.IsRecurring, bill.Status)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return nil
}

// Delete removes a bill by ID.
func (r *BillRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	return nil
}

// DeleteExpiredDrafts removes scanned drafts older than the specified
// duration. Returns the number of deleted rows.
func (r *BillRepository) DeleteExpiredDrafts(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := r.db.Exec(ctx, `
		DELETE FROM bills
		WHERE status = $1 AND created_at < $2
	`, models.BillStatusDraft, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired drafts: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func scanBills(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
},
) ([]models.Bill, error) {
	var bills []models.Bill
	for rows.Next() {
		var bill models.Bill
		if err := rows.Scan(&bill.ID, &bill.UserID, &bill.Name, &bill.Amount, &bill.Currency, &bill.DueDate,
			&bill.IsPaid, &bill.IsRecurring, &bill.Status, &bill.CreatedAt, &bill.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bills: %w", err)
	}
	return bills, nil
}
