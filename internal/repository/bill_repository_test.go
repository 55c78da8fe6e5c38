package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

func TestBillRepository_Create(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-create@example.com")

	t.Run("defaults to confirmed", func(t *testing.T) {
		bill := &models.Bill{
			UserID:   userID,
			Name:     "Electricity",
			Amount:   decimal.NewFromFloat(89.90),
			Currency: "USD",
			DueDate:  time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
		}
		err := repo.Create(ctx, bill)
		require.NoError(t, err)
		require.NotZero(t, bill.ID)
		require.Equal(t, models.BillStatusConfirmed, bill.Status)
	})

	t.Run("keeps draft status for scanned bills", func(t *testing.T) {
		bill := &models.Bill{
			UserID:   userID,
			Name:     "Scanned Water Bill",
			Amount:   decimal.NewFromFloat(34.20),
			Currency: "USD",
			DueDate:  time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
			Status:   models.BillStatusDraft,
		}
		err := repo.Create(ctx, bill)
		require.NoError(t, err)

		fetched, err := repo.GetByID(ctx, bill.ID)
		require.NoError(t, err)
		require.Equal(t, models.BillStatusDraft, fetched.Status)
	})
}

func TestBillRepository_Listing(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-list@example.com")

	seed := func(name string, due time.Time, paid bool, status string) {
		t.Helper()
		err := repo.Create(ctx, &models.Bill{
			UserID:   userID,
			Name:     name,
			Amount:   decimal.NewFromInt(50),
			Currency: "USD",
			DueDate:  due,
			IsPaid:   paid,
			Status:   status,
		})
		require.NoError(t, err)
	}

	seed("Paid Early", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true, "")
	seed("Unpaid Late", time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), false, "")
	seed("Unpaid Soon", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), false, "")
	seed("Pending Draft", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false, models.BillStatusDraft)

	t.Run("unpaid first, drafts hidden", func(t *testing.T) {
		bills, err := repo.GetByUserID(ctx, userID)
		require.NoError(t, err)
		require.Len(t, bills, 3)
		require.Equal(t, "Unpaid Soon", bills[0].Name)
		require.Equal(t, "Unpaid Late", bills[1].Name)
		require.Equal(t, "Paid Early", bills[2].Name)
	})

	t.Run("empty for unknown user", func(t *testing.T) {
		bills, err := repo.GetByUserID(ctx, 99999999)
		require.NoError(t, err)
		require.Empty(t, bills)
	})
}

func TestBillRepository_GetUpcoming(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-upcoming@example.com")

	seed := func(name string, due time.Time, paid bool, status string) {
		t.Helper()
		err := repo.Create(ctx, &models.Bill{
			UserID:   userID,
			Name:     name,
			Amount:   decimal.NewFromInt(75),
			Currency: "USD",
			DueDate:  due,
			IsPaid:   paid,
			Status:   status,
		})
		require.NoError(t, err)
	}

	seed("Overdue Rent", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false, "")
	seed("Due This Week", time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), false, "")
	seed("Already Paid", time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC), true, "")
	seed("Far Future", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), false, "")
	seed("Draft Scan", time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC), false, models.BillStatusDraft)

	until := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)

	bills, err := repo.GetUpcoming(ctx, userID, until)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	require.Equal(t, "Overdue Rent", bills[0].Name)
	require.Equal(t, "Due This Week", bills[1].Name)
}

func TestBillRepository_MarkPaid(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-paid@example.com")

	bill := &models.Bill{
		UserID:   userID,
		Name:     "Internet",
		Amount:   decimal.NewFromFloat(59.99),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, bill))
	require.False(t, bill.IsPaid)

	err := repo.MarkPaid(ctx, bill.ID, true)
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	require.True(t, fetched.IsPaid)

	// Unmarking works too.
	err = repo.MarkPaid(ctx, bill.ID, false)
	require.NoError(t, err)

	fetched, err = repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	require.False(t, fetched.IsPaid)
}

func TestBillRepository_UpdateNonExistent(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)

	err := repo.Update(ctx, &models.Bill{
		ID:       99999,
		Name:     "Ghost",
		Amount:   decimal.NewFromInt(1),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:   models.BillStatusConfirmed,
	})
	require.NoError(t, err)
}

func TestBillRepository_Update(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-update@example.com")

	bill := &models.Bill{
		UserID:   userID,
		Name:     "Scanned Phone Bill",
		Amount:   decimal.NewFromFloat(42.00),
		Currency: "USD",
		DueDate:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Status:   models.BillStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, bill))

	// Confirming a draft is just an update with corrected fields.
	bill.Name = "Phone Bill"
	bill.Amount = decimal.NewFromFloat(45.50)
	bill.IsRecurring = true
	bill.Status = models.BillStatusConfirmed

	err := repo.Update(ctx, bill)
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, bill.ID)
	require.NoError(t, err)
	require.Equal(t, "Phone Bill", fetched.Name)
	require.True(t, decimal.NewFromFloat(45.50).Equal(fetched.Amount))
	require.True(t, fetched.IsRecurring)
	require.Equal(t, models.BillStatusConfirmed, fetched.Status)
}

func TestBillRepository_Delete(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-delete@example.com")

	bill := &models.Bill{
		UserID:   userID,
		Name:     "One Off",
		Amount:   decimal.NewFromInt(10),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, bill))

	err := repo.Delete(ctx, bill.ID)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, bill.ID)
	require.Error(t, err)

	// Deleting again is a no-op.
	err = repo.Delete(ctx, bill.ID)
	require.NoError(t, err)
}

func TestBillRepository_DeleteExpiredDrafts(t *testing.T) {
	t.Parallel()

	tx := database.TestTx(t)
	ctx := context.Background()

	repo := NewBillRepository(tx)
	userRepo := NewUserRepository(tx)

	userID := createTxUser(t, ctx, userRepo, "bill-drafts@example.com")

	staleDraft := &models.Bill{
		UserID:   userID,
		Name:     "Stale Draft",
		Amount:   decimal.NewFromInt(20),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:   models.BillStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, staleDraft))

	freshDraft := &models.Bill{
		UserID:   userID,
		Name:     "Fresh Draft",
		Amount:   decimal.NewFromInt(30),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		Status:   models.BillStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, freshDraft))

	oldConfirmed := &models.Bill{
		UserID:   userID,
		Name:     "Old Confirmed",
		Amount:   decimal.NewFromInt(40),
		Currency: "USD",
		DueDate:  time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, oldConfirmed))

	// Age two of the rows past the sweep horizon.
	for _, id := range []int{staleDraft.ID, oldConfirmed.ID} {
		_, err := tx.Exec(ctx, `
			UPDATE bills SET created_at = NOW() - INTERVAL '10 days' WHERE id = $1
		`, id)
		require.NoError(t, err)
	}

	deleted, err := repo.DeleteExpiredDrafts(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)

	_, err = repo.GetByID(ctx, staleDraft.ID)
	require.Error(t, err)

	// Confirmed bills and recent drafts survive the sweep.
	_, err = repo.GetByID(ctx, freshDraft.ID)
	require.NoError(t, err)
	_, err = repo.GetByID(ctx, oldConfirmed.ID)
	require.NoError(t, err)

	deleted, err = repo.DeleteExpiredDrafts(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.Zero(t, deleted)
}
