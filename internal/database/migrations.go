package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			default_currency TEXT NOT NULL DEFAULT 'USD',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,

		`CREATE TABLE IF NOT EXISTS telegram_links (
			telegram_user_id BIGINT PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_telegram_links_user_id ON telegram_links(user_id)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			is_essential BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			user_expense_number BIGINT NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount DECIMAL(12, 2) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			description TEXT NOT NULL DEFAULT '',
			merchant TEXT NOT NULL DEFAULT '',
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			emotion TEXT NOT NULL DEFAULT '',
			was_planned BOOLEAN,
			is_necessity BOOLEAN,
			is_recurring BOOLEAN,
			spent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, user_expense_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_spent_at ON expenses(spent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_emotion ON expenses(emotion)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			total_income DECIMAL(12, 2) NOT NULL DEFAULT 0,
			savings_target DECIMAL(12, 2) NOT NULL DEFAULT 0,
			savings_actual DECIMAL(12, 2) NOT NULL DEFAULT 0,
			emergency_buffer DECIMAL(12, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, year, month)
		)`,

		`CREATE TABLE IF NOT EXISTS budget_allocations (
			id SERIAL PRIMARY KEY,
			budget_id INTEGER NOT NULL REFERENCES budgets(id) ON DELETE CASCADE,
			category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			allocated_amount DECIMAL(12, 2) NOT NULL DEFAULT 0,
			UNIQUE (budget_id, category_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_budget_allocations_budget_id ON budget_allocations(budget_id)`,

		`CREATE TABLE IF NOT EXISTS goals (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			target_amount DECIMAL(12, 2) NOT NULL,
			current_amount DECIMAL(12, 2) NOT NULL DEFAULT 0,
			deadline TIMESTAMPTZ,
			priority_level INTEGER NOT NULL DEFAULT 3,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			due_date TIMESTAMPTZ NOT NULL,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'confirmed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_user_id ON bills(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_due_date ON bills(due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_status ON bills(status)`,

		`CREATE TABLE IF NOT EXISTS income_sources (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL,
			frequency TEXT NOT NULL DEFAULT 'monthly',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_income_sources_user_id ON income_sources(user_id)`,

		`CREATE TABLE IF NOT EXISTS dependents (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			relationship TEXT NOT NULL DEFAULT '',
			monthly_cost DECIMAL(12, 2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dependents_user_id ON dependents(user_id)`,

		`CREATE TABLE IF NOT EXISTS reflections (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			went_well TEXT NOT NULL DEFAULT '',
			to_improve TEXT NOT NULL DEFAULT '',
			top_emotion TEXT NOT NULL DEFAULT '',
			insight TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, year, month)
		)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

type seedCategory struct {
	name        string
	icon        string
	color       string
	isEssential bool
}

// SeedCategories inserts the default expense categories. Existing rows
// are left untouched so user edits survive a restart.
func SeedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	categories := []seedCategory{
		{"Housing", "🏠", "#8D6E63", true},
		{"Groceries", "🛒", "#66BB6A", true},
		{"Transport", "🚌", "#42A5F5", true},
		{"Utilities", "💡", "#FFCA28", true},
		{"Health", "🏥", "#EF5350", true},
		{"Insurance", "🛡️", "#78909C", true},
		{"Education", "📚", "#5C6BC0", true},
		{"Debt Payments", "💳", "#B71C1C", true},
		{"Dining Out", "🍜", "#FF7043", false},
		{"Entertainment", "🎬", "#AB47BC", false},
		{"Shopping", "🛍️", "#EC407A", false},
		{"Travel", "✈️", "#26C6DA", false},
		{"Subscriptions", "📺", "#7E57C2", false},
		{"Personal Care", "💇", "#26A69A", false},
		{"Gifts & Donations", "🎁", "#FFA726", false},
		{"Other", "📦", "#BDBDBD", false},
	}

	for _, cat := range categories {
		_, err := pool.Exec(ctx,
			`INSERT INTO categories (name, icon, color, is_essential)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (name) DO NOTHING`,
			cat.name, cat.icon, cat.color, cat.isEssential,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat.name, err)
		}
	}

	return nil
}
