package repository

import (
	"context"
	"fmt"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// TelegramLinkRepository handles the mapping between Telegram users and
// accounts.
type TelegramLinkRepository struct {
	db database.PGXDB
}

// NewTelegramLinkRepository creates a new TelegramLinkRepository.
func NewTelegramLinkRepository(db database.PGXDB) *TelegramLinkRepository {
	return &TelegramLinkRepository{db: db}
}

// Save creates or updates a link. Re-linking the same Telegram user to
// a different account replaces the old link.
func (r *TelegramLinkRepository) Save(ctx context.Context, link *models.TelegramLink) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO telegram_links (telegram_user_id, chat_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_user_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			user_id = EXCLUDED.user_id,
			created_at = NOW()
		RETURNING created_at
	`, link.TelegramUserID, link.ChatID, link.UserID).Scan(&link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save telegram link: %w", err)
	}
	return nil
}

// GetByTelegramUserID retrieves the link for a Telegram user.
func (r *TelegramLinkRepository) GetByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.TelegramLink, error) {
	var link models.TelegramLink
	err := r.db.QueryRow(ctx, `
		SELECT telegram_user_id, chat_id, user_id, created_at
		FROM telegram_links WHERE telegram_user_id = $1
	`, telegramUserID).Scan(&link.TelegramUserID, &link.ChatID, &link.UserID, &link.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get telegram link: %w", err)
	}
	return &link, nil
}

// All loads every link. The reminder scheduler uses this to find the
// chats to notify.
func (r *TelegramLinkRepository) All(ctx context.Context) ([]*models.TelegramLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT telegram_user_id, chat_id, user_id, created_at
		FROM telegram_links ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load telegram links: %w", err)
	}
	defer rows.Close()

	var links []*models.TelegramLink
	for rows.Next() {
		var link models.TelegramLink
		if err := rows.Scan(&link.TelegramUserID, &link.ChatID, &link.UserID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan telegram link: %w", err)
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate telegram links: %w", err)
	}
	return links, nil
}

// Delete removes the link for a Telegram user.
func (r *TelegramLinkRepository) Delete(ctx context.Context, telegramUserID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM telegram_links WHERE telegram_user_id = $1`, telegramUserID)
	if err != nil {
		return fmt.Errorf("failed to delete telegram link: %w", err)
	}
	return nil
}
