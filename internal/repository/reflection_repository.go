package repository

import (
	"context"
	"fmt"

	"gitlab.com/dafibh/fortuna/internal/database"
	"gitlab.com/dafibh/fortuna/internal/models"
)

// ReflectionRepository handles monthly reflection database operations.
type ReflectionRepository struct {
	db database.PGXDB
}

// NewReflectionRepository creates a new ReflectionRepository.
func NewReflectionRepository(db database.PGXDB) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

// Upsert saves the reflection for a user month, replacing any earlier
// answers for the same month.
func (r *ReflectionRepository) Upsert(ctx context.Context, refl *models.Reflection) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO reflections (user_id, year, month, went_well, to_improve, top_emotion, insight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			went_well = EXCLUDED.went_well,
			to_improve = EXCLUDED.to_improve,
			top_emotion = EXCLUDED.top_emotion,
			insight = EXCLUDED.insight,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, refl.UserID, refl.Year, refl.Month, refl.WentWell, refl.ToImprove,
		refl.TopEmotion, refl.Insight,
	).Scan(&refl.ID, &refl.CreatedAt, &refl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reflection: %w", err)
	}
	return nil
}

// GetByUserAndMonth retrieves the reflection for a user month.
func (r *ReflectionRepository) GetByUserAndMonth(ctx context.Context, userID int64, year, month int) (*models.Reflection, error) {
	var refl models.Reflection
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, year, month, went_well, to_improve, top_emotion, insight, created_at, updated_at
		FROM reflections WHERE user_id = $1 AND year = $2 AND month = $3
	`, userID, year, month).Scan(&refl.ID, &refl.UserID, &refl.Year, &refl.Month,
		&refl.WentWell, &refl.ToImprove, &refl.TopEmotion, &refl.Insight,
		&refl.CreatedAt, &refl.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get reflection: %w", err)
	}
	return &refl, nil
}

// GetRecent retrieves the latest reflections for a user, newest month
// first.
func (r *ReflectionRepository) GetRecent(ctx context.Context, userID int64, limit int) ([]models.Reflection, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, year, month, went_well, to_improve, top_emotion, insight, created_at, updated_at
		FROM reflections WHERE user_id = $1
		ORDER BY year DESC, month DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reflections: %w", err)
	}
	defer rows.Close()

	var reflections []models.Reflection
	for rows.Next() {
		var refl models.Reflection
		if err := rows.Scan(&refl.ID, &refl.UserID, &refl.Year, &refl.Month,
			&refl.WentWell, &refl.ToImprove, &refl.TopEmotion, &refl.Insight,
			&refl.CreatedAt, &refl.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reflection: %w", err)
		}
		reflections = append(reflections, refl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reflections: %w", err)
	}
	return reflections, nil
}

// SetInsight stores the generated insight for an existing reflection.
func (r *ReflectionRepository) SetInsight(ctx context.Context, id int, insight string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE reflections SET insight = $2, updated_at = NOW() WHERE id = $1
	`, id, insight)
	if err != nil {
		return fmt.Errorf("failed to set reflection insight: %w", err)
	}
	return nil
}
