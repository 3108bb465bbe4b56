package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnstack/internal/database"
	"learnstack/internal/models"
)

const achievementColumns = `id, name, description, icon, category, rarity, points,
	criteria_type, criteria_value, is_active, created_at, updated_at`

// AchievementRepository stores achievement templates
type AchievementRepository struct {
	db database.DBTX
}

func NewAchievementRepository(db database.DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// List returns templates ordered by category then points
func (r *AchievementRepository) List(ctx context.Context, activeOnly bool) ([]models.Achievement, error) {
	query := "SELECT " + achievementColumns + " FROM achievements"
	var args []interface{}
	if activeOnly {
		query += " WHERE is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY category, points, id"

	var out []models.Achievement
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return out, nil
}

// Get returns a template by id, or nil
func (r *AchievementRepository) Get(ctx context.Context, id string) (*models.Achievement, error) {
	a := &models.Achievement{}
	err := r.db.GetContext(ctx, a, "SELECT "+achievementColumns+" FROM achievements WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return a, nil
}

func (r *AchievementRepository) Create(ctx context.Context, a *models.Achievement) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements (id, name, description, icon, category, rarity, points,
			criteria_type, criteria_value, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Description, a.Icon, a.Category, a.Rarity, a.Points,
		a.CriteriaType, a.CriteriaValue, a.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to create achievement: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *AchievementRepository) Update(ctx context.Context, a *models.Achievement) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE achievements
		SET name = ?, description = ?, icon = ?, category = ?, rarity = ?, points = ?,
			criteria_type = ?, criteria_value = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`, a.Name, a.Description, a.Icon, a.Category, a.Rarity, a.Points,
		a.CriteriaType, a.CriteriaValue, a.IsActive, now, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update achievement: %w", err)
	}
	a.UpdatedAt = now
	return nil
}

// Delete removes a template and reports whether it existed
func (r *AchievementRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM achievements WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}
