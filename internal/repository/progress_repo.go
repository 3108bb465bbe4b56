package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/models"
)

// ProgressRepository persists the per-user progress aggregate as one
// versioned JSON document. Rank and daily points are mirrored into columns
// so leaderboards can be ranked in SQL.
type ProgressRepository struct {
	db database.DBTX
}

func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

type progressRow struct {
	UserID    int64     `db:"user_id"`
	Version   int64     `db:"version"`
	Document  string    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Create inserts the first version of an aggregate
func (r *ProgressRepository) Create(ctx context.Context, p *models.UserProgress) error {
	p.Version = 1
	p.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	query := `
		INSERT INTO user_progress (user_id, version, document, rank_points, rank_level,
			daily_problem_points, overall_progress, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.UserID, p.Version, string(doc), p.Stats.Rank.Points, p.Stats.Rank.Level,
		p.Stats.DailyProblemPoints, p.Stats.OverallProgress, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create progress: %w", err)
	}
	return nil
}

// Get loads the full aggregate. Returns nil when the user has none.
func (r *ProgressRepository) Get(ctx context.Context, userID int64) (*models.UserProgress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, version, document, updated_at FROM user_progress WHERE user_id = ?
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	p := models.NewUserProgress(userID)
	if err := json.Unmarshal([]byte(row.Document), p); err != nil {
		return nil, fmt.Errorf("failed to decode progress for user %d: %w", userID, err)
	}
	// the columns are authoritative over the copies inside the document
	p.UserID = row.UserID
	p.Version = row.Version
	p.UpdatedAt = row.UpdatedAt
	if p.Topics == nil {
		p.Topics = make(map[string]*models.TopicProgress)
	}
	if p.Achievements == nil {
		p.Achievements = []models.EarnedAchievement{}
	}
	return p, nil
}

// GetAccessView decodes only the topic map and learning path
func (r *ProgressRepository) GetAccessView(ctx context.Context, userID int64) (*models.AccessView, error) {
	var doc string
	err := r.db.GetContext(ctx, &doc, "SELECT document FROM user_progress WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	view := &models.AccessView{}
	if err := json.Unmarshal([]byte(doc), view); err != nil {
		return nil, fmt.Errorf("failed to decode progress for user %d: %w", userID, err)
	}
	if view.Topics == nil {
		view.Topics = make(map[string]*models.TopicProgress)
	}
	return view, nil
}

// Save writes the aggregate if nobody else saved since it was read.
// A stale version yields an apperr.Conflict and leaves the row untouched.
func (r *ProgressRepository) Save(ctx context.Context, p *models.UserProgress) error {
	next := *p
	next.Version = p.Version + 1
	next.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	query := `
		UPDATE user_progress
		SET version = ?, document = ?, rank_points = ?, rank_level = ?,
			daily_problem_points = ?, overall_progress = ?, updated_at = ?
		WHERE user_id = ? AND version = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		next.Version, string(doc), p.Stats.Rank.Points, p.Stats.Rank.Level,
		p.Stats.DailyProblemPoints, p.Stats.OverallProgress, next.UpdatedAt,
		p.UserID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read save result: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.Conflict, "progress was modified concurrently, please retry")
	}

	p.Version = next.Version
	p.UpdatedAt = next.UpdatedAt
	return nil
}

// ListUserIDs returns every user that has an aggregate
func (r *ProgressRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT user_id FROM user_progress ORDER BY user_id"); err != nil {
		return nil, fmt.Errorf("failed to list progress users: %w", err)
	}
	return ids, nil
}
