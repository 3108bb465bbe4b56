package repository

import (
	"context"
	"fmt"

	"learnstack/internal/database"
	"learnstack/internal/models"
)

// LeaderboardRepository ranks users by the score columns mirrored from
// their progress documents
type LeaderboardRepository struct {
	db database.DBTX
}

func NewLeaderboardRepository(db database.DBTX) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// Top returns up to limit entries for the board, highest score first.
// Ties are broken by user id. The daily-practice board skips users with no points.
func (r *LeaderboardRepository) Top(ctx context.Context, kind models.LeaderboardKind, limit int) ([]models.LeaderboardEntry, error) {
	var query string
	switch kind {
	case models.LeaderboardAllTime:
		query = `
			SELECT p.user_id, u.username, p.rank_level, p.rank_points AS score
			FROM user_progress p
			JOIN users u ON u.id = p.user_id
			ORDER BY p.rank_points DESC, p.user_id
			LIMIT ?
		`
	case models.LeaderboardDailyPractice:
		query = `
			SELECT p.user_id, u.username, p.rank_level, p.daily_problem_points AS score
			FROM user_progress p
			JOIN users u ON u.id = p.user_id
			WHERE p.daily_problem_points > 0
			ORDER BY p.daily_problem_points DESC, p.user_id
			LIMIT ?
		`
	default:
		return nil, fmt.Errorf("unknown leaderboard kind %q", kind)
	}

	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to rank %s leaderboard: %w", kind, err)
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}
