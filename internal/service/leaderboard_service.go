package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"learnstack/internal/apperr"
	"learnstack/internal/cache"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

// LeaderboardService serves generated leaderboard snapshots. A snapshot older
// than the TTL is regenerated on read.
type LeaderboardService struct {
	log      *logger.Logger
	boards   *repository.LeaderboardRepository
	progress *repository.ProgressRepository
	cache    cache.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(log *logger.Logger, db *database.DB, store cache.Store, ttl time.Duration) *LeaderboardService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &LeaderboardService{
		log:      log.With("service", "LeaderboardService"),
		boards:   repository.NewLeaderboardRepository(db),
		progress: repository.NewProgressRepository(db),
		cache:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

// ParseKind maps a route value to a board kind. Empty means all-time.
func ParseKind(s string) (models.LeaderboardKind, error) {
	switch models.LeaderboardKind(s) {
	case "", models.LeaderboardAllTime:
		return models.LeaderboardAllTime, nil
	case models.LeaderboardDailyPractice:
		return models.LeaderboardDailyPractice, nil
	}
	return "", apperr.Validationf("unknown leaderboard %q", s)
}

// Get returns the board of the given kind, regenerating a stale snapshot
func (s *LeaderboardService) Get(ctx context.Context, kind models.LeaderboardKind) (*models.Leaderboard, error) {
	var board models.Leaderboard
	hit, err := s.cache.Get(ctx, cacheKey(kind), &board)
	if err != nil {
		s.log.Warn("leaderboard cache read failed", "kind", kind, "error", err)
	}
	if hit && !board.Stale(s.now(), s.ttl) {
		return &board, nil
	}
	return s.Regenerate(ctx, kind)
}

// Regenerate rebuilds one board from the mirrored score columns
func (s *LeaderboardService) Regenerate(ctx context.Context, kind models.LeaderboardKind) (*models.Leaderboard, error) {
	entries, err := s.boards.Top(ctx, kind, models.LeaderboardSize)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	board := &models.Leaderboard{Kind: kind, Entries: entries, GeneratedAt: s.now().UTC()}

	// the entry outlives the TTL so a stale board is still readable if
	// regeneration fails later
	if err := s.cache.Set(ctx, cacheKey(kind), board, 2*s.ttl); err != nil {
		s.log.Warn("leaderboard cache write failed", "kind", kind, "error", err)
	}
	return board, nil
}

// RegenerateAll rebuilds both boards concurrently
func (s *LeaderboardService) RegenerateAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range []models.LeaderboardKind{models.LeaderboardAllTime, models.LeaderboardDailyPractice} {
		kind := kind
		g.Go(func() error {
			_, err := s.Regenerate(gctx, kind)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Debug("leaderboards regenerated")
	return nil
}

// MyRank reports the user's position on a board. Position is 0 when the
// user is outside the snapshot.
func (s *LeaderboardService) MyRank(ctx context.Context, userID int64, kind models.LeaderboardKind) (*models.MyRank, error) {
	board, err := s.Get(ctx, kind)
	if err != nil {
		return nil, err
	}
	rank := &models.MyRank{Kind: kind}
	if e := findEntry(board, userID); e != nil {
		rank.Position = e.Position
		rank.Score = e.Score
		return rank, nil
	}

	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		rank.Score = p.Stats.Rank.Points
		if kind == models.LeaderboardDailyPractice {
			rank.Score = p.Stats.DailyProblemPoints
		}
	}
	return rank, nil
}

func findEntry(board *models.Leaderboard, userID int64) *models.LeaderboardEntry {
	for i := range board.Entries {
		if board.Entries[i].UserID == userID {
			return &board.Entries[i]
		}
	}
	return nil
}

func cacheKey(kind models.LeaderboardKind) string {
	return cache.KeyLeaderboardPrefix + string(kind)
}
