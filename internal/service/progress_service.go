package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/progress"
	"learnstack/internal/repository"
)

// dashboardBoardSize is how many leaderboard rows the dashboard shows
const dashboardBoardSize = 10

// ProgressService loads, mutates and saves per-user progress aggregates
type ProgressService struct {
	log          *logger.Logger
	db           *database.DB
	progress     *repository.ProgressRepository
	catalog      *CatalogService
	leaderboards *LeaderboardService
	achievements *AchievementService
	now          func() time.Time
}

// NewProgressService creates a new progress service. achievements may be nil,
// in which case nothing is awarded.
func NewProgressService(log *logger.Logger, db *database.DB, catalog *CatalogService, leaderboards *LeaderboardService, achievements *AchievementService) *ProgressService {
	return &ProgressService{
		log:          log.With("service", "ProgressService"),
		db:           db,
		progress:     repository.NewProgressRepository(db),
		catalog:      catalog,
		leaderboards: leaderboards,
		achievements: achievements,
		now:          time.Now,
	}
}

// ProgressUpdate is the state returned after a progress post
type ProgressUpdate struct {
	UpdatedStats             models.Stats              `json:"updatedStats"`
	UpdatedTopicStatus       models.Status             `json:"updatedTopicStatus"`
	UpdatedTopicCompletion   int                       `json:"updatedTopicCompletion"`
	UpdatedLearningPath      models.LearningPath       `json:"updatedLearningPath"`
	UpdatedAlgorithmProgress *models.AlgorithmProgress `json:"updatedAlgorithmProgress"`
}

// DashboardAlgorithm is one algorithm with the caller's effective status
type DashboardAlgorithm struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Difficulty        models.Difficulty `json:"difficulty"`
	Points            int               `json:"points"`
	Status            models.Status     `json:"status"`
	Completed         bool              `json:"completed"`
	AccuracyPractice  float64           `json:"accuracyPractice"`
	BestTimePractice  *int              `json:"bestTimePractice,omitempty"`
	TimeSpentViz      int               `json:"timeSpentViz"`
	TimeSpentPractice int               `json:"timeSpentPractice"`
}

// DashboardTopic is one catalog topic with the caller's effective status
type DashboardTopic struct {
	ID               string               `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	Order            int                  `json:"order"`
	Difficulty       models.Difficulty    `json:"difficulty"`
	EstimatedMinutes int                  `json:"estimatedMinutes"`
	Prerequisites    []string             `json:"prerequisites"`
	Status           models.Status        `json:"status"`
	Completion       int                  `json:"completion"`
	Algorithms       []DashboardAlgorithm `json:"algorithms"`
}

// Dashboard is the learner's home view
type Dashboard struct {
	Topics       []DashboardTopic          `json:"topics"`
	Stats        models.Stats              `json:"stats"`
	LearningPath models.LearningPath       `json:"learningPath"`
	Leaderboard  []models.LeaderboardEntry `json:"leaderboard"`
	MyPosition   int                       `json:"myPosition"`
	Achievements models.AchievementSummary `json:"achievements"`
}

// Initialize creates the aggregate for a new user from cat. repo may be
// bound to a transaction.
func (s *ProgressService) Initialize(ctx context.Context, repo *repository.ProgressRepository, userID int64, cat progress.Catalog) (*models.UserProgress, error) {
	p := models.NewUserProgress(userID)
	progress.InitializeLearningPath(p, cat)
	if err := repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// load reads the aggregate, creating it when missing, and re-syncs the topic
// order with the live catalog
func (s *ProgressService) load(ctx context.Context, repo *repository.ProgressRepository, userID int64, cat progress.Catalog) (*models.UserProgress, error) {
	p, err := repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return s.Initialize(ctx, repo, userID, cat)
	}
	progress.SyncTopicOrder(p, cat)
	return p, nil
}

// Mutate runs fn on a fresh copy of the user's aggregate, recomputes derived
// stats, grants newly earned achievements and saves with a version check,
// retrying on conflict.
func (s *ProgressService) Mutate(ctx context.Context, userID int64, fn func(p *models.UserProgress, cat progress.Catalog) error) (*models.UserProgress, error) {
	templates := s.templates(ctx)
	var (
		out    *models.UserProgress
		earned []models.EarnedAchievement
	)
	err := withRetry(ctx, func() error {
		cat, err := s.catalog.Catalog(ctx)
		if err != nil {
			return err
		}
		p, err := s.load(ctx, s.progress, userID, cat)
		if err != nil {
			return err
		}
		if err := fn(p, cat); err != nil {
			return err
		}
		earned = s.settle(p, templates)
		if err := s.progress.Save(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, a := range earned {
		s.log.Info("achievement earned", "user_id", userID, "achievement", a.ID, "points", a.Points)
	}
	return out, nil
}

// settle recomputes derived stats and grants the achievements they satisfy
func (s *ProgressService) settle(p *models.UserProgress, templates []models.Achievement) []models.EarnedAchievement {
	progress.Recalculate(p)
	earned := progress.AwardAchievements(p, templates, s.now())
	if len(earned) > 0 {
		progress.Recalculate(p)
	}
	return earned
}

// templates returns the active achievement templates. A read failure only
// skips awarding.
func (s *ProgressService) templates(ctx context.Context) []models.Achievement {
	if s.achievements == nil {
		return nil
	}
	t, err := s.achievements.Active(ctx)
	if err != nil {
		s.log.Warn("achievement templates unavailable", "error", err)
		return nil
	}
	return t
}

// Get returns the user's aggregate synced with the live catalog
func (s *ProgressService) Get(ctx context.Context, userID int64) (*models.UserProgress, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.progress, userID, cat)
}

// CheckAccess resolves whether the user may act on (topicID, algorithmID).
// It reads only the topic map and learning path, seeded against the live
// catalog in memory the same way a progress post loads the aggregate, so both
// reach the same verdict.
func (s *ProgressService) CheckAccess(ctx context.Context, userID int64, topicID, algorithmID string) (progress.AccessResult, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return progress.AccessResult{}, err
	}
	topic, ok := cat.Topic(topicID)
	if !ok {
		return progress.AccessResult{}, apperr.NotFoundf("topic %q not found", topicID)
	}

	view, err := s.progress.GetAccessView(ctx, userID)
	if err != nil {
		return progress.AccessResult{}, err
	}
	p := models.NewUserProgress(userID)
	if view == nil {
		progress.InitializeLearningPath(p, cat)
	} else {
		if view.Topics != nil {
			p.Topics = view.Topics
		}
		p.LearningPath = view.LearningPath
		progress.SyncTopicOrder(p, cat)
	}
	return progress.CheckAccess(topic, algorithmID, p.Topics)
}

// PostProgress applies a client progress delta
func (s *ProgressService) PostProgress(ctx context.Context, userID int64, topicID, algorithmID string, d progress.Delta) (*ProgressUpdate, error) {
	var res *progress.UpdateResult
	p, err := s.Mutate(ctx, userID, func(p *models.UserProgress, cat progress.Catalog) error {
		var err error
		res, err = progress.ApplyUpdate(p, cat, topicID, algorithmID, d, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if res.CompletedNow {
		s.log.Info("algorithm completed", "user_id", userID, "topic", topicID, "algorithm", algorithmID)
	}
	tp := p.Topics[topicID]
	return &ProgressUpdate{
		UpdatedStats:             p.Stats,
		UpdatedTopicStatus:       tp.Status,
		UpdatedTopicCompletion:   tp.Completion,
		UpdatedLearningPath:      p.LearningPath,
		UpdatedAlgorithmProgress: tp.Algorithms[algorithmID],
	}, nil
}

// RecordLogin touches the login streak
func (s *ProgressService) RecordLogin(ctx context.Context, userID int64) error {
	_, err := s.Mutate(ctx, userID, func(p *models.UserProgress, _ progress.Catalog) error {
		progress.RecordActivity(p, s.now(), progress.Activity{})
		return nil
	})
	return err
}

// Dashboard loads the aggregate, the catalog and the all-time board
// concurrently and resolves effective statuses.
func (s *ProgressService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	var (
		p         *models.UserProgress
		cat       progress.Catalog
		board     *models.Leaderboard
		rank      *models.MyRank
		templates []models.Achievement
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.Get(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		cat, err = s.catalog.Catalog(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		board, err = s.leaderboards.Get(gctx, models.LeaderboardAllTime)
		return err
	})
	g.Go(func() error {
		templates = s.templates(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rank = &models.MyRank{}
	if e := findEntry(board, userID); e != nil {
		rank.Position = e.Position
	}

	top := board.Entries
	if len(top) > dashboardBoardSize {
		top = top[:dashboardBoardSize]
	}

	return &Dashboard{
		Topics:       dashboardTopics(p, cat),
		Stats:        p.Stats,
		LearningPath: p.LearningPath,
		Leaderboard:  top,
		MyPosition:   rank.Position,
		Achievements: progress.SummarizeAchievements(p, len(templates)),
	}, nil
}

func dashboardTopics(p *models.UserProgress, cat progress.Catalog) []DashboardTopic {
	out := make([]DashboardTopic, 0, len(cat))
	for i := range cat {
		topic := &cat[i]
		entry := p.Topics[topic.ID]
		status := progress.EffectiveTopicStatus(topic, entry)

		dt := DashboardTopic{
			ID:               topic.ID,
			Name:             topic.Name,
			Description:      topic.Description,
			Order:            topic.Order,
			Difficulty:       topic.Difficulty,
			EstimatedMinutes: topic.EstimatedMinutes,
			Prerequisites:    append([]string{}, topic.Prerequisites...),
			Status:           status,
			Algorithms:       make([]DashboardAlgorithm, 0, len(topic.Algorithms)),
		}
		if entry != nil {
			dt.Completion = entry.Completion
		}

		for j := range topic.Algorithms {
			algo := &topic.Algorithms[j]
			var ap *models.AlgorithmProgress
			if entry != nil {
				ap = entry.Algorithms[algo.ID]
			}
			da := DashboardAlgorithm{
				ID:         algo.ID,
				Name:       algo.Name,
				Difficulty: algo.Difficulty,
				Points:     algo.Points,
				Status:     progress.EffectiveAlgorithmStatus(algo, ap, status),
			}
			if ap != nil {
				da.Completed = ap.Completed
				da.AccuracyPractice = ap.AccuracyPractice
				da.BestTimePractice = ap.BestTimePractice
				da.TimeSpentViz = ap.TimeSpentViz
				da.TimeSpentPractice = ap.TimeSpentPractice
			}
			dt.Algorithms = append(dt.Algorithms, da)
		}
		out = append(out, dt)
	}
	return out
}
