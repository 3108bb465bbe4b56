package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/cache"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

var achievementID = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// AchievementService owns achievement templates and serves the active set
// from a cached snapshot
type AchievementService struct {
	log          *logger.Logger
	db           *database.DB
	achievements *repository.AchievementRepository
	progress     *repository.ProgressRepository
	cache        cache.Store
	ttl          time.Duration
}

// NewAchievementService creates a new achievement service
func NewAchievementService(log *logger.Logger, db *database.DB, store cache.Store, ttl time.Duration) *AchievementService {
	return &AchievementService{
		log:          log.With("service", "AchievementService"),
		db:           db,
		achievements: repository.NewAchievementRepository(db),
		progress:     repository.NewProgressRepository(db),
		cache:        store,
		ttl:          ttl,
	}
}

// Active returns the templates that can currently be earned. The result may
// be up to one TTL stale.
func (s *AchievementService) Active(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	hit, err := s.cache.Get(ctx, cache.KeyAchievements, &out)
	if err != nil {
		s.log.Warn("achievement cache read failed", "error", err)
	}
	if hit {
		return out, nil
	}

	out, err = s.achievements.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Achievement{}
	}
	if err := s.cache.Set(ctx, cache.KeyAchievements, out, s.ttl); err != nil {
		s.log.Warn("achievement cache write failed", "error", err)
	}
	return out, nil
}

// List returns every template including inactive ones
func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	out, err := s.achievements.List(ctx, false)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Achievement{}
	}
	return out, nil
}

func (s *AchievementService) Get(ctx context.Context, id string) (*models.Achievement, error) {
	a, err := s.achievements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFoundf("achievement %q not found", id)
	}
	return a, nil
}

func (s *AchievementService) Create(ctx context.Context, a *models.Achievement) error {
	if err := validateAchievement(a); err != nil {
		return err
	}
	existing, err := s.achievements.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Validationf("achievement %q already exists", a.ID).WithCode("id")
	}
	if err := s.achievements.Create(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("achievement created", "achievement", a.ID)
	return nil
}

// Update replaces a template. Users keep the snapshot they earned.
func (s *AchievementService) Update(ctx context.Context, a *models.Achievement) error {
	if err := validateAchievement(a); err != nil {
		return err
	}
	if _, err := s.Get(ctx, a.ID); err != nil {
		return err
	}
	if err := s.achievements.Update(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.Info("achievement updated", "achievement", a.ID)
	return nil
}

// Delete removes a template and pulls it from every user that earned it.
// Points credited on award are kept.
func (s *AchievementService) Delete(ctx context.Context, id string) (*BulkResult, error) {
	ok, err := s.achievements.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("achievement %q not found", id)
	}
	s.invalidate(ctx)

	ids, err := s.progress.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{}
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		removed, err := s.revoke(ctx, userID, id)
		if err != nil {
			s.log.Error("failed to revoke achievement", "user_id", userID, "achievement", id, "error", err)
			res.Failed++
			continue
		}
		if removed {
			res.Updated++
		}
	}
	s.log.Info("achievement deleted", "achievement", id, "revoked", res.Updated, "failed", res.Failed)
	return res, nil
}

func (s *AchievementService) revoke(ctx context.Context, userID int64, id string) (bool, error) {
	var removed bool
	err := withRetry(ctx, func() error {
		p, err := s.progress.Get(ctx, userID)
		if err != nil || p == nil {
			return err
		}
		removed = p.RemoveAchievement(id)
		if !removed {
			return nil
		}
		return s.progress.Save(ctx, p)
	})
	return removed, err
}

func (s *AchievementService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyAchievements); err != nil {
		s.log.Warn("achievement cache invalidation failed", "error", err)
	}
}

func validateAchievement(a *models.Achievement) error {
	a.ID = strings.TrimSpace(a.ID)
	a.Name = strings.TrimSpace(a.Name)
	a.Description = strings.TrimSpace(a.Description)
	a.Icon = strings.TrimSpace(a.Icon)
	if a.Rarity == "" {
		a.Rarity = models.RarityCommon
	}

	switch {
	case !achievementID.MatchString(a.ID):
		return apperr.New(apperr.Validation, "achievement id must be lowercase letters, digits, dashes or underscores").WithCode("id")
	case a.Name == "":
		return apperr.New(apperr.Validation, "name is required").WithCode("name")
	case a.Description == "":
		return apperr.New(apperr.Validation, "description is required").WithCode("description")
	case a.Icon == "":
		return apperr.New(apperr.Validation, "icon is required").WithCode("icon")
	case !models.ValidCategory(a.Category):
		return apperr.Validationf("unknown category %q", a.Category).WithCode("category")
	case !models.ValidRarity(a.Rarity):
		return apperr.Validationf("unknown rarity %q", a.Rarity).WithCode("rarity")
	case a.Points < 0:
		return apperr.New(apperr.Validation, "points must not be negative").WithCode("points")
	case !models.ValidCriteria(a.CriteriaType):
		return apperr.Validationf("unknown criteria type %q", a.CriteriaType).WithCode("criteria")
	case a.CriteriaValue < 0:
		return apperr.New(apperr.Validation, "criteria value must not be negative").WithCode("criteria")
	}
	return nil
}
