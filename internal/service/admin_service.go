package service

import (
	"context"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/progress"
	"learnstack/internal/repository"
)

// AdminService holds the platform administration operations: user
// management, catalog locks and bulk recomputes
type AdminService struct {
	log      *logger.Logger
	users    *repository.UserRepository
	progress *ProgressService
	catalog  *CatalogService
}

// NewAdminService creates a new admin service
func NewAdminService(log *logger.Logger, db *database.DB, progress *ProgressService, catalog *CatalogService) *AdminService {
	return &AdminService{
		log:      log.With("service", "AdminService"),
		users:    repository.NewUserRepository(db),
		progress: progress,
		catalog:  catalog,
	}
}

// BulkResult counts the aggregates a fan-out touched
type BulkResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func (s *AdminService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	return s.users.PlatformStats(ctx)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) UpdateRole(ctx context.Context, actorID, userID int64, role models.Role) error {
	if !role.Valid() {
		return apperr.Validationf("unknown role %q", role).WithCode("role")
	}
	if actorID == userID && role != models.RoleAdmin {
		return apperr.New(apperr.Validation, "you cannot change your own role")
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.log.Info("role changed", "user_id", userID, "role", role, "actor_id", actorID)
	return nil
}

// DeleteUser removes an account and its progress, attempts and doubts
func (s *AdminService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return apperr.New(apperr.Validation, "you cannot delete your own account")
	}
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info("user deleted", "user_id", userID, "actor_id", actorID)
	return nil
}

// TopicStatuses resolves the effective status of every topic for one user
func (s *AdminService) TopicStatuses(ctx context.Context, userID int64) (map[string]models.Status, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return progress.TopicStatuses(p, cat), nil
}

// LockTopicGlobally sets the catalog flag and locks the topic in every
// user's aggregate
func (s *AdminService) LockTopicGlobally(ctx context.Context, topicID string) (*BulkResult, error) {
	if err := s.catalog.SetTopicGlobalLock(ctx, topicID, true); err != nil {
		return nil, err
	}
	res, err := s.forEachUser(ctx, func(p *models.UserProgress, _ progress.Catalog) error {
		progress.ApplyGlobalTopicLock(p, topicID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("topic locked globally", "topic", topicID, "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

// UnlockTopicGlobally clears the catalog flag. Per-user entries keep their
// status.
func (s *AdminService) UnlockTopicGlobally(ctx context.Context, topicID string) error {
	if err := s.catalog.SetTopicGlobalLock(ctx, topicID, false); err != nil {
		return err
	}
	s.log.Info("topic unlocked globally", "topic", topicID)
	return nil
}

func (s *AdminService) SetAlgorithmGlobalLock(ctx context.Context, topicID, algorithmID string, locked bool) error {
	if err := s.catalog.SetAlgorithmGlobalLock(ctx, topicID, algorithmID, locked); err != nil {
		return err
	}
	s.log.Info("algorithm global lock changed", "topic", topicID, "algorithm", algorithmID, "locked", locked)
	return nil
}

// SetUserTopicLock overrides one user's topic status. Unlocking skips
// prerequisite checks.
func (s *AdminService) SetUserTopicLock(ctx context.Context, userID int64, topicID string, locked bool) (map[string]models.Status, error) {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	topic, err := s.catalog.GetTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	p, err := s.progress.Mutate(ctx, userID, func(p *models.UserProgress, _ progress.Catalog) error {
		progress.SetTopicStatus(p, topic, locked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user topic lock changed", "user_id", userID, "topic", topicID, "locked", locked)

	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return progress.TopicStatuses(p, cat), nil
}

// SetUserAlgorithmLock overrides one user's algorithm status
func (s *AdminService) SetUserAlgorithmLock(ctx context.Context, userID int64, topicID, algorithmID string, locked bool) error {
	if _, err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	topic, err := s.catalog.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}
	_, err = s.progress.Mutate(ctx, userID, func(p *models.UserProgress, _ progress.Catalog) error {
		return progress.SetAlgorithmStatus(p, topic, algorithmID, locked)
	})
	if err != nil {
		return err
	}
	s.log.Info("user algorithm lock changed", "user_id", userID, "topic", topicID, "algorithm", algorithmID, "locked", locked)
	return nil
}

// RecomputeAll re-syncs and recomputes every aggregate, advancing the
// learning path where a topic became complete
func (s *AdminService) RecomputeAll(ctx context.Context) (*BulkResult, error) {
	res, err := s.forEachUser(ctx, func(p *models.UserProgress, cat progress.Catalog) error {
		progress.Recalculate(p)
		progress.UnlockNextTopic(p, cat)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("stats recomputed", "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

// forEachUser mutates every stored aggregate. A failure on one user is
// logged and counted and does not stop the rest.
func (s *AdminService) forEachUser(ctx context.Context, fn func(*models.UserProgress, progress.Catalog) error) (*BulkResult, error) {
	ids, err := s.progress.progress.ListUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	res := &BulkResult{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.progress.Mutate(ctx, id, fn); err != nil {
			s.log.Error("failed to update progress", "user_id", id, "error", err)
			res.Failed++
			continue
		}
		res.Updated++
	}
	return res, nil
}

func (s *AdminService) requireUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFoundf("user %d not found", userID)
	}
	return user, nil
}
