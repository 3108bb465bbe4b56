package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/cache"
	"learnstack/internal/catalog"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/progress"
	"learnstack/internal/repository"
)

// CatalogService serves the topic catalog from a cached snapshot and owns
// catalog writes
type CatalogService struct {
	log    *logger.Logger
	db     *database.DB
	topics *repository.TopicRepository
	cache  cache.Store
	ttl    time.Duration
}

// NewCatalogService creates a new catalog service
func NewCatalogService(log *logger.Logger, db *database.DB, store cache.Store, ttl time.Duration) *CatalogService {
	return &CatalogService{
		log:    log.With("service", "CatalogService"),
		db:     db,
		topics: repository.NewTopicRepository(db),
		cache:  store,
		ttl:    ttl,
	}
}

// ActiveTopics returns the active catalog sorted by order. The result may be
// up to one TTL stale.
func (s *CatalogService) ActiveTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	hit, err := s.cache.Get(ctx, cache.KeyCatalog, &topics)
	if err != nil {
		s.log.Warn("catalog cache read failed", "error", err)
	}
	if hit {
		return topics, nil
	}

	topics, err = s.topics.ListTopics(ctx, true)
	if err != nil {
		return nil, err
	}
	sortTopics(topics)
	if err := s.cache.Set(ctx, cache.KeyCatalog, topics, s.ttl); err != nil {
		s.log.Warn("catalog cache write failed", "error", err)
	}
	return topics, nil
}

// Catalog returns the active topics in the form the progress core consumes
func (s *CatalogService) Catalog(ctx context.Context) (progress.Catalog, error) {
	topics, err := s.ActiveTopics(ctx)
	if err != nil {
		return nil, err
	}
	return progress.Catalog(topics), nil
}

// AllTopics returns every topic including inactive ones, bypassing the cache
func (s *CatalogService) AllTopics(ctx context.Context) ([]models.Topic, error) {
	topics, err := s.topics.ListTopics(ctx, false)
	if err != nil {
		return nil, err
	}
	sortTopics(topics)
	return topics, nil
}

// GetTopic returns one topic by id
func (s *CatalogService) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	topic, err := s.topics.GetTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, apperr.NotFoundf("topic %q not found", id)
	}
	return topic, nil
}

// CreateTopic adds a topic after validating the resulting catalog
func (s *CatalogService) CreateTopic(ctx context.Context, topic *models.Topic) error {
	normalizeTopic(topic)
	existing, err := s.topics.GetTopic(ctx, topic.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperr.Validationf("topic %q already exists", topic.ID)
	}
	if err := s.validateWith(ctx, topic, ""); err != nil {
		return err
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewTopicRepository(tx).CreateTopic(ctx, topic)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateTopic replaces a topic definition and its algorithms
func (s *CatalogService) UpdateTopic(ctx context.Context, topic *models.Topic) error {
	normalizeTopic(topic)
	if _, err := s.GetTopic(ctx, topic.ID); err != nil {
		return err
	}
	if err := s.validateWith(ctx, topic, topic.ID); err != nil {
		return err
	}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewTopicRepository(tx).UpdateTopic(ctx, topic)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteTopic removes a topic. User progress entries for it are kept.
func (s *CatalogService) DeleteTopic(ctx context.Context, id string) error {
	all, err := s.AllTopics(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		for _, pre := range t.Prerequisites {
			if pre == id {
				return apperr.Validationf("topic %q is a prerequisite of %q", id, t.ID)
			}
		}
	}

	var found bool
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		found, err = repository.NewTopicRepository(tx).DeleteTopic(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFoundf("topic %q not found", id)
	}
	s.invalidate(ctx)
	return nil
}

// SetTopicGlobalLock sets the catalog flag only. Callers fan the lock out to
// user aggregates.
func (s *CatalogService) SetTopicGlobalLock(ctx context.Context, id string, locked bool) error {
	if _, err := s.GetTopic(ctx, id); err != nil {
		return err
	}
	if err := s.topics.SetTopicGlobalLock(ctx, id, locked); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SetAlgorithmGlobalLock sets the catalog flag of one algorithm
func (s *CatalogService) SetAlgorithmGlobalLock(ctx context.Context, topicID, algorithmID string, locked bool) error {
	topic, err := s.GetTopic(ctx, topicID)
	if err != nil {
		return err
	}
	if _, ok := topic.FindAlgorithm(algorithmID); !ok {
		return apperr.NotFoundf("algorithm %q not defined for topic %q", algorithmID, topicID)
	}
	if err := s.topics.SetAlgorithmGlobalLock(ctx, topicID, algorithmID, locked); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Import upserts every topic of a validated seed document in one transaction
func (s *CatalogService) Import(ctx context.Context, doc *catalog.Document) (int, error) {
	if err := catalog.Validate(doc); err != nil {
		return 0, err
	}
	topics := doc.ModelTopics()
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewTopicRepository(tx)
		for i := range topics {
			if err := repo.UpsertTopic(ctx, &topics[i]); err != nil {
				return fmt.Errorf("failed to import topic %s: %w", topics[i].ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.log.Info("catalog imported", "topics", len(topics))
	return len(topics), nil
}

// Export returns the full catalog as a seed document
func (s *CatalogService) Export(ctx context.Context) (*catalog.Document, error) {
	topics, err := s.AllTopics(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.FromTopics(topics), nil
}

// validateWith checks the catalog that would result from writing topic.
// replace names the id being replaced, empty for a new topic.
func (s *CatalogService) validateWith(ctx context.Context, topic *models.Topic, replace string) error {
	all, err := s.AllTopics(ctx)
	if err != nil {
		return err
	}
	next := make([]models.Topic, 0, len(all)+1)
	for _, t := range all {
		if t.ID != replace {
			next = append(next, t)
		}
	}
	next = append(next, *topic)
	return catalog.Validate(catalog.FromTopics(next))
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyCatalog); err != nil {
		s.log.Warn("catalog cache invalidation failed", "error", err)
	}
}

func normalizeTopic(t *models.Topic) {
	if t.Difficulty == "" {
		t.Difficulty = models.DifficultyBeginner
	}
	if t.Prerequisites == nil {
		t.Prerequisites = models.StringList{}
	}
	for i := range t.Algorithms {
		if t.Algorithms[i].Difficulty == "" {
			t.Algorithms[i].Difficulty = models.DifficultyBeginner
		}
	}
}

func sortTopics(topics []models.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Order != topics[j].Order {
			return topics[i].Order < topics[j].Order
		}
		return topics[i].ID < topics[j].ID
	})
}
