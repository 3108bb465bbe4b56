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

const topicColumns = `id, name, description, position, prerequisites, difficulty,
	estimated_minutes, is_globally_locked, is_active, created_at, updated_at`

// TopicRepository stores the topic catalog and its algorithms
type TopicRepository struct {
	db database.DBTX
}

func NewTopicRepository(db database.DBTX) *TopicRepository {
	return &TopicRepository{db: db}
}

// ListTopics returns topics sorted by order with their algorithms attached
func (r *TopicRepository) ListTopics(ctx context.Context, activeOnly bool) ([]models.Topic, error) {
	query := "SELECT " + topicColumns + " FROM topics"
	var args []interface{}
	if activeOnly {
		query += " WHERE is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY position, id"

	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}

	var algos []models.Algorithm
	err := r.db.SelectContext(ctx, &algos, `
		SELECT topic_id, id, name, difficulty, points, is_globally_locked, position
		FROM algorithms
		ORDER BY topic_id, position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list algorithms: %w", err)
	}

	byTopic := make(map[string][]models.Algorithm)
	for _, a := range algos {
		byTopic[a.TopicID] = append(byTopic[a.TopicID], a)
	}
	for i := range topics {
		topics[i].Algorithms = byTopic[topics[i].ID]
	}
	return topics, nil
}

// GetTopic returns one topic with its algorithms, or nil when absent
func (r *TopicRepository) GetTopic(ctx context.Context, id string) (*models.Topic, error) {
	topic := &models.Topic{}
	err := r.db.GetContext(ctx, topic, "SELECT "+topicColumns+" FROM topics WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	err = r.db.SelectContext(ctx, &topic.Algorithms, `
		SELECT topic_id, id, name, difficulty, points, is_globally_locked, position
		FROM algorithms
		WHERE topic_id = ?
		ORDER BY position, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get algorithms: %w", err)
	}
	return topic, nil
}

// CreateTopic inserts a topic and its algorithms. Run inside a transaction.
func (r *TopicRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO topics (id, name, description, position, prerequisites, difficulty,
			estimated_minutes, is_globally_locked, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		topic.ID, topic.Name, topic.Description, topic.Order, topic.Prerequisites, topic.Difficulty,
		topic.EstimatedMinutes, topic.IsGloballyLocked, topic.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	topic.CreatedAt = now
	topic.UpdatedAt = now
	return r.insertAlgorithms(ctx, topic)
}

// UpdateTopic rewrites a topic's fields and replaces its algorithm list.
// Run inside a transaction.
func (r *TopicRepository) UpdateTopic(ctx context.Context, topic *models.Topic) error {
	now := time.Now().UTC()
	query := `
		UPDATE topics
		SET name = ?, description = ?, position = ?, prerequisites = ?, difficulty = ?,
			estimated_minutes = ?, is_globally_locked = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		topic.Name, topic.Description, topic.Order, topic.Prerequisites, topic.Difficulty,
		topic.EstimatedMinutes, topic.IsGloballyLocked, topic.IsActive, now, topic.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	topic.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, "DELETE FROM algorithms WHERE topic_id = ?", topic.ID); err != nil {
		return fmt.Errorf("failed to clear algorithms: %w", err)
	}
	return r.insertAlgorithms(ctx, topic)
}

func (r *TopicRepository) insertAlgorithms(ctx context.Context, topic *models.Topic) error {
	query := `
		INSERT INTO algorithms (topic_id, id, name, difficulty, points, is_globally_locked, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i := range topic.Algorithms {
		a := &topic.Algorithms[i]
		a.TopicID = topic.ID
		a.Position = i
		if _, err := r.db.ExecContext(ctx, query, a.TopicID, a.ID, a.Name, a.Difficulty, a.Points, a.IsGloballyLocked, a.Position); err != nil {
			return fmt.Errorf("failed to insert algorithm %s: %w", a.ID, err)
		}
	}
	return nil
}

// UpsertTopic creates the topic or replaces it when the id already exists
func (r *TopicRepository) UpsertTopic(ctx context.Context, topic *models.Topic) error {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM topics WHERE id = ?", topic.ID); err != nil {
		return fmt.Errorf("failed to check topic: %w", err)
	}
	if count > 0 {
		return r.UpdateTopic(ctx, topic)
	}
	return r.CreateTopic(ctx, topic)
}

// DeleteTopic removes a topic and its algorithms. Reports whether it existed.
func (r *TopicRepository) DeleteTopic(ctx context.Context, id string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM algorithms WHERE topic_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to delete algorithms: %w", err)
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM topics WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete topic: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

// SetTopicGlobalLock sets the global lock flag of a topic
func (r *TopicRepository) SetTopicGlobalLock(ctx context.Context, id string, locked bool) error {
	query := "UPDATE topics SET is_globally_locked = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, locked, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to set topic lock: %w", err)
	}
	return nil
}

// SetAlgorithmGlobalLock sets the global lock flag of an algorithm
func (r *TopicRepository) SetAlgorithmGlobalLock(ctx context.Context, topicID, algorithmID string, locked bool) error {
	query := "UPDATE algorithms SET is_globally_locked = ? WHERE topic_id = ? AND id = ?"
	if _, err := r.db.ExecContext(ctx, query, locked, topicID, algorithmID); err != nil {
		return fmt.Errorf("failed to set algorithm lock: %w", err)
	}
	return nil
}
