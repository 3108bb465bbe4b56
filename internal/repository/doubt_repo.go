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

const doubtColumns = `id, user_id, subject, title, status, last_replier_id, finished_at, expire_at,
	created_at, updated_at`

// DoubtRepository stores doubt threads and their messages
type DoubtRepository struct {
	db database.DBTX
}

func NewDoubtRepository(db database.DBTX) *DoubtRepository {
	return &DoubtRepository{db: db}
}

// CreateDoubt inserts a thread with its first message. Run inside a transaction.
func (r *DoubtRepository) CreateDoubt(ctx context.Context, d *models.Doubt, first *models.DoubtMessage) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO doubts (user_id, subject, title, status, last_replier_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, d.UserID, d.Subject, d.Title, models.DoubtOpen, d.UserID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create doubt: %w", err)
	}
	d.ID = id
	d.Status = models.DoubtOpen
	d.LastReplierID = &d.UserID
	d.CreatedAt = now
	d.UpdatedAt = now

	first.DoubtID = id
	if err := r.insertMessage(ctx, first, now); err != nil {
		return err
	}
	d.Messages = []models.DoubtMessage{*first}
	return nil
}

func (r *DoubtRepository) insertMessage(ctx context.Context, m *models.DoubtMessage, now time.Time) error {
	query := `
		INSERT INTO doubt_messages (doubt_id, sender_id, sender_role, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, m.DoubtID, m.SenderID, m.SenderRole, m.Message, now)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	m.ID = id
	m.CreatedAt = now
	return nil
}

// AddMessage appends a reply and reopens the thread. Run inside a transaction.
func (r *DoubtRepository) AddMessage(ctx context.Context, m *models.DoubtMessage) error {
	now := time.Now().UTC()
	if err := r.insertMessage(ctx, m, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE doubts SET status = ?, last_replier_id = ?, updated_at = ? WHERE id = ?
	`, models.DoubtOpen, m.SenderID, now, m.DoubtID)
	if err != nil {
		return fmt.Errorf("failed to touch doubt: %w", err)
	}
	return nil
}

// GetDoubt returns a thread with its messages, or nil when absent
func (r *DoubtRepository) GetDoubt(ctx context.Context, id int64) (*models.Doubt, error) {
	d := &models.Doubt{}
	err := r.db.GetContext(ctx, d, "SELECT "+doubtColumns+" FROM doubts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doubt: %w", err)
	}

	err = r.db.SelectContext(ctx, &d.Messages, `
		SELECT id, doubt_id, sender_id, sender_role, message, created_at
		FROM doubt_messages
		WHERE doubt_id = ?
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doubt messages: %w", err)
	}
	return d, nil
}

// ListByUser returns a user's threads without messages, open ones first
func (r *DoubtRepository) ListByUser(ctx context.Context, userID int64) ([]models.Doubt, error) {
	var doubts []models.Doubt
	query := "SELECT " + doubtColumns + " FROM doubts WHERE user_id = ? ORDER BY status, updated_at DESC, id DESC"
	if err := r.db.SelectContext(ctx, &doubts, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list doubts: %w", err)
	}
	return doubts, nil
}

// ListOpen returns every open thread, oldest activity first
func (r *DoubtRepository) ListOpen(ctx context.Context) ([]models.Doubt, error) {
	var doubts []models.Doubt
	query := "SELECT " + doubtColumns + " FROM doubts WHERE status = ? ORDER BY updated_at, id"
	if err := r.db.SelectContext(ctx, &doubts, query, models.DoubtOpen); err != nil {
		return nil, fmt.Errorf("failed to list open doubts: %w", err)
	}
	return doubts, nil
}

// Finish closes a thread and schedules it for purge at expireAt
func (r *DoubtRepository) Finish(ctx context.Context, id int64, finishedAt, expireAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE doubts SET status = ?, finished_at = ?, expire_at = ?, updated_at = ? WHERE id = ?
	`, models.DoubtFinished, finishedAt, expireAt, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish doubt: %w", err)
	}
	return nil
}

// PurgeExpired deletes finished threads whose expiry passed
func (r *DoubtRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM doubt_messages
		WHERE doubt_id IN (SELECT id FROM doubts WHERE status = ? AND expire_at IS NOT NULL AND expire_at < ?)
	`, models.DoubtFinished, now); err != nil {
		return 0, fmt.Errorf("failed to purge doubt messages: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM doubts WHERE status = ? AND expire_at IS NOT NULL AND expire_at < ?
	`, models.DoubtFinished, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge doubts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
