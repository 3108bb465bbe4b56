package service

import (
	"context"
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

const (
	maxDoubtTitle   = 200
	maxDoubtMessage = 5000
)

// DoubtService manages question threads between learners and mentors
type DoubtService struct {
	log    *logger.Logger
	db     *database.DB
	doubts *repository.DoubtRepository
	now    func() time.Time
}

// NewDoubtService creates a new doubt service
func NewDoubtService(log *logger.Logger, db *database.DB) *DoubtService {
	return &DoubtService{
		log:    log.With("service", "DoubtService"),
		db:     db,
		doubts: repository.NewDoubtRepository(db),
		now:    time.Now,
	}
}

// Subjects lists the subjects a doubt can be filed under
func (s *DoubtService) Subjects() []string {
	return append([]string{}, models.DoubtSubjects...)
}

// Ask opens a thread with its first message
func (s *DoubtService) Ask(ctx context.Context, user *models.User, subject, title, message string) (*models.Doubt, error) {
	subject = strings.TrimSpace(subject)
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if !models.ValidSubject(subject) {
		return nil, apperr.Validationf("unknown subject %q", subject).WithCode("subject")
	}
	if title == "" || len(title) > maxDoubtTitle {
		return nil, apperr.Validationf("title must be 1 to %d characters", maxDoubtTitle).WithCode("title")
	}
	if err := checkMessage(message); err != nil {
		return nil, err
	}

	d := &models.Doubt{UserID: user.ID, Subject: subject, Title: title}
	first := &models.DoubtMessage{SenderID: user.ID, SenderRole: user.Role, Message: message}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewDoubtRepository(tx).CreateDoubt(ctx, d, first)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("doubt opened", "doubt_id", d.ID, "user_id", user.ID, "subject", subject)
	return d, nil
}

// Mine lists the caller's threads without messages
func (s *DoubtService) Mine(ctx context.Context, userID int64) ([]models.Doubt, error) {
	doubts, err := s.doubts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doubts == nil {
		doubts = []models.Doubt{}
	}
	return doubts, nil
}

// OpenQueue lists every open thread for mentors
func (s *DoubtService) OpenQueue(ctx context.Context) ([]models.Doubt, error) {
	doubts, err := s.doubts.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if doubts == nil {
		doubts = []models.Doubt{}
	}
	return doubts, nil
}

// Get returns a thread visible to the owner and to mentors
func (s *DoubtService) Get(ctx context.Context, user *models.User, id int64) (*models.Doubt, error) {
	d, err := s.doubts.GetDoubt(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperr.NotFoundf("doubt %d not found", id)
	}
	if d.UserID != user.ID && !user.CanMentor() {
		return nil, apperr.New(apperr.AccessDenied, "you cannot view this doubt")
	}
	return d, nil
}

// Reply appends a message and reopens the thread
func (s *DoubtService) Reply(ctx context.Context, user *models.User, id int64, message string) (*models.Doubt, error) {
	message = strings.TrimSpace(message)
	if err := checkMessage(message); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, user, id); err != nil {
		return nil, err
	}

	m := &models.DoubtMessage{DoubtID: id, SenderID: user.ID, SenderRole: user.Role, Message: message}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return repository.NewDoubtRepository(tx).AddMessage(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	return s.doubts.GetDoubt(ctx, id)
}

// Close marks the owner's thread finished. It is purged after the retention
// window.
func (s *DoubtService) Close(ctx context.Context, user *models.User, id int64) (*models.Doubt, error) {
	d, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != user.ID {
		return nil, apperr.New(apperr.AccessDenied, "only the author can close a doubt")
	}
	if d.Status == models.DoubtFinished {
		return d, nil
	}

	now := s.now().UTC()
	expire := now.Add(models.DoubtRetention)
	if err := s.doubts.Finish(ctx, id, now, expire); err != nil {
		return nil, err
	}
	d.Status = models.DoubtFinished
	d.FinishedAt = &now
	d.ExpireAt = &expire
	s.log.Info("doubt closed", "doubt_id", id)
	return d, nil
}

// PurgeExpired deletes finished threads past their expiry
func (s *DoubtService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.doubts.PurgeExpired(ctx, s.now().UTC())
}

func checkMessage(message string) error {
	if message == "" || len(message) > maxDoubtMessage {
		return apperr.Validationf("message must be 1 to %d characters", maxDoubtMessage).WithCode("message")
	}
	return nil
}
