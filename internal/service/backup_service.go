package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/catalog"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
)

// BackupVersion is the format written by Export
const BackupVersion = "1.0"

// BackupData is a portable snapshot of the catalog, accounts and progress
type BackupData struct {
	Version      string               `json:"version"`
	ExportedAt   time.Time            `json:"exported_at"`
	DatabaseType string               `json:"database_type"`
	Catalog      *catalog.Document    `json:"catalog"`
	Achievements []models.Achievement `json:"achievements,omitempty"`
	Users        []UserBackup         `json:"users"`
	Progress     []ProgressBackup     `json:"progress"`
}

// UserBackup is a user record for backup. One-time codes are not exported.
type UserBackup struct {
	ID              int64       `json:"id"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	PasswordHash    string      `json:"password_hash"`
	Role            models.Role `json:"role"`
	IsEmailVerified bool        `json:"is_email_verified"`
	OAuthProvider   string      `json:"oauth_provider"`
	OAuthSubject    string      `json:"oauth_subject"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ProgressBackup is one user's aggregate document
type ProgressBackup struct {
	UserID   int64                `json:"user_id"`
	Document *models.UserProgress `json:"document"`
}

// ImportSummary counts what an import wrote
type ImportSummary struct {
	Topics          int `json:"topics"`
	Achievements    int `json:"achievements"`
	UsersCreated    int `json:"usersCreated"`
	UsersSkipped    int `json:"usersSkipped"`
	ProgressWritten int `json:"progressWritten"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	log     *logger.Logger
	db      *database.DB
	catalog *CatalogService
}

// NewBackupService creates a new backup service
func NewBackupService(log *logger.Logger, db *database.DB, catalog *CatalogService) *BackupService {
	return &BackupService{log: log.With("service", "BackupService"), db: db, catalog: catalog}
}

// Export writes a complete backup as indented JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	s.log.Info("starting export")

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	doc, err := s.catalog.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export catalog: %w", err)
	}
	backup.Catalog = doc

	backup.Achievements, err = repository.NewAchievementRepository(s.db).List(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to export achievements: %w", err)
	}

	users, err := repository.NewUserRepository(s.db).GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:              u.ID,
			Username:        u.Username,
			Email:           u.Email,
			PasswordHash:    u.PasswordHash,
			Role:            u.Role,
			IsEmailVerified: u.IsEmailVerified,
			OAuthProvider:   u.OAuthProvider,
			OAuthSubject:    u.OAuthSubject,
			CreatedAt:       u.CreatedAt,
			UpdatedAt:       u.UpdatedAt,
		})
	}

	progressRepo := repository.NewProgressRepository(s.db)
	ids, err := progressRepo.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to export progress: %w", err)
	}
	for _, id := range ids {
		p, err := progressRepo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to export progress for user %d: %w", id, err)
		}
		if p != nil {
			backup.Progress = append(backup.Progress, ProgressBackup{UserID: id, Document: p})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("export finished", "topics", len(doc.Topics), "achievements", len(backup.Achievements),
		"users", len(backup.Users), "progress", len(backup.Progress))
	return nil
}

// Import restores a backup. The catalog is upserted, achievement templates
// and users that already exist are skipped, and progress documents replace
// the stored aggregate. Restored templates are served once the achievement
// cache expires.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "failed to decode backup", err)
	}
	if backup.Version != BackupVersion {
		return nil, apperr.Validationf("unsupported backup version %q", backup.Version)
	}
	s.log.Info("starting import", "exported_at", backup.ExportedAt, "source", backup.DatabaseType)

	summary := &ImportSummary{}
	if backup.Catalog != nil && len(backup.Catalog.Topics) > 0 {
		n, err := s.catalog.Import(ctx, backup.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to import catalog: %w", err)
		}
		summary.Topics = n
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		achievements := repository.NewAchievementRepository(tx)
		for i := range backup.Achievements {
			a := &backup.Achievements[i]
			existing, err := achievements.Get(ctx, a.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := validateAchievement(a); err != nil {
				return fmt.Errorf("invalid achievement %q: %w", a.ID, err)
			}
			if err := achievements.Create(ctx, a); err != nil {
				return err
			}
			summary.Achievements++
		}

		users := repository.NewUserRepository(tx)
		for _, u := range backup.Users {
			exists, err := userExists(ctx, users, u)
			if err != nil {
				return err
			}
			if exists {
				summary.UsersSkipped++
				continue
			}
			if err := insertUserBackup(ctx, tx, u); err != nil {
				return fmt.Errorf("failed to import user %d: %w", u.ID, err)
			}
			summary.UsersCreated++
		}
		if err := resetUserSequence(ctx, tx, s.db.Dialect); err != nil {
			return err
		}

		progressRepo := repository.NewProgressRepository(tx)
		for _, pb := range backup.Progress {
			if pb.Document == nil {
				continue
			}
			owner, err := users.GetUserByID(ctx, pb.UserID)
			if err != nil {
				return err
			}
			if owner == nil {
				continue
			}
			if err := restoreProgress(ctx, progressRepo, pb); err != nil {
				return fmt.Errorf("failed to import progress for user %d: %w", pb.UserID, err)
			}
			summary.ProgressWritten++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("import finished", "topics", summary.Topics, "achievements", summary.Achievements,
		"users_created", summary.UsersCreated,
		"users_skipped", summary.UsersSkipped, "progress", summary.ProgressWritten)
	return summary, nil
}

func userExists(ctx context.Context, users *repository.UserRepository, u UserBackup) (bool, error) {
	byID, err := users.GetUserByID(ctx, u.ID)
	if err != nil || byID != nil {
		return byID != nil, err
	}
	byEmail, err := users.GetUserByEmail(ctx, u.Email)
	if err != nil || byEmail != nil {
		return byEmail != nil, err
	}
	byName, err := users.GetUserByUsername(ctx, u.Username)
	return byName != nil, err
}

func insertUserBackup(ctx context.Context, tx *database.Tx, u UserBackup) error {
	role := u.Role
	if !role.Valid() {
		role = models.RoleUser
	}
	query := `
		INSERT INTO users (id, username, email, password_hash, role, is_email_verified,
			oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, role,
		u.IsEmailVerified, u.OAuthProvider, u.OAuthSubject, u.CreatedAt, u.UpdatedAt)
	return err
}

// resetUserSequence moves the PostgreSQL id sequence past imported ids
func resetUserSequence(ctx context.Context, tx *database.Tx, dialect database.Dialect) error {
	if dialect.DriverName() != "postgres" {
		return nil
	}
	_, err := tx.ExecContext(ctx, "SELECT setval(pg_get_serial_sequence('users', 'id'), COALESCE((SELECT MAX(id) FROM users), 1))")
	if err != nil {
		return fmt.Errorf("failed to reset user id sequence: %w", err)
	}
	return nil
}

func restoreProgress(ctx context.Context, repo *repository.ProgressRepository, pb ProgressBackup) error {
	p := pb.Document
	p.UserID = pb.UserID
	current, err := repo.Get(ctx, pb.UserID)
	if err != nil {
		return err
	}
	if current == nil {
		return repo.Create(ctx, p)
	}
	p.Version = current.Version
	return repo.Save(ctx, p)
}
