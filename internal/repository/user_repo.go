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

const userColumns = `id, username, email, password_hash, role, is_email_verified,
	verification_otp_hash, verification_expires_at, reset_otp_hash, reset_expires_at,
	oauth_provider, oauth_subject, password_changed_at, created_at, updated_at`

// UserRepository handles database operations for accounts
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user. The first account on a fresh database becomes admin.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	var userCount int
	if err := r.db.GetContext(ctx, &userCount, "SELECT COUNT(*) FROM users"); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if userCount == 0 {
		user.Role = models.RoleAdmin
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (username, email, password_hash, role, is_email_verified,
			verification_otp_hash, verification_expires_at, reset_otp_hash,
			oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role, user.IsEmailVerified,
		user.VerificationOTPHash, user.VerificationExpiresAt,
		user.OAuthProvider, user.OAuthSubject, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetContext(ctx, user, "SELECT "+userColumns+" FROM users WHERE "+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address. Returns nil when absent.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetUserByUsername retrieves a user by username. Returns nil when absent.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "username = ?", username)
}

// GetUserByID retrieves a user by ID. Returns nil when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	return r.getOne(ctx, "oauth_provider = ? AND oauth_subject = ?", provider, subject)
}

// GetAllUsers retrieves all users, newest first
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	query := "SELECT " + userColumns + " FROM users ORDER BY created_at DESC, id DESC"
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return users, nil
}

// SetVerificationOTP stores a new hashed verification code
func (r *UserRepository) SetVerificationOTP(ctx context.Context, id int64, otpHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET verification_otp_hash = ?, verification_expires_at = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, otpHash, expiresAt, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to set verification code: %w", err)
	}
	return nil
}

// MarkVerified flags the email as verified and clears the verification code
func (r *UserRepository) MarkVerified(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET is_email_verified = ?, verification_otp_hash = '', verification_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// SetResetOTP stores a new hashed password reset code
func (r *UserRepository) SetResetOTP(ctx context.Context, id int64, otpHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_otp_hash = ?, reset_expires_at = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, otpHash, expiresAt, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to set reset code: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash and clears any reset code
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	now := time.Now().UTC()
	query := `
		UPDATE users
		SET password_hash = ?, reset_otp_hash = '', reset_expires_at = NULL,
			password_changed_at = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, passwordHash, now, now, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ClearExpiredOTPs drops verification and reset codes that expired before now
func (r *UserRepository) ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, query := range []string{
		`UPDATE users SET verification_otp_hash = '', verification_expires_at = NULL
		 WHERE verification_expires_at IS NOT NULL AND verification_expires_at < ?`,
		`UPDATE users SET reset_otp_hash = '', reset_expires_at = NULL
		 WHERE reset_expires_at IS NOT NULL AND reset_expires_at < ?`,
	} {
		res, err := r.db.ExecContext(ctx, query, now)
		if err != nil {
			return total, fmt.Errorf("failed to clear expired codes: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// UpdateRole changes a user's role
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	query := "UPDATE users SET role = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, role, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// DeleteUser deletes a user and all associated data
func (r *UserRepository) DeleteUser(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// LinkOAuthProvider links an existing user to an OAuth provider
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, userID int64, provider, subject string) error {
	query := `
		UPDATE users
		SET oauth_provider = ?, oauth_subject = ?, is_email_verified = ?, updated_at = ?
		WHERE id = ?
		AND oauth_provider = ''
	`
	result, err := r.db.ExecContext(ctx, query, provider, subject, true, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("oauth provider already linked")
	}

	return nil
}

// PlatformStats counts users, content and open work for the admin dashboard
func (r *UserRepository) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_email_verified = ?) AS verified_users,
			(SELECT COUNT(*) FROM users WHERE role = ?) AS mentors,
			(SELECT COUNT(*) FROM users WHERE role = ?) AS admins,
			(SELECT COUNT(*) FROM topics) AS topics,
			(SELECT COUNT(*) FROM daily_problems WHERE is_active = ?) AS active_daily_problems,
			(SELECT COUNT(*) FROM doubts WHERE status = ?) AS open_doubts,
			(SELECT COUNT(*) FROM quiz_tests) AS quiz_tests,
			(SELECT COUNT(*) FROM achievements) AS total_achievements
	`
	stats := &models.PlatformStats{}
	err := r.db.GetContext(ctx, stats, query, true, models.RoleMentor, models.RoleAdmin, true, models.DoubtOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform stats: %w", err)
	}
	return stats, nil
}
