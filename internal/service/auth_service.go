package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"learnstack/internal/apperr"
	"learnstack/internal/database"
	"learnstack/internal/logger"
	"learnstack/internal/models"
	"learnstack/internal/repository"
	"learnstack/internal/security"
	"learnstack/internal/validation"
)

var (
	ErrEmailTaken         = apperr.New(apperr.Validation, "email already registered").WithCode("email")
	ErrUsernameTaken      = apperr.New(apperr.Validation, "username already taken").WithCode("username")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid email or password")
	ErrEmailNotVerified   = apperr.New(apperr.AccessDenied, "email address not verified").WithCode("email_not_verified")
	ErrInvalidOTP         = apperr.New(apperr.Validation, "invalid or expired code").WithCode("otp")
	ErrTokenRevoked       = apperr.New(apperr.Unauthorized, "token no longer valid")
)

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_.\-]+`)

// AuthResult is a signed access token for a user
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// OAuthIdentity is the verified profile returned by a social login provider
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// AuthService handles registration, one-time codes and token issuance
type AuthService struct {
	log      *logger.Logger
	db       *database.DB
	users    *repository.UserRepository
	progress *ProgressService
	mailer   Mailer
	tokens   *security.TokenIssuer
	otpTTL   time.Duration
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(log *logger.Logger, db *database.DB, progress *ProgressService, mailer Mailer, tokens *security.TokenIssuer, otpTTL time.Duration) *AuthService {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &AuthService{
		log:      log.With("service", "AuthService"),
		db:       db,
		users:    repository.NewUserRepository(db),
		progress: progress,
		mailer:   mailer,
		tokens:   tokens,
		otpTTL:   otpTTL,
		now:      time.Now,
	}
}

// Register creates an unverified account with its progress aggregate and
// mails a verification code
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	existing, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	code, codeHash, expires, err := s.newOTP()
	if err != nil {
		return nil, err
	}

	cat, err := s.progress.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:              username,
		Email:                 email,
		PasswordHash:          passwordHash,
		VerificationOTPHash:   codeHash,
		VerificationExpiresAt: &expires,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := repository.NewUserRepository(tx).CreateUser(ctx, user); err != nil {
			return err
		}
		_, err := s.progress.Initialize(ctx, repository.NewProgressRepository(tx), user.ID, cat)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
		// the user can ask for a new code
		s.log.Warn("failed to send verification code", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// VerifyOTP checks a verification code and issues a token
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidOTP
	}
	if !user.IsEmailVerified {
		if models.OTPExpired(user.VerificationExpiresAt, s.now()) || !security.CheckOTP(strings.TrimSpace(code), user.VerificationOTPHash) {
			return nil, ErrInvalidOTP
		}
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsEmailVerified = true
		s.log.Info("email verified", "user_id", user.ID)
	}
	return s.issue(user)
}

// ResendOTP mails a fresh verification code. Unknown or verified addresses
// succeed silently.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || user.IsEmailVerified {
		return nil
	}
	code, codeHash, expires, err := s.newOTP()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationOTP(ctx, user.ID, codeHash, expires); err != nil {
		return err
	}
	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
		return apperr.Wrap(apperr.ExternalService, "failed to send verification code", err)
	}
	return nil
}

// Login checks credentials for a verified account, touches the login streak
// and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := s.progress.RecordLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to record login activity", "user_id", user.ID, "error", err)
	}
	return s.issue(user)
}

// ForgotPassword mails a reset code. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	code, codeHash, expires, err := s.newOTP()
	if err != nil {
		return err
	}
	if err := s.users.SetResetOTP(ctx, user.ID, codeHash, expires); err != nil {
		return err
	}
	if err := s.mailer.SendPasswordResetCode(ctx, user.Email, user.Username, code, s.otpTTL); err != nil {
		return apperr.Wrap(apperr.ExternalService, "failed to send reset code", err)
	}
	s.log.Info("password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password when the reset code matches and has not
// expired. Tokens issued before the change stop working.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || user.ResetOTPHash == "" {
		return ErrInvalidOTP
	}
	if models.OTPExpired(user.ResetExpiresAt, s.now()) || !security.CheckOTP(strings.TrimSpace(code), user.ResetOTPHash) {
		return ErrInvalidOTP
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	if !user.IsEmailVerified {
		// receiving the reset code proves the address
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return err
		}
	}
	s.log.Info("password reset", "user_id", user.ID)
	return nil
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.Unauthorized, "authentication required")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthorized, "invalid token subject", err)
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "account no longer exists")
	}
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
		claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		return nil, ErrTokenRevoked
	}
	return user, nil
}

// Profile is the current user with the achievements they hold
type Profile struct {
	User         *models.User               `json:"user"`
	Achievements []models.EarnedAchievement `json:"achievements"`
}

// Me returns the user by id with their earned achievements
func (s *AuthService) Me(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFoundf("user %d not found", userID)
	}
	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: user, Achievements: p.Achievements}, nil
}

// OAuthLogin signs in with a provider identity. An unknown identity is linked
// to the account with the same email, or a new verified account is created.
func (s *AuthService) OAuthLogin(ctx context.Context, id OAuthIdentity) (*AuthResult, error) {
	if id.Provider == "" || id.Subject == "" {
		return nil, apperr.New(apperr.Unauthorized, "incomplete provider identity")
	}

	user, err := s.users.GetUserByOAuth(ctx, id.Provider, id.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.linkOrCreate(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if err := s.progress.RecordLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to record login activity", "user_id", user.ID, "error", err)
	}
	return s.issue(user)
}

func (s *AuthService) linkOrCreate(ctx context.Context, id OAuthIdentity) (*models.User, error) {
	email := validation.NormalizeEmail(id.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "provider did not return a usable email")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.OAuthProvider != "" {
			return nil, apperr.New(apperr.Validation, "account is linked to another provider").WithCode("oauth_provider")
		}
		if err := s.users.LinkOAuthProvider(ctx, existing.ID, id.Provider, id.Subject); err != nil {
			return nil, err
		}
		s.log.Info("oauth provider linked", "user_id", existing.ID, "provider", id.Provider)
		return s.users.GetUserByID(ctx, existing.ID)
	}

	username, err := s.availableUsername(ctx, id)
	if err != nil {
		return nil, err
	}
	cat, err := s.progress.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:        username,
		Email:           email,
		IsEmailVerified: true,
		OAuthProvider:   id.Provider,
		OAuthSubject:    id.Subject,
	}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := repository.NewUserRepository(tx).CreateUser(ctx, user); err != nil {
			return err
		}
		_, err := s.progress.Initialize(ctx, repository.NewProgressRepository(tx), user.ID, cat)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered via oauth", "user_id", user.ID, "provider", id.Provider)
	return user, nil
}

// availableUsername derives a username from the profile name or email and
// appends a short suffix until it is free
func (s *AuthService) availableUsername(ctx context.Context, id OAuthIdentity) (string, error) {
	base := usernameStrip.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(id.Name), " ", "_"), "")
	if len(base) < validation.MinUsernameLength {
		local, _, _ := strings.Cut(id.Email, "@")
		base = usernameStrip.ReplaceAllString(local, "")
	}
	for len(base) < validation.MinUsernameLength {
		base += "_"
	}
	if len(base) > validation.MaxUsernameLength-7 {
		base = base[:validation.MaxUsernameLength-7]
	}

	candidate := base
	for i := 0; i < 5; i++ {
		existing, err := s.users.GetUserByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = base + "_" + security.NewID()[:6]
	}
	return "", apperr.New(apperr.Conflict, "could not allocate a username")
}

// CleanupExpiredOTPs clears one-time codes past their expiry
func (s *AuthService) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	return s.users.ClearExpiredOTPs(ctx, s.now().UTC())
}

func (s *AuthService) newOTP() (code, hash string, expires time.Time, err error) {
	code, err = security.GenerateOTP()
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err = security.HashOTP(code)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to hash code: %w", err)
	}
	return code, hash, s.now().UTC().Add(s.otpTTL), nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: user}, nil
}
