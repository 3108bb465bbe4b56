package models

import "time"

// Role is the account role used for route authorization
type Role string

const (
	RoleUser   Role = "user"
	RoleMentor Role = "mentor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMentor, RoleAdmin:
		return true
	}
	return false
}

// User represents a learner, mentor or admin account
type User struct {
	ID                    int64      `db:"id" json:"id"`
	Username              string     `db:"username" json:"username"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	Role                  Role       `db:"role" json:"role"`
	IsEmailVerified       bool       `db:"is_email_verified" json:"isEmailVerified"`
	VerificationOTPHash   string     `db:"verification_otp_hash" json:"-"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at" json:"-"`
	ResetOTPHash          string     `db:"reset_otp_hash" json:"-"`
	ResetExpiresAt        *time.Time `db:"reset_expires_at" json:"-"`
	OAuthProvider         string     `db:"oauth_provider" json:"oauthProvider,omitempty"`
	OAuthSubject          string     `db:"oauth_subject" json:"-"`
	PasswordChangedAt     *time.Time `db:"password_changed_at" json:"-"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanMentor reports whether the user may use mentor routes. Admins can.
func (u *User) CanMentor() bool {
	return u.Role == RoleMentor || u.Role == RoleAdmin
}

// OTPExpired reports whether a one-time code with the given expiry is no
// longer usable at now. A missing expiry counts as expired.
func OTPExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt == nil || now.After(*expiresAt)
}
