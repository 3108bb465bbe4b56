package handlers

import (
	"net/http"

	"learnstack/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	frontendURL          string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, providers map[string]OAuthProvider, redirectBaseURL, frontendURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       providers,
		oauthRedirectBaseURL: redirectBaseURL,
		frontendURL:          frontendURL,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	RequiresVerification bool   `json:"requiresVerification"`
	Email                string `json:"email"`
	Username             string `json:"username"`
}

// Register creates an unverified account and mails the verification code
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	user, err := h.authService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, registerResponse{
		Success:              true,
		Message:              "Registration successful! Please check your email for the verification code.",
		RequiresVerification: true,
		Email:                user.Email,
		Username:             user.Username,
	})
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP confirms the email address and logs the user in
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	res, err := h.authService.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.authService.ResendOTP(r.Context(), req.Email); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "If the address needs verification, a new code has been sent.")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	res, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "If this email is registered and verified, you will receive a password reset code shortly.")
}

type resetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}
	if err := h.authService.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		respondWithError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "Password reset successfully! You can now login with your new password.")
}

// Me returns the current user and their achievements
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	profile, err := h.authService.Me(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
