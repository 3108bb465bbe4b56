package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"learnstack/internal/apperr"
	"learnstack/internal/security"
	"learnstack/internal/service"
)

const oauthCookieTTL = 10 * time.Minute

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// EmailsURL lists verified addresses when the profile hides the email
	EmailsURL string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, apperr.Validationf("OAuth provider %q not configured", providerKey).WithCode("oauth_provider"))
		return
	}

	state := security.NewID()
	h.setTempCookie(w, r, "oauth_state", state)
	h.setTempCookie(w, r, "oauth_provider", providerKey)

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)
	http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback. The token is handed to
// the frontend in the URL fragment, or returned as JSON when no frontend is
// configured.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, r, apperr.Validationf("OAuth provider %q not configured", providerKey).WithCode("oauth_provider"))
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, r, apperr.Validationf("missing authorization code"))
		return
	}
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		respondWithError(w, r, apperr.Validationf("invalid OAuth state"))
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, r, apperr.Validationf("OAuth provider mismatch"))
		return
	}
	h.clearTempCookie(w, r, "oauth_state")
	h.clearTempCookie(w, r, "oauth_provider")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)
	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, r, apperr.Wrap(apperr.ExternalService, "failed to exchange OAuth code", err))
		return
	}

	info, err := fetchOAuthUserInfo(ctx, providerKey, provider, token)
	if err != nil {
		respondWithError(w, r, apperr.Wrap(apperr.ExternalService, "failed to fetch OAuth profile", err))
		return
	}

	res, err := h.authService.OAuthLogin(r.Context(), service.OAuthIdentity{
		Provider: providerKey,
		Subject:  info.Subject,
		Email:    info.Email,
		Name:     info.Name,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	if h.frontendURL == "" {
		respondJSON(w, http.StatusOK, res)
		return
	}
	fragment := url.Values{"token": {res.Token}}.Encode()
	http.Redirect(w, r, strings.TrimRight(h.frontendURL, "/")+"/oauth/complete#"+fragment, http.StatusSeeOther)
}

func fetchOAuthUserInfo(ctx context.Context, providerKey string, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	switch providerKey {
	case "google":
		return fetchGoogleUser(client, provider)
	case "github":
		return fetchGitHubUser(client, provider)
	default:
		return oauthUserInfo{}, errors.New("unsupported OAuth provider")
	}
}

func getJSON(client *http.Client, endpoint string, dst interface{}) error {
	resp, err := client.Get(endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func fetchGoogleUser(client *http.Client, provider OAuthProvider) (oauthUserInfo, error) {
	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := getJSON(client, provider.UserInfoURL, &payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func fetchGitHubUser(client *http.Client, provider OAuthProvider) (oauthUserInfo, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(client, provider.UserInfoURL, &payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch GitHub user info: %w", err)
	}
	info := oauthUserInfo{Subject: fmt.Sprint(payload.ID), Email: payload.Email, Name: payload.Name}
	if info.Name == "" {
		info.Name = payload.Login
	}
	if info.Email != "" || provider.EmailsURL == "" {
		return info, nil
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(client, provider.EmailsURL, &emails); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch GitHub emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			info.Email = e.Email
			break
		}
	}
	return info, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/api/auth/oauth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(oauthCookieTTL),
		MaxAge:   int(oauthCookieTTL.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
