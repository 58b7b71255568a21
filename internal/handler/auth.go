package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magnogrupo/portal/internal/config"
	"github.com/magnogrupo/portal/internal/ctxkeys"
	"github.com/magnogrupo/portal/internal/handler/respond"
	"github.com/magnogrupo/portal/internal/model"
	"github.com/magnogrupo/portal/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type authHandler struct {
	authService       *service.AuthService
	jwtExpiry         time.Duration
	googleOAuthConfig *oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *authHandler {
	return &authHandler{
		authService: authService,
		jwtExpiry:   cfg.JWTExpiry,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "an error occurred, please try again")
		return
	}

	respond.OK(w, map[string]any{"user_id": user.ID, "email": user.Email})
}

type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Nationality string `json:"nationality"`
	HomeAddress string `json:"home_address"`
}

func (h *authHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.SignUp(service.SignUpInput{
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
		Phone:       req.Phone,
		Nationality: req.Nationality,
		HomeAddress: req.HomeAddress,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyExists) {
			respond.Error(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "an error occurred, please try again")
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]any{"user_id": user.ID, "email": user.Email})
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	respond.OK(w, map[string]string{"status": "logged out"})
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	profile := ctxkeys.Profile(r.Context())

	respond.OK(w, map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"full_name":    profile.FullName,
		"phone":        profile.Phone,
		"nationality":  profile.Nationality,
		"home_address": profile.HomeAddress,
		"role":         profile.Role,
	})
}

func (h *authHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.authService.SendForgotPasswordLink(req.Email)
	if err != nil && !errors.Is(err, service.ErrInvalidEmail) {
		slog.Error("forgot password failed", "error", err)
	}

	// Always succeed so emails cannot be enumerated
	respond.OK(w, map[string]string{"status": "if the email exists, a reset link was sent"})
}

func (h *authHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req struct {
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.ResetPassword(token, req.Password)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "an error occurred, please try again")
		return
	}

	respond.OK(w, map[string]string{"status": "password updated"})
}

// GoogleAuth redirects to the Google OAuth consent screen.
func (h *authHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	url := h.googleOAuthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback completes the OAuth flow and issues a session cookie.
func (h *authHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value != state || state == "" {
		slog.Warn("google oauth state validation failed", "error", err)
		respond.Error(w, http.StatusBadRequest, "oauth authentication failed, please try again")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		respond.Error(w, http.StatusBadRequest, "oauth authentication failed, please try again")
		return
	}

	token, err := h.googleOAuthConfig.Exchange(context.Background(), code)
	if err != nil {
		slog.Error("google oauth token exchange failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "oauth authentication failed, please try again")
		return
	}

	client := h.googleOAuthConfig.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		slog.Error("failed to get google user info", "error", err)
		respond.Error(w, http.StatusBadGateway, "oauth authentication failed, please try again")
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	err = json.NewDecoder(resp.Body).Decode(&userInfo)
	if err != nil || strings.TrimSpace(userInfo.Email) == "" {
		slog.Error("failed to decode google user info", "error", err)
		respond.Error(w, http.StatusBadGateway, "oauth authentication failed, please try again")
		return
	}

	user, err := h.authService.AuthenticateOAuth(userInfo.Email, userInfo.Name, "google")
	if err != nil {
		slog.Error("oauth authentication failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "authentication failed, please try again")
		return
	}

	err = h.issueSession(w, user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "an error occurred, please try again")
		return
	}

	slog.Info("user logged in with google oauth", "user_id", user.ID)
	http.Redirect(w, r, "/app/submissions", http.StatusSeeOther)
}

func (h *authHandler) issueSession(w http.ResponseWriter, user *model.User) error {
	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		return err
	}
	h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(h.jwtExpiry))
	return nil
}

// generateOAuthState creates a cryptographically secure random state token.
func generateOAuthState() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
