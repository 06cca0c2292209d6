package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hszk-dev/clipforge/internal/auth"
	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/usecase"
)

type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
}

type RegisterResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Username string `json:"username"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// AuthHandlerConfig holds HTTP-facing auth settings.
type AuthHandlerConfig struct {
	// FrontendBaseURL is where the verify-email endpoint redirects to.
	FrontendBaseURL string
	// CookieSecure toggles the Secure attribute; disable for plain-HTTP dev.
	CookieSecure bool
}

// AuthHandler handles account and session HTTP requests.
type AuthHandler struct {
	svc usecase.AuthService
	cfg AuthHandlerConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc usecase.AuthService, cfg AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	user, err := h.svc.Register(r.Context(), usecase.RegisterInput{
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	JSON(w, http.StatusCreated, RegisterResponse{
		Username: user.Username,
		Email:    user.Email,
	})
}

// Login handles POST /api/auth/login. The token travels in the Authorization
// response header; the fingerprint goes into a hardened cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	http.SetCookie(w, h.fingerprintCookie(result.Fingerprint.Raw, 0))
	w.Header().Set("Authorization", "Bearer "+result.Token)
	JSON(w, http.StatusOK, LoginResponse{Username: req.Username})
}

// Logout handles POST /api/auth/logout. Stateless tokens cannot be revoked;
// expiring the fingerprint cookie is enough to kill the pair.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.fingerprintCookie("", -1))
	w.WriteHeader(http.StatusOK)
}

// VerifyEmail handles GET /api/auth/verify-email?token=...
// Browsers land here from the mail link, so the answer is a redirect.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, h.cfg.FrontendBaseURL+"/login?verified=false", http.StatusFound)
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), token); err != nil {
		http.Redirect(w, r, h.cfg.FrontendBaseURL+"/login?verified=false", http.StatusFound)
		return
	}

	http.Redirect(w, r, h.cfg.FrontendBaseURL+"/login?verified=true", http.StatusFound)
}

// ResendVerification handles POST /api/auth/resend-verification.
// Always 202: the response must not confirm whether the address exists.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) fingerprintCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     auth.FingerprintCookieName,
		Value:    value,
		Path:     "/api",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrPasswordMismatch):
		ErrorWithFields(w, r, http.StatusBadRequest, "Validation failed.",
			map[string]string{"passwordConfirmation": "Password and confirmation do not match."})
	case errors.Is(err, auth.ErrPasswordTooShort):
		ErrorWithFields(w, r, http.StatusBadRequest, "Validation failed.",
			map[string]string{"password": "Password must be at least 8 characters."})
	case errors.Is(err, model.ErrInvalidUsername):
		ErrorWithFields(w, r, http.StatusBadRequest, "Validation failed.",
			map[string]string{"username": "Username must be 3-20 characters of letters, digits or underscore."})
	case errors.Is(err, model.ErrInvalidEmail):
		ErrorWithFields(w, r, http.StatusBadRequest, "Validation failed.",
			map[string]string{"email": "Email address is invalid."})
	case errors.Is(err, repository.ErrDuplicateUser):
		Error(w, r, http.StatusConflict, "Username or email is already taken.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		Error(w, r, http.StatusUnauthorized, "Invalid username or password.")
	case errors.Is(err, usecase.ErrAccountNotVerified):
		Error(w, r, http.StatusForbidden, "Account email is not verified.")
	default:
		Error(w, r, http.StatusInternalServerError, "An unexpected error occurred.")
	}
}
