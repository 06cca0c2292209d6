package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hszk-dev/clipforge/internal/auth"
	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/usecase"
)

type mockAuthService struct {
	registerFn           func(ctx context.Context, input usecase.RegisterInput) (*model.User, error)
	loginFn              func(ctx context.Context, username, password string) (*usecase.LoginResult, error)
	verifyEmailFn        func(ctx context.Context, token string) error
	resendVerificationFn func(ctx context.Context, email string) error
}

func (m *mockAuthService) Register(ctx context.Context, input usecase.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return &model.User{ID: 1, Username: input.Username, Email: input.Email}, nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*usecase.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	fgp, err := auth.NewFingerprint()
	if err != nil {
		return nil, err
	}
	return &usecase.LoginResult{Token: "token-123", Fingerprint: fgp}, nil
}

func (m *mockAuthService) VerifyEmail(ctx context.Context, token string) error {
	if m.verifyEmailFn != nil {
		return m.verifyEmailFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) ResendVerification(ctx context.Context, email string) error {
	if m.resendVerificationFn != nil {
		return m.resendVerificationFn(ctx, email)
	}
	return nil
}

func newAuthHandler(svc usecase.AuthService) *AuthHandler {
	return NewAuthHandler(svc, AuthHandlerConfig{
		FrontendBaseURL: "https://clips.example.com",
		CookieSecure:    true,
	})
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates the account", func(t *testing.T) {
		var got usecase.RegisterInput
		svc := &mockAuthService{
			registerFn: func(_ context.Context, input usecase.RegisterInput) (*model.User, error) {
				got = input
				return &model.User{ID: 1, Username: input.Username, Email: input.Email}, nil
			},
		}
		h := newAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"correct horse","passwordConfirmation":"correct horse"}`))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		if got.Username != "alice" || got.Email != "alice@example.com" {
			t.Errorf("input = %+v", got)
		}

		var resp RegisterResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Username != "alice" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("maps validation errors to field problems", func(t *testing.T) {
		tests := []struct {
			name  string
			err   error
			want  int
			field string
		}{
			{"password mismatch", usecase.ErrPasswordMismatch, http.StatusBadRequest, "passwordConfirmation"},
			{"short password", auth.ErrPasswordTooShort, http.StatusBadRequest, "password"},
			{"bad username", model.ErrInvalidUsername, http.StatusBadRequest, "username"},
			{"bad email", model.ErrInvalidEmail, http.StatusBadRequest, "email"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := &mockAuthService{
					registerFn: func(context.Context, usecase.RegisterInput) (*model.User, error) {
						return nil, tt.err
					},
				}
				h := newAuthHandler(svc)

				req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{}`))
				rec := httptest.NewRecorder()

				h.Register(rec, req)

				if rec.Code != tt.want {
					t.Fatalf("status = %d, want %d", rec.Code, tt.want)
				}
				var problem Problem
				if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
					t.Fatalf("decode problem: %v", err)
				}
				if _, ok := problem.Errors[tt.field]; !ok {
					t.Errorf("errors = %v, want field %q", problem.Errors, tt.field)
				}
			})
		}
	})

	t.Run("duplicate account yields 409", func(t *testing.T) {
		svc := &mockAuthService{
			registerFn: func(context.Context, usecase.RegisterInput) (*model.User, error) {
				return nil, repository.ErrDuplicateUser
			},
		}
		h := newAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		h := newAuthHandler(&mockAuthService{})

		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("sets cookie and authorization header", func(t *testing.T) {
		fgp, err := auth.NewFingerprint()
		if err != nil {
			t.Fatalf("NewFingerprint() error = %v", err)
		}
		svc := &mockAuthService{
			loginFn: func(_ context.Context, username, password string) (*usecase.LoginResult, error) {
				if username != "alice" || password != "correct horse" {
					t.Errorf("Login(%q, %q)", username, password)
				}
				return &usecase.LoginResult{Token: "token-123", Fingerprint: fgp}, nil
			},
		}
		h := newAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"username":"alice","password":"correct horse"}`))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("Authorization = %q", got)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("cookies = %d, want 1", len(cookies))
		}
		c := cookies[0]
		if c.Name != auth.FingerprintCookieName || c.Value != fgp.Raw {
			t.Errorf("cookie = %+v", c)
		}
		if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode || c.Path != "/api" {
			t.Errorf("cookie attributes = %+v", c)
		}
	})

	t.Run("bad credentials yield 401", func(t *testing.T) {
		svc := &mockAuthService{
			loginFn: func(context.Context, string, string) (*usecase.LoginResult, error) {
				return nil, auth.ErrInvalidCredentials
			},
		}
		h := newAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("unverified account yields 403", func(t *testing.T) {
		svc := &mockAuthService{
			loginFn: func(context.Context, string, string) (*usecase.LoginResult, error) {
				return nil, usecase.ErrAccountNotVerified
			},
		}
		h := newAuthHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if c := cookies[0]; c.Name != auth.FingerprintCookieName || c.MaxAge >= 0 || c.Value != "" {
		t.Errorf("cookie = %+v, want expired fingerprint cookie", c)
	}
}

func TestAuthHandler_VerifyEmail(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		verifyFn func(ctx context.Context, token string) error
		want     string
	}{
		{
			name:   "valid token redirects verified",
			target: "/api/auth/verify-email?token=tok-1",
			verifyFn: func(_ context.Context, token string) error {
				if token != "tok-1" {
					t.Errorf("token = %q", token)
				}
				return nil
			},
			want: "https://clips.example.com/login?verified=true",
		},
		{
			name:   "invalid token redirects unverified",
			target: "/api/auth/verify-email?token=bad",
			verifyFn: func(context.Context, string) error {
				return usecase.ErrVerificationInvalid
			},
			want: "https://clips.example.com/login?verified=false",
		},
		{
			name:   "missing token redirects unverified",
			target: "/api/auth/verify-email",
			verifyFn: func(context.Context, string) error {
				t.Fatal("VerifyEmail called without token")
				return nil
			},
			want: "https://clips.example.com/login?verified=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthHandler(&mockAuthService{verifyEmailFn: tt.verifyFn})

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()

			h.VerifyEmail(rec, req)

			if rec.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthHandler_ResendVerification(t *testing.T) {
	var resent string
	svc := &mockAuthService{
		resendVerificationFn: func(_ context.Context, email string) error {
			resent = email
			return nil
		},
	}
	h := newAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/resend-verification",
		strings.NewReader(`{"email":"alice@example.com"}`))
	rec := httptest.NewRecorder()

	h.ResendVerification(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if resent != "alice@example.com" {
		t.Errorf("resent = %q", resent)
	}
}
