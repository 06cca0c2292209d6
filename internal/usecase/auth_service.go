package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/clipforge/internal/auth"
	"github.com/hszk-dev/clipforge/internal/domain/model"
	"github.com/hszk-dev/clipforge/internal/domain/repository"
	"github.com/hszk-dev/clipforge/internal/infrastructure/cache"
)

var (
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("password and confirmation do not match")

	// ErrAccountNotVerified is returned on login before email verification.
	ErrAccountNotVerified = errors.New("account email is not verified")

	// ErrVerificationInvalid is returned for unknown or expired verification
	// tokens.
	ErrVerificationInvalid = errors.New("verification link is invalid or expired")
)

// verificationTTL bounds how long a verification link stays usable.
const verificationTTL = 24 * time.Hour

// Mailer delivers account emails. Failures must not fail the enclosing
// operation.
type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
}

// LogMailer writes the verification link to the log instead of sending mail.
// Stands in until an SMTP relay is provisioned.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendVerification(_ context.Context, email, link string) error {
	m.Logger.Info("verification mail (log delivery)",
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}

var _ Mailer = (*LogMailer)(nil)

// RegisterInput carries a signup request.
type RegisterInput struct {
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// LoginResult carries a successful authentication: the JWT and the raw
// fingerprint destined for the hardening cookie.
type LoginResult struct {
	Token       string
	Fingerprint auth.Fingerprint
}

// AuthService handles account lifecycle and authentication.
type AuthService interface {
	// Register creates an unverified account and sends the verification link.
	Register(ctx context.Context, input RegisterInput) (*model.User, error)

	// Login checks credentials, requires a verified account and issues a
	// fingerprinted token.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// VerifyEmail consumes a verification token and marks the account
	// verified. Tokens are single use.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerification issues a fresh link for an unverified account.
	// Always reports success so email addresses cannot be enumerated.
	ResendVerification(ctx context.Context, email string) error
}

// AuthServiceConfig holds configuration for AuthService.
type AuthServiceConfig struct {
	// FrontendBaseURL is the public origin the verification link points at.
	FrontendBaseURL string
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	store  cache.VerificationTokenStore
	mailer Mailer
	logger *slog.Logger

	frontendBaseURL string
}

// NewAuthService creates an AuthService.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenManager,
	store cache.VerificationTokenStore,
	mailer Mailer,
	cfg AuthServiceConfig,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:           users,
		tokens:          tokens,
		store:           store,
		mailer:          mailer,
		logger:          logger,
		frontendBaseURL: cfg.FrontendBaseURL,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if input.Password != input.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := model.NewUser(input.Username, input.Email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)

	s.logger.Info("user registered",
		slog.String("username", user.Username),
		slog.Int64("user_id", user.ID),
	)
	return user, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same error as a wrong password: do not reveal which part failed.
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	if !user.Verified {
		return nil, ErrAccountNotVerified
	}

	fgp, err := auth.NewFingerprint()
	if err != nil {
		return nil, fmt.Errorf("generate fingerprint: %w", err)
	}

	token, err := s.tokens.Issue(user.Username, fgp.Hash)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))
	return &LoginResult{Token: token, Fingerprint: fgp}, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.store.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrTokenNotFound) {
			return ErrVerificationInvalid
		}
		return err
	}

	if err := s.users.MarkVerified(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account verified", slog.Int64("user_id", userID))
	return nil
}

func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Pretend success; the address is not ours to confirm.
			return nil
		}
		return err
	}
	if user.Verified {
		return nil
	}

	s.sendVerification(ctx, user)
	return nil
}

// sendVerification mints a token, stores it and hands the link to the mailer.
// All failures are logged and swallowed: the account exists either way and
// the user can ask for a resend.
func (s *authService) sendVerification(ctx context.Context, user *model.User) {
	token := uuid.NewString()
	if err := s.store.Put(ctx, token, user.ID, verificationTTL); err != nil {
		s.logger.Error("failed to store verification token",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.frontendBaseURL, token)
	if err := s.mailer.SendVerification(ctx, user.Email, link); err != nil {
		s.logger.Error("failed to send verification mail",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
