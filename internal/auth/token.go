package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, issuer,
// expiry or fingerprint checks. Callers must not leak the underlying cause.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the registered claims plus the fingerprint hash binding the
// token to the cookie it was issued with.
type Claims struct {
	FgpHash string `json:"fgpHash"`
	jwt.RegisteredClaims
}

// TokenManagerConfig holds token signing parameters.
type TokenManagerConfig struct {
	// Key is the HMAC-SHA256 signing key, at least 32 bytes.
	Key []byte
	// Issuer is required on every token.
	Issuer string
	// TTL is the token lifetime.
	TTL time.Duration
}

// TokenManager mints and verifies HMAC-signed bearer tokens.
type TokenManager struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager validates the key length and returns a manager.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if len(cfg.Key) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes, got %d", len(cfg.Key))
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	return &TokenManager{key: cfg.Key, issuer: cfg.Issuer, ttl: cfg.TTL}, nil
}

// Issue mints a token for the subject carrying the fingerprint hash.
func (m *TokenManager) Issue(subject, fgpHash string) (string, error) {
	now := time.Now()
	claims := Claims{
		FgpHash: fgpHash,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token, enforcing the HMAC signature, the issuer, expiry
// and the presence of a subject and fingerprint hash.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.FgpHash == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyWithFingerprint verifies the token and binds it to the fingerprint
// cookie value using a constant-time hash comparison.
func (m *TokenManager) VerifyWithFingerprint(tokenString, cookieValue string) (*Claims, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if !FingerprintMatches(claims.FgpHash, cookieValue) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
