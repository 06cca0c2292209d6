package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// FingerprintCookieName is the hardened cookie carrying the raw fingerprint.
// The __Secure- prefix makes browsers refuse it over plain HTTP.
const FingerprintCookieName = "__Secure-Fgp"

const fingerprintBytes = 50

// Fingerprint is a per-session random secret. Its raw hex form lives only
// in an httpOnly cookie; the token carries the SHA-256 hash, binding the
// token to the browser that received it.
type Fingerprint struct {
	// Raw is the hex-encoded cookie value.
	Raw string
	// Hash is the lowercase hex SHA-256 of Raw, stored in the token claim.
	Hash string
}

// NewFingerprint generates a fresh fingerprint from the CSPRNG.
func NewFingerprint() (Fingerprint, error) {
	buf := make([]byte, fingerprintBytes)
	if _, err := rand.Read(buf); err != nil {
		return Fingerprint{}, fmt.Errorf("generate fingerprint: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return Fingerprint{Raw: raw, Hash: HashFingerprint(raw)}, nil
}

// HashFingerprint returns the lowercase hex SHA-256 of the raw cookie value.
func HashFingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// FingerprintMatches compares the claim hash against the hash of the cookie
// value byte-for-byte in constant time.
func FingerprintMatches(claimHash, cookieValue string) bool {
	computed := HashFingerprint(cookieValue)
	return len(claimHash) == len(computed) &&
		subtle.ConstantTimeCompare([]byte(claimHash), []byte(computed)) == 1
}
