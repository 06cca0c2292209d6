package auth

import (
	"encoding/hex"
	"testing"
)

func TestNewFingerprint(t *testing.T) {
	fgp, err := NewFingerprint()
	if err != nil {
		t.Fatalf("NewFingerprint() error = %v", err)
	}

	raw, err := hex.DecodeString(fgp.Raw)
	if err != nil {
		t.Fatalf("Raw is not hex: %v", err)
	}
	if len(raw) != fingerprintBytes {
		t.Errorf("raw length = %d bytes, want %d", len(raw), fingerprintBytes)
	}

	if fgp.Hash != HashFingerprint(fgp.Raw) {
		t.Error("Hash does not match HashFingerprint(Raw)")
	}
}

func TestNewFingerprint_Unique(t *testing.T) {
	a, _ := NewFingerprint()
	b, _ := NewFingerprint()
	if a.Raw == b.Raw {
		t.Error("two fingerprints must not collide")
	}
}

func TestFingerprintMatches(t *testing.T) {
	fgp, err := NewFingerprint()
	if err != nil {
		t.Fatalf("NewFingerprint() error = %v", err)
	}

	if !FingerprintMatches(fgp.Hash, fgp.Raw) {
		t.Error("FingerprintMatches() = false for matching pair")
	}
	if FingerprintMatches(fgp.Hash, "someone-elses-cookie") {
		t.Error("FingerprintMatches() = true for foreign cookie")
	}
	if FingerprintMatches("", fgp.Raw) {
		t.Error("FingerprintMatches() = true for empty claim hash")
	}
}
