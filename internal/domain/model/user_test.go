package model

import (
	"errors"
	"testing"
)

func TestNewUser(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		hash     string
		wantErr  error
	}{
		{"valid", "alice_01", "Alice@Example.com", "hash", nil},
		{"username too short", "al", "alice@example.com", "hash", ErrInvalidUsername},
		{"username too long", "a234567890123456789012", "alice@example.com", "hash", ErrInvalidUsername},
		{"username with spaces", "ali ce", "alice@example.com", "hash", ErrInvalidUsername},
		{"username with symbols", "alice!", "alice@example.com", "hash", ErrInvalidUsername},
		{"bad email", "alice", "not-an-email", "hash", ErrInvalidEmail},
		{"email without domain", "alice", "alice@", "hash", ErrInvalidEmail},
		{"empty password hash", "alice", "alice@example.com", "", ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.username, tt.email, tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewUser() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			if u.Email != "alice@example.com" {
				t.Errorf("Email = %q, want lowercased", u.Email)
			}
			if u.Role != RoleUser {
				t.Errorf("Role = %v, want %v", u.Role, RoleUser)
			}
			if u.Verified {
				t.Error("new accounts must start unverified")
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("ok_name"); err != nil {
		t.Errorf("ValidateUsername(ok_name) = %v, want nil", err)
	}
	if err := ValidateUsername("no"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("ValidateUsername(no) = %v, want ErrInvalidUsername", err)
	}
}
