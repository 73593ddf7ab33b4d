package identity

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("hash must not equal plaintext")
	}
	if err := VerifyPassword(hash, "s3cret!"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if err := VerifyPassword("", "s3cret!"); err == nil {
		t.Fatalf("expected error for empty hash")
	}
}

func TestGeneratePassword(t *testing.T) {
	a, err := GeneratePassword()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := GeneratePassword()
	if len(a) < MinPasswordLength {
		t.Fatalf("generated password too short: %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct passwords")
	}
	for _, ch := range a {
		if !strings.ContainsRune(generatedAlphabet, ch) {
			t.Fatalf("unexpected rune %q", ch)
		}
	}
}

func TestHashPasswordRejectsOverlong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", MaxPasswordLength)); err != nil {
		t.Fatalf("max length must hash: %v", err)
	}
	_, err := HashPassword(strings.Repeat("a", MaxPasswordLength+1))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
