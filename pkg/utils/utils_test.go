package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("correct horse battery", hash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword(correct) = %v, %v", ok, err)
	}
	ok, err = VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Errorf("VerifyPassword(wrong) = %v, %v", ok, err)
	}

	other, _ := HashPassword("correct horse battery")
	if other == hash {
		t.Error("hashes must be salted")
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$a$b", "$argon2id$v=18$m=65536,t=3,p=2$a$b", "$argon2id$v=19$garbage$a$b"} {
		if _, err := VerifyPassword("x", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("VerifyPassword(%q): expected ErrInvalidHash, got %v", h, err)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@example.com", "first.last+tag@sub.example.org", " spaced@example.com "}
	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) = %v", e, err)
		}
	}
	invalid := []string{"", "plain", "a@b", "Name <a@example.com>", "@example.com", strings.Repeat("a", 320) + "@example.com"}
	for _, e := range invalid {
		var ve *ValidationError
		if err := ValidateEmail(e); !errors.As(err, &ve) || ve.Field != "email" {
			t.Errorf("ValidateEmail(%q) = %v, want email ValidationError", e, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@EcoScan.App "); got != "admin@ecoscan.app" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Error("short password accepted")
	}
	if err := ValidatePassword(strings.Repeat("x", 129)); err == nil {
		t.Error("long password accepted")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}
