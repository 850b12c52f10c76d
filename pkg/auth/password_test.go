package auth

import "testing"

func TestHashPasswordAndCheckPasswordBcrypt(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected bcrypt password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected bcrypt password check to fail")
	}
}

func TestHashPasswordHashesOneTimeCodes(t *testing.T) {
	hash, err := HashPassword("482913")
	if err != nil {
		t.Fatalf("hash code: %v", err)
	}
	if !CheckPassword("482913", hash) {
		t.Fatalf("expected code check to pass")
	}
	if CheckPassword("482914", hash) {
		t.Fatalf("expected wrong code check to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret1"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
	if err := ValidatePassword("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got: %v", err)
	}
}
