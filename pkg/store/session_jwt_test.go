package store

import (
	"testing"
	"time"

	"bookswap/pkg/domain"
)

func TestJWTSessionRoundTrip(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)
	token, err := s.NewSession("u1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	sess, ok, err := s.GetSession(token)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !ok {
		t.Fatal("token rejected")
	}
	if sess.UserID != "u1" {
		t.Errorf("UserID = %s, want u1", sess.UserID)
	}
	if sess.Role != domain.RoleAdmin {
		t.Errorf("Role = %s, want admin", sess.Role)
	}
}

func TestJWTSessionDefaultsRole(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)
	token, err := s.NewSession("u1", "")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	sess, ok, _ := s.GetSession(token)
	if !ok || sess.Role != domain.RoleUser {
		t.Fatalf("Role = %s, want user fallback", sess.Role)
	}
}

func TestJWTSessionRejectsWrongSecret(t *testing.T) {
	a := NewJWTSessionStore("secret-a", time.Hour)
	b := NewJWTSessionStore("secret-b", time.Hour)
	token, err := a.NewSession("u1", domain.RoleUser)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := b.GetSession(token); ok {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestJWTSessionRejectsGarbage(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, ok, _ := s.GetSession(token); ok {
			t.Errorf("token %q accepted", token)
		}
	}
}

func TestJWTSessionExpires(t *testing.T) {
	// TTL well past the validation leeway in the negative direction.
	s := NewJWTSessionStore("test-secret", -time.Hour)
	// Negative ttl falls back to the default, so expiry needs a dedicated store.
	if s.ttl != DefaultSessionTTL {
		t.Fatalf("ttl = %v, want default fallback", s.ttl)
	}

	short := &JWTSessionStore{secret: []byte("test-secret"), ttl: -time.Hour}
	token, err := short.NewSession("u1", domain.RoleUser)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok, _ := s.GetSession(token); ok {
		t.Fatal("expired token accepted")
	}
}
