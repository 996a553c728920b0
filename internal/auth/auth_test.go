package auth

import (
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("hash must not equal the password")
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestTokenManager(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewTokenManager("test-secret", time.Hour)

	token, err := mgr.Issue("user-1", "a@b.test", now)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		claims, err := mgr.Parse(token)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if claims.Subject != "user-1" || claims.Email != "a@b.test" {
			t.Fatalf("unexpected claims %+v", claims)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		if _, err := other.Parse(token); err == nil {
			t.Fatalf("expected token signed with different secret to fail")
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short := NewTokenManager("test-secret", time.Minute)
		old, err := short.Issue("user-1", "a@b.test", time.Now().Add(-time.Hour))
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if _, err := short.Parse(old); err == nil {
			t.Fatalf("expected expired token to fail")
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		if _, err := mgr.Parse("not.a.token"); err == nil {
			t.Fatalf("expected garbage token to fail")
		}
	})
}
