package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionManagerCreateAndValidate(t *testing.T) {
	manager := NewSessionManager(time.Hour)

	token, expiresAt, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Fatalf("unexpected expiry window %v", remaining)
	}

	userID, _, ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if !ok || userID != "user-1" {
		t.Fatalf("expected valid session for user-1, got ok=%v user=%q", ok, userID)
	}
}

func TestSessionManagerCreateRequiresUserID(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, err := manager.Create(""); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestSessionManagerValidateUnknownToken(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if _, _, ok, err := manager.Validate("does-not-exist"); err != nil || ok {
		t.Fatalf("expected unknown token to be rejected cleanly, ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := manager.Validate(""); err != nil || ok {
		t.Fatalf("expected empty token to be rejected cleanly, ok=%v err=%v", ok, err)
	}
}

func TestSessionManagerValidateExpiredSessionDeletes(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	if err := store.Save("stale", "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, _, ok, err := manager.Validate("stale"); err != nil || ok {
		t.Fatalf("expected expired session to be invalid, ok=%v err=%v", ok, err)
	}
	if _, found, _ := store.Get("stale"); found {
		t.Fatal("expected expired session to be deleted on validation")
	}
}

func TestSessionManagerIdleTimeoutExtendsExpiry(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(24*time.Hour, WithStore(store), WithIdleTimeout(time.Hour))

	token, expiresAt, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	// The idle timeout caps the initial expiry below the absolute TTL.
	if remaining := time.Until(expiresAt); remaining > time.Hour {
		t.Fatalf("expected idle-capped expiry, got %v", remaining)
	}

	// Simulate a session most of the way through its idle window.
	if err := store.Save(token, "user-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	_, refreshed, ok, err := manager.Validate(token)
	if err != nil || !ok {
		t.Fatalf("Validate error: ok=%v err=%v", ok, err)
	}
	if remaining := time.Until(refreshed); remaining < 59*time.Minute {
		t.Fatalf("expected sliding refresh to a full idle window, got %v", remaining)
	}
	record, found, _ := store.Get(token)
	if !found {
		t.Fatal("expected session to remain stored")
	}
	if time.Until(record.ExpiresAt) < 59*time.Minute {
		t.Fatalf("expected refreshed expiry persisted, got %v", record.ExpiresAt)
	}
}

func TestSessionManagerRevoke(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("expected revoked session to be invalid")
	}
	if err := manager.Revoke(""); err != nil {
		t.Fatalf("revoking an empty token should be a no-op, got %v", err)
	}
}

func TestSessionManagerPurgeExpired(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewSessionManager(time.Hour, WithStore(store))

	if err := store.Save("stale", "user-1", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	token, _, err := manager.Create("user-2")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("PurgeExpired error: %v", err)
	}
	if _, found, _ := store.Get("stale"); found {
		t.Fatal("expected stale session to be purged")
	}
	if _, found, _ := store.Get(token); !found {
		t.Fatal("expected live session to survive the purge")
	}
}

func TestSessionManagerPingDelegates(t *testing.T) {
	manager := NewSessionManager(time.Hour)
	if err := manager.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}
