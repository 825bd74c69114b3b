package auth

import (
	"context"
	"testing"
	"time"

	"vidtube/internal/testsupport/redisstub"
)

func TestRedisSessionStoreLifecycle(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	store, err := NewRedisSessionStore(RedisSessionConfig{Addr: stub.Addr()})
	if err != nil {
		t.Fatalf("NewRedisSessionStore error: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}

	expiresAt := time.Now().Add(time.Hour)
	if err := store.Save("token-1", "user-1", expiresAt); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	record, found, err := store.Get("token-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found || record.UserID != "user-1" {
		t.Fatalf("expected stored session, found=%v record=%+v", found, record)
	}
	if record.ExpiresAt.IsZero() || time.Until(record.ExpiresAt) > time.Hour+time.Minute {
		t.Fatalf("unexpected expiry %v", record.ExpiresAt)
	}

	if err := store.Delete("token-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, found, err := store.Get("token-1"); err != nil || found {
		t.Fatalf("expected deleted session to be gone, found=%v err=%v", found, err)
	}

	// Saving an already-expired session is treated as a delete.
	if err := store.Save("token-2", "user-2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, found, err := store.Get("token-2"); err != nil || found {
		t.Fatalf("expected expired session to be absent, found=%v err=%v", found, err)
	}
}

func TestRedisSessionStoreWorksWithManager(t *testing.T) {
	stub, err := redisstub.Start(redisstub.Options{})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	defer stub.Close()

	store, err := NewRedisSessionStore(RedisSessionConfig{Addr: stub.Addr()})
	if err != nil {
		t.Fatalf("NewRedisSessionStore error: %v", err)
	}
	defer store.Close()

	manager := NewSessionManager(time.Hour, WithStore(store))
	token, _, err := manager.Create("user-1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	userID, _, ok, err := manager.Validate(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("expected valid session, ok=%v user=%q err=%v", ok, userID, err)
	}
	if err := manager.Revoke(token); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if _, _, ok, _ := manager.Validate(token); ok {
		t.Fatal("expected revoked session to be invalid")
	}
}
