package server

import (
	"context"
	"testing"
	"time"

	"vidtube/internal/testsupport/redisstub"
)

func TestRedisTokenStoreAllow(t *testing.T) {
	srv, err := redisstub.Start(redisstub.Options{Password: "secret"})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Close()
	})

	store := newRedisTokenStore(srv.Addr(), "secret", time.Second)
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	allowed, retry, err := store.Allow(ctx, "login:test", 2, time.Minute)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("first allow unexpected: allowed=%v retry=%v err=%v", allowed, retry, err)
	}
	allowed, _, err = store.Allow(ctx, "login:test", 2, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("second allow unexpected: allowed=%v err=%v", allowed, err)
	}
	allowed, retry, err = store.Allow(ctx, "login:test", 2, time.Minute)
	if err != nil {
		t.Fatalf("third allow err: %v", err)
	}
	if allowed {
		t.Fatal("expected throttle on third attempt")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retry delay, got %v", retry)
	}

	allowed, _, err = store.Allow(ctx, "login:other", 2, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("expected independent counter per key: allowed=%v err=%v", allowed, err)
	}
}

func TestRedisTokenStoreRejectsBadPassword(t *testing.T) {
	srv, err := redisstub.Start(redisstub.Options{Password: "secret"})
	if err != nil {
		t.Fatalf("start redis stub: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Close()
	})

	store := newRedisTokenStore(srv.Addr(), "wrong", time.Second)
	t.Cleanup(func() {
		_ = store.Close()
	})

	if _, _, err := store.Allow(context.Background(), "login:test", 2, time.Minute); err == nil {
		t.Fatal("expected auth failure with wrong password")
	}
}
