package main

import (
	"reflect"
	"testing"
	"time"
)

func TestResolveStorageDriver(t *testing.T) {
	cases := []struct {
		name     string
		flag     string
		env      string
		dsn      string
		expected string
	}{
		{name: "flag wins", flag: "json", env: "postgres", dsn: "postgres://x", expected: "json"},
		{name: "env when flag empty", env: "Postgres", expected: "postgres"},
		{name: "dsn implies postgres", dsn: "postgres://x", expected: "postgres"},
		{name: "defaults to json", expected: "json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			driver, err := resolveStorageDriver(tc.flag, tc.env, tc.dsn)
			if err != nil {
				t.Fatalf("resolveStorageDriver: %v", err)
			}
			if driver != tc.expected {
				t.Fatalf("expected driver %q, got %q", tc.expected, driver)
			}
		})
	}
}

func TestValidateProductionDatastore(t *testing.T) {
	if err := validateProductionDatastore("json", ""); err == nil {
		t.Fatal("expected json driver to be rejected in production")
	}
	if err := validateProductionDatastore("postgres", ""); err == nil {
		t.Fatal("expected missing DSN to be rejected in production")
	}
	if err := validateProductionDatastore("postgres", "postgres://db"); err != nil {
		t.Fatalf("expected postgres with DSN to pass, got %v", err)
	}
}

func TestResolveSessionStoreConfig(t *testing.T) {
	cases := []struct {
		name        string
		flagDriver  string
		envDriver   string
		storage     string
		storageDSN  string
		flagDSN     string
		envDSN      string
		redisAddr   string
		expected    sessionStoreConfig
		expectError bool
	}{
		{
			name:     "defaults to memory",
			storage:  "json",
			expected: sessionStoreConfig{Driver: "memory"},
		},
		{
			name:       "follows postgres storage",
			storage:    "postgres",
			storageDSN: "postgres://db",
			expected:   sessionStoreConfig{Driver: "postgres", DSN: "postgres://db"},
		},
		{
			name:     "explicit session DSN selects postgres",
			storage:  "json",
			flagDSN:  "postgres://sessions",
			expected: sessionStoreConfig{Driver: "postgres", DSN: "postgres://sessions"},
		},
		{
			name:      "redis addr selects redis",
			storage:   "json",
			redisAddr: "127.0.0.1:6379",
			expected:  sessionStoreConfig{Driver: "redis", RedisAddr: "127.0.0.1:6379"},
		},
		{
			name:       "explicit memory overrides postgres storage",
			flagDriver: "memory",
			storage:    "postgres",
			storageDSN: "postgres://db",
			expected:   sessionStoreConfig{Driver: "memory"},
		},
		{
			name:        "postgres without DSN fails",
			flagDriver:  "postgres",
			storage:     "json",
			expectError: true,
		},
		{
			name:        "redis without addr fails",
			flagDriver:  "redis",
			storage:     "json",
			expectError: true,
		},
		{
			name:        "unknown driver fails",
			flagDriver:  "etcd",
			storage:     "json",
			expectError: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := resolveSessionStoreConfig(tc.flagDriver, tc.envDriver, tc.storage, tc.storageDSN, tc.flagDSN, tc.envDSN, tc.redisAddr)
			if tc.expectError {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveSessionStoreConfig: %v", err)
			}
			if cfg != tc.expected {
				t.Fatalf("expected %+v, got %+v", tc.expected, cfg)
			}
		})
	}
}

func TestResolveListenAddr(t *testing.T) {
	if addr := resolveListenAddr(":9000", "development", ":7000"); addr != ":9000" {
		t.Fatalf("expected flag to win, got %q", addr)
	}
	if addr := resolveListenAddr("", "development", ":7000"); addr != ":7000" {
		t.Fatalf("expected env fallback, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ""); addr != ":80" {
		t.Fatalf("expected production default, got %q", addr)
	}
	if addr := resolveListenAddr("", "development", ""); addr != ":8080" {
		t.Fatalf("expected development default, got %q", addr)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" https://a.example.com , ,https://b.example.com ")
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if splitAndTrim("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestResolveDuration(t *testing.T) {
	t.Setenv("VIDTUBE_TEST_DURATION", "90s")
	if d := resolveDuration(0, "VIDTUBE_TEST_DURATION", time.Minute); d != 90*time.Second {
		t.Fatalf("expected env value, got %v", d)
	}
	if d := resolveDuration(time.Hour, "VIDTUBE_TEST_DURATION", time.Minute); d != time.Hour {
		t.Fatalf("expected flag to win, got %v", d)
	}
	if d := resolveDuration(0, "VIDTUBE_TEST_DURATION_MISSING", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
}
