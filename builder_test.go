package authkit

import (
	"testing"
)

func TestBuildRequiresCollaborators(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected missing redis client to be rejected")
	}

	if _, err := New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected missing account store to be rejected")
	}

	if _, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(newMockAccountStore()).
		Build(); err == nil {
		t.Fatal("expected missing email dispatcher to be rejected")
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Token.Secret = nil

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(newMockAccountStore()).
		WithEmailDispatcher(&mockDispatcher{}).
		Build()
	if err == nil {
		t.Fatal("expected missing signing secret to be rejected")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithAccountStore(newMockAccountStore()).
		WithEmailDispatcher(&mockDispatcher{})

	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build on same builder to fail")
	}
}
