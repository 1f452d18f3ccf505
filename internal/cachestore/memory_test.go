package cachestore

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	if err := s.Put(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get(k1) = %q, %v, %v", v, ok, err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	fakeNow := time.Now()
	s.now = func() time.Time { return fakeNow }

	if err := s.Put(ctx, "k1", []byte("v1"), time.Second); err != nil {
		t.Fatal(err)
	}
	fakeNow = fakeNow.Add(2 * time.Second)

	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("expected expired key to be a miss")
	}
}

func TestMemoryStoreProtectBypassesTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	fakeNow := time.Now()
	s.now = func() time.Time { return fakeNow }

	if err := s.Put(ctx, "k1", []byte("v1"), time.Second); err != nil {
		t.Fatal(err)
	}
	if err := s.Protect(ctx, []string{"k1"}); err != nil {
		t.Fatal(err)
	}
	fakeNow = fakeNow.Add(10 * time.Second)

	if _, ok, _ := s.Get(ctx, "k1"); !ok {
		t.Error("protected key should survive past its TTL")
	}

	if err := s.Release(ctx, []string{"k1"}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "k1"); ok {
		t.Error("released key should be evicted once past its TTL")
	}
}

func TestMemoryStoreRemoveKeysWithPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	_ = s.Put(ctx, "a::1", []byte("x"), 0)
	_ = s.Put(ctx, "a::2", []byte("y"), 0)
	_ = s.Put(ctx, "b::1", []byte("z"), 0)

	ok, err := s.RemoveKeysWithPrefix(ctx, "a::")
	if err != nil || !ok {
		t.Fatalf("RemoveKeysWithPrefix = %v, %v", ok, err)
	}
	if _, ok, _ := s.Get(ctx, "a::1"); ok {
		t.Error("a::1 should have been removed")
	}
	if _, ok, _ := s.Get(ctx, "b::1"); !ok {
		t.Error("b::1 should be untouched")
	}
}

func TestMemoryStoreRemoveUnmatchedPrefixIsNoopSuccess(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ok, err := s.RemoveKeysWithPrefix(context.Background(), "nothing-matches")
	if err != nil || !ok {
		t.Fatalf("RemoveKeysWithPrefix on empty store = %v, %v", ok, err)
	}
}
