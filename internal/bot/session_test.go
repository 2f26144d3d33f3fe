package bot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/p-n-ai/pai-practice/internal/platform/cache"
	"github.com/p-n-ai/pai-practice/internal/question"
)

func runSessionContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v; want not found", ok, err)
	}

	samples := question.SampleQuestions()
	active := samples[0]
	sess := Session{Active: &active, Queue: samples[1:], Subject: "Physics"}
	if err := store.Put(ctx, "u1", sess); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := store.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("Get(u1) = %v, %v", ok, err)
	}
	if got.Active == nil || got.Active.ID != "pyq_001" {
		t.Errorf("Active = %+v, want pyq_001", got.Active)
	}
	if len(got.Queue) != 2 || got.Queue[1].Options[0] != samples[2].Options[0] {
		t.Errorf("Queue = %+v", got.Queue)
	}
	if got.Subject != "Physics" {
		t.Errorf("Subject = %q", got.Subject)
	}

	if err := store.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := store.Get(ctx, "u1"); ok {
		t.Error("session still present after Delete")
	}
}

func TestMemorySessionStore(t *testing.T) {
	runSessionContract(t, NewMemorySessionStore())
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("LEARN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LEARN_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := cache.New(ctx, url)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	defer c.Close()

	store := NewRedisSessionStore(c.Client, time.Minute)
	runSessionContract(t, store)

	if err := store.Put(ctx, "ttl", Session{Subject: "Chemistry"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	ttl, err := c.Client.TTL(ctx, sessionKeyPrefix+"ttl").Result()
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, want within a minute", ttl)
	}

	if err := c.Client.Set(ctx, sessionKeyPrefix+"garbage", "{not json", time.Minute).Err(); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := store.Get(ctx, "garbage"); err != nil || ok {
		t.Errorf("Get(garbage) = %v, %v; want not found", ok, err)
	}
}
