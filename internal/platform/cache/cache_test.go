package cache

import (
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", 0, false},
		{"valid-with-db", "redis://localhost:6379/3", 3, false},
		{"wrong-scheme", "http://localhost:6379", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}

func TestWithPoolSize(t *testing.T) {
	opts := &redis.Options{PoolSize: defaultPool}
	WithPoolSize(0)(opts)
	if opts.PoolSize != defaultPool {
		t.Errorf("PoolSize = %d after zero option, want %d", opts.PoolSize, defaultPool)
	}
	WithPoolSize(32)(opts)
	if opts.PoolSize != 32 {
		t.Errorf("PoolSize = %d, want 32", opts.PoolSize)
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestHealthCheck(t *testing.T) {
	url := os.Getenv("LEARN_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LEARN_TEST_REDIS_URL not set")
	}

	c, err := New(t.Context(), url, WithPoolSize(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Name() != "cache" {
		t.Errorf("Name() = %q", c.Name())
	}
	if err := c.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() after Close should fail")
	}
}
