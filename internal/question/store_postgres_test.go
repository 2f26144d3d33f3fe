package question_test

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-practice/internal/platform/database/dbtest"
	"github.com/p-n-ai/pai-practice/internal/question"
)

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := question.NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should error")
	}
}

func TestPostgresStore(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	store, err := question.NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema() call %d error = %v", i+1, err)
		}
	}
	seedSamples(t, store)

	t.Run("upsert", func(t *testing.T) {
		q := question.SampleQuestions()[0]
		q.Solution = "rewritten"
		if err := store.Add(ctx, q); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		n, _ := store.Count(ctx)
		if n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
		got, ok, err := store.Get(ctx, q.ID)
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v", ok, err)
		}
		if got.Solution != "rewritten" {
			t.Errorf("Solution = %q, want rewritten", got.Solution)
		}
		if len(got.Options) != 4 || got.Difficulty != question.Medium {
			t.Errorf("round trip lost fields: %+v", got)
		}
	})

	t.Run("query by subject", func(t *testing.T) {
		got, err := store.Query(ctx, question.Filter{Subject: "Chemistry"}, 5, seeded())
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(got) != 1 || got[0].Subject != "Chemistry" {
			t.Errorf("Query(Chemistry) = %+v", got)
		}
	})

	t.Run("query combined filters", func(t *testing.T) {
		got, _ := store.Query(ctx, question.Filter{Year: 2023, Difficulty: question.Hard}, 5, seeded())
		if len(got) != 1 || got[0].ID != "pyq_003" {
			t.Errorf("Query(2023, Hard) = %+v", got)
		}
	})

	t.Run("query no match", func(t *testing.T) {
		got, err := store.Query(ctx, question.Filter{Topic: "Nope"}, 5, seeded())
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Query() = %v, want empty slice", got)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, ok, err := store.Get(ctx, "missing")
		if err != nil || ok {
			t.Errorf("Get(missing) = %v, %v; want false, nil", ok, err)
		}
	})
}
