package question_test

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/p-n-ai/pai-practice/internal/question"
)

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func seedSamples(t *testing.T, store question.Store) {
	t.Helper()
	if _, err := question.Seed(context.Background(), store, question.SampleQuestions()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
}

func TestMemoryStore_AddIsUpsert(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()

	q := validMCQ()
	if err := store.Add(ctx, q); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	q.Text = "Updated text"
	if err := store.Add(ctx, q); err != nil {
		t.Fatalf("Add() second error = %v", err)
	}

	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("Count() = %d, want 1 after upsert", n)
	}
	got, ok, err := store.Get(ctx, "q1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Text != "Updated text" {
		t.Errorf("Text = %q, want Updated text", got.Text)
	}
}

func TestMemoryStore_AddRejectsInvalid(t *testing.T) {
	store := question.NewMemoryStore()
	q := validMCQ()
	q.Options = nil
	if err := store.Add(context.Background(), q); err == nil {
		t.Error("Add() should reject an MCQ without options")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	_, ok, err := question.NewMemoryStore().Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() found a question that was never added")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()
	q := validMCQ()
	_ = store.Add(ctx, q)

	q.Options[0] = "mutated"
	got, _, _ := store.Get(ctx, "q1")
	if got.Options[0] != "9.8" {
		t.Errorf("stored options changed through caller slice: %q", got.Options[0])
	}

	got.Options[1] = "mutated again"
	again, _, _ := store.Get(ctx, "q1")
	if again.Options[1] != "10.8" {
		t.Errorf("stored options changed through returned slice: %q", again.Options[1])
	}
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()
	seedSamples(t, store)

	tests := []struct {
		name   string
		filter question.Filter
		want   int
	}{
		{"no filter", question.Filter{}, 3},
		{"subject", question.Filter{Subject: "Physics"}, 1},
		{"chapter", question.Filter{Chapter: "Calculus"}, 1},
		{"topic", question.Filter{Topic: "Atomic Structure"}, 1},
		{"difficulty", question.Filter{Difficulty: question.Hard}, 1},
		{"year", question.Filter{Year: 2023}, 2},
		{"year and subject", question.Filter{Year: 2023, Subject: "Chemistry"}, 0},
		{"unknown subject", question.Filter{Subject: "Biology"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter, 10, seeded())
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if got == nil {
				t.Fatal("Query() returned nil slice, want empty")
			}
			if len(got) != tt.want {
				t.Errorf("Query() = %d questions, want %d", len(got), tt.want)
			}
			for _, q := range got {
				if !tt.filter.Matches(q) {
					t.Errorf("Query() returned %s which does not match filter", q.ID)
				}
			}
		})
	}
}

func TestMemoryStore_QueryLimit(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()
	seedSamples(t, store)

	got, _ := store.Query(ctx, question.Filter{}, 2, seeded())
	if len(got) != 2 {
		t.Errorf("Query(limit=2) = %d, want 2", len(got))
	}
	got, _ = store.Query(ctx, question.Filter{}, 0, seeded())
	if len(got) != 0 {
		t.Errorf("Query(limit=0) = %d, want 0", len(got))
	}
}

func TestMemoryStore_QueryDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()
	for i := 0; i < 20; i++ {
		q := validMCQ()
		q.ID = "q" + string(rune('a'+i))
		_ = store.Add(ctx, q)
	}

	first, _ := store.Query(ctx, question.Filter{}, 5, seeded())
	second, _ := store.Query(ctx, question.Filter{}, 5, seeded())
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("draws differ at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestMemoryStore_QueryIsNotInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()
	for i := 0; i < 20; i++ {
		q := validMCQ()
		q.ID = "q" + string(rune('a'+i))
		_ = store.Add(ctx, q)
	}

	rng := seeded()
	sorted := true
	for attempt := 0; attempt < 5 && sorted; attempt++ {
		got, _ := store.Query(ctx, question.Filter{}, 20, rng)
		for i := 1; i < len(got); i++ {
			if got[i-1].ID > got[i].ID {
				sorted = false
				break
			}
		}
	}
	if sorted {
		t.Error("Query() kept sorted order across repeated draws; expected a shuffled order")
	}
}

func TestShuffle_KeepsElements(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	question.Shuffle(items, seeded())

	seen := map[int]bool{}
	for _, v := range items {
		seen[v] = true
	}
	if len(seen) != 5 {
		t.Errorf("Shuffle() lost elements: %v", items)
	}
}
