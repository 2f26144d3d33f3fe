package question_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-practice/internal/question"
)

func TestLoadBank_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.yaml")
	os.WriteFile(path, []byte(`
questions:
  - id: y1
    subject: Physics
    chapter: Optics
    topic: Ray Optics
    difficulty: Easy
    question_text: "Focal length of a plane mirror?"
    options: ["Zero", "Infinite", "1 m", "Undefined"]
    correct_answer: B
    solution: "A plane mirror has infinite focal length."
    year: 2021
    exam_type: JEE Main
    question_type: MCQ
  - id: y2
    subject: Mathematics
    chapter: Algebra
    topic: Complex Numbers
    difficulty: Medium
    question_text: "|3 + 4i| = ?"
    correct_answer: "5"
    question_type: Numerical
  - id: broken
    subject: Physics
    chapter: Optics
    topic: Wave Optics
    difficulty: Medium
    question_text: "MCQ without options"
    correct_answer: A
`), 0o644)

	got, err := question.LoadBank(path)
	if err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoadBank() = %d questions, want 2 (invalid entry skipped)", len(got))
	}
	if got[0].Difficulty != question.Easy {
		t.Errorf("Difficulty = %v, want Easy", got[0].Difficulty)
	}
	if got[1].Type != question.TypeNumerical {
		t.Errorf("Type = %q, want Numerical", got[1].Type)
	}
}

func TestLoadBank_UnsupportedExtension(t *testing.T) {
	if _, err := question.LoadBank("bank.csv"); err == nil {
		t.Error("LoadBank() should reject unknown formats")
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.xlsx")
	want := question.SampleQuestions()

	if err := question.WriteXLSX(path, want); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	got, err := question.LoadBank(path)
	if err != nil {
		t.Fatalf("LoadBank() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("LoadBank() = %d questions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Difficulty != want[i].Difficulty || got[i].Year != want[i].Year {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
		if len(got[i].Options) != len(want[i].Options) {
			t.Errorf("row %d options = %v, want %v", i, got[i].Options, want[i].Options)
		}
	}
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := question.NewMemoryStore()

	n, err := question.SeedIfEmpty(ctx, store)
	if err != nil {
		t.Fatalf("SeedIfEmpty() error = %v", err)
	}
	if n != 3 {
		t.Errorf("SeedIfEmpty() = %d, want 3", n)
	}

	n, _ = question.SeedIfEmpty(ctx, store)
	if n != 0 {
		t.Errorf("second SeedIfEmpty() = %d, want 0", n)
	}
}

func TestSampleQuestions_Valid(t *testing.T) {
	subjects := map[string]bool{}
	for _, q := range question.SampleQuestions() {
		if err := q.Validate(); err != nil {
			t.Errorf("sample %s invalid: %v", q.ID, err)
		}
		subjects[q.Subject] = true
	}
	for _, s := range []string{"Physics", "Chemistry", "Mathematics"} {
		if !subjects[s] {
			t.Errorf("samples missing subject %s", s)
		}
	}
}
