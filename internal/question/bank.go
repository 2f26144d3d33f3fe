package question

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// bankFile is the on-disk YAML layout of a question bank.
type bankFile struct {
	Questions []Question `yaml:"questions"`
}

// LoadBank reads questions from a YAML (.yaml, .yml) or spreadsheet (.xlsx)
// file. Structurally invalid entries are skipped with a warning.
func LoadBank(path string) ([]Question, error) {
	var (
		questions []Question
		err       error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		questions, err = loadYAML(path)
	case ".xlsx":
		questions, err = loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported question bank format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	valid := questions[:0]
	for _, q := range questions {
		if q.Type == "" {
			q.Type = TypeMCQ
		}
		if err := q.Validate(); err != nil {
			slog.Warn("skipping invalid question", "path", path, "error", err)
			continue
		}
		valid = append(valid, q)
	}
	return valid, nil
}

func loadYAML(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank %s: %w", path, err)
	}
	return bank.Questions, nil
}

// Seed upserts questions into store and returns how many were written.
func Seed(ctx context.Context, store Store, questions []Question) (int, error) {
	n := 0
	for _, q := range questions {
		if err := store.Add(ctx, q); err != nil {
			return n, fmt.Errorf("seed %s: %w", q.ID, err)
		}
		n++
	}
	return n, nil
}

// SeedIfEmpty loads the sample past-year questions into an empty store.
func SeedIfEmpty(ctx context.Context, store Store) (int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	return Seed(ctx, store, SampleQuestions())
}

// SampleQuestions returns the built-in past-year questions used to seed an
// empty bank.
func SampleQuestions() []Question {
	return []Question{
		{
			ID:            "pyq_001",
			Subject:       "Physics",
			Chapter:       "Mechanics",
			Topic:         "Kinematics",
			Difficulty:    Medium,
			Text:          "A particle moves in a straight line with constant acceleration. Its velocity changes from 10 m/s to 30 m/s in 4 s. Find the displacement in this interval.",
			Options:       []string{"20 m", "30 m", "80 m", "50 m"},
			CorrectAnswer: "C",
			Solution:      "Using s = (u + v)t / 2 = (10 + 30) x 4 / 2 = 80 m.",
			Year:          2023,
			ExamType:      "JEE Main",
			Type:          TypeMCQ,
		},
		{
			ID:            "pyq_002",
			Subject:       "Chemistry",
			Chapter:       "Physical Chemistry",
			Topic:         "Atomic Structure",
			Difficulty:    Easy,
			Text:          "The electronic configuration of Cr is:",
			Options:       []string{"[Ar] 3d⁵ 4s¹", "[Ar] 3d⁴ 4s²", "[Ar] 3d⁶", "[Ar] 3d³ 4s³"},
			CorrectAnswer: "A",
			Solution:      "Chromium has exceptional stability with a half-filled 3d subshell, giving [Ar] 3d⁵ 4s¹.",
			Year:          2022,
			ExamType:      "JEE Main",
			Type:          TypeMCQ,
		},
		{
			ID:            "pyq_003",
			Subject:       "Mathematics",
			Chapter:       "Calculus",
			Topic:         "Integration",
			Difficulty:    Hard,
			Text:          "Evaluate ∫₀^π sin²x cos³x dx",
			Options:       []string{"0", "4/15", "8/15", "16/15"},
			CorrectAnswer: "A",
			Solution:      "Substituting x → π - x flips the sign of cos³x, so the integral equals its own negative and is 0.",
			Year:          2023,
			ExamType:      "JEE Advanced",
			Type:          TypeMCQ,
		},
	}
}
