package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

// Selector picks store questions for a learner, focusing on one weak topic
// when the learner has any.
type Selector struct {
	questions question.Store
	progress  progress.Store
	rng       question.Rand
}

// NewSelector creates a selector drawing from questions with rng.
func NewSelector(questions question.Store, progressStore progress.Store, rng question.Rand) *Selector {
	return &Selector{questions: questions, progress: progressStore, rng: rng}
}

// Select returns up to count questions. A learner without progress or without
// weak topics gets an unfiltered random draw; otherwise every question comes
// from a single weak topic chosen uniformly at random. Shortfalls are not
// padded.
func (s *Selector) Select(ctx context.Context, learnerID string, count int) ([]question.Question, error) {
	if count <= 0 {
		return []question.Question{}, nil
	}

	p, ok, err := loadProgress(ctx, s.progress, learnerID)
	if err != nil {
		return nil, err
	}

	var f question.Filter
	if ok && len(p.WeakTopics) > 0 {
		f.Topic = p.WeakTopics[s.rng.IntN(len(p.WeakTopics))]
	}

	questions, err := s.questions.Query(ctx, f, count, s.rng)
	if err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return questions, nil
}

// loadProgress reads a learner's progress, treating a malformed record the
// same as a missing one.
func loadProgress(ctx context.Context, store progress.Store, learnerID string) (progress.StudentProgress, bool, error) {
	p, ok, err := store.Get(ctx, learnerID)
	if err != nil {
		if errors.Is(err, progress.ErrMalformedRecord) {
			slog.Warn("ignoring malformed progress record", "learner_id", learnerID, "error", err)
			return progress.StudentProgress{}, false, nil
		}
		return progress.StudentProgress{}, false, fmt.Errorf("load progress: %w", err)
	}
	return p, ok, nil
}
