// Package generator produces fresh practice questions for a taxonomy
// position, either through an AI provider or as a local placeholder.
package generator

import (
	"context"
	"errors"

	"github.com/p-n-ai/pai-practice/internal/question"
)

// ErrBudgetExhausted is returned when the learner has used today's AI budget.
var ErrBudgetExhausted = errors.New("generation budget exhausted")

// Request describes the question to generate.
type Request struct {
	Subject    string
	Chapter    string
	Topic      string
	Difficulty question.Difficulty
	Type       question.Type
	LearnerID  string
}

// withDefaults fills the optional difficulty and type.
func (r Request) withDefaults() Request {
	if r.Difficulty == 0 {
		r.Difficulty = question.Medium
	}
	if r.Type == "" {
		r.Type = question.TypeMCQ
	}
	return r
}

// Generator creates one question for a request. Implementations may fail;
// callers substitute a placeholder.
type Generator interface {
	Generate(ctx context.Context, req Request) (question.Question, error)
}
