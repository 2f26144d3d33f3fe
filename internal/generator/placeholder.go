package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-practice/internal/question"
)

const placeholderSolution = "Detailed solution would be provided here."

// sampleTexts are canned stems for a few common topics, keyed by subject
// then topic.
var sampleTexts = map[string]map[string]string{
	"Physics": {
		"Kinematics":     "A particle moves with constant acceleration. If its velocity changes from 10 m/s to 30 m/s in 4 seconds, find the displacement.",
		"Electrostatics": "Two point charges +q and -q are placed at distance 2a. Find the electric field at the midpoint.",
	},
	"Chemistry": {
		"Atomic Structure": "Which of the following electronic configurations represents a transition element?",
		"Chemical Bonding": "The hybridization of carbon in CH4 is:",
	},
	"Mathematics": {
		"Complex Numbers": "If z = 3 + 4i, then |z| equals:",
		"Integration":     "Evaluate ∫(2x + 3)dx from 0 to 2",
	},
}

// PlaceholderGenerator synthesizes clearly marked fallback questions
// without any network call. It never fails.
type PlaceholderGenerator struct{}

func (PlaceholderGenerator) Generate(_ context.Context, req Request) (question.Question, error) {
	return Placeholder(req), nil
}

// Placeholder builds the fallback question for req.
func Placeholder(req Request) question.Question {
	req = req.withDefaults()

	text, ok := sampleTexts[req.Subject][req.Topic]
	if !ok {
		text = fmt.Sprintf("Sample %s question on %s", req.Subject, req.Topic)
	}

	q := question.Question{
		ID:         "placeholder_" + uuid.NewString(),
		Subject:    req.Subject,
		Chapter:    req.Chapter,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Text:       text,
		Solution:   placeholderSolution,
		ExamType:   question.ExamPlaceholder,
		Type:       req.Type,
	}
	if req.Type == question.TypeMCQ {
		q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
		q.CorrectAnswer = "A"
	} else {
		q.CorrectAnswer = "42"
	}
	return q
}
