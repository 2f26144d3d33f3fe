package generator

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-practice/internal/question"
)

const systemPrompt = `You are an expert JEE question setter. Write original questions in the style of previous year JEE Main and JEE Advanced papers.

Reply with a single JSON object and nothing else:
{"question_text": "...", "options": ["...", "...", "...", "..."], "correct_answer": "A", "solution": "..."}

For MCQ give exactly four options and set correct_answer to the option letter.
For numerical questions omit options and set correct_answer to the final value.`

// templates holds per-subject prompt wording, keyed by subject then type.
var templates = map[string]map[question.Type]string{
	"Physics": {
		question.TypeMCQ:       "Generate a JEE %[1]s level multiple choice question on %[2]s from %[3]s. Include 4 options and a detailed solution.",
		question.TypeNumerical: "Create a JEE %[1]s level numerical question on %[2]s from %[3]s. Provide a step-by-step solution.",
	},
	"Chemistry": {
		question.TypeMCQ:       "Generate a JEE %[1]s level chemistry MCQ on %[2]s from %[3]s. Include 4 options and an explanation.",
		question.TypeNumerical: "Create a JEE %[1]s level numerical problem on %[2]s from %[3]s. Show the complete solution.",
	},
	"Mathematics": {
		question.TypeMCQ:       "Generate a JEE %[1]s level mathematics MCQ on %[2]s from %[3]s. Include 4 options and a detailed solution.",
		question.TypeNumerical: "Create a JEE %[1]s level numerical question on %[2]s from %[3]s. Provide a step-by-step solution.",
	},
}

const genericTemplate = "Generate a JEE %[1]s level %[4]s question on %[2]s from %[3]s with a detailed solution."

// userPrompt renders the request into the subject-specific template.
func userPrompt(req Request) string {
	for subject, byType := range templates {
		if strings.EqualFold(subject, req.Subject) {
			if tmpl, ok := byType[req.Type]; ok {
				return fmt.Sprintf(tmpl, req.Difficulty, req.Topic, req.Chapter)
			}
		}
	}
	return fmt.Sprintf(genericTemplate, req.Difficulty, req.Topic, req.Chapter, req.Type)
}
