// Package question holds the practice question bank: the immutable Question
// record and the stores that answer filtered, randomly ordered queries over it.
package question

import (
	"fmt"
	"strings"
)

// Difficulty is an ordered difficulty level. The zero value means "unset"
// and is only meaningful inside a Filter.
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	default:
		return ""
	}
}

// ParseDifficulty parses a difficulty name case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q", s)
	}
}

// MarshalText stores difficulty by name in JSON and YAML.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts an empty value as unset.
func (d *Difficulty) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = 0
		return nil
	}
	parsed, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Type is the answer format of a question.
type Type string

const (
	TypeMCQ       Type = "MCQ"
	TypeNumerical Type = "Numerical"
)

// ParseType parses a question type case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mcq", "":
		return TypeMCQ, nil
	case "numerical", "numeric":
		return TypeNumerical, nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// Exam tags used for questions that did not come from a past paper.
const (
	ExamAIGenerated = "AI Generated"
	ExamPlaceholder = "Placeholder"
)

// Question is an immutable practice item. Callers must not modify Options
// in place; stores hand out copies.
type Question struct {
	ID            string     `json:"id" yaml:"id"`
	Subject       string     `json:"subject" yaml:"subject"`
	Chapter       string     `json:"chapter" yaml:"chapter"`
	Topic         string     `json:"topic" yaml:"topic"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Text          string     `json:"question_text" yaml:"question_text"`
	Options       []string   `json:"options,omitempty" yaml:"options"`
	CorrectAnswer string     `json:"correct_answer" yaml:"correct_answer"`
	Solution      string     `json:"solution" yaml:"solution"`
	Year          int        `json:"year" yaml:"year"`
	ExamType      string     `json:"exam_type" yaml:"exam_type"`
	Type          Type       `json:"question_type" yaml:"question_type"`
}

// IsPlaceholder reports whether q is a locally synthesized fallback item.
func (q Question) IsPlaceholder() bool {
	return q.ExamType == ExamPlaceholder
}

// OptionLetter returns the answer letter for the option at index i (A, B, ...).
func OptionLetter(i int) string {
	return string(rune('A' + i))
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("question id is required")
	}
	if q.Subject == "" || q.Chapter == "" || q.Topic == "" {
		return fmt.Errorf("question %s: subject, chapter and topic are required", q.ID)
	}
	if q.Difficulty < Easy || q.Difficulty > Hard {
		return fmt.Errorf("question %s: invalid difficulty %d", q.ID, int(q.Difficulty))
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("question %s: correct answer is required", q.ID)
	}

	switch q.Type {
	case TypeMCQ:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s: MCQ requires options", q.ID)
		}
		if len(q.Options) > 26 {
			return fmt.Errorf("question %s: too many options (%d)", q.ID, len(q.Options))
		}
		answer := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
		for i := range q.Options {
			if answer == OptionLetter(i) {
				return nil
			}
		}
		return fmt.Errorf("question %s: correct answer %q is not an option letter", q.ID, q.CorrectAnswer)
	case TypeNumerical:
		return nil
	default:
		return fmt.Errorf("question %s: unknown type %q", q.ID, q.Type)
	}
}

// clone returns a copy of q that shares no mutable state with it.
func (q Question) clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}
