package generator

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-practice/internal/ai"
	"github.com/p-n-ai/pai-practice/internal/question"
)

// Completer is the slice of ai.Router the generator needs.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// AIGenerator asks an AI provider for a question and validates the reply.
type AIGenerator struct {
	completer   Completer
	budget      ai.BudgetChecker
	schema      *gojsonschema.Schema
	model       string
	temperature float64
	now         func() time.Time
}

// AIOption configures an AIGenerator.
type AIOption func(*AIGenerator)

// WithBudget charges generation tokens to the requesting learner.
func WithBudget(b ai.BudgetChecker) AIOption {
	return func(g *AIGenerator) {
		g.budget = b
	}
}

// WithModel pins the model name sent to the provider.
func WithModel(model string) AIOption {
	return func(g *AIGenerator) {
		g.model = model
	}
}

// NewAIGenerator creates a generator on top of completer.
func NewAIGenerator(completer Completer, opts ...AIOption) (*AIGenerator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	g := &AIGenerator{
		completer:   completer,
		schema:      schema,
		temperature: 0.7,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// reply is the JSON object the model is asked to return.
type reply struct {
	QuestionText  string          `json:"question_text"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Solution      string          `json:"solution"`
}

func (g *AIGenerator) Generate(ctx context.Context, req Request) (question.Question, error) {
	req = req.withDefaults()

	if g.budget != nil && req.LearnerID != "" {
		ok, err := g.budget.Check(ctx, req.LearnerID)
		if err != nil {
			return question.Question{}, fmt.Errorf("check budget: %w", err)
		}
		if !ok {
			return question.Question{}, ErrBudgetExhausted
		}
	}

	resp, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Model:       g.model,
		MaxTokens:   1024,
		Temperature: g.temperature,
		Task:        ai.TaskGeneration,
		JSONMode:    true,
	})
	if err != nil {
		return question.Question{}, fmt.Errorf("generate question: %w", err)
	}

	if g.budget != nil && req.LearnerID != "" {
		if err := g.budget.Record(ctx, req.LearnerID, resp.TotalTokens()); err != nil {
			slog.Warn("failed to record generation tokens", "learner_id", req.LearnerID, "error", err)
		}
	}

	return g.parse(req, resp.Content)
}

func (g *AIGenerator) parse(req Request, content string) (question.Question, error) {
	doc := extractJSON(content)
	if err := validateReply(g.schema, []byte(doc)); err != nil {
		return question.Question{}, err
	}

	var r reply
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return question.Question{}, fmt.Errorf("decode reply: %w", err)
	}

	answer, err := answerString(r.CorrectAnswer)
	if err != nil {
		return question.Question{}, err
	}

	qType := req.Type
	if len(r.Options) == 0 {
		qType = question.TypeNumerical
	} else {
		answer = strings.ToUpper(answer)
	}

	q := question.Question{
		ID:            contentID(req, r.QuestionText),
		Subject:       req.Subject,
		Chapter:       req.Chapter,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		Text:          strings.TrimSpace(r.QuestionText),
		Options:       r.Options,
		CorrectAnswer: answer,
		Solution:      strings.TrimSpace(r.Solution),
		Year:          g.now().Year(),
		ExamType:      question.ExamAIGenerated,
		Type:          qType,
	}
	if err := q.Validate(); err != nil {
		return question.Question{}, fmt.Errorf("generated question rejected: %w", err)
	}
	return q, nil
}

// extractJSON returns the outermost {...} span of s, dropping code fences
// and any chatter around the object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}

func answerString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("correct_answer must be a string or number")
}

// contentID derives a stable ID from the taxonomy position and text, so the
// same generated question is stored once.
func contentID(req Request, text string) string {
	sum := blake2b.Sum256([]byte(strings.Join([]string{req.Subject, req.Chapter, req.Topic, text}, "\x00")))
	return "ai_" + hex.EncodeToString(sum[:8])
}
