// Package practice is the entry point used by every channel: it assembles
// question batches, grades answers and reports learner analytics.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-practice/internal/curriculum"
	"github.com/p-n-ai/pai-practice/internal/generator"
	"github.com/p-n-ai/pai-practice/internal/platform/keylock"
	"github.com/p-n-ai/pai-practice/internal/platform/metrics"
	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

const (
	defaultGenerationTimeout     = 20 * time.Second
	defaultGenerationConcurrency = 4
)

// ErrUnknownSubject is returned by Generate for a subject outside the syllabus.
var ErrUnknownSubject = errors.New("unknown subject")

// Taxonomy is the read-only subject, chapter and topic tree.
type Taxonomy interface {
	AllTopics() []curriculum.TopicRef
	SubjectTopics(subject string) []curriculum.TopicRef
	CanonicalSubject(subject string) (string, bool)
}

// Grade is the outcome of one submitted answer.
type Grade struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Solution      string `json:"solution"`
	Explanation   string `json:"explanation"`
}

// EngineConfig holds dependencies for the practice engine.
type EngineConfig struct {
	Questions question.Store
	Progress  progress.Store
	Taxonomy  Taxonomy
	Generator generator.Generator // default: PlaceholderGenerator
	Events    EventLogger         // default: NopEventLogger
	Metrics   *metrics.Metrics    // optional
	Rule      progress.Rule

	// Rand overrides the random source. When nil a source seeded with Seed is
	// used (clock-seeded when Seed is 0). It must be safe for concurrent use.
	Rand question.Rand
	Seed uint64

	GenerationTimeout     time.Duration // per generated question (default 20s)
	GenerationConcurrency int           // parallel generations per batch (default 4)

	Now func() time.Time
}

// Engine is the practice facade. It is safe for concurrent use.
type Engine struct {
	questions   question.Store
	progress    progress.Store
	taxonomy    Taxonomy
	generator   generator.Generator
	events      EventLogger
	metrics     *metrics.Metrics
	rule        progress.Rule
	rng         question.Rand
	selector    *Selector
	locks       *keylock.Locks
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

// NewEngine creates a practice engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Questions == nil {
		return nil, fmt.Errorf("question store is required")
	}
	if cfg.Progress == nil {
		return nil, fmt.Errorf("progress store is required")
	}
	if cfg.Taxonomy == nil || len(cfg.Taxonomy.AllTopics()) == 0 {
		return nil, fmt.Errorf("taxonomy with at least one topic is required")
	}

	gen := cfg.Generator
	if gen == nil {
		gen = generator.PlaceholderGenerator{}
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = newRand(cfg.Seed)
	}
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	concurrency := cfg.GenerationConcurrency
	if concurrency <= 0 {
		concurrency = defaultGenerationConcurrency
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		questions:   cfg.Questions,
		progress:    cfg.Progress,
		taxonomy:    cfg.Taxonomy,
		generator:   gen,
		events:      events,
		metrics:     cfg.Metrics,
		rule:        cfg.Rule,
		rng:         rng,
		selector:    NewSelector(cfg.Questions, cfg.Progress, rng),
		locks:       keylock.New(),
		timeout:     timeout,
		concurrency: concurrency,
		now:         now,
	}, nil
}

// NextQuestions returns a practice batch.
//
// With a subject the batch is a plain random draw from that subject and may
// be shorter than count. Without one, about a third of the batch is freshly
// generated on random syllabus topics and the rest comes from the selector;
// generation tops up any shortfall so the batch always has count items,
// store questions first. A batch of one is drawn from the selector and only
// generated when the store has nothing to offer.
func (e *Engine) NextQuestions(ctx context.Context, learnerID, subject string, count int) ([]question.Question, error) {
	if count <= 0 {
		return []question.Question{}, nil
	}

	var batch []question.Question
	if subject = strings.TrimSpace(subject); subject != "" {
		if canonical, ok := e.taxonomy.CanonicalSubject(subject); ok {
			subject = canonical
		}
		qs, err := e.questions.Query(ctx, question.Filter{Subject: subject}, count, e.rng)
		if err != nil {
			return nil, fmt.Errorf("query subject questions: %w", err)
		}
		e.metrics.QuestionServed(metrics.SourceStore, len(qs))
		batch = qs
	} else {
		// A single-question batch still goes to the selector so weak topics
		// are targeted.
		storeQuota := max(1, count-max(1, count/3))
		qs, err := e.selector.Select(ctx, learnerID, storeQuota)
		if err != nil {
			return nil, err
		}
		e.metrics.QuestionServed(metrics.SourceStore, len(qs))
		batch = append(qs, e.generateBatch(ctx, learnerID, count-len(qs))...)
	}

	slog.Info("practice batch assembled",
		"learner_id", learnerID,
		"subject", subject,
		"requested", count,
		"served", len(batch),
	)
	e.logEvent(ctx, Event{
		LearnerID: learnerID,
		EventType: EventQuestionServed,
		Data: map[string]any{
			"subject":      subject,
			"question_ids": questionIDs(batch),
		},
	})
	return batch, nil
}

// RecordAnswer grades submitted against q and folds the result into the
// learner's progress. Answers for the same learner are applied one at a time.
func (e *Engine) RecordAnswer(ctx context.Context, learnerID string, q question.Question, submitted string) (Grade, error) {
	if strings.TrimSpace(learnerID) == "" {
		return Grade{}, fmt.Errorf("learner id is required")
	}

	correct := answersMatch(submitted, q.CorrectAnswer)

	unlock := e.locks.Lock(learnerID)
	defer unlock()

	prior, ok, err := loadProgress(ctx, e.progress, learnerID)
	if err != nil {
		return Grade{}, err
	}
	var priorRef *progress.StudentProgress
	if ok {
		priorRef = &prior
	}

	next := e.rule.Apply(priorRef, learnerID, q, correct, e.now())
	if err := e.progress.Put(ctx, next); err != nil {
		return Grade{}, fmt.Errorf("save progress: %w", err)
	}

	e.metrics.AnswerRecorded(correct)
	e.logEvent(ctx, Event{
		LearnerID: learnerID,
		EventType: EventAnswerRecorded,
		Data: map[string]any{
			"question_id": q.ID,
			"subject":     q.Subject,
			"topic":       q.Topic,
			"correct":     correct,
		},
	})

	return Grade{
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Solution:      q.Solution,
		Explanation:   strings.TrimSpace(fmt.Sprintf("The correct answer is %s. %s", q.CorrectAnswer, q.Solution)),
	}, nil
}

// Analytics summarizes a learner's progress. Learners without attempts get
// the NoData sentinel.
func (e *Engine) Analytics(ctx context.Context, learnerID string) (progress.Analytics, error) {
	p, ok, err := loadProgress(ctx, e.progress, learnerID)
	if err != nil {
		return progress.Analytics{}, err
	}
	if !ok {
		return progress.NoData(), nil
	}
	return progress.Summarize(&p), nil
}

// Generate creates one question on a random topic of subject. Generation
// failures yield a placeholder rather than an error.
func (e *Engine) Generate(ctx context.Context, learnerID, subject string, difficulty question.Difficulty) (question.Question, error) {
	refs := e.taxonomy.SubjectTopics(subject)
	if len(refs) == 0 {
		return question.Question{}, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}
	ref := refs[e.rng.IntN(len(refs))]

	q := e.generateOne(ctx, learnerID, ref, difficulty)
	e.logEvent(ctx, Event{
		LearnerID: learnerID,
		EventType: EventQuestionServed,
		Data: map[string]any{
			"subject":      ref.Subject,
			"question_ids": []string{q.ID},
			"generated":    true,
		},
	})
	return q, nil
}

// generateBatch generates n questions on uniformly random topics. Topics are
// drawn up front so a seeded source gives the same picks regardless of how
// the generations interleave.
func (e *Engine) generateBatch(ctx context.Context, learnerID string, n int) []question.Question {
	if n <= 0 {
		return nil
	}

	all := e.taxonomy.AllTopics()
	refs := make([]curriculum.TopicRef, n)
	for i := range refs {
		refs[i] = all[e.rng.IntN(len(all))]
	}

	out := make([]question.Question, n)
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			out[i] = e.generateOne(ctx, learnerID, ref, 0)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// generateOne never fails: any generator error is replaced by a placeholder.
func (e *Engine) generateOne(ctx context.Context, learnerID string, ref curriculum.TopicRef, difficulty question.Difficulty) question.Question {
	req := generator.Request{
		Subject:    ref.Subject,
		Chapter:    ref.Chapter,
		Topic:      ref.Topic,
		Difficulty: difficulty,
		LearnerID:  learnerID,
	}

	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	q, err := e.generator.Generate(genCtx, req)
	e.metrics.GenerationObserved(time.Since(start))
	if err != nil {
		reason := failureReason(err)
		slog.Warn("question generation failed, using placeholder",
			"learner_id", learnerID,
			"subject", ref.Subject,
			"topic", ref.Topic,
			"reason", reason,
			"error", err,
		)
		e.metrics.GenerationFailed(reason)
		e.metrics.QuestionServed(metrics.SourcePlaceholder, 1)
		return generator.Placeholder(req)
	}

	if q.IsPlaceholder() {
		e.metrics.QuestionServed(metrics.SourcePlaceholder, 1)
	} else {
		e.metrics.QuestionServed(metrics.SourceGenerated, 1)
	}
	return q
}

func (e *Engine) logEvent(ctx context.Context, event Event) {
	if event.LearnerID == "" {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now()
	}
	if err := e.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log practice event", "type", event.EventType, "learner_id", event.LearnerID, "error", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, generator.ErrBudgetExhausted):
		return "budget"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// answersMatch compares answers ignoring case and surrounding whitespace.
// A Caser is stateful, so each comparison gets its own.
func answersMatch(submitted, correct string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(submitted)) == fold.String(strings.TrimSpace(correct))
}

func questionIDs(qs []question.Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
