// Package app wires configuration into the stores, AI providers, practice
// engine and bot shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-practice/internal/ai"
	"github.com/p-n-ai/pai-practice/internal/bot"
	"github.com/p-n-ai/pai-practice/internal/curriculum"
	"github.com/p-n-ai/pai-practice/internal/generator"
	"github.com/p-n-ai/pai-practice/internal/platform/cache"
	"github.com/p-n-ai/pai-practice/internal/platform/config"
	"github.com/p-n-ai/pai-practice/internal/platform/database"
	"github.com/p-n-ai/pai-practice/internal/platform/metrics"
	"github.com/p-n-ai/pai-practice/internal/practice"
	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

// Check is a dependency probed by the readiness endpoint.
type Check interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// App holds the wired components. Optional infrastructure (DB, Cache) is nil
// when not configured.
type App struct {
	Config     *config.Config
	Metrics    *metrics.Metrics
	Curriculum *curriculum.Loader
	Questions  question.Store
	Progress   progress.Store
	Events     practice.EventLogger
	Router     *ai.Router
	Generator  generator.Generator
	Engine     *practice.Engine
	Sessions   bot.SessionStore
	Bot        *bot.Bot

	DB    *database.DB
	Cache *cache.Cache
}

// Build connects infrastructure and assembles the practice stack. On error
// anything already opened is closed.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Curriculum, err = curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}
	if err := a.loadQuestionBank(ctx); err != nil {
		return nil, err
	}

	budget, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}

	a.Router = newRouter(cfg.AI, a.Metrics)
	if a.Router.HasProvider() {
		a.Generator, err = generator.NewAIGenerator(a.Router, generator.WithBudget(budget))
		if err != nil {
			return nil, fmt.Errorf("creating AI generator: %w", err)
		}
		slog.Info("question generation enabled", "providers", a.Router.Providers())
	} else {
		a.Generator = generator.PlaceholderGenerator{}
		slog.Warn("no AI provider configured, generated questions will be placeholders")
	}

	a.Engine, err = practice.NewEngine(practice.EngineConfig{
		Questions:             a.Questions,
		Progress:              a.Progress,
		Taxonomy:              a.Curriculum,
		Generator:             a.Generator,
		Events:                a.Events,
		Metrics:               a.Metrics,
		Rule:                  progress.Rule{KeepStrongOnMiss: cfg.Practice.KeepStrongOnMiss},
		Seed:                  cfg.Practice.Seed,
		GenerationTimeout:     cfg.Practice.GenerationTimeout,
		GenerationConcurrency: cfg.Practice.GenerationConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("creating practice engine: %w", err)
	}

	a.Bot, err = bot.New(bot.Config{
		Practice:  a.Engine,
		Syllabus:  a.Curriculum,
		Sessions:  a.Sessions,
		BatchSize: cfg.Practice.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config
	if cfg.Store != config.StorePostgres {
		a.Questions = question.NewMemoryStore()
		a.Progress = progress.NewMemoryStore()
		a.Events = practice.NopEventLogger{}
		return nil
	}

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	a.DB = db

	qs, err := question.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	ps, err := progress.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	events := practice.NewPostgresEventLogger(db.Pool)

	if err := db.Migrate(ctx, qs, ps, events); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	a.Questions, a.Progress, a.Events = qs, ps, events
	slog.Info("using postgres stores")
	return nil
}

func (a *App) loadQuestionBank(ctx context.Context) error {
	if path := a.Config.QuestionBankPath; path != "" {
		qs, err := question.LoadBank(path)
		if err != nil {
			return fmt.Errorf("loading question bank: %w", err)
		}
		n, err := question.Seed(ctx, a.Questions, qs)
		if err != nil {
			return fmt.Errorf("importing question bank: %w", err)
		}
		slog.Info("question bank imported", "path", path, "questions", n)
	}

	n, err := question.SeedIfEmpty(ctx, a.Questions)
	if err != nil {
		return fmt.Errorf("seeding sample questions: %w", err)
	}
	if n > 0 {
		slog.Info("seeded sample questions", "count", n)
	}
	return nil
}

// openCache connects the cache when enabled and returns the matching budget
// tracker. Sessions and budgets stay in memory otherwise.
func (a *App) openCache(ctx context.Context) (ai.BudgetChecker, error) {
	cfg := a.Config
	if !cfg.Cache.Enabled {
		a.Sessions = bot.NewMemorySessionStore()
		return ai.NewInMemoryBudget(cfg.Practice.DailyTokenBudget), nil
	}

	c, err := cache.New(ctx, cfg.Cache.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to cache: %w", err)
	}
	a.Cache = c
	a.Sessions = bot.NewRedisSessionStore(c.Client, cfg.Cache.SessionTTL)
	return ai.NewRedisBudget(c.Client, cfg.Practice.DailyTokenBudget), nil
}

// newRouter registers every configured provider in a fixed fallback order.
func newRouter(cfg config.AIConfig, m *metrics.Metrics) *ai.Router {
	r := ai.NewRouter()
	r.SetObserver(func(provider string, task ai.TaskType, elapsed time.Duration, err error) {
		m.AIRequest(provider, task.String(), elapsed, err)
	})

	if cfg.OpenAI.APIKey != "" {
		r.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			r.Register("anthropic", p)
		}
	}
	if cfg.DeepSeek.APIKey != "" {
		r.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.Google.APIKey != "" {
		r.Register("google", ai.NewGoogleProvider(cfg.Google.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		r.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey))
	}
	if cfg.Ollama.Enabled {
		r.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL))
	}
	return r
}

// Checks returns the infrastructure probed by /readyz.
func (a *App) Checks() []Check {
	var checks []Check
	if a.DB != nil {
		checks = append(checks, a.DB)
	}
	if a.Cache != nil {
		checks = append(checks, a.Cache)
	}
	return checks
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
		a.Cache = nil
	}
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}
