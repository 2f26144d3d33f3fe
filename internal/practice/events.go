package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Event types written to the practice event log.
const (
	EventQuestionServed = "question_served"
	EventAnswerRecorded = "answer_recorded"
)

// Event is one entry in the append-only practice log.
type Event struct {
	LearnerID string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

const eventsSchemaSQL = `
CREATE TABLE IF NOT EXISTS practice_events (
	id         BIGSERIAL PRIMARY KEY,
	learner_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_practice_events_learner ON practice_events (learner_id, created_at);
`

// PostgresEventLogger inserts events into the practice_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

// EnsureSchema creates the practice_events table if needed.
func (l *PostgresEventLogger) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx, eventsSchemaSQL); err != nil {
		return fmt.Errorf("create practice_events schema: %w", err)
	}
	return nil
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO practice_events (learner_id, event_type, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.LearnerID,
		event.EventType,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged",
		"type", event.EventType,
		"learner_id", event.LearnerID,
	)
	return nil
}

// Count returns how many events of eventType were logged for learnerID.
func (l *PostgresEventLogger) Count(ctx context.Context, learnerID, eventType string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var n int
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM practice_events WHERE learner_id = $1 AND event_type = $2`,
		learnerID, eventType,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
