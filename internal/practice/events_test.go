package practice

import (
	"context"
	"testing"

	"github.com/p-n-ai/pai-practice/internal/platform/database/dbtest"
)

func TestMemoryEventLogger(t *testing.T) {
	l := NewMemoryEventLogger()
	ctx := context.Background()

	if err := l.LogEvent(ctx, Event{LearnerID: "u1"}); err == nil {
		t.Fatal("LogEvent() without type should error")
	}
	if err := l.LogEvent(ctx, Event{LearnerID: "u1", EventType: EventAnswerRecorded}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := l.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should default to now")
	}
}

func TestPostgresEventLogger(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	l := NewPostgresEventLogger(pool)
	if err := l.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"missing type", Event{LearnerID: "u1"}, true},
		{"missing learner", Event{EventType: EventQuestionServed}, true},
		{"served", Event{LearnerID: "u1", EventType: EventQuestionServed, Data: map[string]any{"question_ids": []string{"pyq_001"}}}, false},
		{"nil data", Event{LearnerID: "u1", EventType: EventQuestionServed}, false},
		{"answer", Event{LearnerID: "u1", EventType: EventAnswerRecorded, Data: map[string]any{"correct": true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.LogEvent(ctx, tt.event)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LogEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	served, err := l.Count(ctx, "u1", EventQuestionServed)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if served != 2 {
		t.Errorf("served events = %d, want 2", served)
	}
}

func TestPostgresEventLogger_NilPool(t *testing.T) {
	var l *PostgresEventLogger
	if err := l.LogEvent(context.Background(), Event{LearnerID: "u1", EventType: EventQuestionServed}); err == nil {
		t.Fatal("LogEvent() on nil logger should error")
	}
}
