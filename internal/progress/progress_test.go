package progress_test

import (
	"math"
	"testing"
	"time"

	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

var now = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

func physicsQuestion(topic string) question.Question {
	return question.Question{
		ID:            "q-" + topic,
		Subject:       "Physics",
		Chapter:       "Mechanics",
		Topic:         topic,
		Difficulty:    question.Medium,
		Text:          "?",
		Options:       []string{"a", "b"},
		CorrectAnswer: "A",
		Type:          question.TypeMCQ,
	}
}

func TestRule_NewLearner(t *testing.T) {
	got := progress.Rule{}.Apply(nil, "u1", physicsQuestion("Kinematics"), true, now)

	if got.LearnerID != "u1" {
		t.Errorf("LearnerID = %q, want u1", got.LearnerID)
	}
	if got.TotalAttempted != 1 || got.CorrectAnswers != 1 {
		t.Errorf("counters = %d/%d, want 1/1", got.CorrectAnswers, got.TotalAttempted)
	}
	if !got.IsStrong("Kinematics") || got.IsWeak("Kinematics") {
		t.Errorf("Kinematics should be strong only: weak=%v strong=%v", got.WeakTopics, got.StrongTopics)
	}
	if !got.LastSession.Equal(now) {
		t.Errorf("LastSession = %v, want %v", got.LastSession, now)
	}
}

func TestRule_LastSessionAtStorePrecision(t *testing.T) {
	at := time.Now()
	got := progress.Rule{}.Apply(nil, "u1", physicsQuestion("Kinematics"), true, at)

	if want := at.Truncate(progress.SessionPrecision); !got.LastSession.Equal(want) {
		t.Errorf("LastSession = %v, want %v", got.LastSession, want)
	}
	if got.LastSession.Nanosecond()%1000 != 0 {
		t.Errorf("LastSession keeps sub-microsecond digits: %v", got.LastSession)
	}
}

func TestRule_ScoreDecaySequence(t *testing.T) {
	q := physicsQuestion("Kinematics")
	answers := []bool{true, false, true, false}
	want := []float64{0.5, 0.25, 0.625, 0.3125}

	var p *progress.StudentProgress
	for i, correct := range answers {
		next := progress.Rule{}.Apply(p, "u1", q, correct, now)
		if got := next.SubjectScores["Physics"]; math.Abs(got-want[i]) > 1e-12 {
			t.Errorf("after answer %d score = %v, want %v", i+1, got, want[i])
		}
		p = &next
	}
}

func TestRule_RepeatedMissesStayWeak(t *testing.T) {
	q := physicsQuestion("Gravitation")
	rule := progress.Rule{}

	p := rule.Apply(nil, "u1", q, true, now)
	for i := 0; i < 3; i++ {
		p = rule.Apply(&p, "u1", q, false, now)
	}

	if !p.IsWeak("Gravitation") {
		t.Error("topic should be weak after consecutive misses")
	}
	if p.IsStrong("Gravitation") {
		t.Error("topic should not be strong after consecutive misses")
	}
	if len(p.WeakTopics) != 1 {
		t.Errorf("WeakTopics = %v, want one entry", p.WeakTopics)
	}
}

func TestRule_KeepStrongOnMiss(t *testing.T) {
	q := physicsQuestion("Gravitation")
	rule := progress.Rule{KeepStrongOnMiss: true}

	p := rule.Apply(nil, "u1", q, true, now)
	p = rule.Apply(&p, "u1", q, false, now)

	if !p.IsWeak("Gravitation") || !p.IsStrong("Gravitation") {
		t.Errorf("want topic in both sets, weak=%v strong=%v", p.WeakTopics, p.StrongTopics)
	}
}

func TestRule_CorrectRehabilitatesWeakTopic(t *testing.T) {
	q := physicsQuestion("Optics")
	rule := progress.Rule{}

	p := rule.Apply(nil, "u1", q, false, now)
	if !p.IsWeak("Optics") {
		t.Fatal("precondition: topic should be weak")
	}
	p = rule.Apply(&p, "u1", q, true, now)

	if p.IsWeak("Optics") {
		t.Error("single correct answer should clear the weak flag")
	}
	if !p.IsStrong("Optics") {
		t.Error("single correct answer should mark the topic strong")
	}
}

func TestRule_DoesNotMutatePrior(t *testing.T) {
	rule := progress.Rule{}
	prior := rule.Apply(nil, "u1", physicsQuestion("Kinematics"), false, now)
	before := prior.Clone()

	_ = rule.Apply(&prior, "u1", physicsQuestion("Kinematics"), true, now.Add(time.Hour))

	if prior.TotalAttempted != before.TotalAttempted ||
		prior.SubjectScores["Physics"] != before.SubjectScores["Physics"] ||
		len(prior.WeakTopics) != len(before.WeakTopics) ||
		len(prior.StrongTopics) != len(before.StrongTopics) {
		t.Errorf("prior mutated: got %+v, want %+v", prior, before)
	}
}

func TestRule_TopicSetsPreserveOrder(t *testing.T) {
	rule := progress.Rule{}
	var p progress.StudentProgress
	for i, topic := range []string{"C", "A", "B", "A"} {
		if i == 0 {
			p = rule.Apply(nil, "u1", physicsQuestion(topic), false, now)
			continue
		}
		p = rule.Apply(&p, "u1", physicsQuestion(topic), false, now)
	}

	want := []string{"C", "A", "B"}
	if len(p.WeakTopics) != len(want) {
		t.Fatalf("WeakTopics = %v, want %v", p.WeakTopics, want)
	}
	for i := range want {
		if p.WeakTopics[i] != want[i] {
			t.Errorf("WeakTopics = %v, want %v", p.WeakTopics, want)
			break
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name         string
		progress     *progress.StudentProgress
		wantData     bool
		wantAccuracy string
	}{
		{"nil progress", nil, false, ""},
		{"zero attempts", &progress.StudentProgress{LearnerID: "u1"}, false, ""},
		{"two of three", &progress.StudentProgress{LearnerID: "u1", TotalAttempted: 3, CorrectAnswers: 2, LastSession: now}, true, "66.7%"},
		{"all wrong", &progress.StudentProgress{LearnerID: "u1", TotalAttempted: 4}, true, "0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progress.Summarize(tt.progress)
			if got.HasData != tt.wantData {
				t.Fatalf("HasData = %v, want %v", got.HasData, tt.wantData)
			}
			if !tt.wantData {
				if got.Message != progress.NoDataMessage {
					t.Errorf("Message = %q, want no-data sentinel", got.Message)
				}
				return
			}
			if got.Accuracy != tt.wantAccuracy {
				t.Errorf("Accuracy = %q, want %q", got.Accuracy, tt.wantAccuracy)
			}
		})
	}
}

func TestSummarize_LastSessionFormat(t *testing.T) {
	p := &progress.StudentProgress{TotalAttempted: 1, LastSession: now}
	if got := progress.Summarize(p).LastSession; got != "2024-03-09 18:30" {
		t.Errorf("LastSession = %q, want 2024-03-09 18:30", got)
	}
}
