// Package progress tracks per-learner mastery: the StudentProgress record, the
// rule that updates it after every graded answer, and its stores.
package progress

import (
	"slices"
	"time"
)

// StudentProgress is the mastery state of one learner. WeakTopics and
// StrongTopics are ordered sets: insertion order is kept and no topic appears
// twice.
type StudentProgress struct {
	LearnerID      string             `json:"learner_id"`
	SubjectScores  map[string]float64 `json:"subject_scores"`
	WeakTopics     []string           `json:"weak_topics"`
	StrongTopics   []string           `json:"strong_topics"`
	TotalAttempted int                `json:"total_attempted"`
	CorrectAnswers int                `json:"correct_answers"`
	LastSession    time.Time          `json:"last_session"`
}

// SessionPrecision is the resolution LastSession is kept at. It matches
// Postgres timestamptz so a stored record reads back unchanged.
const SessionPrecision = time.Microsecond

// sessionTime drops sub-microsecond precision and the monotonic reading.
func sessionTime(t time.Time) time.Time {
	return t.Round(0).Truncate(SessionPrecision)
}

// New returns empty progress for learnerID.
func New(learnerID string) StudentProgress {
	return StudentProgress{
		LearnerID:     learnerID,
		SubjectScores: map[string]float64{},
		WeakTopics:    []string{},
		StrongTopics:  []string{},
	}
}

// IsWeak reports whether topic is in the weak set.
func (p StudentProgress) IsWeak(topic string) bool {
	return slices.Contains(p.WeakTopics, topic)
}

// IsStrong reports whether topic is in the strong set.
func (p StudentProgress) IsStrong(topic string) bool {
	return slices.Contains(p.StrongTopics, topic)
}

// Accuracy returns the fraction of correct answers, or 0 with no attempts.
func (p StudentProgress) Accuracy() float64 {
	if p.TotalAttempted == 0 {
		return 0
	}
	return float64(p.CorrectAnswers) / float64(p.TotalAttempted)
}

// Clone returns a deep copy of p.
func (p StudentProgress) Clone() StudentProgress {
	out := p
	out.SubjectScores = make(map[string]float64, len(p.SubjectScores))
	for k, v := range p.SubjectScores {
		out.SubjectScores[k] = v
	}
	out.WeakTopics = append([]string{}, p.WeakTopics...)
	out.StrongTopics = append([]string{}, p.StrongTopics...)
	return out
}

func addTopic(set []string, topic string) []string {
	if slices.Contains(set, topic) {
		return set
	}
	return append(set, topic)
}

func removeTopic(set []string, topic string) []string {
	return slices.DeleteFunc(set, func(t string) bool { return t == topic })
}
