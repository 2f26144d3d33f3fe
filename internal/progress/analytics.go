package progress

import "fmt"

// NoDataMessage is reported for learners who have not answered anything yet.
const NoDataMessage = "No progress data found. Start practicing to see analytics!"

const lastSessionLayout = "2006-01-02 15:04"

// Analytics is a read-only summary of a learner's progress, formatted for
// display.
type Analytics struct {
	HasData        bool               `json:"has_data"`
	Message        string             `json:"message,omitempty"`
	TotalAttempted int                `json:"total_questions,omitempty"`
	CorrectAnswers int                `json:"correct_answers,omitempty"`
	Accuracy       string             `json:"accuracy,omitempty"`
	SubjectScores  map[string]float64 `json:"subject_scores,omitempty"`
	WeakTopics     []string           `json:"weak_topics,omitempty"`
	StrongTopics   []string           `json:"strong_topics,omitempty"`
	LastSession    string             `json:"last_session,omitempty"`
}

// NoData returns the sentinel summary for a learner without attempts.
func NoData() Analytics {
	return Analytics{Message: NoDataMessage}
}

// Summarize builds the analytics view of p. A nil p or one with zero attempts
// yields NoData.
func Summarize(p *StudentProgress) Analytics {
	if p == nil || p.TotalAttempted == 0 {
		return NoData()
	}

	c := p.Clone()
	a := Analytics{
		HasData:        true,
		TotalAttempted: c.TotalAttempted,
		CorrectAnswers: c.CorrectAnswers,
		Accuracy:       fmt.Sprintf("%.1f%%", c.Accuracy()*100),
		SubjectScores:  c.SubjectScores,
		WeakTopics:     c.WeakTopics,
		StrongTopics:   c.StrongTopics,
	}
	if !c.LastSession.IsZero() {
		a.LastSession = c.LastSession.Format(lastSessionLayout)
	}
	return a
}
