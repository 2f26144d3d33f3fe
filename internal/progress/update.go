package progress

import (
	"time"

	"github.com/p-n-ai/pai-practice/internal/question"
)

// ScoreDecay is the weight kept from the previous subject score on each
// update. The new observation carries the remaining weight.
const ScoreDecay = 0.5

// Rule applies one graded answer to a learner's progress.
//
// By default a miss moves the topic out of the strong set so a topic is never
// both weak and strong. KeepStrongOnMiss leaves the strong set untouched on a
// miss.
type Rule struct {
	KeepStrongOnMiss bool
}

// Apply returns the progress that results from answering q. prior may be nil
// for a learner with no history; it is never modified. LastSession is set to
// now at SessionPrecision.
func (r Rule) Apply(prior *StudentProgress, learnerID string, q question.Question, correct bool, now time.Time) StudentProgress {
	var next StudentProgress
	if prior == nil {
		next = New(learnerID)
	} else {
		next = prior.Clone()
	}

	next.TotalAttempted++
	if correct {
		next.CorrectAnswers++
		next.StrongTopics = addTopic(next.StrongTopics, q.Topic)
		next.WeakTopics = removeTopic(next.WeakTopics, q.Topic)
	} else {
		next.WeakTopics = addTopic(next.WeakTopics, q.Topic)
		if !r.KeepStrongOnMiss {
			next.StrongTopics = removeTopic(next.StrongTopics, q.Topic)
		}
	}

	observed := 0.0
	if correct {
		observed = 1
	}
	next.SubjectScores[q.Subject] = next.SubjectScores[q.Subject]*ScoreDecay + observed*(1-ScoreDecay)

	next.LastSession = sessionTime(now)
	return next
}
