package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/p-n-ai/pai-practice/internal/curriculum"
	"github.com/p-n-ai/pai-practice/internal/practice"
	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

// analyticsTopicLimit caps the weak and strong topic lists in replies.
const analyticsTopicLimit = 5

// FormatQuestion renders a question with its options and answer hint.
func FormatQuestion(q question.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", q.Subject, q.Chapter)
	fmt.Fprintf(&b, "Topic: %s | Difficulty: %s", q.Topic, q.Difficulty)
	if source := questionSource(q); source != "" {
		fmt.Fprintf(&b, " | %s", source)
	}
	b.WriteString("\n\n")
	b.WriteString(q.Text)
	b.WriteString("\n")

	if len(q.Options) > 0 {
		b.WriteString("\n")
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "%s. %s\n", question.OptionLetter(i), opt)
		}
		b.WriteString("\nReply with the option letter, e.g. /answer B")
	} else {
		b.WriteString("\nReply with your numerical answer, e.g. /answer 42")
	}
	return b.String()
}

func questionSource(q question.Question) string {
	switch {
	case q.ExamType == "":
		return ""
	case q.Year > 0:
		return fmt.Sprintf("%s %d", q.ExamType, q.Year)
	default:
		return q.ExamType
	}
}

// FormatGrade renders the result of an answer.
func FormatGrade(g practice.Grade) string {
	var b strings.Builder
	if g.Correct {
		b.WriteString("Correct!\n")
	} else {
		b.WriteString("Incorrect.\n")
	}
	fmt.Fprintf(&b, "Correct answer: %s\n", g.CorrectAnswer)
	if g.Solution != "" {
		fmt.Fprintf(&b, "Solution: %s\n", g.Solution)
	}
	b.WriteString("\nSend /practice for the next question.")
	return b.String()
}

// FormatAnalytics renders a progress summary, or its no-data message.
func FormatAnalytics(a progress.Analytics) string {
	if !a.HasData {
		return a.Message
	}

	var b strings.Builder
	b.WriteString("Your JEE Progress\n\n")
	fmt.Fprintf(&b, "Questions attempted: %d\n", a.TotalAttempted)
	fmt.Fprintf(&b, "Correct answers: %d\n", a.CorrectAnswers)
	fmt.Fprintf(&b, "Accuracy: %s\n", a.Accuracy)

	if len(a.SubjectScores) > 0 {
		subjects := make([]string, 0, len(a.SubjectScores))
		for s := range a.SubjectScores {
			subjects = append(subjects, s)
		}
		sort.Strings(subjects)
		b.WriteString("\nSubject scores:\n")
		for _, s := range subjects {
			fmt.Fprintf(&b, "- %s: %.0f%%\n", s, a.SubjectScores[s]*100)
		}
	}
	writeTopics(&b, "Weak topics", a.WeakTopics)
	writeTopics(&b, "Strong topics", a.StrongTopics)

	if a.LastSession != "" {
		fmt.Fprintf(&b, "\nLast session: %s", a.LastSession)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeTopics(b *strings.Builder, title string, topics []string) {
	if len(topics) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, t := range topics[:min(len(topics), analyticsTopicLimit)] {
		fmt.Fprintf(b, "- %s\n", t)
	}
}

// FormatSyllabusOverview lists the subjects and how to drill into one.
func FormatSyllabusOverview(subjects []string) string {
	var b strings.Builder
	b.WriteString("JEE Syllabus Overview\n\nSubjects:\n")
	for _, s := range subjects {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	if len(subjects) > 0 {
		fmt.Fprintf(&b, "\nUse /syllabus %s for the detailed syllabus.", subjects[0])
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatSyllabus lists a subject's chapters with their first few topics.
func FormatSyllabus(subject string, chapters []curriculum.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Syllabus\n", subject)
	for _, c := range chapters {
		shown := c.Topics[:min(len(c.Topics), 3)]
		line := strings.Join(shown, ", ")
		if len(c.Topics) > len(shown) {
			line += "..."
		}
		fmt.Fprintf(&b, "\n%s\n  %s\n", c.Name, line)
	}
	return strings.TrimRight(b.String(), "\n")
}
