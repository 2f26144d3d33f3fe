package curriculum

// Syllabus is one exam syllabus file (e.g. JEE Main and Advanced).
type Syllabus struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Exam     string    `yaml:"exam"`
	Subjects []Subject `yaml:"subjects"`
}

// Subject is a top-level subject (e.g. Physics) and its chapters in
// syllabus order.
type Subject struct {
	Name     string    `yaml:"name"`
	Chapters []Chapter `yaml:"chapters"`
}

// Chapter groups an ordered list of topic names.
type Chapter struct {
	Name   string   `yaml:"name"`
	Topics []string `yaml:"topics"`
}

// TopicRef is the flat (subject, chapter, topic) position of a topic.
type TopicRef struct {
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
	Topic   string `json:"topic"`
}
