// Package bot turns chat messages into practice commands and renders the
// replies shared by every channel.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-n-ai/pai-practice/internal/chat"
	"github.com/p-n-ai/pai-practice/internal/curriculum"
	"github.com/p-n-ai/pai-practice/internal/platform/keylock"
	"github.com/p-n-ai/pai-practice/internal/practice"
	"github.com/p-n-ai/pai-practice/internal/progress"
	"github.com/p-n-ai/pai-practice/internal/question"
)

const (
	defaultBatchSize = 5

	replyTechnicalIssue = "Sorry, something went wrong on our side. Please try again in a moment."
	replyNoQuestions    = "No questions available. Try again later!"
	replyNoActive       = "No active question. Send /practice to get one."
	replyNotUnderstood  = "I didn't understand that. Send /help to see what I can do."
)

// Practice is the engine surface the bot drives.
type Practice interface {
	NextQuestions(ctx context.Context, learnerID, subject string, count int) ([]question.Question, error)
	RecordAnswer(ctx context.Context, learnerID string, q question.Question, submitted string) (practice.Grade, error)
	Analytics(ctx context.Context, learnerID string) (progress.Analytics, error)
	Generate(ctx context.Context, learnerID, subject string, difficulty question.Difficulty) (question.Question, error)
}

// Syllabus is the read-only taxonomy the bot displays.
type Syllabus interface {
	Subjects() []string
	SubjectChapters(subject string) ([]curriculum.Chapter, bool)
}

// Config holds dependencies for the bot.
type Config struct {
	Practice  Practice
	Syllabus  Syllabus
	Sessions  SessionStore // default: MemorySessionStore
	BatchSize int          // questions fetched per /practice refill (default 5)
}

// Bot handles inbound chat messages.
type Bot struct {
	practice  Practice
	syllabus  Syllabus
	sessions  SessionStore
	batchSize int
	locks     *keylock.Locks
}

// New creates a bot.
func New(cfg Config) (*Bot, error) {
	if cfg.Practice == nil {
		return nil, fmt.Errorf("practice engine is required")
	}
	if cfg.Syllabus == nil {
		return nil, fmt.Errorf("syllabus is required")
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Bot{
		practice:  cfg.Practice,
		syllabus:  cfg.Syllabus,
		sessions:  sessions,
		batchSize: batch,
		locks:     keylock.New(),
	}, nil
}

// Commands returns the command menu advertised to chat clients.
func Commands() []chat.Command {
	return []chat.Command{
		{Name: "start", Description: "Welcome and quick guide"},
		{Name: "practice", Description: "Get a practice question, optionally for one subject"},
		{Name: "answer", Description: "Answer the current question"},
		{Name: "analytics", Description: "Show your progress"},
		{Name: "syllabus", Description: "Browse the JEE syllabus"},
		{Name: "generate", Description: "Generate a fresh question for a subject"},
		{Name: "help", Description: "List commands"},
	}
}

// LearnerID scopes a chat user to their channel.
func LearnerID(msg chat.InboundMessage) string {
	return msg.Channel + ":" + msg.UserID
}

// Reply is the bot's answer to one message. Choices carries the answer
// options of a multiple-choice question so channels can render buttons.
type Reply struct {
	Text    string
	Choices []chat.Choice
}

func textReply(text string) Reply { return Reply{Text: text} }

// questionReply renders q with one answer button per option.
func questionReply(heading string, q question.Question) Reply {
	r := Reply{Text: heading + FormatQuestion(q)}
	for i := range q.Options {
		letter := question.OptionLetter(i)
		r.Choices = append(r.Choices, chat.Choice{Label: letter, Send: "/answer " + letter})
	}
	return r
}

// ProcessMessage handles an incoming message and returns the reply.
// Infrastructure failures are logged and answered with a fixed apology.
// Messages from one learner are handled one at a time, so a repeated answer
// finds the question already graded.
func (b *Bot) ProcessMessage(ctx context.Context, msg chat.InboundMessage) (Reply, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	text := strings.TrimSpace(msg.Text)
	learnerID := LearnerID(msg)

	unlock := b.locks.Lock(learnerID)
	defer unlock()

	var (
		reply Reply
		err   error
	)
	if strings.HasPrefix(text, "/") {
		reply, err = b.handleCommand(ctx, learnerID, msg, text)
	} else {
		reply, err = b.handlePlain(ctx, learnerID, text)
	}
	if err != nil {
		slog.Error("failed to handle message", "learner_id", learnerID, "error", err)
		return textReply(replyTechnicalIssue), nil
	}
	return reply, nil
}

func (b *Bot) handleCommand(ctx context.Context, learnerID string, msg chat.InboundMessage, text string) (Reply, error) {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// Group chats address commands as /practice@SomeBot.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		return textReply(b.handleStart(msg)), nil
	case "/practice", "/question":
		return b.handlePractice(ctx, learnerID, strings.Join(args, " "))
	case "/answer":
		if len(args) == 0 {
			return textReply("Usage: /answer <option letter or value>"), nil
		}
		return b.handleAnswer(ctx, learnerID, strings.Join(args, " "))
	case "/analytics":
		a, err := b.practice.Analytics(ctx, learnerID)
		if err != nil {
			return Reply{}, err
		}
		return textReply(FormatAnalytics(a)), nil
	case "/syllabus":
		return textReply(b.handleSyllabus(strings.Join(args, " "))), nil
	case "/generate":
		return b.handleGenerate(ctx, learnerID, args)
	case "/help":
		return textReply(helpText()), nil
	default:
		return textReply(fmt.Sprintf("Unknown command: %s\nSend /help to see available commands.", cmd)), nil
	}
}

// handlePlain treats a single-token reply as an answer while a question is
// active.
func (b *Bot) handlePlain(ctx context.Context, learnerID, text string) (Reply, error) {
	sess, ok, err := b.sessions.Get(ctx, learnerID)
	if err != nil {
		return Reply{}, err
	}
	if ok && sess.Active != nil && len(strings.Fields(text)) == 1 {
		return b.handleAnswer(ctx, learnerID, text)
	}
	return textReply(replyNotUnderstood), nil
}

func (b *Bot) handleStart(msg chat.InboundMessage) string {
	name := msg.FirstName
	if name == "" {
		name = msg.Username
	}
	if name == "" {
		name = "there"
	}

	return fmt.Sprintf(`Hi %s!

I'm P&AI Practice, your JEE practice partner. I pick questions from past papers, focus on the topics you find hardest and mix in freshly generated ones.

Send /practice to get your first question, or /help to see everything I can do.`, name)
}

func (b *Bot) handlePractice(ctx context.Context, learnerID, subject string) (Reply, error) {
	sess, _, err := b.sessions.Get(ctx, learnerID)
	if err != nil {
		return Reply{}, err
	}

	if !strings.EqualFold(sess.Subject, subject) {
		sess.Queue = nil
	}
	sess.Subject = subject

	if len(sess.Queue) == 0 {
		qs, err := b.practice.NextQuestions(ctx, learnerID, subject, b.batchSize)
		if err != nil {
			return Reply{}, err
		}
		sess.Queue = qs
	}
	if len(sess.Queue) == 0 {
		sess.Active = nil
		if err := b.sessions.Put(ctx, learnerID, sess); err != nil {
			return Reply{}, err
		}
		return textReply(replyNoQuestions), nil
	}

	next := sess.Queue[0]
	sess.Queue = sess.Queue[1:]
	sess.Active = &next
	if err := b.sessions.Put(ctx, learnerID, sess); err != nil {
		return Reply{}, err
	}
	return questionReply("", next), nil
}

func (b *Bot) handleAnswer(ctx context.Context, learnerID, submitted string) (Reply, error) {
	sess, ok, err := b.sessions.Get(ctx, learnerID)
	if err != nil {
		return Reply{}, err
	}
	if !ok || sess.Active == nil {
		return textReply(replyNoActive), nil
	}

	grade, err := b.practice.RecordAnswer(ctx, learnerID, *sess.Active, submitted)
	if err != nil {
		return Reply{}, err
	}

	sess.Active = nil
	if err := b.sessions.Put(ctx, learnerID, sess); err != nil {
		slog.Warn("failed to clear active question", "learner_id", learnerID, "error", err)
	}
	return textReply(FormatGrade(grade)), nil
}

func (b *Bot) handleSyllabus(subject string) string {
	if subject != "" {
		if chapters, ok := b.syllabus.SubjectChapters(subject); ok {
			for _, s := range b.syllabus.Subjects() {
				if strings.EqualFold(s, subject) {
					subject = s
				}
			}
			return FormatSyllabus(subject, chapters)
		}
	}
	return FormatSyllabusOverview(b.syllabus.Subjects())
}

func (b *Bot) handleGenerate(ctx context.Context, learnerID string, args []string) (Reply, error) {
	if len(args) == 0 {
		return textReply("Usage: /generate <subject> [Easy|Medium|Hard]"), nil
	}

	difficulty := question.Medium
	if len(args) > 1 {
		d, err := question.ParseDifficulty(args[1])
		if err != nil {
			return textReply("Difficulty must be Easy, Medium or Hard."), nil
		}
		difficulty = d
	}

	q, err := b.practice.Generate(ctx, learnerID, args[0], difficulty)
	if err != nil {
		if errors.Is(err, practice.ErrUnknownSubject) {
			return textReply(fmt.Sprintf("Invalid subject! Use %s.", joinOr(b.syllabus.Subjects()))), nil
		}
		return Reply{}, err
	}

	sess, _, err := b.sessions.Get(ctx, learnerID)
	if err != nil {
		return Reply{}, err
	}
	sess.Active = &q
	if err := b.sessions.Put(ctx, learnerID, sess); err != nil {
		return Reply{}, err
	}
	return questionReply("Generated Question\n\n", q), nil
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range Commands() {
		fmt.Fprintf(&b, "/%s - %s\n", c.Name, c.Description)
	}
	b.WriteString("\nWhile a question is open you can also just reply with your answer.")
	return b.String()
}

func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
	}
}
