package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-practice/internal/app"
	"github.com/p-n-ai/pai-practice/internal/bot"
	"github.com/p-n-ai/pai-practice/internal/chat"
	"github.com/p-n-ai/pai-practice/internal/platform/config"
	"github.com/p-n-ai/pai-practice/internal/question"
)

const consoleChannel = "cli"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "practicectl",
		Short:         "JEE practice engine tools",
		Long:          "practicectl imports past papers, inspects learner progress and runs an interactive practice console.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("store", "", "Question and progress store: memory or postgres (overrides LEARN_STORE)")
	root.PersistentFlags().String("curriculum", "", "Syllabus directory (overrides LEARN_CURRICULUM_PATH)")
	root.PersistentFlags().Bool("verbose", false, "Log at debug level to stderr")

	root.AddCommand(
		newImportCmd(),
		newExportCmd(),
		newConsoleCmd(),
		newAnalyticsCmd(),
		newSyllabusCmd(),
		newGenerateCmd(),
	)
	return root
}

// openApp loads configuration, applies flag overrides and builds the app.
// Logs go to stderr so command output stays clean.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if s, _ := cmd.Flags().GetString("store"); s != "" {
		cfg.Store = strings.ToLower(s)
	}
	if p, _ := cmd.Flags().GetString("curriculum"); p != "" {
		cfg.CurriculumPath = p
	}
	// The bank is imported explicitly by the import command.
	cfg.QuestionBankPath = ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	return app.Build(cmd.Context(), cfg)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml|file.xlsx>",
		Short: "Import past-paper questions into the question store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			questions, err := question.LoadBank(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := question.Seed(cmd.Context(), a.Questions, questions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions from %s\n", n, args[0])
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export the question store to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			total, err := a.Questions.Count(ctx)
			if err != nil {
				return err
			}
			filter := question.Filter{}
			if subject != "" {
				if canonical, ok := a.Curriculum.CanonicalSubject(subject); ok {
					subject = canonical
				}
				filter.Subject = subject
			}
			questions, err := a.Questions.Query(ctx, filter, total, rand.New(rand.NewPCG(1, 1)))
			if err != nil {
				return err
			}
			sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })

			if err := question.WriteXLSX(args[0], questions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d questions to %s\n", len(questions), args[0])
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Only export questions for this subject")
	return cmd
}

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Practice interactively using the bot commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runConsole(cmd.Context(), a.Bot, user, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("user", "local", "Learner name for this console session")
	return cmd
}

// runConsole feeds each input line to the bot until EOF or /quit.
func runConsole(ctx context.Context, b *bot.Bot, user string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "JEE practice console. Type /help for commands, /quit to exit.")

	send := func(text string) error {
		reply, err := b.ProcessMessage(ctx, chat.InboundMessage{
			Channel:   consoleChannel,
			UserID:    user,
			Text:      text,
			FirstName: user,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n\n", reply.Text)
		return nil
	}
	if err := send("/start"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		}
		if err := send(line); err != nil {
			return err
		}
	}
}

func newAnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics <learner-id>",
		Short: "Show a learner's progress summary",
		Long:  "Show a learner's progress summary. Chat learners are addressed as channel:user, e.g. telegram:12345.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Engine.Analytics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), bot.FormatAnalytics(summary))
			return nil
		},
	}
}

func newSyllabusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syllabus [subject]",
		Short: "Print the syllabus, or one subject's chapters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, bot.FormatSyllabusOverview(a.Curriculum.Subjects()))
				return nil
			}
			subject, ok := a.Curriculum.CanonicalSubject(args[0])
			if !ok {
				return fmt.Errorf("unknown subject %q", args[0])
			}
			chapters, _ := a.Curriculum.SubjectChapters(subject)
			fmt.Fprintln(out, bot.FormatSyllabus(subject, chapters))
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <subject>",
		Short: "Generate one question for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("difficulty")
			difficulty, err := question.ParseDifficulty(raw)
			if err != nil {
				return err
			}
			learner, _ := cmd.Flags().GetString("learner")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.Engine.Generate(cmd.Context(), learner, args[0], difficulty)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bot.FormatQuestion(q))
			fmt.Fprintf(out, "\nAnswer: %s\n", q.CorrectAnswer)
			if q.Solution != "" {
				fmt.Fprintf(out, "Solution: %s\n", q.Solution)
			}
			return nil
		},
	}
	cmd.Flags().String("difficulty", "Medium", "Easy, Medium or Hard")
	cmd.Flags().String("learner", consoleChannel+":local", "Learner charged for AI tokens")
	return cmd
}
