package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/session"
)

var (
	flagLearnReview bool
	flagLearnMode   string
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Run the interactive mentoring wizard",
	Long: `Walk through describe → attempt → review in the terminal.

In generate mode you describe a task, optionally ask for a starter skeleton,
write your attempt and get a review. With --review you paste existing code
instead. Code blocks end with a line containing only a single '.'.`,
	Args: cobra.NoArgs,
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().BoolVar(&flagLearnReview, "review", false, "Review existing code instead of solving a described task")
	learnCmd.Flags().StringVarP(&flagLearnMode, "mode", "m", string(domain.DefaultFeedbackMode), "Feedback mode: concise or detailed")
}

func runLearn(cmd *cobra.Command, args []string) error {
	mode, err := domain.ParseFeedbackMode(flagLearnMode)
	if err != nil {
		return err
	}
	taskMode := domain.TaskGenerate
	if flagLearnReview {
		taskMode = domain.TaskReview
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	w := newWizard(a.Sessions, cmd.InOrStdin(), cmd.OutOrStdout(), renderMarkdown)
	return w.run(cmd.Context(), session.CreateRequest{
		TaskMode:     taskMode,
		FeedbackMode: mode,
	})
}

// wizard drives one session from the terminal
type wizard struct {
	svc    session.SessionService
	in     *bufio.Scanner
	out    io.Writer
	render func(string) string

	// feedbackFailed stops automatic retries until the learner asks for one
	feedbackFailed bool
}

func newWizard(svc session.SessionService, in io.Reader, out io.Writer, render func(string) string) *wizard {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &wizard{svc: svc, in: scanner, out: out, render: render}
}

func (w *wizard) run(ctx context.Context, req session.CreateRequest) error {
	sess, err := w.svc.Create(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "%s %s (%s mode, %s feedback)\n\n",
		color.New(color.Bold).Sprint("Session"), sess.ID, sess.TaskMode, sess.FeedbackMode)

	for {
		var next *session.Session
		var done bool
		switch sess.Step {
		case session.StepDescribeTask:
			next, done = w.describe(ctx, sess)
		case session.StepAttemptCode:
			next, done = w.attempt(ctx, sess)
		case session.StepReview:
			next, done = w.review(ctx, sess)
		default:
			return fmt.Errorf("unknown step %q", sess.Step)
		}
		if done {
			fmt.Fprintln(w.out, "Bye! Your session is saved as", sess.ID)
			return nil
		}
		sess = next
	}
}

// readLine returns false on end of input
func (w *wizard) readLine(prompt string) (string, bool) {
	fmt.Fprint(w.out, color.CyanString(prompt))
	if !w.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(w.in.Text()), true
}

// readBlock reads lines until a lone "." or end of input
func (w *wizard) readBlock(prompt string) (string, bool) {
	fmt.Fprintln(w.out, color.CyanString(prompt))
	var lines []string
	for w.in.Scan() {
		line := w.in.Text()
		if strings.TrimSpace(line) == "." {
			return strings.Join(lines, "\n"), true
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), len(lines) > 0
}

// apply runs a step and keeps the old session when it is rejected
func (w *wizard) apply(sess *session.Session, next *session.Session, err error) *session.Session {
	if err != nil {
		printStatus(w.out, "✗", err.Error(), color.FgRed)
		return sess
	}
	return next
}

// modeCommand handles the switches available on the first step
func (w *wizard) modeCommand(ctx context.Context, sess *session.Session, line string) (*session.Session, bool) {
	id := sess.ID.String()
	switch line {
	case ":review":
		next, err := w.svc.SetTaskMode(ctx, id, domain.TaskReview)
		return w.apply(sess, next, err), true
	case ":generate":
		next, err := w.svc.SetTaskMode(ctx, id, domain.TaskGenerate)
		return w.apply(sess, next, err), true
	case ":concise", ":detailed":
		next, err := w.svc.SetFeedbackMode(ctx, id, domain.FeedbackMode(strings.TrimPrefix(line, ":")))
		return w.apply(sess, next, err), true
	}
	return sess, false
}

func (w *wizard) describe(ctx context.Context, sess *session.Session) (*session.Session, bool) {
	id := sess.ID.String()

	if sess.TaskMode == domain.TaskGenerate {
		line, ok := w.readLine("Describe the task (:review, :concise, :detailed, :quit): ")
		if !ok || line == ":quit" {
			return sess, true
		}
		if next, handled := w.modeCommand(ctx, sess, line); handled {
			return next, false
		}
		next, err := w.svc.Describe(ctx, id, line)
		return w.apply(sess, next, err), false
	}

	task, ok := w.readLine("What should the code do? Enter to skip (:generate, :concise, :detailed, :quit): ")
	if !ok || task == ":quit" {
		return sess, true
	}
	if next, handled := w.modeCommand(ctx, sess, task); handled {
		return next, false
	}
	code, ok := w.readBlock("Paste your code and end with a line containing only '.':")
	if !ok {
		return sess, true
	}
	next, err := w.svc.SubmitExisting(ctx, id, task, code)
	return w.apply(sess, next, err), false
}

func (w *wizard) attempt(ctx context.Context, sess *session.Session) (*session.Session, bool) {
	id := sess.ID.String()
	fmt.Fprintf(w.out, "\n%s %s\n", color.New(color.Bold).Sprint("Task:"), sess.Task)

	choice, ok := w.readLine("[s]tarter  [w]rite code  [b]ack  [q]uit: ")
	if !ok {
		return sess, true
	}
	switch choice {
	case "s":
		fmt.Fprintln(w.out, "Generating a starter...")
		next, err := w.svc.RequestStarter(ctx, id)
		if err != nil {
			return w.apply(sess, nil, err), false
		}
		fmt.Fprintf(w.out, "\n%s\n", next.Starter)
		return next, false
	case "w":
		code, ok := w.readBlock("Write your solution and end with a line containing only '.':")
		if !ok {
			return sess, true
		}
		next, err := w.svc.SubmitAttempt(ctx, id, code)
		return w.apply(sess, next, err), false
	case "b":
		next, err := w.svc.Back(ctx, id)
		return w.apply(sess, next, err), false
	case "q":
		return sess, true
	}
	printStatus(w.out, "?", "Unknown choice "+choice, color.FgYellow)
	return sess, false
}

func (w *wizard) review(ctx context.Context, sess *session.Session) (*session.Session, bool) {
	id := sess.ID.String()

	if !sess.HasFeedback() && !w.feedbackFailed {
		fmt.Fprintf(w.out, "\nReviewing your code (%s)...\n", sess.FeedbackMode)
		next, err := w.svc.Feedback(ctx, id)
		if err != nil {
			w.feedbackFailed = true
			printStatus(w.out, "✗", err.Error(), color.FgRed)
			// The assessment may have been stored before the review failed
			if latest, gerr := w.svc.Get(ctx, id); gerr == nil {
				sess = latest
			}
		} else {
			sess = next
			fmt.Fprintln(w.out)
			if sess.Assessment != nil {
				printAssessment(w.out, *sess.Assessment)
				fmt.Fprintln(w.out)
			}
			if sess.Review != nil {
				fmt.Fprint(w.out, w.render(*sess.Review))
			}
		}
	}

	menu := "[m]ode  [a]nother task  [n]ew  [q]uit"
	if sess.TaskMode == domain.TaskGenerate {
		menu = "[m]ode  [r]evise  " + strings.TrimPrefix(menu, "[m]ode  ")
	} else {
		menu = "[m]ode  [e]dit  " + strings.TrimPrefix(menu, "[m]ode  ")
	}
	if w.feedbackFailed {
		menu = "[f] retry  " + menu
	}

	choice, ok := w.readLine(menu + ": ")
	if !ok {
		return sess, true
	}
	failed := w.feedbackFailed
	if choice != "q" {
		w.feedbackFailed = false
	}

	var next *session.Session
	var err error
	switch choice {
	case "f":
		return sess, false
	case "m":
		next, err = w.svc.SetFeedbackMode(ctx, id, sess.FeedbackMode.Toggle())
	case "r":
		next, err = w.svc.Revise(ctx, id)
	case "e":
		next, err = w.svc.Edit(ctx, id)
	case "a":
		next, err = w.svc.TryAnother(ctx, id)
	case "n":
		next, err = w.svc.Reset(ctx, id)
	case "q":
		return sess, true
	default:
		w.feedbackFailed = failed
		printStatus(w.out, "?", "Unknown choice "+choice, color.FgYellow)
		return sess, false
	}
	return w.apply(sess, next, err), false
}
