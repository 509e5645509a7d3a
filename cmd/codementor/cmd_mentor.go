package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/domain"
	"github.com/felixgeelhaar/codementor/internal/mentor"
)

var (
	flagTask      string
	flagMode      string
	flagLevel     string
	flagJSON      bool
	flagCodeWorks bool
)

var assessCmd = &cobra.Command{
	Use:   "assess [file]",
	Short: "Assess the skill level shown by a piece of code",
	Long: `Classify code as beginner, intermediate or advanced and report whether
it solves the task. Reads the code from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssess,
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Write a mentoring review for a piece of code",
	Long: `Assess the code, then write a review in concise or detailed mode.
Pass --level to skip the assessment. Reads the code from stdin when no file
is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReview,
}

var starterCmd = &cobra.Command{
	Use:   "starter",
	Short: "Generate a starter skeleton for a task",
	Args:  cobra.NoArgs,
	RunE:  runStarter,
}

func init() {
	for _, cmd := range []*cobra.Command{assessCmd, reviewCmd, starterCmd} {
		cmd.Flags().StringVarP(&flagTask, "task", "t", "", "What the code is supposed to do")
	}
	for _, cmd := range []*cobra.Command{assessCmd, reviewCmd} {
		cmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of formatted text")
	}
	reviewCmd.Flags().StringVarP(&flagMode, "mode", "m", string(domain.DefaultFeedbackMode), "Feedback mode: concise or detailed")
	reviewCmd.Flags().StringVar(&flagLevel, "level", "", "Skip assessment and use this level")
	reviewCmd.Flags().BoolVar(&flagCodeWorks, "works", false, "With --level: the code already solves the task")
	_ = starterCmd.MarkFlagRequired("task")
}

func codeArg(cmd *cobra.Command, args []string) (string, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	return readCode(path, cmd.InOrStdin())
}

func runAssess(cmd *cobra.Command, args []string) error {
	code, err := codeArg(cmd, args)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Mentor.Assess(cmd.Context(), mentor.AssessRequest{Task: flagTask, Code: code})
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printAssessment(cmd.OutOrStdout(), result)
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	code, err := codeArg(cmd, args)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	level := domain.SkillLevel(flagLevel)
	codeWorks := flagCodeWorks
	var assessment *domain.Assessment
	if level == "" {
		result := a.Mentor.Assess(ctx, mentor.AssessRequest{Task: flagTask, Code: code})
		assessment = &result
		level, codeWorks = result.Level, result.CodeWorks
	}

	review, err := a.Mentor.GenerateReview(ctx, mentor.ReviewRequest{
		Task:      flagTask,
		Code:      code,
		Level:     level,
		Mode:      domain.FeedbackMode(flagMode),
		CodeWorks: codeWorks,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(out, map[string]any{
			"assessment": assessment,
			"level":      level,
			"mode":       flagMode,
			"review":     review,
		})
	}
	if assessment != nil {
		printAssessment(out, *assessment)
		fmt.Fprintln(out)
	}
	fmt.Fprint(out, renderMarkdown(review))
	return nil
}

func runStarter(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	starter, err := a.Mentor.GenerateStarter(cmd.Context(), mentor.StarterRequest{Task: flagTask})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), starter)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAssessment(w io.Writer, a domain.Assessment) {
	works := color.RedString("no")
	if a.CodeWorks {
		works = color.GreenString("yes")
	}
	fmt.Fprintf(w, "%s %s   %s %s\n",
		color.New(color.Bold).Sprint("Level:"), color.CyanString(string(a.Level)),
		color.New(color.Bold).Sprint("Works:"), works)
	if a.IsFallback() {
		printStatus(w, "⚠", "The assessment could not be read; showing defaults", color.FgYellow)
	}

	printList(w, "Issues", a.CodeIssues)
	printList(w, "Strengths", a.Strengths)
	printList(w, "Growth areas", a.GrowthAreas)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", color.New(color.Bold).Sprint(title+":"))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

// renderMarkdown formats a review for the terminal. Plain text is returned
// when rendering fails.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return ensureNewline(text)
	}
	out, err := r.Render(text)
	if err != nil {
		return ensureNewline(text)
	}
	return out
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
