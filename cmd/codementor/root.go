package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/app"
	"github.com/felixgeelhaar/codementor/internal/config"
)

var (
	flagProvider string
	flagLanguage string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "codementor",
	Short: "Adaptive code review for learners",
	Long: `CodeMentor assesses a learner's code, then writes a review pitched at
their level: corrective when the code does not work, celebratory when it does.

Run 'codementor learn' for the interactive wizard, or use assess, review and
starter for one-off calls. 'codementor start' runs the HTTP daemon in the
background and 'codementor mcp' serves the tools to MCP clients.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider to use (claude, openai, gemini, ollama)")
	rootCmd.PersistentFlags().StringVarP(&flagLanguage, "language", "l", "", "Programming language of the code (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(starterCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "codementor version %s\n", Version)
	},
}

// cliLogger keeps library logs off the terminal unless --verbose is set
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads config files, .env and the global flags
func loadConfig() (*config.LocalConfig, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *config.LocalConfig) {
	if flagProvider != "" {
		cfg.LLM.DefaultProvider = strings.ToLower(flagProvider)
	}
	if flagLanguage != "" {
		cfg.Mentor.Language = flagLanguage
	}
}

// buildApp wires the services in-process, without the daemon
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cliLogger()
	slog.SetDefault(logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if len(a.Registry.List()) == 0 {
		a.Close()
		return nil, fmt.Errorf("no LLM provider configured (run 'codementor init' or set ANTHROPIC_API_KEY)")
	}
	return a, nil
}

// readCode loads code from a file, or from in when path is empty or "-"
func readCode(path string, in io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	fmt.Fprintf(w, "%s %s\n", color.New(attr).Sprint(symbol), message)
}
