package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/codementor/internal/config"
)

// keyedProviders need an API key; ollama runs locally without one
var keyedProviders = []string{"claude", "openai", "gemini"}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up ~/.codementor for first-time use",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration (secrets hidden)",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var setKeyCmd = &cobra.Command{
	Use:       "set-key <provider>",
	Short:     "Store an API key in secrets.yaml",
	Args:      cobra.ExactArgs(1),
	ValidArgs: keyedProviders,
	RunE:      runSetKey,
}

func init() {
	configCmd.AddCommand(setKeyCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, color.New(color.Bold).Sprint("CodeMentor - First-Time Setup"))
	fmt.Fprintln(out)

	homeDir, err := config.EnsureHomeDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	printStatus(out, "✓", "Created "+homeDir, color.FgGreen)

	configPath := filepath.Join(homeDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		printStatus(out, "✓", "Created default configuration", color.FgGreen)
	} else {
		printStatus(out, "✓", "Configuration already exists", color.FgGreen)
	}

	// Environment keys stay out of secrets.yaml
	cfg, err := config.LoadLocalConfigFrom(homeDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "LLM providers: Claude (Anthropic), OpenAI, Gemini and Ollama (local)")

	secrets := existingKeys(cfg)
	for _, name := range keyedProviders {
		if secrets[name] != "" {
			printStatus(out, "✓", name+" API key already configured", color.FgGreen)
			continue
		}
		fmt.Fprintf(out, "Enter %s API key (or press Enter to skip): ", name)
		key, _ := reader.ReadString('\n')
		if key = strings.TrimSpace(key); key != "" {
			secrets[name] = key
		}
	}
	if len(secrets) > 0 {
		if err := config.SaveSecrets(secrets); err != nil {
			return fmt.Errorf("save secrets: %w", err)
		}
		printStatus(out, "✓", "Saved API keys to secrets.yaml", color.FgGreen)
	} else {
		printStatus(out, "⚠", "No API keys configured; only Ollama will be available", color.FgYellow)
	}

	if ollama := cfg.LLM.Providers["ollama"]; ollama != nil && ollama.Enabled {
		if err := checkOllama(ollama.URL); err != nil {
			printStatus(out, "⚠", "Ollama "+err.Error(), color.FgYellow)
		} else {
			printStatus(out, "✓", "Ollama reachable", color.FgGreen)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  codementor learn              # Interactive wizard")
	fmt.Fprintln(out, "  codementor review main.py     # One-off review")
	fmt.Fprintln(out, "  codementor start              # Run the HTTP daemon")
	fmt.Fprintln(out, "  codementor mcp                # Serve tools to MCP clients")
	return nil
}

// existingKeys collects keys already stored so SaveSecrets keeps them
func existingKeys(cfg *config.LocalConfig) map[string]string {
	keys := make(map[string]string)
	for name, p := range cfg.LLM.Providers {
		if p != nil && p.APIKey != "" {
			keys[name] = p.APIKey
		}
	}
	return keys
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	data, err := yaml.Marshal(redactedConfig(cfg))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out)
	fmt.Fprintln(out, color.New(color.Bold).Sprint("Providers:"))
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name := range cfg.LLM.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := cfg.LLM.Providers[name]
		switch {
		case !p.Enabled:
			printStatus(out, "-", name+": disabled", color.FgHiBlack)
		case p.APIKey != "" || name == "ollama":
			printStatus(out, "✓", fmt.Sprintf("%s: ready (model: %s)", name, p.Model), color.FgGreen)
		default:
			printStatus(out, "✗", fmt.Sprintf("%s: no API key (run 'codementor config set-key %s')", name, name), color.FgRed)
		}
	}

	homeDir, _ := config.HomeDir()
	fmt.Fprintf(out, "\nConfig path: %s\n", filepath.Join(homeDir, "config.yaml"))
	return nil
}

// redactedConfig copies cfg with credentials in connection strings removed.
// API keys are never marshaled.
func redactedConfig(cfg *config.LocalConfig) config.LocalConfig {
	c := *cfg
	c.Storage.PostgresURL = redactURL(c.Storage.PostgresURL)
	c.Events.AMQPURL = redactURL(c.Events.AMQPURL)
	return c
}

func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}

func runSetKey(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(args[0])
	if provider == "ollama" {
		fmt.Fprintln(cmd.OutOrStdout(), "Ollama doesn't require an API key.")
		return nil
	}
	valid := false
	for _, name := range keyedProviders {
		valid = valid || name == provider
	}
	if !valid {
		return fmt.Errorf("unknown provider: %s (valid: %s)", provider, strings.Join(keyedProviders, ", "))
	}

	homeDir, err := config.HomeDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfigFrom(homeDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enter %s API key: ", provider)
	key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read input: %w", err)
	}
	if key = strings.TrimSpace(key); key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	secrets := existingKeys(cfg)
	secrets[provider] = key
	if err := config.SaveSecrets(secrets); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	printStatus(cmd.OutOrStdout(), "✓", "API key saved for "+provider, color.FgGreen)
	fmt.Fprintln(cmd.OutOrStdout(), "Restart the daemon for changes to take effect.")
	return nil
}

func checkOllama(url string) error {
	if url == "" {
		url = "http://localhost:11434"
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
