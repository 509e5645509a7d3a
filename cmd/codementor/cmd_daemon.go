package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/config"
)

const (
	daemonBinary = "codementord"
	pidFile      = "codementord.pid"
	logTailBytes = 4096
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

// daemonStatus mirrors the /v1/status response
type daemonStatus struct {
	Status          string   `json:"status"`
	Version         string   `json:"version"`
	LLMProviders    []string `json:"llm_providers"`
	DefaultProvider string   `json:"default_provider"`
	Storage         string   `json:"storage"`
	Events          bool     `json:"events"`
}

// daemonAddr builds the base URL from the daemon's bind address and port
func daemonAddr(cfg config.DaemonConfig) string {
	bind := cfg.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultLocalConfig().Daemon.Port
	}
	return "http://" + net.JoinHostPort(bind, strconv.Itoa(port))
}

func runStart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := daemonAddr(cfg.Daemon)

	if isRunning(addr) {
		printStatus(out, "✓", "Daemon is already running", color.FgGreen)
		return nil
	}

	homeDir, err := config.EnsureHomeDir()
	if err != nil {
		return fmt.Errorf("setup home directory: %w", err)
	}

	binary, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	daemon := exec.Command(binary)
	daemon.Dir = homeDir
	configureDaemonProcess(daemon)

	if err := daemon.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Fprint(out, "Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(addr) {
			fmt.Fprintln(out, " ✓")
			fmt.Fprintf(out, "Daemon running at %s\n", addr)
			return nil
		}
		fmt.Fprint(out, ".")
	}

	fmt.Fprintln(out, " ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'codementor logs')")
}

func runStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := daemonAddr(cfg.Daemon)

	if !isRunning(addr) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	pid, err := readPID()
	if err != nil {
		return err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Fprint(out, "Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(addr) {
			fmt.Fprintln(out, " ✓")
			return nil
		}
		fmt.Fprint(out, ".")
	}

	fmt.Fprintln(out, " ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := daemonAddr(cfg.Daemon)

	if !isRunning(addr) {
		fmt.Fprintln(cmd.OutOrStdout(), "Status: stopped")
		return nil
	}

	status, err := fetchStatus(http.DefaultClient, addr)
	if err != nil {
		return err
	}
	printDaemonStatus(cmd.OutOrStdout(), addr, status)
	return nil
}

func fetchStatus(client *http.Client, addr string) (*daemonStatus, error) {
	resp, err := client.Get(addr + "/v1/status")
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get status: unexpected status %d", resp.StatusCode)
	}

	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

func printDaemonStatus(w io.Writer, addr string, s *daemonStatus) {
	events := "off"
	if s.Events {
		events = "connected"
	}
	fmt.Fprintf(w, "Status:    %s\n", s.Status)
	fmt.Fprintf(w, "Version:   %s\n", s.Version)
	fmt.Fprintf(w, "Providers: %s (default: %s)\n", strings.Join(s.LLMProviders, ", "), s.DefaultProvider)
	fmt.Fprintf(w, "Storage:   %s\n", s.Storage)
	fmt.Fprintf(w, "Events:    %s\n", events)
	fmt.Fprintf(w, "Address:   %s\n", addr)
}

func runLogs(cmd *cobra.Command, args []string) error {
	homeDir, err := config.HomeDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(homeDir, "logs", daemonBinary+".log")
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return tailLines(file, cmd.OutOrStdout(), logTailBytes)
}

// tailLines prints the last n bytes of r, starting at a line boundary
func tailLines(r io.ReadSeeker, w io.Writer, n int64) error {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek log: %w", err)
	}
	offset := size - n
	if offset < 0 {
		offset = 0
	}
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log: %w", err)
	}

	reader := bufio.NewReader(r)
	if offset > 0 {
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

func readPID() (int, error) {
	homeDir, err := config.HomeDir()
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(filepath.Join(homeDir, pidFile))
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

// isRunning checks the daemon's health endpoint
func isRunning(addr string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(addr + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return path, nil
	}

	// Next to this binary
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), daemonBinary)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{
		"/usr/local/bin/" + daemonBinary,
		"./" + daemonBinary,
		"./cmd/codementord/" + daemonBinary,
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s binary not found (build with 'go build ./cmd/codementord')", daemonBinary)
}
