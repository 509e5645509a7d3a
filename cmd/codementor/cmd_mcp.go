package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/domain"
	mcpserver "github.com/felixgeelhaar/codementor/internal/mcp"
)

var flagMCPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve CodeMentor tools over MCP (stdio by default)",
	Long: `Starts an MCP server exposing codementor_assess, codementor_review and
codementor_starter. Editors such as Cursor or Claude Desktop launch it over
stdio; pass --http to listen on an address instead.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&flagMCPAddr, "http", "", "Serve over HTTP on this address instead of stdio (e.g. :7434)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		MentorService: a.Mentor,
		Language:      domain.NormalizeLanguage(a.Config.Mentor.Language),
		Version:       Version,
	})

	if flagMCPAddr != "" {
		fmt.Fprintf(os.Stderr, "MCP server listening on %s\n", flagMCPAddr)
		return srv.ServeHTTP(ctx, flagMCPAddr)
	}
	// stdout carries the protocol
	return srv.ServeStdio(ctx)
}
