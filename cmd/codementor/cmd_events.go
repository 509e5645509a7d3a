package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/codementor/internal/queue"
)

var (
	flagEventsJSON    bool
	flagEventsWorkers int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow wizard events from RabbitMQ",
	Long: `Consumes the events queue and prints each wizard event as it arrives.
Events are only published when events.enabled is set in config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolVar(&flagEventsJSON, "json", false, "Print raw event envelopes as JSON lines")
	eventsCmd.Flags().IntVar(&flagEventsWorkers, "workers", 1, "Number of concurrent consumers")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Events.Enabled {
		printStatus(cmd.ErrOrStderr(), "⚠", "events.enabled is false; nothing will be published", color.FgYellow)
	}

	conn, err := queue.NewConnection(cfg.Events.AMQPURL, cfg.Events.Queue)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(conn, eventPrinter(cmd.OutOrStdout(), flagEventsJSON), queue.ConsumerConfig{
		Workers: flagEventsWorkers,
	})
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)\n", conn.Queue())
	<-ctx.Done()
	consumer.Stop()
	return nil
}

// eventPrinter returns a handler that writes one line per envelope.
// Workers share w, so writes are serialized.
func eventPrinter(w io.Writer, raw bool) queue.EnvelopeHandler {
	var mu sync.Mutex
	return func(ctx context.Context, env *queue.Envelope) error {
		mu.Lock()
		defer mu.Unlock()

		if raw {
			return json.NewEncoder(w).Encode(env)
		}
		_, err := fmt.Fprintf(w, "%s  %-22s  %s  %s\n",
			env.OccurredAt.Local().Format("15:04:05"),
			color.CyanString(env.Type),
			env.SessionID,
			string(env.Payload),
		)
		return err
	}
}
