package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/property-be/internal/config"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
	queuestorage "github.com/cuongbtq/property-be/internal/queue/storage"
	"github.com/cuongbtq/property-be/shared/logger"
	"github.com/cuongbtq/property-be/shared/postgresql"
)

const monitorTimeout = 30 * time.Second

// monitorOptions holds the flags of the monitor command
type monitorOptions struct {
	queue      string
	detailed   bool
	server     string
	configPath string
	agentID    string
	agentEmail string
}

// sourceFactory opens the data source for a monitor run; the returned func releases it
type sourceFactory func(opts *monitorOptions) (Source, func(), error)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "queue-monitor",
		Short:         "Inspect and operate the property job queues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMonitorCmd(openSource))
	root.AddCommand(newStartCmd())

	return root
}

func newMonitorCmd(open sourceFactory) *cobra.Command {
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}

	opts := &monitorOptions{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Monitor queue health and performance",
		Long: `Print per-queue status tables.

Without --server the queue tables are read straight from PostgreSQL using the
database section of --config. With --server the running api-service is asked
instead, authenticating with the agent headers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, release, err := open(opts)
			if err != nil {
				return err
			}
			defer release()

			ctx, cancel := context.WithTimeout(cmd.Context(), monitorTimeout)
			defer cancel()

			return runMonitor(ctx, cmd.OutOrStdout(), source, opts)
		},
	}

	cmd.Flags().StringVar(&opts.queue, "queue", "", "specific queue to monitor")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show detailed information")
	cmd.Flags().StringVar(&opts.server, "server", "", "api-service base URL (reads the database directly when empty)")
	cmd.Flags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to configuration file")
	cmd.Flags().StringVar(&opts.agentID, "agent-id", os.Getenv("MONITOR_AGENT_ID"), "agent id sent to the API in remote mode")
	cmd.Flags().StringVar(&opts.agentEmail, "agent-email", os.Getenv("MONITOR_AGENT_EMAIL"), "agent email sent to the API in remote mode")

	return cmd
}

// runMonitor prints the queue tables and, in detailed mode, per-queue details
// and the system overview
func runMonitor(ctx context.Context, w io.Writer, source Source, opts *monitorOptions) error {
	renderHeader(w, "📊 Queue Health Monitor")

	queueName := opts.queue
	if queueName == "" {
		queueName = "all"
	}

	stats, err := source.Stats(ctx, queueName, opts.detailed)
	if err != nil {
		return fmt.Errorf("failed to retrieve queue statistics: %w", err)
	}

	if opts.queue != "" {
		renderSection(w, fmt.Sprintf("🔍 Monitoring queue: %s", opts.queue))
	} else {
		renderSection(w, "🔍 Queues")
	}
	if err := renderQueueTable(w, stats); err != nil {
		return err
	}

	if !opts.detailed {
		return nil
	}

	for _, name := range sortedQueueNames(stats) {
		if err := renderQueueDetails(w, name, stats[name]); err != nil {
			return err
		}
	}

	if opts.queue != "" {
		return nil
	}

	health, err := source.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve queue health data: %w", err)
	}
	return renderOverview(w, health)
}

// openSource picks the API when --server is set and the database otherwise
func openSource(opts *monitorOptions) (Source, func(), error) {
	if opts.server != "" {
		if opts.agentID == "" || opts.agentEmail == "" {
			return nil, nil, fmt.Errorf("--agent-id and --agent-email are required with --server")
		}
		return newAPISource(opts.server, opts.agentID, opts.agentEmail), func() {}, nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// keep stdout for the tables
	log, err := logger.New(&logger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbClient, err := postgresql.NewClient(cfg.Database.PostgresConfig(), log.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := queuestorage.NewStorage(dbClient.GetDB())
	source := reporter.NewReporter(store, cfg.Queue.ReporterConfig(), nil)

	return source, func() { dbClient.Close() }, nil
}

func newStartCmd() *cobra.Command {
	var emailsOnly bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Show how to start queue workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			printStartInstructions(cmd.OutOrStdout(), emailsOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&emailsOnly, "emails-only", false, "only show the email queue worker")

	return cmd
}

func printStartInstructions(w io.Writer, emailsOnly bool) {
	renderHeader(w, "🚀 Property Management Backend Queue Workers")

	renderSection(w, "📧 To start email queue worker, run:")
	fmt.Fprintln(w, "   WORKER_QUEUES=emails worker-service -config configs/worker-service/config.yaml")

	if !emailsOnly {
		renderSection(w, "🔄 To start default queue worker, run:")
		fmt.Fprintln(w, "   WORKER_QUEUES=default worker-service -config configs/worker-service/config.yaml")

		renderSection(w, "🌐 To start all queues, run:")
		fmt.Fprintln(w, "   WORKER_QUEUES=emails,default,high,low worker-service")
	}

	renderSection(w, "📋 Other useful commands:")
	fmt.Fprintln(w, "   - Monitor queues: queue-monitor monitor --detailed")
	fmt.Fprintln(w, "   - View failed jobs: GET /api/v1/queue/failed")
	fmt.Fprintln(w, "   - Retry a failed job: POST /api/v1/queue/failed/{id}/retry")
	fmt.Fprintln(w, "   - Delete a failed job: DELETE /api/v1/queue/failed/{id}")

	renderSection(w, "💡 Tips:")
	fmt.Fprintln(w, "   - Use LOG_LEVEL=debug for detailed output")
	fmt.Fprintln(w, "   - Set queue.retry.max_attempts: 1 for development (no retries)")
	fmt.Fprintln(w, "   - Raise queue.retry.timeout for longer job processing")
	fmt.Fprintln(w, "   - Raise WORKER_CONCURRENCY to process more jobs in parallel")

	renderSection(w, "🛑 To stop workers, use Ctrl+C in the terminal")
}
