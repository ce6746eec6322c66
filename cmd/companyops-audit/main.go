package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"companyops/internal/amqp"
	"companyops/internal/cli"
	applog "companyops/internal/log"
	"companyops/internal/storage"
	"companyops/internal/worker"
)

var (
	cfgPath string
	listN   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "companyops-audit",
		Short:        "Store dashboard audit events from the broker in SQLite",
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a config file (yaml, toml or json); environment variables win")
	rootCmd.Flags().IntVar(&listN, "list", 0, "Print the latest N stored events and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	if listN > 0 {
		return printLatest(cmd.Context(), repo, listN)
	}

	if !cfg.AuditEnabled() {
		return errors.New("AMQP_URL is required to consume audit events")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(applog.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		return err
	}
	defer client.Close()

	w := worker.NewAuditWorker(repo, logger.Slog(), 5*time.Minute)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Starting companyops-audit", "queue", cfg.AMQPQueue, "db", cfg.SQLiteDBPath)
	runErr := w.Run(ctx, client)
	stored, duplicates := w.Stats()
	logger.Info("Audit worker stopped", "stored", stored, "duplicates", duplicates)
	if runErr != nil {
		logger.Error("Message consumption failed", applog.FieldError, runErr)
		return runErr
	}
	<-done
	return nil
}

func printLatest(ctx context.Context, repo *storage.SQLiteRepository, n int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	events, err := repo.ListAuditEvents(ctx, n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTOR\tROLE\tRESOURCE\tACTION\tSUBJECT")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.OccurredAt.Local().Format(time.DateTime),
			ev.ActorEmail, ev.ActorRole, ev.Resource, ev.Action, ev.Subject)
	}
	return tw.Flush()
}
