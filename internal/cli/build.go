package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/coursebot/internal/config"
	"github.com/cloo-solutions/coursebot/internal/jobs"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/spf13/cobra"
)

// BuildCmd returns the build command
func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the course catalog into the store",
		Long: `Read the most recent catalog file in the data directory, flatten every course
into a document, embed the documents in batches and replace the embedding store.

With --watch the command keeps running and rebuilds whenever a newer catalog appears.`,
		RunE: runBuild,
	}

	cmd.Flags().StringP("catalog", "c", "", "Catalog file to build from (default: newest match in the data directory)")
	cmd.Flags().Bool("watch", false, "Keep running and rebuild when the catalog changes")
	cmd.Flags().Duration("interval", time.Minute, "Poll interval for --watch")
	addMigrateFlag(cmd)

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	defer initTelemetry(cfg)()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrateIfRequested(cmd, cfg); err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := newOpenAIClient(cfg)
	if err != nil {
		return err
	}

	refresher := service.NewRefreshService(
		service.NewEmbeddingService(client, client.Dimensions()),
		store,
		service.RefreshConfig{
			DataDir:        cfg.DataDir,
			CatalogPattern: cfg.CatalogPattern,
			BatchSize:      cfg.BatchSize,
		},
	)

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		interval, _ := cmd.Flags().GetDuration("interval")
		return watchCatalog(ctx, refresher, interval)
	}

	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		if path, err = refresher.LatestCatalog(); err != nil {
			return err
		}
	}

	result, err := refresher.RunFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %d documents from %d courses (%s)\n",
		result.Documents, result.Courses, result.CatalogPath)
	if result.Report.FailedBatch > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d of %d batches failed; %d documents have zero vectors\n",
			result.Report.FailedBatch, result.Report.Batches, result.Report.Placeholders)
	}
	return nil
}

func watchCatalog(ctx context.Context, refresher *service.RefreshService, interval time.Duration) error {
	worker := jobs.NewWorker(jobs.NewRefreshWorker(refresher), interval).RunOnStart()
	go worker.Start(ctx)

	<-ctx.Done()
	log.Println("build: shutting down...")
	worker.Stop()
	return nil
}
