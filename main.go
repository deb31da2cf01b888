package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rightmove-ingest/api"
	"rightmove-ingest/config"
	"rightmove-ingest/models"
	"rightmove-ingest/scraper"
	"rightmove-ingest/scraper/rightmove"
	"rightmove-ingest/services"
	"rightmove-ingest/storage"
	"rightmove-ingest/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	root := &cobra.Command{
		Use:           "rightmove-ingest",
		Short:         "Ingest Rightmove listing pages into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(ingestCommand(cfg, logger), serveCommand(cfg, logger))

	if err := root.ExecuteContext(context.Background()); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func ingestCommand(cfg *config.Config, logger *utils.Logger) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "ingest [text...]",
		Short: "Ingest every listing URL found in the arguments (or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(b)
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			outcomes, err := buildIngester(cfg, store, logger).IngestText(ctx, text)
			if err != nil {
				return err
			}

			services.PrintSummary(cmd.OutOrStdout(), services.Summarize(outcomes), outcomes)

			if reportPath != "" {
				w, err := storage.NewCSVWriter(reportPath)
				if err != nil {
					return err
				}
				if err := writeReport(w, outcomes); err != nil {
					return err
				}
				logger.Info("Outcome report saved to %s", reportPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reportPath, "report", cfg.ReportCSVPath, "write a CSV outcome report to this path")
	return cmd
}

func writeReport(w storage.OutcomeWriter, outcomes []models.Outcome) error {
	if err := w.WriteOutcomes(outcomes); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func serveCommand(cfg *config.Config, logger *utils.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the submission and listing endpoints over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			handler := api.NewHandler(buildIngester(cfg, store, logger), store, cfg.RecentLimit, logger)
			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("[api] Listening on %s", cfg.HTTPAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				logger.Info("[api] Shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.PostgresStore, error) {
	store, err := storage.OpenPostgresStore(ctx, cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: cfg.DBConnectAttempts,
		BaseDelay:   time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		return nil, err
	}
	return store, nil
}

func newFetcher(cfg *config.Config) scraper.Fetcher {
	if cfg.FetchEngine == "browser" {
		return scraper.NewBrowserFetcher(cfg.FetchTimeout(), cfg.UserAgent, cfg.ChromeBin)
	}
	return scraper.NewHTTPFetcher(cfg.FetchTimeout(), cfg.UserAgent)
}

func buildIngester(cfg *config.Config, store storage.ListingStore, logger *utils.Logger) *services.Ingester {
	return services.NewIngester(
		services.IngesterConfig{
			Concurrency:  cfg.MaxConcurrency,
			RateLimitMs:  cfg.RateLimitMs,
			TargetDomain: cfg.TargetDomain,
			SkipKnown:    cfg.SkipKnown,
		},
		store,
		newFetcher(cfg),
		rightmove.NewExtractor(logger),
		services.NewURLCollector(cfg.MaxURLs, logger),
		logger,
	)
}
