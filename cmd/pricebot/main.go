package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricebot-pl/internal/config"
	"github.com/pricebot-pl/internal/dataset"
	"github.com/pricebot-pl/internal/listing"
	"github.com/pricebot-pl/internal/merge"
	"github.com/pricebot-pl/internal/normalize"
	"github.com/pricebot-pl/internal/pipeline"
	"github.com/pricebot-pl/internal/registry"
	"github.com/pricebot-pl/internal/web"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "pricebot",
		Short: "Listing address resolution and record reconciliation",
		Long:  `Normalizes scraped listing addresses, resolves them against the TERYT registry and the court-jurisdiction table, and merges the outcomes into the consolidated dataset.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createScrapeCmd())
	rootCmd.AddCommand(createNormalizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}

func openStore(ctx context.Context, cfg config.Config) (dataset.Store, error) {
	switch cfg.Dataset.Driver {
	case "postgres":
		return dataset.NewPGStore(ctx, cfg.Dataset.PostgresDSN)
	default:
		return dataset.NewCSVStore(cfg.Dataset.Path), nil
	}
}

// createRunCmd runs one reconciliation pass over a batch file or directory.
func createRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [batch]",
		Short: "Process a batch of scraped records",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			defer logger.Sync()
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			reg, err := registry.Load(cfg.Reference.UnitsPath, cfg.Reference.CourtsPath)
			if err != nil {
				log.Fatalf("Failed to load reference tables: %v", err)
			}
			logger.Info("reference tables loaded",
				zap.Int("units", reg.UnitCount()),
				zap.Int("courts", reg.CourtCount()),
			)

			store, err := openStore(ctx, cfg)
			if err != nil {
				log.Fatalf("Failed to open dataset store: %v", err)
			}

			ds, err := store.Load(ctx)
			if err != nil {
				log.Fatalf("Failed to load dataset: %v", err)
			}

			recs, err := listing.ReadBatch(args[0])
			if err != nil {
				log.Fatalf("Failed to read batch: %v", err)
			}

			rep, err := pipeline.Run(ctx, recs, reg, ds, pipeline.Options{
				Workers: cfg.Workers,
				Logger:  logger,
			})
			if err != nil {
				log.Fatalf("Run failed: %v", err)
			}

			if err := store.Save(ctx, ds); err != nil {
				log.Fatalf("Failed to save dataset: %v", err)
			}

			printReport(rep)
		},
	}
}

// createServeCmd starts the status API.
func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API",
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			defer logger.Sync()
			ctx := cmd.Context()

			cfg, err := config.Load(configPath)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			reg, err := registry.Load(cfg.Reference.UnitsPath, cfg.Reference.CourtsPath)
			if err != nil {
				log.Fatalf("Failed to load reference tables: %v", err)
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				log.Fatalf("Failed to open dataset store: %v", err)
			}
			ds, err := store.Load(ctx)
			if err != nil {
				log.Fatalf("Failed to load dataset: %v", err)
			}

			runner := &batchRunner{
				reg:     reg,
				ds:      ds,
				store:   store,
				workers: cfg.Workers,
				logger:  logger,
			}
			server := web.NewServer(cfg.HTTPAddr, ds, runner, logger)
			if err := server.Start(); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		},
	}
}

// createNormalizeCmd prints the canonical form of one address, for
// inspecting what the matcher will see.
func createNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [address]",
		Short: "Show the canonical form of a raw address",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, raw := range args {
				addr := normalize.Normalize(raw)
				fmt.Printf("input:    %s\n", raw)
				fmt.Printf("locality: %s\n", addr.Locality)
				fmt.Printf("street:   %s\n", addr.Street)
				fmt.Printf("number:   %s\n", addr.Number)
				fmt.Printf("key:      %s\n\n", addr.Key)
			}
		},
	}
}

// batchRunner wires the pipeline behind the web trigger endpoint.
type batchRunner struct {
	reg     *registry.Registry
	ds      *dataset.Dataset
	store   dataset.Store
	workers int
	logger  *zap.Logger
}

func (r *batchRunner) Run(ctx context.Context, batchPath string) (*merge.Report, error) {
	recs, err := listing.ReadBatch(batchPath)
	if err != nil {
		return nil, err
	}
	rep, err := pipeline.Run(ctx, recs, r.reg, r.ds, pipeline.Options{
		Workers: r.workers,
		Logger:  r.logger,
	})
	if err != nil {
		return rep, err
	}
	return rep, r.store.Save(ctx, r.ds)
}

func printReport(rep *merge.Report) {
	fmt.Printf("Run %s finished in %s\n", rep.RunID, rep.FinishedAt.Sub(rep.StartedAt))
	fmt.Printf("  inserted:   %d\n", rep.Inserted)
	fmt.Printf("  updated:    %d\n", rep.Updated)
	fmt.Printf("  unresolved: %d\n", rep.Unresolved)
	fmt.Printf("  conflicts:  %d\n", rep.ConflictCount())
	fmt.Printf("  skipped:    %d\n", rep.SkipCount())

	if len(rep.Conflicts) > 0 {
		fmt.Println("Conflicts pending review:")
		for _, c := range rep.Conflicts {
			out, _ := json.Marshal(c)
			fmt.Printf("  %s\n", out)
		}
	}
}
