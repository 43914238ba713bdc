package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricebot-pl/internal/extract"
	"github.com/pricebot-pl/internal/listing"
)

// createScrapeCmd collects listing links for a region, extracts the
// address from every listing page and writes the batch CSV that the run
// command consumes.
func createScrapeCmd() *cobra.Command {
	var (
		output  string
		base    string
		pages   int
		perPage int
		delay   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "scrape [region]",
		Short: "Collect listings for a voivodeship into a batch CSV",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger := newLogger()
			defer logger.Sync()

			slug := extract.RegionSlug(args[0])
			logger.Info("scrape started",
				zap.String("region", args[0]),
				zap.String("slug", slug),
				zap.Int("max_pages", pages),
			)

			client := extract.NewClient(base, delay)
			records, err := extract.CollectListings(cmd.Context(), client, slug, pages, perPage)
			if err != nil {
				log.Fatalf("Failed to collect listings: %v", err)
			}

			if err := listing.WriteBatch(output, records); err != nil {
				log.Fatalf("Failed to write batch CSV: %v", err)
			}

			logger.Info("scrape finished",
				zap.Int("records", len(records)),
				zap.String("output", output),
			)
			fmt.Printf("Wrote %d records to %s\n", len(records), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "batch.csv", "output batch CSV path")
	cmd.Flags().StringVar(&base, "base", "https://www.otodom.pl", "portal base URL")
	cmd.Flags().IntVar(&pages, "pages", 10, "maximum result pages to walk")
	cmd.Flags().IntVar(&perPage, "per-page", 72, "offers per result page")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between requests")
	return cmd
}
