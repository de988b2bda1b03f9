package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reviewmonitor/internal/config"
	"reviewmonitor/internal/gateway"
	"reviewmonitor/internal/logger"
	"reviewmonitor/internal/scrape"
)

var scrapeTestPlaceID string

// scrapeTestCmd is a connectivity check for the scrape provider: fetch one
// place and dump what came back.
var scrapeTestCmd = &cobra.Command{
	Use:   "scrape-test",
	Short: "Fetch reviews for one place id and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Scrape.Validate(); err != nil {
			return err
		}
		if scrapeTestPlaceID == "" {
			return fmt.Errorf("--place-id is required")
		}

		logger.Init(cfg.Log.Level)

		gw := gateway.New("scrape", cfg.Scrape.Timeout, logger.Log, nil)
		client := scrape.New(gw, cfg.Scrape.Endpoint, cfg.Scrape.APIKey, cfg.Scrape.ReviewsLimit)

		res, err := client.FetchReviews(cmd.Context(), scrapeTestPlaceID)
		if err != nil {
			return fmt.Errorf("fetch reviews: %w", err)
		}

		fmt.Printf("polls=%d reviews=%d\n", res.Polls, len(res.Reviews))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Reviews)
	},
}

func init() {
	scrapeTestCmd.Flags().StringVar(&scrapeTestPlaceID, "place-id", "", "provider place id to query")
}
