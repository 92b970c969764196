package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/ledger"
	"github.com/spigell/apply-pilot/internal/logger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent applications and ledger statistics",
	Run: func(cmd *cobra.Command, _ []string) {
		history(cmd)
	},
}

var historyUpdateCmd = &cobra.Command{
	Use:   "update <url> <status> [notes]",
	Short: "Update the status of a recorded application",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(_ *cobra.Command, args []string) {
		notes := ""
		if len(args) == 3 {
			notes = args[2]
		}
		updateHistory(args[0], args[1], notes)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyUpdateCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of recent applications to show")
}

func history(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	dataDir := ""
	if config != nil {
		dataDir = config.DataDir
	}

	store, err := ledger.Open(dataDir, logger)
	if err != nil {
		logger.Fatal("opening application ledger", zap.Error(err))
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	recent, err := store.Recent(ctx, limit)
	if err != nil {
		logger.Fatal("reading recent applications", zap.Error(err))
	}

	for _, app := range recent {
		fmt.Printf("%s | %-10s | %s | %s | %s\n",
			app.AppliedAt.Format("2006-01-02"), app.Status, app.Company, app.Role, app.URL)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Fatal("reading ledger statistics", zap.Error(err))
	}

	logger.Info("ledger statistics",
		zap.Int("total", stats.Total),
		zap.Int("today", stats.Today),
		zap.Any("by_status", stats.ByStatus),
		zap.Any("by_platform", stats.ByPlatform),
	)
}

func updateHistory(jobURL, status, notes string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	switch status {
	case ledger.StatusApplied, ledger.StatusSkipped, ledger.StatusFailed:
	default:
		logger.Fatal("unknown status", zap.String("status", status),
			zap.Strings("allowed", []string{ledger.StatusApplied, ledger.StatusSkipped, ledger.StatusFailed}))
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	dataDir := ""
	if config != nil {
		dataDir = config.DataDir
	}

	store, err := ledger.Open(dataDir, logger)
	if err != nil {
		logger.Fatal("opening application ledger", zap.Error(err))
	}
	defer store.Close()

	if err := store.UpdateStatus(ctx, jobURL, status, notes); err != nil {
		logger.Fatal("updating application status", zap.Error(err))
	}

	logger.Info("application status updated",
		zap.String("url", ledger.NormalizeURL(jobURL)), zap.String("status", status))
}
