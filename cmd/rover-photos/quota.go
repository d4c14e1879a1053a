package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// quotaCmd shows the state of the hourly request budget.
var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the hourly API budget for the current window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		setupLogging()

		stg, err := openStorage()
		if err != nil {
			return err
		}
		defer stg.Close()

		window, err := stg.limiter.Window(cmd.Context())
		if err != nil {
			return fmt.Errorf("read quota window: %w", err)
		}

		quotaPerHour := viper.GetInt("quota-per-hour")
		fmt.Printf("Window: %s - %s\n",
			window.Start.Format(time.RFC3339), window.End().Format(time.RFC3339))
		fmt.Printf("Used: %d of %d\n", window.Count, quotaPerHour)
		fmt.Printf("Remaining: %d\n", window.Remaining(quotaPerHour))
		fmt.Printf("Resets in: %s\n", window.TimeUntilReset(time.Now()).Round(time.Second))
		return nil
	},
}
