package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "pricefeed",
	Short: "Minute-candle ingestion job for NSE equities",
	Long: `pricefeed pulls intraday OHLCV history from the Fyers broker API for a
configured symbol universe and archives the raw responses to object
storage, partitioned by symbol and trading day.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
