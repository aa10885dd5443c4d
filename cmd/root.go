package cmd

import (
	"context"

	"github.com/michaelpento.lv/arbengine/utils"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "arbd",
	Short: "A CLI arbitrage engine for two-leg AMM opportunities",
	Long: `A CLI arbitrage engine that evaluates two-leg opportunities across
AMM venues and executes the profitable ones with slippage-bounded swaps.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.arbengine.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
