package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "loupe",
	Short: "Loupe — LLM proxy analytics API",
	Long:  "Loupe is a read-only analytics API over LiteLLM proxy spend logs, reporting per-agent session activity, message counts and token usage from PostgreSQL.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/loupe.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
