// Package main is the entry point for the wingman CLI
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "wingman",
		Short: "Draft LLM replies for a one-to-one chat, with you in the loop",
		Long: `Wingman monitors a single one-to-one Telegram chat, keeps a bounded
conversational context, and asks a language-model backend for a suggested
reply whenever the other side writes. Each suggestion waits for your
decision: send it, edit it first, or ignore it. Fully automatic mode sends
without asking.`,
		Version: "0.1.0",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.wingman/config.yaml)")

	rootCmd.AddCommand(
		runCmd(),
		chatsCmd(),
		transcriptCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
