/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "opsdash",
	Short: "Realtime operations dashboard for the repair shop backend",
	Long:  "Opsdash keeps a persistent notification channel to the repair-shop backend and surfaces live updates, one-shot notices, and pending approvals in the terminal.",
}

// Execute runs the root command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
