// Package main implements the mentord CLI: a project-planning assistant
// served over HTTP or driven interactively from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mentord",
	Short: "Project-planning assistant daemon",
	Long: `mentord turns a project idea into requirements, an architecture,
UI mockups, an execution roadmap, and an exportable markdown bundle.

Run "mentord serve" for the HTTP API or "mentord chat" for an
interactive session in the terminal.`,
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}
