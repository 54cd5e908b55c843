// Package cmd implements the todosync CLI commands using cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var versionStr string

// SetVersion sets the version string and enables --version.
func SetVersion(v string) {
	versionStr = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "todosync",
	Short: "Bidirectional todo sync between a local host app and a sync server",
	Long: `todosync keeps a local task list in sync with a shared server:
push local changes, pull merged state, and apply the result back to
your host task application.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// initLogFile redirects slog to a file if TODOSYNC_LOG_FILE is set.
func initLogFile() *os.File {
	path := os.Getenv("TODOSYNC_LOG_FILE")
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return f
}

// Execute runs the root command.
func Execute() {
	if f := initLogFile(); f != nil {
		defer f.Close()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
