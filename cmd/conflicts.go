package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/output"
)

const conflictIDLen = 8

var conflictsJSON bool

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List logged sync conflicts",
	Long: `Display every conflict this device has logged: pushes the server
rejected as stale, and delete-vs-local-edit collisions found during
apply.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := clientconfig.ConflictLogPath()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		entries, err := conflictlog.New(path).ReadAll()
		if err != nil {
			output.Error("read conflict log: %v", err)
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No conflicts logged.")
			return nil
		}

		if conflictsJSON {
			return output.JSON(entries)
		}

		printConflictsTable(entries)
		return nil
	},
}

func printConflictsTable(entries []conflictlog.Entry) {
	fmt.Printf("%-20s  %-22s  %-10s  %-10s  %s\n", "LOGGED", "KIND", "SERVER ID", "LOCAL ID", "REASON")
	for _, e := range entries {
		serverID := truncateID(e.ServerID)
		localID := truncateID(e.LocalID)
		fmt.Printf("%-20s  %-22s  %-10s  %-10s  %s\n",
			e.LoggedAt.Format("2006-01-02 15:04:05"), e.Kind, serverID, localID, e.Reason)
	}
}

func truncateID(id string) string {
	if len(id) > conflictIDLen {
		return id[:conflictIDLen]
	}
	return id
}

func init() {
	conflictsCmd.Flags().BoolVar(&conflictsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(conflictsCmd)
}
