package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/synclock"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync lock state, pending changes, and last sync time",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotPath, err := clientconfig.SnapshotPath()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		lockPath, err := clientconfig.LockPath()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		store := clientstate.NewStore(snapshotPath)
		snap, err := store.Load()
		if err != nil {
			output.Error("load snapshot: %v", err)
			return err
		}

		lock := synclock.New(lockPath)
		held, pid, err := lock.Status()
		if err != nil {
			output.Error("check lock: %v", err)
			return err
		}

		pendingUpserts := len(snap.Dirty.Upserted)
		pendingDeletes := len(snap.Dirty.Deleted)

		if statusJSON {
			return output.JSON(map[string]interface{}{
				"authenticated":  clientconfig.IsAuthenticated(),
				"serverUrl":      clientconfig.ServerURL(),
				"lastSyncedAt":   snap.LastSyncedAt,
				"todoCount":      len(snap.Todos),
				"mappingCount":   len(snap.ServerIDToLocalID),
				"pendingUpserts": pendingUpserts,
				"pendingDeletes": pendingDeletes,
				"lockHeld":       held,
				"lockPID":        pid,
			})
		}

		fmt.Printf("Server:      %s\n", clientconfig.ServerURL())
		fmt.Printf("Authed:      %v\n", clientconfig.IsAuthenticated())
		if snap.LastSyncedAt.IsZero() {
			fmt.Printf("Last sync:   never\n")
		} else {
			fmt.Printf("Last sync:   %s\n", output.FormatTimeAgo(snap.LastSyncedAt))
		}
		fmt.Printf("Todos:       %d (%d mapped)\n", len(snap.Todos), len(snap.ServerIDToLocalID))
		fmt.Printf("Pending:     %d upsert(s), %d delete(s)\n", pendingUpserts, pendingDeletes)
		if held {
			fmt.Printf("Lock:        held by pid %d\n", pid)
		} else {
			fmt.Printf("Lock:        free\n")
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}
