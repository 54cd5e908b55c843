package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/clienttransport"
	"github.com/marcus/todosync/internal/output"
)

var resetLocal bool
var resetServer bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear server state and/or local sync state, for re-bootstrap",
	Long: `With --server, wipes all todos and tombstones on the sync server
(DELETE /reset). With --local, clears this device's snapshot, id
registry, and conflict log so the next sync re-bootstraps from
scratch. Pass both to reset the whole pairing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetLocal && !resetServer {
			return fmt.Errorf("specify --local, --server, or both")
		}

		if resetServer {
			client := clienttransport.New(clientconfig.ServerURL(), clientconfig.Token())
			resp, err := client.Reset()
			if err != nil {
				output.Error("server reset: %v", err)
				return err
			}
			output.Success("server reset: %d todo(s) cleared", resp.Deleted.Todos)
		}

		if resetLocal {
			if err := resetLocalState(); err != nil {
				output.Error("local reset: %v", err)
				return err
			}
			output.Success("local sync state cleared")
		}

		return nil
	},
}

func resetLocalState() error {
	for _, pathFn := range []func() (string, error){
		clientconfig.SnapshotPath,
		clientconfig.ConflictLogPath,
	} {
		path, err := pathFn()
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func init() {
	resetCmd.Flags().BoolVar(&resetLocal, "local", false, "clear this device's snapshot, registry, and conflict log")
	resetCmd.Flags().BoolVar(&resetServer, "server", false, "wipe all server-side todos and tombstones")
	rootCmd.AddCommand(resetCmd)
}
