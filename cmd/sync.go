package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/applier"
	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/clientengine"
	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/clienttransport"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/hostapp"
	"github.com/marcus/todosync/internal/output"
	"github.com/marcus/todosync/internal/synclock"
)

var syncOnce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the sync cycle against the configured server",
	Long: `Runs one sync cycle: acquire the lock, detect local changes, push
them, pull the merged state, and apply it back to the host app. With
--once (the default), runs a single cycle and exits; with --once=false,
repeats on the configured sync interval until interrupted or until a
cycle fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clientconfig.IsAuthenticated() {
			output.Error("not logged in (run: todosync login)")
			return fmt.Errorf("not authenticated")
		}

		engine, err := buildEngine()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if syncOnce {
			return runOneCycle(engine)
		}

		interval := clientconfig.SyncInterval()
		for {
			if err := runOneCycle(engine); err != nil {
				return err
			}
			time.Sleep(interval)
		}
	},
}

func buildEngine() (*clientengine.Engine, error) {
	snapshotPath, err := clientconfig.SnapshotPath()
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	lockPath, err := clientconfig.LockPath()
	if err != nil {
		return nil, fmt.Errorf("resolve lock path: %w", err)
	}
	conflictLogPath, err := clientconfig.ConflictLogPath()
	if err != nil {
		return nil, fmt.Errorf("resolve conflict log path: %w", err)
	}
	hostAppPath, err := clientconfig.HostAppPath()
	if err != nil {
		return nil, fmt.Errorf("resolve host app path: %w", err)
	}

	store := clientstate.NewStore(snapshotPath)
	lock := synclock.New(lockPath)
	log := conflictlog.New(conflictLogPath)
	adapter := hostapp.NewFile(hostAppPath)
	projectName := clientconfig.ProjectName()
	transport := clienttransport.New(clientconfig.ServerURL(), clientconfig.Token())
	app := applier.New(adapter, log, projectName)

	return clientengine.New(lock, store, adapter, transport, app, log, projectName), nil
}

func runOneCycle(engine *clientengine.Engine) error {
	result, err := engine.Run()
	if err != nil {
		output.Error("sync: %v", err)
		return err
	}
	if result.Skipped {
		slog.Info("sync cycle skipped: lock held by another process")
		output.Warning("another sync is already running, skipping")
		return nil
	}
	if result.Bootstrapped {
		output.Info("bootstrapped from server state")
	}
	if len(result.Conflicts) > 0 {
		output.Warning("%d conflict(s) logged, see 'todosync conflicts'", len(result.Conflicts))
	} else {
		output.Success("sync complete")
	}
	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", true, "run a single sync cycle and exit")
	rootCmd.AddCommand(syncCmd)
}
