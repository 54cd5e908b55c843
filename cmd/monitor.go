package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/tui/monitor"
)

var monitorRefresh time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of snapshot state and logged conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshotPath, err := clientconfig.SnapshotPath()
		if err != nil {
			return err
		}
		conflictLogPath, err := clientconfig.ConflictLogPath()
		if err != nil {
			return err
		}

		store := clientstate.NewStore(snapshotPath)
		log := conflictlog.New(conflictLogPath)

		model := monitor.NewModel(store, log, monitorRefresh)
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorRefresh, "refresh", 2*time.Second, "dashboard refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
