package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the local todosync configuration directory",
	Long:  `Creates ~/.config/todosync and a default config.json, ready for "todosync login".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := clientconfig.Dir()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		cfg, err := clientconfig.LoadConfig()
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}
		if cfg.ServerURL == "" {
			cfg.ServerURL = clientconfig.ServerURL()
		}
		if cfg.ProjectName == "" {
			cfg.ProjectName = clientconfig.ProjectName()
		}
		if err := clientconfig.SaveConfig(cfg); err != nil {
			output.Error("save config: %v", err)
			return err
		}

		fmt.Printf("Initialized %s\n", dir)
		output.Success("run 'todosync login' to authenticate against a sync server")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
