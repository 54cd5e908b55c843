package cmd

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/clientconfig"
	"github.com/marcus/todosync/internal/clienttransport"
	"github.com/marcus/todosync/internal/output"
)

var errServerURLRequired = errors.New("server URL is required")
var errTokenRequired = errors.New("bearer token is required")

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save the sync server URL and bearer token for this device",
	Long: `Prompts for the sync server URL and a bearer token issued out of
band by the server operator, verifies the token against the server, and
saves both to auth.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL := clientconfig.ServerURL()
		token := ""

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Sync server URL").
					Value(&serverURL).
					Placeholder("http://localhost:8080").
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errServerURLRequired
						}
						return nil
					}),
				huh.NewInput().
					Title("Bearer token").
					Value(&token).
					Placeholder("issued by the sync server operator").
					EchoMode(huh.EchoModePassword).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errTokenRequired
						}
						return nil
					}),
			).Title("todosync login"),
		)
		if err := form.Run(); err != nil {
			output.Error("login: %v", err)
			return err
		}

		client := clienttransport.New(serverURL, token)
		if _, err := client.State(); err != nil {
			output.Error("verify token: %v", err)
			return err
		}

		deviceID, err := clientconfig.DeviceID()
		if err != nil {
			output.Error("device id: %v", err)
			return err
		}

		if err := clientconfig.SaveAuth(&clientconfig.AuthCredentials{
			Token:     token,
			DeviceID:  deviceID,
			ServerURL: serverURL,
		}); err != nil {
			output.Error("save credentials: %v", err)
			return err
		}

		cfg, err := clientconfig.LoadConfig()
		if err == nil {
			cfg.ServerURL = serverURL
			_ = clientconfig.SaveConfig(cfg)
		}

		output.Success("logged in to %s", serverURL)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove saved sync credentials from this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clientconfig.ClearAuth(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		output.Success("logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
