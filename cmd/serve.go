package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcus/todosync/internal/httpserver"
	"github.com/marcus/todosync/internal/serverstore"
)

var serveCreateUser string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Runs the HTTP sync server: /health, /state, /delta, /push, /reset.
Configuration is read from TODOSYNC_LISTEN_ADDR, TODOSYNC_DB_PATH, and
related TODOSYNC_* environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := httpserver.LoadConfig()
		configureServerLogging(cfg)

		store, err := serverstore.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open server store: %w", err)
		}
		defer store.Close()

		if serveCreateUser != "" {
			return createUser(store, serveCreateUser)
		}

		srv := httpserver.NewServer(cfg, store)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := srv.Start(); err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		slog.Info("server started", "addr", cfg.ListenAddr)

		<-ctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func configureServerLogging(cfg httpserver.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// createUser provisions a bearer token for name and prints it once;
// the server never stores or displays it again.
func createUser(store *serverstore.Store, name string) error {
	_, token, err := store.CreateUser(name)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Printf("created user %q\n", name)
	fmt.Printf("token: %s\n", token)
	fmt.Println("save this token now -- it will not be shown again")
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveCreateUser, "create-user", "", "provision a bearer token for the named user and exit")
	rootCmd.AddCommand(serveCmd)
}
