package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/City-of-Helsinki/text-anonymizer/internal/server"
	"github.com/City-of-Helsinki/text-anonymizer/pkg/config"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the anonymization API over HTTP",
		Long: `Start the HTTP API: POST /api/anonymize, POST /api/anonymize/batch,
GET /api/profiles, GET /healthz and GET /metrics (Prometheus).

Profile word lists and patterns under the configuration root are watched
and picked up without a restart.

Example:
  anonymizer serve --listen :8000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", server.DefaultListenAddr, "HTTP listen address")
	cmd.Flags().Int64("max-body-bytes", server.DefaultMaxBodyBytes, "Request body size limit")
	cmd.Flags().Bool("watch", true, "Reload configuration on file changes")

	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen, _ := cmd.Flags().GetString("listen")
	maxBody, _ := cmd.Flags().GetInt64("max-body-bytes")
	watch, _ := cmd.Flags().GetBool("watch")

	srv := server.New(server.Config{ListenAddr: listen, MaxBodyBytes: maxBody},
		app.anonymizer, app.builder, app.provider, app.settings,
		app.logger.With("component", "server"))

	if watch {
		watcher, err := config.NewWatcher(app.root, app.provider.Cache(),
			app.logger.With("component", "watcher"),
			config.WithOnChange(func() {
				srv.Metrics().RecordConfigReload("success")
				app.logger.Info("Configuration changed, registries invalidated")
			}))
		if err != nil {
			app.logger.Warn("Configuration watching unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	app.logger.Info("Starting anonymizer API",
		"listen", listen,
		"config_root", app.root,
		"languages", app.settings.Languages,
	)

	return srv.Start(ctx)
}
