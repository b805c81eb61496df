package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/snapcard/internal/handlers"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for generating cards",
		Long: `Starts the snapcard web interface on the specified port.

Screenshots can be uploaded or referenced by URL; each becomes a card
session whose rendered HTML is served at /cards/{id}.`,
		Example: `  # Start server on the configured port (default 8888)
  snapcard serve

  # Start server on custom port
  snapcard serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if port == "" {
				port = cfg.Server.Port
			}

			p, err := newPipeline(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			handler := handlers.New(p, cfg.Server.UploadsDir)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/cards", handler.HandleCards)
			mux.HandleFunc("/api/cards/", handler.HandleCardDetail)
			mux.HandleFunc("/cards/", handler.HandleCardPage)
			mux.HandleFunc("/", handler.HandleIndex)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Snapcard interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default server.port)")

	return cmd
}
