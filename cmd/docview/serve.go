package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docview/internal/api"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/docsource"
	"github.com/dgallion1/docview/internal/viewer"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the documentation viewer",
	Long:  `Serves the viewer page, the two markdown documents and the session API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != "" {
			cfg.Port = servePort
		}
		log := newLogger(cfg)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// The browser app fetched its documents from its own origin; the
		// server does the same unless pointed elsewhere.
		baseURL := cfg.DocsBaseURL
		if baseURL == "" {
			baseURL = "http://127.0.0.1:" + cfg.Port
		}
		client := docsource.NewClient(baseURL, cfg.FetchTimeout).WithRetries(cfg.FetchRetries)
		loader := content.NewLoader(client, newConverter(cfg), contentPaths(cfg), log)

		store := viewer.NewStore(cfg.SessionTTL, nil, log)
		go store.Run(ctx, time.Minute)

		srv := api.NewServer(ctx, store, loader, log, *cfg)

		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			log.Info("shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)

			cancel()
			client.Close()
		}()

		log.Info("starting docview", "port", cfg.Port, "observer_mode", cfg.ObserverMode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
