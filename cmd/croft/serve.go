package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/croftlabs/croft/pkg/config"
	"github.com/croftlabs/croft/pkg/core"
	"github.com/croftlabs/croft/pkg/log"
	"github.com/croftlabs/croft/pkg/metrics"
	"github.com/croftlabs/croft/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control plane",
	Long: `Start the croft control plane and block until interrupted.

Without --config the built-in defaults are used; print them with
'croft config print-default'. State persistence is enabled by setting
store.path, in which case the last snapshot is restored on startup and
a fresh one is written on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		metricsAddr, _ := cmd.Flags().GetString("listen-metrics")

		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if dataDir != "" {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			cfg.Store.Path = filepath.Join(dataDir, "croft.db")
		}
		if metricsAddr != "" {
			cfg.Metrics.ListenAddr = metricsAddr
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		metrics.SetVersion(Version)

		opts := []core.Option{}
		if cfg.Store.Path != "" {
			st, err := store.NewBoltStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			opts = append(opts, core.WithStore(st))
		}

		c, err := core.New(cfg, opts...)
		if err != nil {
			return err
		}
		if err := c.Start(); err != nil {
			return err
		}

		var metricsServer *http.Server
		errCh := make(chan error, 1)
		if cfg.Metrics.Enabled {
			metricsServer = newMetricsServer(cfg.Metrics.ListenAddr)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- fmt.Errorf("metrics server: %w", err)
				}
			}()
		}

		fmt.Println("Control plane is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(ctx)
		}
		if err := c.Stop(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		fmt.Println("Shutdown complete")
		return nil
	},
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", metrics.HealthHandler())
	mux.HandleFunc("/ready", metrics.ReadyHandler())
	mux.HandleFunc("/live", metrics.LivenessHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func init() {
	serveCmd.Flags().String("config", "", "Path to the YAML configuration file")
	serveCmd.Flags().String("data-dir", "", "Data directory for state persistence (overrides store.path)")
	serveCmd.Flags().String("listen-metrics", "", "Metrics listen address (overrides metrics.listenAddr)")
}
