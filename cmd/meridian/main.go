// Meridian Daemon - the background service behind the tower.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spiffler33/meridian/internal/api"
	"github.com/spiffler33/meridian/internal/capture"
	"github.com/spiffler33/meridian/internal/config"
	"github.com/spiffler33/meridian/internal/llm"
	"github.com/spiffler33/meridian/internal/logging"
	"github.com/spiffler33/meridian/internal/storage"
	"github.com/spiffler33/meridian/internal/surface"
	"github.com/spiffler33/meridian/internal/tower"
)

var (
	configPath string
	dataDir    string
	port       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "meridian",
		Short: "Meridian Daemon - the one thing that matters right now",
		RunE:  runDaemon,
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	log := logging.WithField("component", "daemon")

	server, db, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		log.Info("Shutting down...")
		server.Stop(context.Background())
	}()

	// Start server (blocks)
	log.Info("Meridian listening on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	return server.Start()
}

// buildServer opens storage and wires capture, the lifecycle service and the
// API server from a loaded config
func buildServer(cfg *config.Config) (*api.Server, *storage.DB, error) {
	log := logging.WithField("component", "daemon")

	db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	llmClient := llm.New(llm.Config{
		APIKey: cfg.Claude.APIKey,
		Model:  cfg.Claude.Model,
	})
	if llmClient.IsConfigured() {
		log.Info("Claude API configured, structured capture enabled")
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, capture falls back to raw text")
	}

	items := storage.NewItemStore(db)
	svc := tower.New(items, surface.Config{QueueSize: cfg.Surface.QueueSize}, nil)

	server := api.New(api.Config{
		Port:    cfg.Server.Port,
		Service: svc,
		Parser:  capture.NewParser(llmClient),
		Items:   items,
	})
	return server, db, nil
}
