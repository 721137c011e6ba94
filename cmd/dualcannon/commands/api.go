package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swfung/dualcannon/internal/api"
	"github.com/swfung/dualcannon/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the status API server",
	Long: `Starts the status API server without the session scheduler.

Useful next to a separate scheduler process or for browsing the order
audit log outside session hours. The in-process day state endpoints
report empty until a session runs in this process.

Endpoints:
  GET  /health
  GET  /api/v1/watchlist
  GET  /api/v1/positions
  GET  /api/v1/patterns
  GET  /api/v1/orders

Example:
  go run ./cmd/dualcannon api
  go run ./cmd/dualcannon api --port 8086`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "status server port (default from config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dualcannon Status API ===")

	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.Close()

	// Override port if flag is set
	if apiPort != "" {
		p.cfg.Port = apiPort
	}

	status := handlers.NewStatusHandler(p.driver, p.orders, p.log)
	router := api.NewRouter(status, p.log)
	server := api.New(p.cfg, p.log, router)

	go func() {
		if err := server.Start(); err != nil {
			p.log.WithError(err).Fatal("Failed to start status server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", p.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	p.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	p.log.Info("Server stopped")
	return nil
}
