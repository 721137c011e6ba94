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
	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/external/eastmoney"
	"github.com/swfung/dualcannon/internal/scheduler"
	"github.com/swfung/dualcannon/internal/scheduler/jobs"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the live session pipeline",
	Long: `Starts the full intraday pipeline in one process.

This command:
- Runs the daily screen at rollover
- Freezes the volume-ratio watchlist at the build time
- Matches the formation on live minute bars
- Manages entries, take-profits and the end-of-day stop check
- Serves the status API

Orders only leave the process when TRADING_ENABLED is set and
--paper is not given.

Example:
  go run ./cmd/dualcannon run
  go run ./cmd/dualcannon run --paper`,
	RunE: runSession,
}

var runPaper bool

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().BoolVar(&runPaper, "paper", false, "force the simulated account even when live trading is enabled")
}

func runSession(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dualcannon Session Pipeline ===")

	p, err := buildPipeline(!runPaper)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Live minute bars flow straight into the bar store
	feed := eastmoney.NewFeed(p.cfg, p.log, func(symbol string, bar contracts.Bar) {
		if err := p.marketRepo.UpsertMinuteBar(ctx, symbol, bar); err != nil {
			p.log.WithError(err).WithField("symbol", symbol).Warn("Minute bar write failed")
		}
	})
	p.driver.OnWatchlist = func(wl *contracts.Watchlist) {
		feed.Subscribe(wl.Symbols())
	}
	if err := feed.Start(ctx); err != nil {
		p.log.WithError(err).Warn("Feed start failed, running on stored bars only")
	} else {
		defer feed.Stop()
	}

	// 2. Start the minute tick scheduler
	sched := scheduler.New(p.log)
	if err := sched.AddJob(jobs.NewSessionTick(p.driver)); err != nil {
		return fmt.Errorf("add session tick job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// 3. Start the status server
	status := handlers.NewStatusHandler(p.driver, p.orders, p.log)
	router := api.NewRouter(status, p.log)
	server := api.New(p.cfg, p.log, router)

	go func() {
		if err := server.Start(); err != nil {
			p.log.WithError(err).Fatal("Failed to start status server")
		}
	}()

	fmt.Printf("\n✅ Pipeline running, status on http://localhost:%s\n", p.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// 4. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	p.log.Info("Shutting down pipeline...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	p.log.Info("Pipeline stopped")
	return nil
}
