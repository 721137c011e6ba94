package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/external/eastmoney"
	"github.com/swfung/dualcannon/internal/scheduler"
	"github.com/swfung/dualcannon/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the session scheduler without the status API",
	Long: `Runs the minute tick scheduler and the live bar feed headless.

Same pipeline as run, minus the HTTP status server. Pair it with a
separate api process when the two should restart independently.

Example:
  go run ./cmd/dualcannon scheduler
  go run ./cmd/dualcannon scheduler --paper`,
	RunE: runScheduler,
}

var schedulerPaper bool

func init() {
	rootCmd.AddCommand(schedulerCmd)

	// Flags
	schedulerCmd.Flags().BoolVar(&schedulerPaper, "paper", false, "force the simulated account even when live trading is enabled")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dualcannon Session Scheduler ===")

	p, err := buildPipeline(!schedulerPaper)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	sched := scheduler.New(p.log)
	if err := sched.AddJob(jobs.NewSessionTick(p.driver)); err != nil {
		return fmt.Errorf("add session tick job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	fmt.Println("\n✅ Scheduler running")
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	p.log.Info("Scheduler stopped")
	return nil
}
