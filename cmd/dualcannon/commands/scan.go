package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the daily screen offline",
	Long: `Runs the end-of-day candidate screen against stored daily bars
and prints the survivors with the per-filter drop counts.

With --rank the opening volume ratios for the following session are
computed from stored minute bars and the frozen watchlist is printed
as well. Nothing is persisted; this command is for inspection.

Example:
  go run ./cmd/dualcannon scan
  go run ./cmd/dualcannon scan --date 20260828
  go run ./cmd/dualcannon scan --date 20260828 --rank --trade-date 20260831
  go run ./cmd/dualcannon scan --symbols 600000.SH,000001.SZ`,
	RunE: runScan,
}

var (
	scanDate      string
	scanTradeDate string
	scanSymbols   string
	scanRank      bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringVar(&scanDate, "date", "", "formula date YYYYMMDD (default: last completed session)")
	scanCmd.Flags().StringVar(&scanTradeDate, "trade-date", "", "trade date for --rank (default: today)")
	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma separated symbols (default: full universe)")
	scanCmd.Flags().BoolVar(&scanRank, "rank", false, "also rank by opening volume ratio")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== dualcannon Daily Screen ===")

	p, err := buildPipeline(false)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := context.Background()
	today := time.Now().Format("20060102")

	// 1. Resolve the formula date
	formulaDate := scanDate
	if formulaDate == "" {
		prev, err := p.marketSvc.PrevTradingDates(ctx, today, 1)
		if err != nil || len(prev) == 0 {
			return fmt.Errorf("resolve formula date: %w", err)
		}
		formulaDate = prev[0]
	}

	// 2. Resolve the symbol universe
	var symbols []string
	if scanSymbols != "" {
		symbols = strings.Split(scanSymbols, ",")
	} else {
		symbols, err = p.universe.ListSymbols(ctx)
		if err != nil {
			return fmt.Errorf("load universe: %w", err)
		}
	}

	fmt.Printf("\nFormula date: %s\n", formulaDate)
	fmt.Printf("Universe:     %d symbols\n\n", len(symbols))

	// 3. Screen
	candidates, stats, err := p.screener.Screen(ctx, formulaDate, symbols)
	if err != nil {
		return fmt.Errorf("daily screen: %w", err)
	}

	fmt.Printf("Evaluated:        %d\n", stats.Evaluated)
	fmt.Printf("  short history:  %d\n", stats.ShortHistory)
	fmt.Printf("  J(T-1) too high: %d\n", stats.JPrevTooHigh)
	fmt.Printf("  J(T) too high:  %d\n", stats.JTooHigh)
	fmt.Printf("  return too low: %d\n", stats.ReturnTooLow)
	fmt.Printf("  volume too low: %d\n", stats.VolumeTooLow)
	fmt.Printf("  shadow too large: %d\n", stats.ShadowTooLarge)
	fmt.Printf("Passed:           %d\n\n", stats.Passed)

	for _, c := range candidates {
		fmt.Printf("  ✅ %s\n", c.Symbol)
	}

	if !scanRank {
		return nil
	}

	// 4. Rank by opening volume ratio
	tradeDate := scanTradeDate
	if tradeDate == "" {
		tradeDate = today
	}

	wl, err := p.ranker.Build(ctx, tradeDate, candidates)
	if err != nil {
		return fmt.Errorf("rank candidates: %w", err)
	}

	fmt.Printf("\nWatchlist for %s:\n", wl.TradeDate)
	if len(wl.Entries) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	for _, e := range wl.Entries {
		fmt.Printf("  #%d %s  ratio %.2f\n", e.Rank, e.Symbol, e.VolumeRatio)
	}
	return nil
}
