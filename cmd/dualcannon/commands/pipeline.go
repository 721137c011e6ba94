package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/internal/execution"
	"github.com/swfung/dualcannon/internal/external/eastmoney"
	"github.com/swfung/dualcannon/internal/market"
	"github.com/swfung/dualcannon/internal/pattern"
	"github.com/swfung/dualcannon/internal/selection"
	"github.com/swfung/dualcannon/internal/session"
	"github.com/swfung/dualcannon/internal/strategyconfig"
	"github.com/swfung/dualcannon/pkg/config"
	"github.com/swfung/dualcannon/pkg/database"
	"github.com/swfung/dualcannon/pkg/httputil"
	"github.com/swfung/dualcannon/pkg/logger"
	"github.com/swfung/dualcannon/pkg/redis"
)

// paperCash is the simulated account balance used when live trading is
// disabled.
const paperCash = 1_000_000

// pipeline holds the wired components shared by the run, scan, api and
// scheduler commands.
type pipeline struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	redis      *redis.Client
	strat      *strategyconfig.Config
	marketRepo *market.Repository
	marketSvc  *market.Service
	universe   *eastmoney.Universe
	screener   *selection.Screener
	ranker     *selection.Ranker
	orders     *execution.Repository
	driver     *session.Driver
}

// buildPipeline wires the full component graph. live selects the real
// order gateway; everything else runs against the simulated account.
func buildPipeline(live bool) (*pipeline, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy profile
	strat := strategyconfig.Default()
	if path := cfg.Trading.StrategyYAML; path != "" {
		loaded, err := strategyconfig.Load(path)
		switch {
		case err == nil:
			strat = loaded
		case errors.Is(err, os.ErrNotExist):
			log.WithField("path", path).Warn("Strategy profile not found, using defaults")
		default:
			return nil, fmt.Errorf("load strategy profile: %w", err)
		}
	}
	if err := strat.Validate(); err != nil {
		return nil, fmt.Errorf("validate strategy profile: %w", err)
	}

	hash, err := strat.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash strategy profile: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"strategy": strat.Meta.StrategyID,
		"version":  strat.Meta.Version,
		"hash":     hash,
	}).Info("Strategy profile loaded")

	// 4. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to Redis (quote cache, optional)
	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, quote cache disabled")
		redisClient = nil
	}
	var cache *redis.Cache
	if redisClient != nil && redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "dualcannon")
	}

	// 6. Create HTTP client and market data clients
	httpClient := httputil.New(cfg, log)
	quotes := eastmoney.NewClient(cfg, httpClient, log)
	universe := eastmoney.NewUniverse(cfg, httpClient, log)

	// 7. Create market data service
	marketRepo := market.NewRepository(db)
	marketSvc := market.NewService(marketRepo, quotes, cache, log)

	// 8. Create selection and pattern components
	screener := selection.NewScreener(strat, marketSvc, log)
	checker := pattern.NewChecker(strat, marketSvc, log)
	ranker := selection.NewRanker(strat, marketSvc, checker, log)
	matcher := pattern.NewMatcher(strat, log)

	// 9. Create order gateway and lifecycle manager
	ordersRepo := execution.NewRepository(db)
	var gateway contracts.OrderGateway
	if live && cfg.Trading.Enabled {
		gateway = execution.NewHTTPGateway(httpClient, cfg.Trading.GatewayURL, log)
		log.WithField("gateway", cfg.Trading.GatewayURL).Info("Live trading enabled")
	} else {
		gateway = execution.NewMockGateway(paperCash)
		log.Info("Signal-only mode, orders filled against a simulated account")
	}
	manager := execution.NewManager(strat, cfg.Trading, gateway, marketSvc, ordersRepo, log)

	// 10. Create session driver
	driver := session.NewDriver(
		strat, marketSvc, universe,
		screener, ranker, matcher, manager,
		selection.NewRepository(db), log,
	)

	return &pipeline{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      redisClient,
		strat:      strat,
		marketRepo: marketRepo,
		marketSvc:  marketSvc,
		universe:   universe,
		screener:   screener,
		ranker:     ranker,
		orders:     ordersRepo,
		driver:     driver,
	}, nil
}

// Close releases the pipeline's connections.
func (p *pipeline) Close() {
	if p.redis != nil {
		p.redis.Close()
	}
	p.db.Close()
}
