package market

import (
	"context"

	"github.com/swfung/dualcannon/internal/contracts"
	"github.com/swfung/dualcannon/pkg/logger"
	"github.com/swfung/dualcannon/pkg/redis"
)

// QuoteSource answers live quote lookups. ok=false means no quote is
// available right now.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (float64, bool, error)
}

// Service is the MarketData implementation wired into the pipeline:
// bar history and calendar from the repository, live quotes from the
// provider with a short TTL cache in front.
type Service struct {
	repo   *Repository
	quotes QuoteSource
	cache  *redis.Cache
	log    *logger.Logger
}

// NewService creates the market data service. cache may be nil.
func NewService(repo *Repository, quotes QuoteSource, cache *redis.Cache, log *logger.Logger) *Service {
	return &Service{repo: repo, quotes: quotes, cache: cache, log: log}
}

func (s *Service) DailyBars(ctx context.Context, symbol, asOfDate string, count int) ([]contracts.Bar, error) {
	return s.repo.DailyBars(ctx, symbol, asOfDate, count)
}

func (s *Service) MinuteBars(ctx context.Context, symbol, date, untilTime string, count int) ([]contracts.Bar, error) {
	return s.repo.MinuteBars(ctx, symbol, date, untilTime, count)
}

func (s *Service) PrevTradingDates(ctx context.Context, date string, count int) ([]string, error) {
	return s.repo.PrevTradingDates(ctx, date, count)
}

// CurrentPrice returns the latest trade price, serving from the quote
// cache when fresh. Cache failures fall through to the provider.
func (s *Service) CurrentPrice(ctx context.Context, symbol string) (float64, bool, error) {
	if s.cache != nil {
		var cached float64
		if hit, err := s.cache.Get(ctx, redis.QuoteKey(symbol), &cached); err == nil && hit && cached > 0 {
			return cached, true, nil
		}
	}

	price, ok, err := s.quotes.Quote(ctx, symbol)
	if err != nil || !ok {
		return 0, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.QuoteKey(symbol), price, redis.TTLQuote); err != nil {
			s.log.WithError(err).Debug("Quote cache write failed")
		}
	}
	return price, true, nil
}
