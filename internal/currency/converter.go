// Package currency freezes amount conversions at submission time against a
// persisted, append-only exchange rate cache.
package currency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

// ErrRateUnavailable is returned when no fresh cached rate exists and the
// external rate source fails. Submission aborts and is safe to retry.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// DefaultFreshness is the window within which a cached rate is reused
// instead of hitting the external source.
const DefaultFreshness = time.Hour

// Conversion is the immutable snapshot produced for one submission.
type Conversion struct {
	ConvertedAmount decimal.Decimal
	Rate            decimal.Decimal
	Timestamp       time.Time
}

// Converter produces conversion snapshots. Cache entries are append-only so
// historical conversions stay reproducible across restarts.
type Converter struct {
	cache     port.RateCacheRepository
	source    port.RateSource
	freshness time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewConverter creates a Converter with the given cache freshness window.
// A non-positive freshness falls back to DefaultFreshness.
func NewConverter(cache port.RateCacheRepository, source port.RateSource, freshness time.Duration, logger *zap.Logger) *Converter {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Converter{
		cache:     cache,
		source:    source,
		freshness: freshness,
		logger:    logger,
		now:       time.Now,
	}
}

// Convert produces the conversion snapshot for amount going from one
// currency to another. Identical currencies convert at rate 1. Otherwise a
// cached rate within the freshness window is reused; on a cache miss the
// external source is consulted and the fetched rate appended to the cache.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (*Conversion, error) {
	now := c.now()

	// Identity conversion passes the amount through untouched.
	if from == to {
		return &Conversion{
			ConvertedAmount: amount,
			Rate:            decimal.NewFromInt(1),
			Timestamp:       now,
		}, nil
	}

	cached, err := c.cache.Latest(ctx, from, to, now.Add(-c.freshness))
	if err != nil {
		return nil, fmt.Errorf("rate cache lookup: %w", err)
	}
	if cached != nil {
		c.logger.Debug("Reusing cached exchange rate",
			zap.String("from", from),
			zap.String("to", to),
			zap.String("rate", cached.Rate.String()),
			zap.Time("fetched_at", cached.FetchedAt))
		return &Conversion{
			ConvertedAmount: amount.Mul(cached.Rate).Round(2),
			Rate:            cached.Rate,
			Timestamp:       cached.FetchedAt,
		}, nil
	}

	rate, err := c.source.SpotRate(ctx, from, to)
	if err != nil {
		c.logger.Warn("Spot rate fetch failed",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrRateUnavailable, from, to, err)
	}

	entry := &entity.ExchangeRate{
		ID:           uuid.NewString(),
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		FetchedAt:    now,
	}
	if err := c.cache.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("rate cache append: %w", err)
	}

	c.logger.Info("Fetched and cached exchange rate",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("rate", rate.String()))

	return &Conversion{
		ConvertedAmount: amount.Mul(rate).Round(2),
		Rate:            rate,
		Timestamp:       now,
	}, nil
}
