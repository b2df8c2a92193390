package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/application/port"
	"github.com/jamiehall/expenseflow/internal/domain/entity"
	"github.com/jamiehall/expenseflow/internal/infrastructure/persistence/sqlite"
)

// RateRepository implements port.RateCacheRepository. The table is strictly
// append-only: no UPDATE or DELETE exists here, so writers never conflict
// with each other or with readers, and frozen conversions stay reproducible
// across restarts.
type RateRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRateRepository creates a new exchange rate repository
func NewRateRepository(db *sqlite.DB, logger *zap.Logger) port.RateCacheRepository {
	return &RateRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new cache entry
func (r *RateRepository) Append(ctx context.Context, rate *entity.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (id, from_currency, to_currency, rate, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		rate.ID,
		rate.FromCurrency,
		rate.ToCurrency,
		rate.Rate.String(),
		rate.FetchedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append exchange rate",
			zap.String("from", rate.FromCurrency),
			zap.String("to", rate.ToCurrency),
			zap.Error(err))
		return fmt.Errorf("failed to append exchange rate: %w", err)
	}
	return nil
}

// Latest returns the newest entry for (from, to) fetched at or after
// notBefore, or nil when there is none
func (r *RateRepository) Latest(ctx context.Context, from, to string, notBefore time.Time) (*entity.ExchangeRate, error) {
	query := `
		SELECT id, from_currency, to_currency, rate, fetched_at
		FROM exchange_rates
		WHERE from_currency = ? AND to_currency = ? AND fetched_at >= ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`
	var (
		entry   entity.ExchangeRate
		rateStr string
	)
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, from, to, notBefore).Scan(
		&entry.ID,
		&entry.FromCurrency,
		&entry.ToCurrency,
		&rateStr,
		&entry.FetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rate: %w", err)
	}

	entry.Rate, err = decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", rateStr, err)
	}
	return &entry, nil
}
