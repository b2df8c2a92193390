package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamiehall/expenseflow/internal/domain/entity"
)

type mockRateCache struct {
	entries []*entity.ExchangeRate
}

func (m *mockRateCache) Append(ctx context.Context, rate *entity.ExchangeRate) error {
	m.entries = append(m.entries, rate)
	return nil
}

func (m *mockRateCache) Latest(ctx context.Context, from, to string, notBefore time.Time) (*entity.ExchangeRate, error) {
	var latest *entity.ExchangeRate
	for _, e := range m.entries {
		if e.FromCurrency != from || e.ToCurrency != to || e.FetchedAt.Before(notBefore) {
			continue
		}
		if latest == nil || e.FetchedAt.After(latest.FetchedAt) {
			latest = e
		}
	}
	return latest, nil
}

type mockRateSource struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (m *mockRateSource) SpotRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	m.calls++
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.rate, nil
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func newTestConverter(cache *mockRateCache, source *mockRateSource) *Converter {
	return NewConverter(cache, source, time.Hour, zap.NewNop())
}

func TestConvertIdentity(t *testing.T) {
	source := &mockRateSource{}
	converter := newTestConverter(&mockRateCache{}, source)

	conv, err := converter.Convert(context.Background(), "USD", "USD", dec("42.505"))
	require.NoError(t, err)
	assert.True(t, conv.Rate.Equal(decimal.NewFromInt(1)))
	// Identity is a pure pass-through, not a rounding step.
	assert.Equal(t, "42.505", conv.ConvertedAmount.String())
	assert.Zero(t, source.calls, "identity conversion must not hit the source")
}

func TestConvertCacheHit(t *testing.T) {
	now := time.Now()
	cache := &mockRateCache{entries: []*entity.ExchangeRate{{
		ID:           "r1",
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Rate:         dec("1.10"),
		FetchedAt:    now.Add(-10 * time.Minute),
	}}}
	source := &mockRateSource{rate: dec("9.99")}
	converter := newTestConverter(cache, source)

	conv, err := converter.Convert(context.Background(), "EUR", "USD", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "110", conv.ConvertedAmount.String())
	assert.Equal(t, "1.1", conv.Rate.String())
	assert.Zero(t, source.calls, "fresh cache entry must be reused")
}

func TestConvertCacheMissFetchesAndAppends(t *testing.T) {
	cache := &mockRateCache{}
	source := &mockRateSource{rate: dec("1.2345")}
	converter := newTestConverter(cache, source)

	conv, err := converter.Convert(context.Background(), "GBP", "USD", dec("10"))
	require.NoError(t, err)
	assert.Equal(t, "12.35", conv.ConvertedAmount.String())
	assert.Equal(t, 1, source.calls)
	require.Len(t, cache.entries, 1)
	assert.Equal(t, "GBP", cache.entries[0].FromCurrency)
	assert.Equal(t, "USD", cache.entries[0].ToCurrency)
	assert.True(t, cache.entries[0].Rate.Equal(dec("1.2345")))
}

func TestConvertStaleEntryTriggersFetch(t *testing.T) {
	now := time.Now()
	cache := &mockRateCache{entries: []*entity.ExchangeRate{{
		ID:           "old",
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Rate:         dec("1.05"),
		FetchedAt:    now.Add(-2 * time.Hour),
	}}}
	source := &mockRateSource{rate: dec("1.20")}
	converter := newTestConverter(cache, source)

	conv, err := converter.Convert(context.Background(), "EUR", "USD", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "120", conv.ConvertedAmount.String())
	assert.Equal(t, 1, source.calls)
	// The stale entry survives; the cache only grows.
	assert.Len(t, cache.entries, 2)
}

func TestConvertRateUnavailable(t *testing.T) {
	source := &mockRateSource{err: errors.New("connection refused")}
	converter := newTestConverter(&mockRateCache{}, source)

	_, err := converter.Convert(context.Background(), "EUR", "USD", dec("100"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvertFrozenValueSurvivesLiveRateChange(t *testing.T) {
	now := time.Now()
	cache := &mockRateCache{entries: []*entity.ExchangeRate{{
		ID:           "r1",
		FromCurrency: "EUR",
		ToCurrency:   "USD",
		Rate:         dec("1.10"),
		FetchedAt:    now.Add(-5 * time.Minute),
	}}}
	source := &mockRateSource{rate: dec("1.50")}
	converter := newTestConverter(cache, source)

	first, err := converter.Convert(context.Background(), "EUR", "USD", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "110", first.ConvertedAmount.String())

	// The live rate moving does not change what a cached conversion produces.
	source.rate = dec("2.00")
	second, err := converter.Convert(context.Background(), "EUR", "USD", dec("100"))
	require.NoError(t, err)
	assert.Equal(t, "110", second.ConvertedAmount.String())
	assert.Zero(t, source.calls)
}
