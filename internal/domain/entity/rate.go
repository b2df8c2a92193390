package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is one append-only entry in the persisted rate cache, keyed by
// (from, to, fetched-at). Entries are never overwritten so that a conversion
// frozen against an entry stays reproducible forever.
type ExchangeRate struct {
	ID           string          `json:"id"`
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	FetchedAt    time.Time       `json:"fetched_at"`
}
