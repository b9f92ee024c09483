package workflow

import "github.com/shopspring/decimal"

// RateLookup resolves the expected per-kg price for a batch. The invoice
// amount check multiplies the confirmed quantity by this rate; keeping it a
// policy lets procurement swap in contract pricing without touching the
// engine.
type RateLookup func(batchNumber string) decimal.Decimal

var placeholderUnitRate = decimal.NewFromInt(10)

// PlaceholderRate is the flat per-kg rate used until contract pricing is
// sourced from the ERP. TODO: replace with a lookup against the procurement
// contract table once the ERP feed exposes it.
func PlaceholderRate(batchNumber string) decimal.Decimal {
	return placeholderUnitRate
}
