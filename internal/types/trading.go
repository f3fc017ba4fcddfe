package types

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Action is the kind of signal carried by an inbound webhook payload.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionAlert Action = "alert"
)

// TradingInstruction is the canonical form of one inbound signal. It is
// built once per request from the untrusted payload and not mutated after
// validation.
type TradingInstruction struct {
	Action    Action
	ProductID string // BASE-QUOTE, e.g. "BTC-USDC"

	// USDAmount is the buy sizing in quote currency. It is always positive
	// for buy instructions; sells are sized from the live balance at
	// execution time, never by the caller.
	USDAmount decimal.Decimal

	// Alert carries the informational fields of an alert-action payload.
	Alert *AlertDetails

	// RawFields preserves the decoded payload for logging.
	RawFields map[string]any
}

// BaseCurrency returns the base leg of the product, e.g. "BTC" for
// "BTC-USDC".
func (i *TradingInstruction) BaseCurrency() string {
	base, _, _ := strings.Cut(i.ProductID, "-")
	return base
}

// AlertDetails are the informational fields of an alert-action payload.
// They are formatted into a notification and never validated further.
type AlertDetails struct {
	Symbol    string
	Price     string
	Direction string // Above or Below
	Threshold string
}

// AccountBalance is a read-only snapshot of one asset balance, re-fetched
// for every sell so orders are never sized against stale data.
type AccountBalance struct {
	Currency  string
	Available decimal.Decimal
}

// OrderResult is the outcome of a single order placement call.
type OrderResult struct {
	StatusCode int
	OrderID    string
	Raw        json.RawMessage
}

// Accepted reports whether the exchange took the order: a success status
// together with an order identifier.
func (r OrderResult) Accepted() bool {
	return r.StatusCode < 300 && r.OrderID != ""
}
