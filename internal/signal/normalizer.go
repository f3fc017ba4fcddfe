// Package signal turns raw webhook bodies into canonical trading
// instructions. Payloads arrive either as JSON from the alerting tool's
// message template or as bare "BUY ..."/"SELL ..." text when the template
// was never configured.
package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/types"
)

var (
	ErrBadPayload        = errors.New("body is not valid JSON or a recognized plain-text signal")
	ErrInvalidAction     = errors.New("invalid or missing action")
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
	ErrMissingAmount     = errors.New("buy requires a positive usd_amount")
)

// quoteSuffixes are the quote currencies recognized when a symbol arrives
// without a separator, checked in this order.
var quoteSuffixes = []string{"USDC", "USDT", "USD"}

// Config controls normalization policy.
type Config struct {
	// DefaultProduct is used when a payload names no symbol.
	DefaultProduct string

	// AllowedProducts is the set of tradeable products. The default
	// product is always included.
	AllowedProducts []string

	// DefaultUSDAmount sizes a buy whose payload carries no amount, unless
	// RequireExplicitAmount is set.
	DefaultUSDAmount decimal.Decimal

	// RequireExplicitAmount rejects amount-less buys with ErrMissingAmount
	// instead of substituting the default.
	RequireExplicitAmount bool
}

// Normalizer validates untrusted payloads into TradingInstructions.
type Normalizer struct {
	cfg     Config
	allowed map[string]struct{}
}

func NewNormalizer(cfg Config) *Normalizer {
	allowed := make(map[string]struct{}, len(cfg.AllowedProducts)+1)
	if cfg.DefaultProduct != "" {
		allowed[NormalizeSymbol(cfg.DefaultProduct)] = struct{}{}
	}
	for _, p := range cfg.AllowedProducts {
		if p = strings.TrimSpace(p); p != "" {
			allowed[NormalizeSymbol(p)] = struct{}{}
		}
	}
	return &Normalizer{cfg: cfg, allowed: allowed}
}

// payload is the union of fields across trade and alert JSON bodies.
// usd_amount and the alert numbers are declared loosely because templates
// send them as either JSON numbers or quoted strings.
type payload struct {
	Action    string `json:"action"`
	Symbol    string `json:"symbol"`
	USDAmount any    `json:"usd_amount"`
	Price     any    `json:"price"`
	Direction string `json:"direction"`
	Threshold any    `json:"threshold"`
}

// Parse builds one validated instruction from raw request bytes. JSON is
// attempted first; on parse failure a BUY/SELL plain-text heuristic runs.
// Neither matching is ErrBadPayload.
func (n *Normalizer) Parse(body []byte) (*types.TradingInstruction, error) {
	var p payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return n.parseText(body)
	}
	return n.fromPayload(p, rawFields(body))
}

func (n *Normalizer) fromPayload(p payload, raw map[string]any) (*types.TradingInstruction, error) {
	action := types.Action(strings.ToLower(strings.TrimSpace(p.Action)))
	switch action {
	case types.ActionBuy, types.ActionSell:
	case types.ActionAlert:
		// Informational only: formatted into a notification, nothing
		// validated beyond the action itself.
		return &types.TradingInstruction{
			Action:    types.ActionAlert,
			ProductID: NormalizeSymbol(p.Symbol),
			Alert: &types.AlertDetails{
				Symbol:    p.Symbol,
				Price:     asString(p.Price),
				Direction: p.Direction,
				Threshold: asString(p.Threshold),
			},
			RawFields: raw,
		}, nil
	default:
		return nil, ErrInvalidAction
	}

	product := n.cfg.DefaultProduct
	if strings.TrimSpace(p.Symbol) != "" {
		product = NormalizeSymbol(p.Symbol)
	}
	if _, ok := n.allowed[product]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSymbol, product)
	}

	instr := &types.TradingInstruction{
		Action:    action,
		ProductID: product,
		RawFields: raw,
	}

	if action == types.ActionBuy {
		amount, err := n.buyAmount(p.USDAmount)
		if err != nil {
			return nil, err
		}
		instr.USDAmount = amount
	}
	return instr, nil
}

// buyAmount resolves the quote sizing for a buy. A missing or non-positive
// value falls back to the configured default, or fails when explicit
// amounts are required.
func (n *Normalizer) buyAmount(v any) (decimal.Decimal, error) {
	amount, ok := toDecimal(v)
	if ok && amount.IsPositive() {
		return amount, nil
	}
	if n.cfg.RequireExplicitAmount {
		return decimal.Zero, ErrMissingAmount
	}
	return n.cfg.DefaultUSDAmount, nil
}

// parseText handles bare-text bodies: a trimmed, upper-cased body starting
// with BUY or SELL, optionally followed by a symbol token. No symbol token
// means the configured default product.
func (n *Normalizer) parseText(body []byte) (*types.TradingInstruction, error) {
	text := strings.ToUpper(strings.TrimSpace(string(body)))

	var action types.Action
	switch {
	case strings.HasPrefix(text, "BUY"):
		action = types.ActionBuy
	case strings.HasPrefix(text, "SELL"):
		action = types.ActionSell
	default:
		return nil, ErrBadPayload
	}

	product := n.cfg.DefaultProduct
	for _, tok := range strings.Fields(text)[1:] {
		if looksLikeSymbol(tok) {
			product = NormalizeSymbol(tok)
			break
		}
	}
	if _, ok := n.allowed[product]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedSymbol, product)
	}

	instr := &types.TradingInstruction{
		Action:    action,
		ProductID: product,
		RawFields: map[string]any{"text": strings.TrimSpace(string(body))},
	}
	if action == types.ActionBuy {
		if n.cfg.RequireExplicitAmount {
			return nil, ErrMissingAmount
		}
		instr.USDAmount = n.cfg.DefaultUSDAmount
	}
	return instr, nil
}

// NormalizeSymbol canonicalizes a symbol to BASE-QUOTE form. Symbols that
// already carry a separator pass through; otherwise a recognized quote
// suffix is split off. Unknown forms pass through unchanged and are left
// to the product allow-list to reject. The function is idempotent.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.Contains(s, "-") {
		return s
	}
	for _, quote := range quoteSuffixes {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "-" + quote
		}
	}
	return s
}

func looksLikeSymbol(tok string) bool {
	if strings.Contains(tok, "-") {
		return true
	}
	for _, quote := range quoteSuffixes {
		if strings.HasSuffix(tok, quote) && len(tok) > len(quote) {
			return true
		}
	}
	return false
}

// rawFields keeps the decoded object for logging; non-object JSON yields
// nil, which is fine for its only consumer.
func rawFields(body []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	return m
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(val), true
	default:
		return decimal.Zero, false
	}
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
