// Package pnl computes the daily profit-and-loss report from recent fills
// and drives it on a fixed UTC schedule.
package pnl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/coinbase"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/notify"
)

const defaultFillLimit = 250

// ExchangeClient is the slice of the exchange API the aggregator needs.
type ExchangeClient interface {
	Fills(ctx context.Context, productID string, limit int) ([]coinbase.Fill, error)
	TransactionSummary(ctx context.Context) (coinbase.TransactionSummary, error)
}

// Report is one trailing-24h PnL computation. Every run builds a fresh
// report from the exchange's fill history; nothing is persisted or diffed
// against a previous run.
type Report struct {
	WindowStart  time.Time
	WindowEnd    time.Time
	BuysUSD      decimal.Decimal
	SellsUSD     decimal.Decimal
	FeesUSD      decimal.Decimal
	NetPnL       decimal.Decimal
	TradeCount   int
	FeeTier      string
	LifetimeFees decimal.Decimal
}

// Format renders the report for the notification sink.
func (r *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily PnL %s — %s\n",
		r.WindowStart.Format("Jan 2 15:04"), r.WindowEnd.Format("Jan 2 15:04 MST"))
	fmt.Fprintf(&b, "Trades: %d\n", r.TradeCount)
	fmt.Fprintf(&b, "Bought: $%s\n", r.BuysUSD.StringFixed(2))
	fmt.Fprintf(&b, "Sold: $%s\n", r.SellsUSD.StringFixed(2))
	fmt.Fprintf(&b, "Fees: $%s\n", r.FeesUSD.StringFixed(2))
	fmt.Fprintf(&b, "Net PnL: $%s", r.NetPnL.StringFixed(2))
	if r.FeeTier != "" {
		fmt.Fprintf(&b, "\nFee tier: %s (lifetime fees $%s)", r.FeeTier, r.LifetimeFees.StringFixed(2))
	}
	return b.String()
}

// Aggregator computes reports over a trailing 24-hour fill window.
type Aggregator struct {
	exchange  ExchangeClient
	notifier  notify.Notifier
	productID string
	fillLimit int
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAggregator(exchange ExchangeClient, notifier notify.Notifier, productID string) *Aggregator {
	return &Aggregator{
		exchange:  exchange,
		notifier:  notifier,
		productID: productID,
		fillLimit: defaultFillLimit,
		logger:    log.With().Str("component", "pnl_aggregator").Logger(),
		now:       time.Now,
	}
}

// Run performs one aggregation pass and emits the formatted report. A
// fills failure aborts the run; a transaction summary failure only costs
// the fee-tier context.
func (a *Aggregator) Run(ctx context.Context) (*Report, error) {
	end := a.now().UTC()
	start := end.Add(-24 * time.Hour)

	fills, err := a.exchange.Fills(ctx, a.productID, a.fillLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch fills: %w", err)
	}

	report := &Report{WindowStart: start, WindowEnd: end}
	for _, fill := range fills {
		if !a.inWindow(fill.TradeTime, start, end) {
			continue
		}

		notional := parseDecimal(fill.Price).Mul(parseDecimal(fill.Size))
		switch strings.ToUpper(fill.Side) {
		case "BUY":
			report.BuysUSD = report.BuysUSD.Add(notional)
		case "SELL":
			report.SellsUSD = report.SellsUSD.Add(notional)
		default:
			a.logger.Warn().Str("side", fill.Side).Str("trade_id", fill.TradeID).Msg("fill with unknown side skipped")
			continue
		}
		report.FeesUSD = report.FeesUSD.Add(parseDecimal(fill.Commission))
		report.TradeCount++
	}
	report.NetPnL = report.SellsUSD.Sub(report.BuysUSD).Sub(report.FeesUSD)

	if summary, err := a.exchange.TransactionSummary(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("transaction summary unavailable, reporting without fee tier")
	} else {
		report.FeeTier = summary.FeeTier.PricingTier
		report.LifetimeFees = decimal.NewFromFloat(summary.TotalFees)
	}

	a.logger.Info().
		Int("trade_count", report.TradeCount).
		Str("net_pnl", report.NetPnL.String()).
		Msg("pnl report computed")

	if err := a.notifier.Notify(ctx, report.Format()); err != nil {
		a.logger.Warn().Err(err).Msg("pnl report delivery failed")
	}
	return report, nil
}

// inWindow keeps fills whose trade time falls inside [start, end]. Fills
// with an unparseable timestamp are conservatively retained.
func (a *Aggregator) inWindow(tradeTime string, start, end time.Time) bool {
	t, err := time.Parse(time.RFC3339Nano, tradeTime)
	if err != nil {
		return true
	}
	return !t.Before(start) && !t.After(end)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
