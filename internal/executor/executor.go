// Package executor turns one validated trading instruction into at most
// one exchange order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/coinbase"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/notify"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/types"
)

// ErrNoBalance means a sell found nothing available for the instruction's
// base currency.
var ErrNoBalance = errors.New("no balance available")

// State tracks an instruction through the pipeline:
// Received → Validated → Sized → Submitted → Accepted|Rejected.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateValidated State = "VALIDATED"
	StateSized     State = "SIZED"
	StateSubmitted State = "SUBMITTED"
	StateAccepted  State = "ACCEPTED"
	StateRejected  State = "REJECTED"
)

// ExchangeClient is the slice of the exchange API the executor needs.
type ExchangeClient interface {
	Accounts(ctx context.Context) ([]types.AccountBalance, error)
	PlaceOrder(ctx context.Context, productID string, side types.Action, sizing coinbase.OrderSizing) (types.OrderResult, error)
	Order(ctx context.Context, orderID string) (coinbase.OrderDetail, error)
}

// Outcome is the terminal record of one execution attempt.
type Outcome struct {
	State       State
	Instruction *types.TradingInstruction
	Sizing      coinbase.OrderSizing
	Result      types.OrderResult
}

// Executor places orders and reports each terminal state to the notifier
// exactly once. It holds no cross-request state and is safe for concurrent
// use.
type Executor struct {
	exchange ExchangeClient
	notifier notify.Notifier
	logger   zerolog.Logger
}

func New(exchange ExchangeClient, notifier notify.Notifier) *Executor {
	return &Executor{
		exchange: exchange,
		notifier: notifier,
		logger:   log.With().Str("component", "order_executor").Logger(),
	}
}

// Execute runs one instruction to a terminal state. A returned Outcome
// means the order reached the exchange (accepted or rejected there); a
// returned error means the pipeline stopped earlier: ErrNoBalance for an
// empty sell, or a coinbase config/auth/transport failure.
func (e *Executor) Execute(ctx context.Context, instr *types.TradingInstruction) (*Outcome, error) {
	logger := e.logger.With().
		Str("action", string(instr.Action)).
		Str("product_id", instr.ProductID).
		Logger()

	// The normalizer already validated the instruction, so Received and
	// Validated collapse into the entry point.
	outcome := &Outcome{State: StateValidated, Instruction: instr}

	sizing, err := e.size(ctx, instr)
	if err != nil {
		if errors.Is(err, ErrNoBalance) {
			logger.Warn().Str("currency", instr.BaseCurrency()).Msg("nothing to sell")
			e.notify(ctx, fmt.Sprintf("SELL %s rejected: no %s balance available",
				instr.ProductID, instr.BaseCurrency()))
		}
		return nil, err
	}
	outcome.State = StateSized
	outcome.Sizing = sizing

	result, err := e.exchange.PlaceOrder(ctx, instr.ProductID, instr.Action, sizing)
	if err != nil {
		return nil, err
	}
	outcome.State = StateSubmitted
	outcome.Result = result

	if result.Accepted() {
		outcome.State = StateAccepted
		logger.Info().Str("order_id", result.OrderID).Msg("order accepted")
		e.notify(ctx, e.acceptedMessage(ctx, instr, sizing, result))
	} else {
		outcome.State = StateRejected
		logger.Warn().Int("status", result.StatusCode).Msg("order rejected by exchange")
		e.notify(ctx, fmt.Sprintf("%s %s rejected by exchange (status %d): %s",
			strings.ToUpper(string(instr.Action)), instr.ProductID,
			result.StatusCode, rejectionReason(result)))
	}
	return outcome, nil
}

// size resolves the single sizing field for the order. Buys are sized by
// the instruction's quote amount with no balance pre-check; the exchange
// enforces funds sufficiency. Sells are sized as the entire available base
// balance, fetched fresh for every request.
func (e *Executor) size(ctx context.Context, instr *types.TradingInstruction) (coinbase.OrderSizing, error) {
	if instr.Action == types.ActionBuy {
		return coinbase.OrderSizing{QuoteSize: instr.USDAmount.String()}, nil
	}

	balances, err := e.exchange.Accounts(ctx)
	if err != nil {
		return coinbase.OrderSizing{}, err
	}

	base := instr.BaseCurrency()
	for _, bal := range balances {
		if bal.Currency == base && bal.Available.IsPositive() {
			return coinbase.OrderSizing{BaseSize: bal.Available.String()}, nil
		}
	}
	return coinbase.OrderSizing{}, ErrNoBalance
}

// acceptedMessage formats the success notification, enriched best-effort
// with the historical order detail when the exchange has it already.
func (e *Executor) acceptedMessage(ctx context.Context, instr *types.TradingInstruction, sizing coinbase.OrderSizing, result types.OrderResult) string {
	var b strings.Builder
	if instr.Action == types.ActionBuy {
		fmt.Fprintf(&b, "BUY %s for %s USD: order %s placed",
			instr.ProductID, sizing.QuoteSize, result.OrderID)
	} else {
		fmt.Fprintf(&b, "SELL %s %s: order %s placed",
			sizing.BaseSize, instr.ProductID, result.OrderID)
	}

	if detail, err := e.exchange.Order(ctx, result.OrderID); err == nil && detail.Status != "" {
		fmt.Fprintf(&b, " (%s", detail.Status)
		if detail.FilledSize != "" {
			fmt.Fprintf(&b, ", filled %s", detail.FilledSize)
		}
		b.WriteString(")")
	}
	return b.String()
}

// notify delivers one terminal-state message. Failures are logged and
// swallowed so they can never fail the webhook response.
func (e *Executor) notify(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, text); err != nil {
		e.logger.Warn().Err(err).Msg("notification delivery failed")
	}
}

func rejectionReason(result types.OrderResult) string {
	reason := strings.TrimSpace(string(result.Raw))
	if reason == "" {
		return "no error detail returned"
	}
	if len(reason) > 256 {
		reason = reason[:256] + "..."
	}
	return reason
}
