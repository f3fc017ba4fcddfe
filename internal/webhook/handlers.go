// Package webhook exposes the inbound HTTP surface: the signal endpoint
// and the liveness check.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/coinbase"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/executor"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/notify"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/signal"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/types"
	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/pkg/response"
)

// OrderExecutor runs one validated instruction to a terminal state.
type OrderExecutor interface {
	Execute(ctx context.Context, instr *types.TradingInstruction) (*executor.Outcome, error)
}

// PriceClient supplies the mid-price used to enrich alert notifications.
type PriceClient interface {
	BestBidAsk(ctx context.Context, productID string) (decimal.Decimal, bool, error)
}

// GinHandlers contains the HTTP handlers for the webhook endpoints.
type GinHandlers struct {
	normalizer *signal.Normalizer
	executor   OrderExecutor
	prices     PriceClient
	notifier   notify.Notifier
	alwaysAck  bool
	logger     zerolog.Logger
}

func NewGinHandlers(normalizer *signal.Normalizer, exec OrderExecutor, prices PriceClient, notifier notify.Notifier, alwaysAck bool) *GinHandlers {
	return &GinHandlers{
		normalizer: normalizer,
		executor:   exec,
		prices:     prices,
		notifier:   notifier,
		alwaysAck:  alwaysAck,
		logger:     log.With().Str("component", "webhook").Logger(),
	}
}

// HealthHandler answers the liveness probe.
func (h *GinHandlers) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

// WebhookHandler handles POST requests from the alerting tool. The body is
// either JSON or a plain-text BUY/SELL signal; validation failures answer
// 4xx with a hint, operational failures answer 5xx and are also pushed to
// the notifier. A panic anywhere in the pipeline is reported as a generic
// failure; one bad signal never takes the process down.
func (h *GinHandlers) WebhookHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error().Interface("panic", r).Msg("signal pipeline panicked")
				h.notifyOperational(c, fmt.Sprintf("Webhook pipeline panic: %v", r))
				response.Internal(c, h.alwaysAck, "Unhandled exception", fmt.Sprintf("%v", r))
			}
		}()

		body, err := c.GetRawData()
		if err != nil {
			response.Invalid(c, h.alwaysAck, "could not read request body", "")
			return
		}
		h.logger.Info().Str("body", string(body)).Msg("webhook received")

		instr, err := h.normalizer.Parse(body)
		if err != nil {
			h.answerValidationError(c, err)
			return
		}

		if instr.Action == types.ActionAlert {
			h.handleAlert(c, instr)
			return
		}

		outcome, err := h.executor.Execute(c.Request.Context(), instr)
		if err != nil {
			h.answerExecutionError(c, instr, err)
			return
		}

		if outcome.Result.Accepted() {
			response.OrderPlaced(c, string(instr.Action), outcome.Result.Raw)
			return
		}
		response.Rejected(c, h.alwaysAck, "Coinbase order failed", outcome.Result.Raw)
	}
}

// handleAlert formats an informational notification, with a best-effort
// mid-price for context, and answers 200. Alerts never place orders.
func (h *GinHandlers) handleAlert(c *gin.Context, instr *types.TradingInstruction) {
	a := instr.Alert
	text := fmt.Sprintf("Alert: %s crossed %s threshold %s (price %s)",
		a.Symbol, strings.ToLower(a.Direction), a.Threshold, a.Price)
	if mid, ok, err := h.prices.BestBidAsk(c.Request.Context(), instr.ProductID); err == nil && ok {
		text += fmt.Sprintf(", current mid %s", mid.String())
	}

	if err := h.notifier.Notify(c.Request.Context(), text); err != nil {
		h.logger.Warn().Err(err).Msg("alert notification delivery failed")
	}
	response.AlertReceived(c, string(types.ActionAlert))
}

// answerValidationError maps normalizer failures to 4xx responses with a
// human-readable hint.
func (h *GinHandlers) answerValidationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, signal.ErrBadPayload):
		response.Invalid(c, h.alwaysAck, err.Error(),
			`send JSON {"action","symbol","usd_amount"} or a plain-text BUY/SELL signal`)
	case errors.Is(err, signal.ErrInvalidAction):
		response.Invalid(c, h.alwaysAck, err.Error(), "action must be buy, sell or alert")
	case errors.Is(err, signal.ErrUnsupportedSymbol):
		response.Invalid(c, h.alwaysAck, err.Error(), "add the product to ALLOWED_PRODUCTS to trade it")
	case errors.Is(err, signal.ErrMissingAmount):
		response.Invalid(c, h.alwaysAck, err.Error(), "include a positive usd_amount in the payload")
	default:
		response.Invalid(c, h.alwaysAck, err.Error(), "")
	}
}

// answerExecutionError maps executor failures: an empty sell balance is the
// caller's problem (4xx); config, auth and exchange failures are
// operational (5xx) and worth a human's attention via the notifier.
func (h *GinHandlers) answerExecutionError(c *gin.Context, instr *types.TradingInstruction, err error) {
	var configErr *coinbase.ConfigError
	var authErr *coinbase.AuthError
	var apiErr *coinbase.APIError

	switch {
	case errors.Is(err, executor.ErrNoBalance):
		response.Invalid(c, h.alwaysAck, executor.ErrNoBalance.Error(),
			fmt.Sprintf("no %s available to sell", instr.BaseCurrency()))
	case errors.As(err, &configErr):
		h.notifyOperational(c, "Configuration error: "+configErr.Error())
		response.Internal(c, h.alwaysAck, "configuration error", configErr.Error())
	case errors.As(err, &authErr):
		h.notifyOperational(c, "Auth error: "+authErr.Error())
		response.Internal(c, h.alwaysAck, "authentication error", authErr.Error())
	case errors.As(err, &apiErr):
		h.notifyOperational(c, fmt.Sprintf("Exchange error on %s %s: %v", instr.Action, instr.ProductID, apiErr))
		response.Internal(c, h.alwaysAck, "exchange error", apiErr.Error())
	default:
		h.logger.Error().Err(err).Msg("signal execution failed")
		h.notifyOperational(c, "Execution error: "+err.Error())
		response.Internal(c, h.alwaysAck, "Unhandled exception", err.Error())
	}
}

func (h *GinHandlers) notifyOperational(c *gin.Context, text string) {
	if err := h.notifier.Notify(c.Request.Context(), text); err != nil {
		h.logger.Warn().Err(err).Msg("operational notification delivery failed")
	}
}
