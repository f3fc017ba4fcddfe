package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/types"
)

const (
	accountsPath           = "/api/v3/brokerage/accounts"
	bestBidAskPath         = "/api/v3/brokerage/best_bid_ask"
	ordersPath             = "/api/v3/brokerage/orders"
	fillsPath              = "/api/v3/brokerage/orders/historical/fills"
	historicalOrderPath    = "/api/v3/brokerage/orders/historical/"
	transactionSummaryPath = "/api/v3/brokerage/transaction_summary"

	requestTimeout = 10 * time.Second
)

// OrderSizing selects how a market order is sized. Exactly one field must
// be set: quote currency amount for buys, base currency amount for sells.
type OrderSizing struct {
	QuoteSize string
	BaseSize  string
}

// Client wraps the handful of Advanced Trade endpoints this system uses.
// Every call mints a fresh signed token; the client keeps no session state
// and is safe for concurrent use.
type Client struct {
	signer     *Signer
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a client against baseURL using credentials resolved
// per call from the given provider.
func NewClient(creds CredentialProvider, baseURL string) *Client {
	return &Client{
		signer:     NewSigner(creds, baseURL),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     log.With().Str("component", "coinbase_client").Logger(),
		now:        time.Now,
	}
}

// Accounts returns the caller's asset balances. Entries whose available
// value does not parse are reported with a zero balance rather than
// dropped, so a sell against them still fails loudly downstream.
func (c *Client) Accounts(ctx context.Context) ([]types.AccountBalance, error) {
	body, err := c.get(ctx, accountsPath, nil)
	if err != nil {
		return nil, err
	}

	var parsed accountsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode accounts response: %w", err)
	}

	balances := make([]types.AccountBalance, 0, len(parsed.Accounts))
	for _, acct := range parsed.Accounts {
		available, err := decimal.NewFromString(acct.AvailableBalance.Value)
		if err != nil {
			c.logger.Warn().
				Str("currency", acct.Currency).
				Str("value", acct.AvailableBalance.Value).
				Msg("unparseable account balance")
			available = decimal.Zero
		}
		balances = append(balances, types.AccountBalance{
			Currency:  acct.Currency,
			Available: available,
		})
	}
	return balances, nil
}

// BestBidAsk returns the mid-price for a product: (best_bid+best_ask)/2
// when both sides exist, whichever side is available otherwise. The second
// return value is false when the book is empty.
func (c *Client) BestBidAsk(ctx context.Context, productID string) (decimal.Decimal, bool, error) {
	query := url.Values{"product_ids": {productID}}
	body, err := c.get(ctx, bestBidAskPath, query)
	if err != nil {
		return decimal.Zero, false, err
	}

	var parsed bestBidAskResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return decimal.Zero, false, fmt.Errorf("decode best_bid_ask response: %w", err)
	}

	for _, book := range parsed.PriceBooks {
		if book.ProductID != productID {
			continue
		}
		bid, hasBid := topOfBook(book.Bids)
		ask, hasAsk := topOfBook(book.Asks)
		switch {
		case hasBid && hasAsk:
			return bid.Add(ask).Div(decimal.NewFromInt(2)), true, nil
		case hasBid:
			return bid, true, nil
		case hasAsk:
			return ask, true, nil
		}
	}
	return decimal.Zero, false, nil
}

func topOfBook(levels []priceLevel) (decimal.Decimal, bool) {
	if len(levels) == 0 {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(levels[0].Price)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// PlaceOrder submits one immediate-or-cancel market order. The result is
// returned for any HTTP status so the caller can classify acceptance;
// only transport and signing failures surface as errors.
//
// The client_order_id is a millisecond timestamp: a unique idempotency
// token the exchange uses to drop duplicate sends. It is a safety net,
// not a retry mechanism — nothing here retries.
func (c *Client) PlaceOrder(ctx context.Context, productID string, side types.Action, sizing OrderSizing) (types.OrderResult, error) {
	if (sizing.QuoteSize == "") == (sizing.BaseSize == "") {
		return types.OrderResult{}, fmt.Errorf("coinbase: exactly one of quote_size or base_size must be set")
	}

	req := orderRequest{
		ClientOrderID: strconv.FormatInt(c.now().UnixMilli(), 10),
		ProductID:     productID,
		Side:          sideValue(side),
		OrderConfiguration: orderConfiguration{
			MarketIOC: marketIOC{
				QuoteSize: sizing.QuoteSize,
				BaseSize:  sizing.BaseSize,
			},
		},
	}

	status, body, err := c.do(ctx, http.MethodPost, ordersPath, nil, req)
	if err != nil {
		return types.OrderResult{}, err
	}

	result := types.OrderResult{
		StatusCode: status,
		Raw:        json.RawMessage(body),
	}

	var parsed orderResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		result.OrderID = parsed.OrderID
		if result.OrderID == "" {
			result.OrderID = parsed.SuccessResponse.OrderID
		}
	}

	c.logger.Info().
		Int("status", status).
		Str("product_id", productID).
		Str("side", req.Side).
		Str("order_id", result.OrderID).
		Msg("order placement response")

	return result, nil
}

// Fills returns up to limit recent executed trades for a product, newest
// first as the exchange reports them.
func (c *Client) Fills(ctx context.Context, productID string, limit int) ([]Fill, error) {
	query := url.Values{
		"product_id": {productID},
		"limit":      {strconv.Itoa(limit)},
	}
	body, err := c.get(ctx, fillsPath, query)
	if err != nil {
		return nil, err
	}

	var parsed fillsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode fills response: %w", err)
	}
	return parsed.Fills, nil
}

// Order fetches the historical detail of a single order.
func (c *Client) Order(ctx context.Context, orderID string) (OrderDetail, error) {
	body, err := c.get(ctx, historicalOrderPath+orderID, nil)
	if err != nil {
		return OrderDetail{}, err
	}

	var parsed orderDetailResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return OrderDetail{}, fmt.Errorf("decode order response: %w", err)
	}
	return parsed.Order, nil
}

// TransactionSummary returns the account's fee tier and lifetime fee
// totals.
func (c *Client) TransactionSummary(ctx context.Context) (TransactionSummary, error) {
	body, err := c.get(ctx, transactionSummaryPath, nil)
	if err != nil {
		return TransactionSummary{}, err
	}

	var parsed TransactionSummary
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TransactionSummary{}, fmt.Errorf("decode transaction summary response: %w", err)
	}
	return parsed, nil
}

// get issues a GET and converts any non-success status to an APIError.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, &APIError{Status: status, Body: string(body)}
	}
	return body, nil
}

// do signs and issues one HTTP call, returning the status and raw body.
// The token binds to the path without its query string.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	signed, err := c.signer.Sign(method, path)
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+signed.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("coinbase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("coinbase: read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("exchange call completed")

	return resp.StatusCode, body, nil
}

func sideValue(action types.Action) string {
	if action == types.ActionSell {
		return "SELL"
	}
	return "BUY"
}
