package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/s7qm7jrhsv-cmyk/tradingview-coinbase-bot/internal/types"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	_, pemText := testKey(t)
	creds := StaticCredentials{KeyName: "key-1", PrivateKeyPEM: pemText}
	return NewClient(creds, server.URL)
}

func TestAccountsParsesBalances(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != accountsPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing bearer token")
		}
		io.WriteString(w, `{"accounts":[
			{"uuid":"a","currency":"BTC","available_balance":{"value":"0.0042","currency":"BTC"}},
			{"uuid":"b","currency":"USDC","available_balance":{"value":"125.50","currency":"USDC"}},
			{"uuid":"c","currency":"ETH","available_balance":{"value":"garbage","currency":"ETH"}}
		]}`)
	})

	balances, err := client.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts returned error: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(balances))
	}
	if !balances[0].Available.Equal(decimal.RequireFromString("0.0042")) {
		t.Errorf("BTC balance = %s", balances[0].Available)
	}
	if !balances[2].Available.IsZero() {
		t.Errorf("unparseable balance should degrade to zero, got %s", balances[2].Available)
	}
}

func TestBestBidAskMidPrice(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{
			name: "both sides",
			body: `{"pricebooks":[{"product_id":"BTC-USDC","bids":[{"price":"60000"}],"asks":[{"price":"60010"}]}]}`,
			want: "60005", wantOK: true,
		},
		{
			name: "bid only",
			body: `{"pricebooks":[{"product_id":"BTC-USDC","bids":[{"price":"60000"}],"asks":[]}]}`,
			want: "60000", wantOK: true,
		},
		{
			name: "ask only",
			body: `{"pricebooks":[{"product_id":"BTC-USDC","bids":[],"asks":[{"price":"60010"}]}]}`,
			want: "60010", wantOK: true,
		},
		{
			name:   "empty book",
			body:   `{"pricebooks":[{"product_id":"BTC-USDC","bids":[],"asks":[]}]}`,
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("product_ids"); got != "BTC-USDC" {
					t.Errorf("product_ids = %q", got)
				}
				io.WriteString(w, tc.body)
			})

			mid, ok, err := client.BestBidAsk(context.Background(), "BTC-USDC")
			if err != nil {
				t.Fatalf("BestBidAsk returned error: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if tc.wantOK && !mid.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("mid = %s, want %s", mid, tc.want)
			}
		})
	}
}

func TestPlaceOrderBuySizesByQuote(t *testing.T) {
	var captured orderRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ordersPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode order request: %v", err)
		}
		// quote_size only; base_size must not even appear on the wire
		if strings.Contains(string(body), "base_size") {
			t.Error("buy order carried base_size")
		}
		io.WriteString(w, `{"success":true,"order_id":"ord-123"}`)
	})

	result, err := client.PlaceOrder(context.Background(), "BTC-USDC", types.ActionBuy, OrderSizing{QuoteSize: "100"})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}

	if captured.Side != "BUY" {
		t.Errorf("side = %q", captured.Side)
	}
	if captured.OrderConfiguration.MarketIOC.QuoteSize != "100" {
		t.Errorf("quote_size = %q, want 100", captured.OrderConfiguration.MarketIOC.QuoteSize)
	}
	if _, err := strconv.ParseInt(captured.ClientOrderID, 10, 64); err != nil {
		t.Errorf("client_order_id %q is not a millisecond timestamp", captured.ClientOrderID)
	}
	if !result.Accepted() {
		t.Errorf("result not accepted: %+v", result)
	}
	if result.OrderID != "ord-123" {
		t.Errorf("order id = %q", result.OrderID)
	}
}

func TestPlaceOrderRejectionIsNotAnError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"INSUFFICIENT_FUND","message":"not enough USDC"}`)
	})

	result, err := client.PlaceOrder(context.Background(), "BTC-USDC", types.ActionBuy, OrderSizing{QuoteSize: "100"})
	if err != nil {
		t.Fatalf("rejection should not be a transport error: %v", err)
	}
	if result.Accepted() {
		t.Error("rejected order classified as accepted")
	}
	if result.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", result.StatusCode)
	}
	if !strings.Contains(string(result.Raw), "INSUFFICIENT_FUND") {
		t.Errorf("raw body lost: %s", result.Raw)
	}
}

func TestPlaceOrderUnparseableBodyKeepsRawText(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	})

	result, err := client.PlaceOrder(context.Background(), "BTC-USDC", types.ActionBuy, OrderSizing{QuoteSize: "50"})
	if err != nil {
		t.Fatalf("PlaceOrder returned error: %v", err)
	}
	if string(result.Raw) != "not json at all" {
		t.Errorf("raw = %q", result.Raw)
	}
	if result.Accepted() {
		t.Error("no order id should mean not accepted")
	}
}

func TestPlaceOrderRequiresExactlyOneSizing(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	if _, err := client.PlaceOrder(context.Background(), "BTC-USDC", types.ActionBuy, OrderSizing{}); err == nil {
		t.Error("empty sizing accepted")
	}
	if _, err := client.PlaceOrder(context.Background(), "BTC-USDC", types.ActionSell, OrderSizing{QuoteSize: "1", BaseSize: "1"}); err == nil {
		t.Error("double sizing accepted")
	}
}

func TestGetSurfacesAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"unauthorized"}`)
	})

	_, err := client.Accounts(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestFillsAndTransactionSummary(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case fillsPath:
			if got := r.URL.Query().Get("limit"); got != "250" {
				t.Errorf("limit = %q", got)
			}
			io.WriteString(w, `{"fills":[{"trade_id":"t1","side":"BUY","price":"60000","size":"0.01","commission":"0.5","trade_time":"2024-06-01T10:00:00Z"}]}`)
		case transactionSummaryPath:
			io.WriteString(w, `{"fee_tier":{"pricing_tier":"Advanced 1","taker_fee_rate":"0.008"},"total_fees":123.45}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	fills, err := client.Fills(context.Background(), "BTC-USDC", 250)
	if err != nil {
		t.Fatalf("Fills returned error: %v", err)
	}
	if len(fills) != 1 || fills[0].Price != "60000" {
		t.Errorf("fills = %+v", fills)
	}

	summary, err := client.TransactionSummary(context.Background())
	if err != nil {
		t.Fatalf("TransactionSummary returned error: %v", err)
	}
	if summary.FeeTier.PricingTier != "Advanced 1" || summary.TotalFees != 123.45 {
		t.Errorf("summary = %+v", summary)
	}
}
