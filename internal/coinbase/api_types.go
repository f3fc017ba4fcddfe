package coinbase

// Wire types for the Advanced Trade REST API. Request bodies go through
// the standard JSON encoder; nothing is string-built.

type balance struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type account struct {
	UUID             string  `json:"uuid"`
	Currency         string  `json:"currency"`
	AvailableBalance balance `json:"available_balance"`
}

type accountsResponse struct {
	Accounts []account `json:"accounts"`
}

type priceLevel struct {
	Price string `json:"price"`
}

type priceBook struct {
	ProductID string       `json:"product_id"`
	Bids      []priceLevel `json:"bids"`
	Asks      []priceLevel `json:"asks"`
}

type bestBidAskResponse struct {
	PriceBooks []priceBook `json:"pricebooks"`
}

type marketIOC struct {
	QuoteSize string `json:"quote_size,omitempty"`
	BaseSize  string `json:"base_size,omitempty"`
}

type orderConfiguration struct {
	MarketIOC marketIOC `json:"market_market_ioc"`
}

type orderRequest struct {
	ClientOrderID      string             `json:"client_order_id"`
	ProductID          string             `json:"product_id"`
	Side               string             `json:"side"`
	OrderConfiguration orderConfiguration `json:"order_configuration"`
}

type orderResponse struct {
	Success         bool   `json:"success"`
	OrderID         string `json:"order_id"`
	SuccessResponse struct {
		OrderID string `json:"order_id"`
	} `json:"success_response"`
	ErrorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"error_response"`
}

// Fill is one executed trade as reported by the fills endpoint. Numeric
// fields stay strings on the wire; callers parse what they aggregate.
type Fill struct {
	EntryID    string `json:"entry_id"`
	TradeID    string `json:"trade_id"`
	OrderID    string `json:"order_id"`
	TradeTime  string `json:"trade_time"`
	Price      string `json:"price"`
	Size       string `json:"size"`
	Commission string `json:"commission"`
	Side       string `json:"side"` // BUY or SELL
}

type fillsResponse struct {
	Fills []Fill `json:"fills"`
}

// FeeTier is the account's volume-based fee discount level.
type FeeTier struct {
	PricingTier  string `json:"pricing_tier"`
	TakerFeeRate string `json:"taker_fee_rate"`
	MakerFeeRate string `json:"maker_fee_rate"`
}

// TransactionSummary is the account-wide fee context returned by the
// transaction summary endpoint.
type TransactionSummary struct {
	FeeTier   FeeTier `json:"fee_tier"`
	TotalFees float64 `json:"total_fees"`
}

// OrderDetail is the historical order record, fetched best-effort after
// placement to enrich notifications with fill status.
type OrderDetail struct {
	OrderID            string `json:"order_id"`
	ProductID          string `json:"product_id"`
	Status             string `json:"status"`
	FilledSize         string `json:"filled_size"`
	AverageFilledPrice string `json:"average_filled_price"`
}

type orderDetailResponse struct {
	Order OrderDetail `json:"order"`
}
