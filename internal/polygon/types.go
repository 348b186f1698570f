package polygon

// Wire types for the Polygon.io REST API. Only the fields the service reads
// are declared; everything else in the payloads is ignored.

type snapshotResponse struct {
	Status  string           `json:"status"`
	Tickers []snapshotTicker `json:"tickers"`
}

type snapshotTicker struct {
	Ticker           string     `json:"ticker"`
	TodaysChange     float64    `json:"todaysChange"`
	TodaysChangePerc float64    `json:"todaysChangePerc"`
	Day              *sessionBar `json:"day"`
	PrevDay          *sessionBar `json:"prevDay"`
	LastTrade        *lastTrade  `json:"lastTrade"`
}

type sessionBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type lastTrade struct {
	Price float64 `json:"p"`
}

type aggsResponse struct {
	Status       string   `json:"status"`
	Ticker       string   `json:"ticker"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
}

type aggBar struct {
	Timestamp int64   `json:"t"` // Unix milliseconds
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type financialsResponse struct {
	Status  string             `json:"status"`
	Results []financialsResult `json:"results"`
}

type financialsResult struct {
	Financials struct {
		IncomeStatement *incomeStatement `json:"income_statement"`
	} `json:"financials"`
}

type incomeStatement struct {
	Revenues            *metricValue `json:"revenues"`
	GrossProfit         *metricValue `json:"gross_profit"`
	OperatingIncomeLoss *metricValue `json:"operating_income_loss"`
}

type metricValue struct {
	Value float64 `json:"value"`
}

type tickerDetailsResponse struct {
	Status  string `json:"status"`
	Results *struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	} `json:"results"`
}
