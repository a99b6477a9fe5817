package domain

// Series identifiers used by the derivation layer.
const (
	SeriesFedBalanceSheet = "WALCL"
	SeriesBankReserves    = "WRESBAL"
	SeriesReverseRepo     = "RRPONTSYD"
	SeriesM2              = "M2SL"
	SeriesTreasuryAccount = "WTREGEN"
	SeriesECBBalanceSheet = "ECBASSETSW"
	SeriesEURUSD          = "DEXUSEU"
	SeriesFinConditions   = "NFCI"

	SeriesBTCPrice = "BTC_USD"
	SeriesETHPrice = "ETH_USD"
	SeriesBTCMcap  = "BTC_MCAP"
	SeriesETHMcap  = "ETH_MCAP"
	SeriesBNBMcap  = "BNB_MCAP"
	SeriesSOLMcap  = "SOL_MCAP"
	SeriesXRPMcap  = "XRP_MCAP"
	SeriesUSDTMcap = "USDT_MCAP"
	SeriesUSDCMcap = "USDC_MCAP"

	// SeriesNetLiquidity is the synthetic snapshot key; it is never stored.
	SeriesNetLiquidity = "NET_LIQUIDITY"
)

// Data sources.
const (
	SourceFRED      = "fred"
	SourceCoinGecko = "coingecko"
)

// Unit describes how a series is displayed: the native unit symbol and the
// divisor that converts native values to trillions.
type Unit struct {
	Symbol  string  `yaml:"symbol" json:"symbol"`
	Divisor float64 `yaml:"divisor" json:"divisor"`
}

// SeriesInfo labels one stored series.
type SeriesInfo struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// CoinField maps a market_chart field of a coin to the series it populates.
type CoinField struct {
	SeriesID string `yaml:"series_id"`
	Field    string `yaml:"field"`
}

// CoinFetch is one CoinGecko market_chart request and the series extracted from it.
type CoinFetch struct {
	CoinID string      `yaml:"coin_id"`
	Fields []CoinField `yaml:"fields"`
}

// Catalog is the set of series the system fetches, derives from and displays.
type Catalog struct {
	USSeries        []SeriesInfo    `yaml:"us_series"`
	GlobalSeries    []SeriesInfo    `yaml:"global_series"`
	FXSeries        []SeriesInfo    `yaml:"fx_series"`
	ConditionSeries []SeriesInfo    `yaml:"condition_series"`
	CryptoFetches   []CoinFetch     `yaml:"crypto_fetches"`
	AltBasket       []string        `yaml:"alt_basket"`
	AltAnchor       string          `yaml:"alt_anchor"`
	Stablecoins     []string        `yaml:"stablecoins"`
	DisplayOrder    []string        `yaml:"display_order"`
	Units           map[string]Unit `yaml:"units"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		USSeries: []SeriesInfo{
			{ID: SeriesFedBalanceSheet, Label: "Fed Balance Sheet"},
			{ID: SeriesBankReserves, Label: "Bank Reserves"},
			{ID: SeriesReverseRepo, Label: "Reverse Repos"},
			{ID: SeriesM2, Label: "M2 Money Supply"},
			{ID: SeriesTreasuryAccount, Label: "Treasury General Account"},
		},
		GlobalSeries: []SeriesInfo{
			{ID: SeriesECBBalanceSheet, Label: "ECB Balance Sheet"},
		},
		FXSeries: []SeriesInfo{
			{ID: SeriesEURUSD, Label: "EUR/USD Rate"},
		},
		ConditionSeries: []SeriesInfo{
			{ID: SeriesFinConditions, Label: "Financial Conditions (NFCI)"},
		},
		CryptoFetches: []CoinFetch{
			{CoinID: "bitcoin", Fields: []CoinField{{SeriesBTCPrice, "prices"}, {SeriesBTCMcap, "market_caps"}}},
			{CoinID: "ethereum", Fields: []CoinField{{SeriesETHPrice, "prices"}, {SeriesETHMcap, "market_caps"}}},
			{CoinID: "binancecoin", Fields: []CoinField{{SeriesBNBMcap, "market_caps"}}},
			{CoinID: "solana", Fields: []CoinField{{SeriesSOLMcap, "market_caps"}}},
			{CoinID: "ripple", Fields: []CoinField{{SeriesXRPMcap, "market_caps"}}},
			{CoinID: "tether", Fields: []CoinField{{SeriesUSDTMcap, "market_caps"}}},
			{CoinID: "usd-coin", Fields: []CoinField{{SeriesUSDCMcap, "market_caps"}}},
		},
		AltBasket:   []string{SeriesETHMcap, SeriesBNBMcap, SeriesSOLMcap, SeriesXRPMcap},
		AltAnchor:   SeriesETHMcap,
		Stablecoins: []string{SeriesUSDTMcap, SeriesUSDCMcap},
		DisplayOrder: []string{
			SeriesFedBalanceSheet, SeriesBankReserves, SeriesM2,
			SeriesTreasuryAccount, SeriesReverseRepo, SeriesNetLiquidity,
		},
		// RRPONTSYD and M2SL are published in billions, the rest in millions.
		Units: map[string]Unit{
			SeriesFedBalanceSheet: {Symbol: "M", Divisor: 1e6},
			SeriesBankReserves:    {Symbol: "M", Divisor: 1e6},
			SeriesM2:              {Symbol: "B", Divisor: 1e3},
			SeriesTreasuryAccount: {Symbol: "M", Divisor: 1e6},
			SeriesReverseRepo:     {Symbol: "B", Divisor: 1e3},
			SeriesNetLiquidity:    {Symbol: "M", Divisor: 1e6},
		},
	}
}

// FREDSeries lists every FRED series the catalog fetches.
func (c Catalog) FREDSeries() []SeriesInfo {
	out := make([]SeriesInfo, 0, len(c.USSeries)+len(c.GlobalSeries)+len(c.FXSeries)+len(c.ConditionSeries))
	out = append(out, c.USSeries...)
	out = append(out, c.GlobalSeries...)
	out = append(out, c.FXSeries...)
	out = append(out, c.ConditionSeries...)
	return out
}

// Label returns the display label of a series, or the id when unknown.
func (c Catalog) Label(seriesID string) string {
	if seriesID == SeriesNetLiquidity {
		return "Net Liquidity"
	}
	for _, s := range c.FREDSeries() {
		if s.ID == seriesID {
			return s.Label
		}
	}
	return seriesID
}

// UnitFor returns the display unit of a series, defaulting to millions.
func (c Catalog) UnitFor(seriesID string) Unit {
	if u, ok := c.Units[seriesID]; ok && u.Divisor != 0 {
		return u
	}
	return Unit{Symbol: "M", Divisor: 1e6}
}
