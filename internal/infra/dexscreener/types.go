package dexscreener

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nirdla020/basescreener/internal/domain"
)

// searchResponse is the envelope returned by the /latest/dex/search endpoint.
// The token endpoints return a bare array of pairs instead.
type searchResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []wirePair `json:"pairs"`
}

// wirePair is one trading pair as DexScreener serializes it
type wirePair struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     wireToken       `json:"baseToken"`
	QuoteToken    wireToken       `json:"quoteToken"`
	PriceNative   string          `json:"priceNative"`
	PriceUsd      string          `json:"priceUsd"`
	Txns          wireTxns        `json:"txns"`
	Volume        wireVolume      `json:"volume"`
	PriceChange   wirePriceChange `json:"priceChange"`
	Liquidity     *wireLiquidity  `json:"liquidity"` // Pointer to handle nulls
	Fdv           float64         `json:"fdv"`
	MarketCap     float64         `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"`
	Info          *wireInfo       `json:"info"`
}

type wireToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type wireLiquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type wireTxns struct {
	M5  txnSummary `json:"m5"`
	H1  txnSummary `json:"h1"`
	H6  txnSummary `json:"h6"`
	H24 txnSummary `json:"h24"`
}

type txnSummary struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type wireVolume struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// wirePriceChange uses pointers because the API drops timeframes it has no data for
type wirePriceChange struct {
	M5  *float64 `json:"m5"`
	H1  *float64 `json:"h1"`
	H6  *float64 `json:"h6"`
	H24 *float64 `json:"h24"`
}

type wireInfo struct {
	ImageURL string `json:"imageUrl"`
}

// toRecord converts a wire pair into the domain record the engine works with
func (w *wirePair) toRecord() domain.PairRecord {
	rec := domain.PairRecord{
		PairAddress: w.PairAddress,
		ChainID:     w.ChainID,
		DexID:       w.DexID,
		URL:         w.URL,
		BaseToken: domain.Token{
			Address: w.BaseToken.Address,
			Symbol:  w.BaseToken.Symbol,
			Name:    w.BaseToken.Name,
		},
		QuoteToken: domain.Token{
			Address: w.QuoteToken.Address,
			Symbol:  w.QuoteToken.Symbol,
			Name:    w.QuoteToken.Name,
		},
		Volume24hUsd:  w.Volume.H24,
		Buys24h:       w.Txns.H24.Buys,
		Sells24h:      w.Txns.H24.Sells,
		FDV:           w.Fdv,
		PairCreatedAt: w.PairCreatedAt,
		PriceChange: domain.PriceChange{
			M5:  w.PriceChange.M5,
			H1:  w.PriceChange.H1,
			H6:  w.PriceChange.H6,
			H24: w.PriceChange.H24,
		},
	}

	if w.PriceUsd != "" {
		if price, err := decimal.NewFromString(w.PriceUsd); err == nil {
			rec.PriceUsd = price
		}
	}
	if w.Liquidity != nil {
		rec.LiquidityUsd = w.Liquidity.Usd
	}
	if w.Info != nil {
		rec.IconURL = w.Info.ImageURL
	}

	return rec
}

// toRecords converts a slice of wire pairs, keeping only the given chain.
// An empty chainID keeps everything.
func toRecords(pairs []wirePair, chainID string) []domain.PairRecord {
	out := make([]domain.PairRecord, 0, len(pairs))
	for i := range pairs {
		if chainID != "" && !strings.EqualFold(pairs[i].ChainID, chainID) {
			continue
		}
		out = append(out, pairs[i].toRecord())
	}
	return out
}
