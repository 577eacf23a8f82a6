// Package quotes fetches the financial ticker data shown next to the
// links. Every upstream call has a short timeout and market figures fall
// back to static values so that a slow provider never slows the page.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

const (
	DefaultYahooURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	DefaultFXURL    = "https://api.exchangerate-api.com/v4/latest/USD"
	DefaultBTCURL   = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd&include_24hr_change=true"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	marketCacheKey = "market"
)

// Static fallbacks used when a provider is unreachable.
const (
	FallbackUSDTRY    = 33.85
	FallbackEURUSD    = 1.103
	FallbackBTC       = 56890.23
	FallbackBTCChange = 1.24
)

var ErrSymbolNotFound = errors.New("symbol_not_found")

// UpstreamError is a non-OK status from a provider.
type UpstreamError struct {
	Provider string
	Status   int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %d", e.Provider, e.Status)
}

// Quote is a cleaned Yahoo quote.
type Quote struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	Currency                   string  `json:"currency"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
	Exchange                   string  `json:"exchange"`
}

// MarketItem is one ticker entry.
type MarketItem struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Change   float64 `json:"change"`
	Fallback bool    `json:"fallback,omitempty"`
}

// Cache stores upstream payloads for a while.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configure a Service. Zero values select defaults.
type Options struct {
	Timeout  time.Duration
	TTL      time.Duration
	YahooURL string
	FXURL    string
	BTCURL   string
}

// Service fetches quotes and the market snapshot.
type Service struct {
	client *http.Client
	cache  Cache
	log    logger.Logger
	opts   Options
}

// NewService creates a quote service. cache may be nil.
func NewService(opts Options, cache Cache, log logger.Logger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.YahooURL == "" {
		opts.YahooURL = DefaultYahooURL
	}
	if opts.FXURL == "" {
		opts.FXURL = DefaultFXURL
	}
	if opts.BTCURL == "" {
		opts.BTCURL = DefaultBTCURL
	}
	return &Service{
		client: &http.Client{Timeout: opts.Timeout},
		cache:  cache,
		log:    log,
		opts:   opts,
	}
}

// Quote returns the Yahoo quote for symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (Quote, error) {
	key := "quote:" + symbol
	var q Quote
	if s.cached(ctx, key, &q) {
		return q, nil
	}

	var payload struct {
		QuoteResponse struct {
			Result []struct {
				Symbol                     string  `json:"symbol"`
				ShortName                  string  `json:"shortName"`
				Currency                   string  `json:"currency"`
				RegularMarketPrice         float64 `json:"regularMarketPrice"`
				RegularMarketChange        float64 `json:"regularMarketChange"`
				RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
				RegularMarketTime          int64   `json:"regularMarketTime"`
				FullExchangeName           string  `json:"fullExchangeName"`
			} `json:"result"`
		} `json:"quoteResponse"`
	}
	u := s.opts.YahooURL + "?symbols=" + url.QueryEscape(symbol)
	if err := s.getJSON(ctx, "Yahoo", u, &payload); err != nil {
		return Quote{}, err
	}
	if len(payload.QuoteResponse.Result) == 0 {
		return Quote{}, ErrSymbolNotFound
	}

	item := payload.QuoteResponse.Result[0]
	q = Quote{
		Symbol:                     item.Symbol,
		ShortName:                  item.ShortName,
		Currency:                   item.Currency,
		RegularMarketPrice:         item.RegularMarketPrice,
		RegularMarketChange:        item.RegularMarketChange,
		RegularMarketChangePercent: item.RegularMarketChangePercent,
		RegularMarketTime:          item.RegularMarketTime,
		Exchange:                   item.FullExchangeName,
	}
	s.store(ctx, key, q)
	return q, nil
}

// Market returns the currency and crypto ticker. It never fails: each
// provider degrades to its static fallback.
func (s *Service) Market(ctx context.Context) []MarketItem {
	var items []MarketItem
	if s.cached(ctx, marketCacheKey, &items) {
		return items
	}
	return s.fetchMarket(ctx)
}

func (s *Service) fetchMarket(ctx context.Context) []MarketItem {
	var (
		fx  []MarketItem
		btc MarketItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fx = s.currencyRates(gctx)
		return nil
	})
	g.Go(func() error {
		btc = s.bitcoin(gctx)
		return nil
	})
	_ = g.Wait()

	items := append(fx, btc)

	degraded := false
	for _, it := range items {
		degraded = degraded || it.Fallback
	}
	// only healthy snapshots are cached so fallbacks are retried soon
	if !degraded {
		s.store(ctx, marketCacheKey, items)
	}
	return items
}

func (s *Service) currencyRates(ctx context.Context) []MarketItem {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	err := s.getJSON(ctx, "ExchangeRate", s.opts.FXURL, &payload)
	if err == nil && (payload.Rates["TRY"] <= 0 || payload.Rates["EUR"] <= 0) {
		err = errors.New("missing TRY or EUR rate")
	}
	if err != nil {
		s.log.Warn("currency rates unavailable, using fallback", logger.Error(err))
		return []MarketItem{
			{Symbol: "USD/TRY", Name: "Dolar/TL", Value: FallbackUSDTRY, Fallback: true},
			{Symbol: "EUR/USD", Name: "Euro/Dolar", Value: FallbackEURUSD, Fallback: true},
		}
	}
	return []MarketItem{
		{Symbol: "USD/TRY", Name: "Dolar/TL", Value: payload.Rates["TRY"]},
		{Symbol: "EUR/USD", Name: "Euro/Dolar", Value: 1 / payload.Rates["EUR"]},
	}
}

func (s *Service) bitcoin(ctx context.Context) MarketItem {
	var payload struct {
		Bitcoin struct {
			USD       float64 `json:"usd"`
			USD24hChg float64 `json:"usd_24h_change"`
		} `json:"bitcoin"`
	}
	err := s.getJSON(ctx, "CoinGecko", s.opts.BTCURL, &payload)
	if err == nil && payload.Bitcoin.USD <= 0 {
		err = errors.New("missing bitcoin price")
	}
	if err != nil {
		s.log.Warn("bitcoin price unavailable, using fallback", logger.Error(err))
		return MarketItem{Symbol: "BTC/USD", Name: "Bitcoin", Value: FallbackBTC, Change: FallbackBTCChange, Fallback: true}
	}
	return MarketItem{Symbol: "BTC/USD", Name: "Bitcoin", Value: payload.Bitcoin.USD, Change: payload.Bitcoin.USD24hChg}
}

func (s *Service) getJSON(ctx context.Context, provider, u string, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", provider, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Provider: provider, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return nil
}

func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Debug("quote cache read failed", logger.String("key", key), logger.Error(err))
		return false
	}
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.opts.TTL); err != nil {
		s.log.Debug("quote cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// Refresh re-fetches the market snapshot into the cache.
func (s *Service) Refresh(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, it := range s.fetchMarket(ctx) {
		if it.Fallback {
			return fmt.Errorf("%s served from fallback", it.Symbol)
		}
	}
	return nil
}
