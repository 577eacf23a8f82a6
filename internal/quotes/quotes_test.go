package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func jsonServer(t *testing.T, status int, body string, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuote(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("symbols")
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"SNGYO.IS","shortName":"SINPAS GYO","currency":"TRY","regularMarketPrice":2.63,"regularMarketChange":-0.04,"regularMarketChangePercent":-1.49,"regularMarketTime":1700000000,"fullExchangeName":"Istanbul"}]}}`))
	}))
	defer srv.Close()

	cache := &memCache{}
	s := NewService(Options{YahooURL: srv.URL}, cache, logger.Nop())

	q, err := s.Quote(context.Background(), "SNGYO.IS")
	require.NoError(t, err)
	assert.Equal(t, "SNGYO.IS", gotSymbol)
	assert.Equal(t, "Istanbul", q.Exchange)
	assert.InDelta(t, 2.63, q.RegularMarketPrice, 1e-9)
	assert.Contains(t, cache.data, "quote:SNGYO.IS")
}

func TestQuote_Errors(t *testing.T) {
	empty := jsonServer(t, http.StatusOK, `{"quoteResponse":{"result":[]}}`, nil)
	s := NewService(Options{YahooURL: empty.URL}, nil, logger.Nop())
	_, err := s.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	down := jsonServer(t, http.StatusBadGateway, `{}`, nil)
	s = NewService(Options{YahooURL: down.URL}, nil, logger.Nop())
	_, err = s.Quote(context.Background(), "SNGYO.IS")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
}

func TestMarket(t *testing.T) {
	fx := jsonServer(t, http.StatusOK, `{"rates":{"TRY":34.5,"EUR":0.9}}`, nil)
	btc := jsonServer(t, http.StatusOK, `{"bitcoin":{"usd":60000,"usd_24h_change":2.5}}`, nil)
	cache := &memCache{}
	s := NewService(Options{FXURL: fx.URL, BTCURL: btc.URL}, cache, logger.Nop())

	items := s.Market(context.Background())
	require.Len(t, items, 3)
	assert.Equal(t, "USD/TRY", items[0].Symbol)
	assert.InDelta(t, 34.5, items[0].Value, 1e-9)
	assert.InDelta(t, 1/0.9, items[1].Value, 1e-9)
	assert.InDelta(t, 60000, items[2].Value, 1e-9)
	assert.InDelta(t, 2.5, items[2].Change, 1e-9)
	for _, it := range items {
		assert.False(t, it.Fallback)
	}
	assert.Contains(t, cache.data, marketCacheKey)
}

func TestMarket_Fallback(t *testing.T) {
	fxHits := 0
	fx := jsonServer(t, http.StatusInternalServerError, `{}`, &fxHits)
	btc := jsonServer(t, http.StatusOK, `not json`, nil)
	cache := &memCache{}
	s := NewService(Options{FXURL: fx.URL, BTCURL: btc.URL}, cache, logger.Nop())

	items := s.Market(context.Background())
	require.Len(t, items, 3)
	assert.Equal(t, FallbackUSDTRY, items[0].Value)
	assert.Equal(t, FallbackEURUSD, items[1].Value)
	assert.Equal(t, FallbackBTC, items[2].Value)
	assert.True(t, items[2].Fallback)
	assert.NotContains(t, cache.data, marketCacheKey, "fallback snapshots are not cached")

	s.Market(context.Background())
	assert.Equal(t, 2, fxHits)
}

func TestMarket_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	s := NewService(Options{Timeout: 50 * time.Millisecond, FXURL: slow.URL, BTCURL: slow.URL}, nil, logger.Nop())

	start := time.Now()
	items := s.Market(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, items[0].Fallback)
}

func TestRefresh(t *testing.T) {
	hits := 0
	fx := jsonServer(t, http.StatusOK, `{"rates":{"TRY":34.5,"EUR":0.9}}`, &hits)
	btc := jsonServer(t, http.StatusOK, `{"bitcoin":{"usd":60000,"usd_24h_change":2.5}}`, nil)
	s := NewService(Options{FXURL: fx.URL, BTCURL: btc.URL}, &memCache{}, logger.Nop())

	s.Market(context.Background())
	s.Market(context.Background())
	assert.Equal(t, 1, hits, "second call served from cache")

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 2, hits, "refresh bypasses the cache")
}
