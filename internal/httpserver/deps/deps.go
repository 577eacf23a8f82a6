package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/quotes"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
	"github.com/Gundoganfa/SomeNiceLinks/internal/version"
)

// QuoteService serves the quote ticker.
type QuoteService interface {
	Quote(ctx context.Context, symbol string) (quotes.Quote, error)
	Market(ctx context.Context) []quotes.MarketItem
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Build           version.Info
	TimeNow         func() time.Time // for testing, defaults to time.Now
	AllowedHosts    []string         // Host headers allowed to access infra endpoints
	AllowedCIDRS    []string         // IPs allowed to access infra endpoints
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins     []string         // browser origins allowed to call the API
	StoreDriver     string           // "redis" | "postgres"
	Store           store.LinkStore  // remote link table
	RedisClient     *redis.Client    // nil when no Redis is configured
	Verifier        *auth.Verifier   // bearer token verification
	Quotes          QuoteService     // nil disables the quote endpoints
	QuoteSymbol     string           // default symbol for /api/quote
	ClickRatePerMin int              // click-track refill per client IP
	ClickBurst      int              // click-track burst per client IP
}

// Now returns the current time from TimeNow, or time.Now when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
