package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/handlers"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/mw"
)

func init() { Register("clicks", registerClicks) }

func registerClicks(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.ClickBurst,
		RefillPerIPPerMin: d.ClickRatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.With(limit).Post("/click-track", handlers.TrackClick(d))
	r.Get("/click-track", handlers.ClickCount(d))
}
