package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/handlers"
)

func init() { Register("quotes", registerQuotes) }

func registerQuotes(r chi.Router, d deps.Deps) {
	if d.Quotes == nil {
		return
	}
	r.Get("/api/quote", handlers.Quote(d))
	r.Get("/api/market", handlers.Market(d))
}
