package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/quotes"
)

// Quote returns a cleaned quote for ?symbol=, or the configured default.
// Upstream status codes are passed through.
func Quote(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
		if symbol == "" {
			symbol = d.QuoteSymbol
		}

		q, err := d.Quotes.Quote(r.Context(), symbol)
		var upstream *quotes.UpstreamError
		switch {
		case err == nil:
			w.Header().Set("Cache-Control", "public, max-age=60")
			respond.JSON(w, http.StatusOK, q)
		case errors.Is(err, quotes.ErrSymbolNotFound):
			respond.Error(w, http.StatusNotFound, quotes.ErrSymbolNotFound.Error())
		case errors.As(err, &upstream):
			status := upstream.Status
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			respond.Error(w, status, upstream.Error())
		default:
			d.Logger.Warn("quote fetch failed", logger.String("symbol", symbol), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "fetch_failed")
		}
	}
}

// Market returns the ticker snapshot. It always answers; unreachable
// providers are replaced by static fallback values.
func Market(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, d.Quotes.Market(r.Context()))
	}
}
