package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the link store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			respond.JSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "store unreachable"})
			return
		}
		respond.JSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
