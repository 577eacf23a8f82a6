package handlers

import (
	"net/http"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/version"
)

type healthzResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	Store         string       `json:"store"`
	Quotes        bool         `json:"quotes"`
	Build         version.Info `json:"build"`
}

// Healthz reports liveness and what the process was started with. It never
// touches the backends; /readyz does.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		respond.JSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Store:         d.StoreDriver,
			Quotes:        d.Quotes != nil,
			Build:         d.Build,
		})
	}
}
