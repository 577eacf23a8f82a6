package handlers

import (
	"context"
	"net/http"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Driver string `json:"driver,omitempty"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":  checkStore(r.Context(), d),
			"cache":  checkCache(r.Context(), d),
			"quotes": {OK: d.Quotes != nil, Mode: quoteMode(d)},
		}

		respond.JSON(w, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	// Without the store no link can be read or counted
	if s, ok := components["store"]; ok && !s.OK {
		return "critical"
	}
	// Cache down = quotes hit the providers on every request
	if c, ok := components["cache"]; ok && !c.OK {
		return "degraded"
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Driver: d.StoreDriver, Impact: "links-and-clicks-unavailable", Error: "timeout"}
	}
	return componentStatus{OK: true, Driver: d.StoreDriver}
}

func checkCache(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "quotes-uncached",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "quotes-uncached",
			Error:  "timeout",
		}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func quoteMode(d deps.Deps) string {
	if d.Quotes == nil {
		return "disabled"
	}
	return "cached-upstream"
}
