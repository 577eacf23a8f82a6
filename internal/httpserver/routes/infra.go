package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/handlers"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/mw"
)

func init() { Register("infra", registerInfra) }

func registerInfra(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	r.Group(func(r chi.Router) {
		r.Use(mw.Restrict(mw.AccessRules{
			CIDRs:      d.AllowedCIDRS,
			Hosts:      d.AllowedHosts,
			TrustProxy: d.TrustProxy,
		}, d.Logger))
		r.Get("/readyz", handlers.Readyz(d))
		r.Get("/infra", handlers.Infra(d))
	})
}
