package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/handlers"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/mw"
)

func init() { Register("links", registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	r.Route("/api/links", func(r chi.Router) {
		r.Use(mw.Auth(d.Verifier, d.Logger))
		r.Get("/", handlers.ListLinks(d))
		r.Post("/", handlers.InsertLinks(d))
		r.Patch("/", handlers.UpdateLinks(d))
		r.Delete("/", handlers.DeleteLinks(d))
	})
}
