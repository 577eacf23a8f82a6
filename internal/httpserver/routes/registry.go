package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var groups []group

// Register adds a named route group with optional middlewares applied to
// all of its routes. Call it from init().
func Register(name string, reg Registrar, mws ...Middleware) {
	groups = append(groups, group{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every group on r. Called once from the server setup.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		target := r
		if len(g.mws) > 0 {
			target = r.With(g.mws...)
		}
		g.reg(target, d)
		d.Logger.Debug("routes registered", logger.String("group", g.name))
	}
}
