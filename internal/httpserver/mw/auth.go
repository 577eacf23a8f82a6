package mw

import (
	"net/http"
	"strings"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

// Auth requires a valid bearer token and stores its subject as the
// request owner.
func Auth(v *auth.Verifier, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "authorization header required")
				return
			}

			claims, err := v.Validate(token)
			if err != nil {
				log.Debug("token rejected", logger.Error(err), logger.String("path", r.URL.Path))
				unauthorized(w, err.Error())
				return
			}

			recordOwner(r, claims.Owner())
			next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), claims.Owner())))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="somenicelinks"`)
	respond.Error(w, http.StatusUnauthorized, msg)
}
