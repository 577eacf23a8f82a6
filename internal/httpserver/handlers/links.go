package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
)

// maxInsertRows bounds a bulk insert.
const maxInsertRows = 1000

type countResponse struct {
	Count int `json:"count"`
}

func ownerOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := auth.OwnerFrom(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return owner, ok
}

func matchFromQuery(r *http.Request) domain.Match {
	q := r.URL.Query()
	return domain.Match{
		ID:  strings.TrimSpace(q.Get("id")),
		URL: strings.TrimSpace(q.Get("url")),
	}
}

// ListLinks returns the caller's rows ordered by sort order.
func ListLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerOr401(w, r)
		if !ok {
			return
		}

		rows, err := d.Store.ListLinks(r.Context(), owner)
		if err != nil {
			d.Logger.Error("failed to list links", logger.String("owner", owner), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to list links")
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}

// InsertLinks creates rows for the caller. The owner of every row is the
// token subject whatever the body says.
func InsertLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerOr401(w, r)
		if !ok {
			return
		}

		var rows []domain.LinkInsert
		if err := respond.Decode(w, r, &rows); err != nil {
			respond.Error(w, http.StatusBadRequest, "body must be an array of links")
			return
		}
		if len(rows) > maxInsertRows {
			respond.Error(w, http.StatusRequestEntityTooLarge, "too many links in one request")
			return
		}
		for i := range rows {
			in := &rows[i]
			in.OwnerID = owner
			in.Title = strings.TrimSpace(in.Title)
			in.URL = domain.NormalizeURL(in.URL)
			if in.Title == "" {
				respond.Error(w, http.StatusBadRequest, "title is required")
				return
			}
			if err := domain.ValidateURL(in.URL); err != nil {
				respond.Error(w, http.StatusBadRequest, err.Error())
				return
			}
			if in.Icon == "" {
				in.Icon = domain.DefaultIcon
			}
			if in.Category == "" {
				in.Category = domain.DefaultCategory
			}
			if in.ClickCount < 0 {
				in.ClickCount = 0
			}
		}

		created, err := d.Store.InsertLinks(r.Context(), owner, rows)
		if err != nil {
			d.Logger.Error("failed to insert links", logger.String("owner", owner), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to insert links")
			return
		}
		respond.JSON(w, http.StatusCreated, created)
	}
}

// UpdateLinks patches the caller's rows matched by ?id= or ?url=.
func UpdateLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerOr401(w, r)
		if !ok {
			return
		}

		m := matchFromQuery(r)
		if m.IsZero() {
			respond.Error(w, http.StatusBadRequest, store.ErrEmptyMatch.Error())
			return
		}

		var p domain.LinkPatch
		if err := respond.Decode(w, r, &p); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid patch body")
			return
		}

		n, err := d.Store.UpdateLinks(r.Context(), owner, m, p)
		switch {
		case errors.Is(err, store.ErrEmptyMatch):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case err != nil:
			d.Logger.Error("failed to update links", logger.String("owner", owner), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to update links")
		default:
			respond.JSON(w, http.StatusOK, countResponse{Count: n})
		}
	}
}

// DeleteLinks removes the caller's rows matched by ?id= or ?url=, or all
// of them without a match.
func DeleteLinks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerOr401(w, r)
		if !ok {
			return
		}

		m := matchFromQuery(r)
		n, err := d.Store.DeleteLinks(r.Context(), owner, m)
		if err != nil {
			d.Logger.Error("failed to delete links", logger.String("owner", owner), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to delete links")
			return
		}
		if m.IsZero() {
			d.Logger.Info("all links deleted", logger.String("owner", owner), logger.Int("count", n))
		}
		respond.JSON(w, http.StatusOK, countResponse{Count: n})
	}
}
