package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/deps"
	"github.com/Gundoganfa/SomeNiceLinks/internal/httpserver/respond"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
	"github.com/Gundoganfa/SomeNiceLinks/internal/store"
)

type clickTrackRequest struct {
	LinkID     string `json:"linkId"`
	OwnerID    string `json:"ownerId"`
	URL        string `json:"url"`
	DeltaCount int64  `json:"deltaCount"`
}

type clickTrackResponse struct {
	Success    bool   `json:"success"`
	LinkID     string `json:"linkId"`
	ClickCount int64  `json:"clickCount"`
	Timestamp  string `json:"timestamp"`
}

type clickCountResponse struct {
	LinkID     string `json:"linkId"`
	Title      string `json:"title"`
	ClickCount int64  `json:"clickCount"`
}

// TrackClick adds deltaCount (default 1) to a link's click counter in a
// single atomic step. The link is resolved by linkId first, then by
// (ownerId, url).
func TrackClick(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clickTrackRequest
		if err := respond.Decode(w, r, &req); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		t := domain.IncrementTarget{
			LinkID:  strings.TrimSpace(req.LinkID),
			OwnerID: strings.TrimSpace(req.OwnerID),
			URL:     strings.TrimSpace(req.URL),
		}
		if !t.Valid() {
			respond.Error(w, http.StatusBadRequest, store.ErrInvalidTarget.Error())
			return
		}
		delta := req.DeltaCount
		if delta < 1 {
			delta = 1
		}

		res, err := store.Increment(r.Context(), d.Store, t, delta)
		switch {
		case errors.Is(err, store.ErrLinkNotFound):
			respond.Error(w, http.StatusNotFound, "link not found")
			return
		case err != nil:
			d.Logger.Error("failed to track click",
				logger.String("link_id", t.LinkID),
				logger.Int64("delta", delta),
				logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to update click count")
			return
		}

		d.Logger.Debug("click tracked",
			logger.String("link_id", res.ID),
			logger.Int64("delta", delta),
			logger.Int64("click_count", res.ClickCount))

		respond.JSON(w, http.StatusOK, clickTrackResponse{
			Success:    true,
			LinkID:     res.ID,
			ClickCount: res.ClickCount,
			Timestamp:  d.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ClickCount returns the current counter of ?linkId=.
func ClickCount(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.URL.Query().Get("linkId"))
		if id == "" {
			respond.Error(w, http.StatusBadRequest, "linkId is required")
			return
		}

		row, err := d.Store.GetLink(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrLinkNotFound):
			respond.Error(w, http.StatusNotFound, "link not found")
			return
		case err != nil:
			d.Logger.Error("failed to read click count", logger.String("link_id", id), logger.Error(err))
			respond.Error(w, http.StatusInternalServerError, "failed to read click count")
			return
		}

		respond.JSON(w, http.StatusOK, clickCountResponse{LinkID: row.ID, Title: row.Title, ClickCount: row.ClickCount})
	}
}
