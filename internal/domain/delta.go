package domain

import (
	"strings"
	"time"
)

// urlKeyPrefix marks pending delta keys derived from a url.
const urlKeyPrefix = "url:"

// PendingDelta is an unsynced click increment for one link.
type PendingDelta struct {
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`
	// URL is kept so the delta can be replayed by (owner, url) when the
	// link id is unknown to the remote store.
	URL string `json:"url,omitempty"`
}

// PendingDeltas maps a link key to its accumulated delta.
type PendingDeltas map[string]PendingDelta

// DeltaKey returns the queue key for a link: its id, or the url when the
// id is unknown.
func DeltaKey(id, url string) string {
	if id != "" {
		return id
	}
	return urlKeyPrefix + url
}

// SplitDeltaKey returns the link id held in key, or "" for url keys.
func SplitDeltaKey(key string) (id string, isURL bool) {
	if strings.HasPrefix(key, urlKeyPrefix) {
		return "", true
	}
	return key, false
}

// Add records n clicks under key at time now.
func (p PendingDeltas) Add(key, url string, n int64, now time.Time) {
	d, ok := p[key]
	if !ok {
		d = PendingDelta{FirstSeen: now, URL: url}
	}
	d.Count += n
	d.LastSeen = now
	if d.URL == "" {
		d.URL = url
	}
	p[key] = d
}

// Subtract removes n applied clicks from key. The entry is deleted once
// nothing remains.
func (p PendingDeltas) Subtract(key string, n int64) {
	d, ok := p[key]
	if !ok {
		return
	}
	d.Count -= n
	if d.Count <= 0 {
		delete(p, key)
		return
	}
	p[key] = d
}

// CountFor returns the pending count for a link. An entry belongs to the
// link when its key is the link id or it was recorded for the link url, so
// entries queued under an older id still count after the id changes.
func (p PendingDeltas) CountFor(id, url string) int64 {
	var n int64
	for key, d := range p {
		if belongsTo(key, d, id, url) {
			n += d.Count
		}
	}
	return n
}

// KeysFor returns the keys of every entry CountFor would count.
func (p PendingDeltas) KeysFor(id, url string) []string {
	var keys []string
	for key, d := range p {
		if belongsTo(key, d, id, url) {
			keys = append(keys, key)
		}
	}
	return keys
}

func belongsTo(key string, d PendingDelta, id, url string) bool {
	if id != "" && key == id {
		return true
	}
	return url != "" && (d.URL == url || key == urlKeyPrefix+url)
}

// Clone returns an independent copy.
func (p PendingDeltas) Clone() PendingDeltas {
	out := make(PendingDeltas, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
