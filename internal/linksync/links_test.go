package linksync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/local"
)

func titles(links []domain.Link) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString(l.Title)
	}
	return b.String()
}

func abcd() []domain.Link {
	links := []domain.Link{
		link("a", "https://a.com", "A"),
		link("b", "https://b.com", "B"),
		link("c", "https://c.com", "C"),
		link("d", "https://d.com", "D"),
	}
	links[1].Category = "Dev"
	links[3].Category = "Dev"
	return domain.Resequence(links)
}

func TestCommit_RollsBackOnSaveFailure(t *testing.T) {
	h := newHarness(abcd())
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	h.cache.saveErr = errors.New("disk full")
	mut, err := h.m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		return links[:1], nil
	})
	require.Error(t, err)
	require.NotNil(t, mut)
	assert.Equal(t, RolledBack, mut.State)
	assert.Equal(t, "ABCD", titles(h.m.Links()), "snapshot restored")
	assert.Equal(t, "ABCD", titles(mut.Before))

	h.cache.saveErr = nil
	mut, err = h.m.commit(ctx, func(links []domain.Link) ([]domain.Link, error) {
		return links[:1], nil
	})
	require.NoError(t, err)
	assert.Equal(t, Confirmed, mut.State)
	assert.Equal(t, "A", titles(h.m.Links()))
}

func TestReorder_FilteredView(t *testing.T) {
	h := newHarness(abcd())
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	got, err := h.m.Reorder(ctx, View{Category: "Dev"}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "ACDB", titles(got))
	assert.Equal(t, "ACDB", titles(h.cache.stored()))
	for i, l := range got {
		assert.Equal(t, (i+1)*100, l.SortOrder)
	}

	_, err = h.m.Reorder(ctx, View{Category: "Dev"}, 0, 5)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	assert.Equal(t, "ACDB", titles(h.m.Links()), "rejected move changes nothing")
}

func TestReorder_PushesChangedSortOrders(t *testing.T) {
	links := abcd()
	rows := make([]domain.LinkRow, 0, len(links))
	for _, l := range links {
		r := row(l.ID, l.URL, l.Title)
		r.Category = l.Category
		r.SortOrder = l.SortOrder
		rows = append(rows, r)
	}
	h := newHarness(links, rows...)
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))
	h.m.Restore(alice)

	_, err := h.m.Reorder(ctx, View{}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, h.remote.calls["update"], "only moved rows are pushed")

	a, _ := h.remote.row("https://a.com")
	b, _ := h.remote.row("https://b.com")
	assert.Equal(t, 200, a.SortOrder)
	assert.Equal(t, 100, b.SortOrder)
}

func TestReorder_PartialBatchFailure(t *testing.T) {
	links := abcd()
	rows := make([]domain.LinkRow, 0, len(links))
	for _, l := range links {
		r := row(l.ID, l.URL, l.Title)
		r.SortOrder = l.SortOrder
		rows = append(rows, r)
	}
	h := newHarness(links, rows...)
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))
	h.m.Restore(alice)
	h.remote.failURLs["https://b.com"] = true

	got, err := h.m.Reorder(ctx, View{}, 3, 0)
	require.Error(t, err)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 4, be.Total)
	require.Len(t, be.Failures, 1)
	assert.Equal(t, "https://b.com", be.Failures[0].URL)
	assert.ErrorIs(t, err, errOffline)

	assert.Equal(t, "DABC", titles(got))
	assert.Equal(t, "DABC", titles(h.m.Links()), "local kept")
	d, _ := h.remote.row("https://d.com")
	assert.Equal(t, 100, d.SortOrder, "successful updates kept")
}

func TestAddLink(t *testing.T) {
	h := newHarness(abcd())
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	_, err := h.m.AddLink(ctx, domain.NewLink{Title: "Bad", URL: "ftp://x"})
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
	assert.Len(t, h.m.Links(), 4, "validation failure mutates nothing")

	got, err := h.m.AddLink(ctx, domain.NewLink{Title: "E", URL: "https://e.com"})
	require.NoError(t, err)
	assert.Equal(t, "local-1", got.ID)
	assert.Equal(t, 500, got.SortOrder)
	assert.Equal(t, domain.DefaultIcon, got.Icon)

	h.m.Restore(alice)
	got, err = h.m.AddLink(ctx, domain.NewLink{Title: "F", URL: "https://f.com"})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", got.ID, "remote id replaces local id")
	assert.Equal(t, "srv-1", h.m.Links()[5].ID)
	r, ok := h.remote.row("https://f.com")
	require.True(t, ok)
	assert.Equal(t, 600, r.SortOrder)

	got, err = h.m.AddLink(ctx, domain.NewLink{Title: " Padded ", URL: "  https://padded.com  "})
	require.NoError(t, err)
	assert.Equal(t, "https://padded.com", got.URL)
	assert.Equal(t, "Padded", got.Title)
	_, ok = h.remote.row("https://padded.com")
	assert.True(t, ok, "cloud row is keyed by the trimmed url")

	h.remote.setFail("insert", errOffline)
	got, err = h.m.AddLink(ctx, domain.NewLink{Title: "G", URL: "https://g.com"})
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "local-4", got.ID, "local-only entry retained")
	assert.Len(t, h.m.Links(), 8)
}

func TestDeleteLink(t *testing.T) {
	links := abcd()
	h := newHarness(links, row("srv-b", "https://b.com", "B"))
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	h.remote.setFail("increment", errOffline)
	h.m.Restore(alice)
	_, err := h.m.TrackClick(ctx, "b", "")
	require.NoError(t, err)

	require.NoError(t, h.m.DeleteLink(ctx, "b"))
	assert.Equal(t, "ACD", titles(h.m.Links()))
	assert.Empty(t, h.remote.snapshot(), "deleted remotely by url")

	p, _ := h.m.PendingDeltas(ctx)
	assert.Empty(t, p, "pending clicks of the link dropped")

	assert.ErrorIs(t, h.m.DeleteLink(ctx, "b"), ErrUnknownLink)
}

func TestChangeColor(t *testing.T) {
	h := newHarness(abcd(), row("srv-a", "https://a.com", "A"))
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))
	h.m.Restore(alice)

	got, err := h.m.ChangeColor(ctx, "a", "from-red-500 to-pink-600")
	require.NoError(t, err)
	assert.Equal(t, "from-red-500 to-pink-600", got.CustomColor)
	r, _ := h.remote.row("https://a.com")
	require.NotNil(t, r.CustomColor)

	got, err = h.m.ChangeColor(ctx, "a", domain.ColorReset)
	require.NoError(t, err)
	assert.Empty(t, got.CustomColor)
	r, _ = h.remote.row("https://a.com")
	assert.Nil(t, r.CustomColor, "reset clears the cloud color")

	h.remote.setFail("update", errOffline)
	got, err = h.m.ChangeColor(ctx, "a", "x")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "x", got.CustomColor, "local change kept")
}

func TestImport(t *testing.T) {
	file := `[
		{"title": "A2", "url": "https://a.com", "category": "New"},
		{"title": "Z", "url": "https://z.com"},
		{"title": "", "url": "https://no-title.com"},
		{"title": "Bad", "url": "nope"}
	]`

	t.Run("merge", func(t *testing.T) {
		h := newHarness(abcd())
		ctx := context.Background()
		require.NoError(t, h.m.Load(ctx))

		n, err := h.m.Import(ctx, strings.NewReader(file), true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		links := h.m.Links()
		assert.Equal(t, "A2BCDZ", titles(links))
		assert.Equal(t, "a", links[0].ID, "existing id kept")
		assert.Equal(t, "New", links[0].Category)
	})

	t.Run("replace signed in", func(t *testing.T) {
		h := newHarness(abcd(), row("srv-a", "https://a.com", "A"))
		ctx := context.Background()
		require.NoError(t, h.m.Load(ctx))
		h.m.Restore(alice)

		n, err := h.m.Import(ctx, strings.NewReader(file), false)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "A2Z", titles(h.m.Links()))
		assert.Len(t, h.remote.snapshot(), 2, "cloud overwritten")
	})

	t.Run("invalid", func(t *testing.T) {
		h := newHarness(abcd())
		ctx := context.Background()
		require.NoError(t, h.m.Load(ctx))

		for _, bad := range []string{`{}`, `[]`, `[{"title":"x"}]`, `not json`} {
			_, err := h.m.Import(ctx, strings.NewReader(bad), true)
			assert.ErrorIs(t, err, ErrInvalidImport, bad)
		}
		assert.Equal(t, "ABCD", titles(h.m.Links()))
	})
}

func TestExport(t *testing.T) {
	h := newHarness(abcd())
	require.NoError(t, h.m.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, h.m.Export(&buf))

	var got []domain.Link
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, h.m.Links(), got)

	name := ExportFileName(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	assert.Equal(t, "somenice-links-2026-03-04_05-06.json", name)
}

func TestResetAndClear(t *testing.T) {
	h := newHarness(abcd())
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	h.remote.setFail("increment", errOffline)
	_, err := h.m.TrackClick(ctx, "a", "")
	require.NoError(t, err)

	require.NoError(t, h.m.ClearAll(ctx))
	assert.Empty(t, h.m.Links())
	p, _ := h.m.PendingDeltas(ctx)
	assert.Empty(t, p)

	seeded, err := h.m.ResetToDefaults(ctx)
	require.NoError(t, err)
	assert.Len(t, seeded, 2)
	assert.Equal(t, urls(seeded), urls(h.cache.stored()))
}

func TestExternalChangeRehydrates(t *testing.T) {
	h := newHarness(abcd())
	require.NoError(t, h.m.Load(context.Background()))
	require.NotNil(t, h.cache.onChange)

	h.cache.onChange(local.KeyLinks, []byte(`[{"id": 9, "title": "Other", "url": "https://other.com"}, {"title": "no url"}]`))
	links := h.m.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "9", links[0].ID)

	h.cache.onChange(local.KeyShowClicks, []byte("false"))
	assert.False(t, h.m.ShowClickCounts())

	h.cache.onChange(local.KeyLinks, []byte(`garbage`))
	assert.Len(t, h.m.Links(), 1, "unreadable write ignored")

	h.m.Close()
	assert.Nil(t, h.cache.onChange)
}

func TestPreferences(t *testing.T) {
	h := newHarness(abcd())
	ctx := context.Background()
	require.NoError(t, h.m.Load(ctx))

	assert.Equal(t, domain.DefaultTheme(), h.m.Theme())
	assert.True(t, h.m.ShowClickCounts())

	theme := domain.BackgroundThemes[1]
	got, err := h.m.SetTheme(ctx, theme.Name)
	require.NoError(t, err)
	assert.Equal(t, theme, got)
	assert.Equal(t, theme.Class, h.cache.theme)

	_, err = h.m.SetTheme(ctx, "no-such-theme")
	assert.Error(t, err)

	require.NoError(t, h.m.SetShowClickCounts(ctx, false))
	assert.False(t, h.m.ShowClickCounts())

	assert.Equal(t, []string{domain.AllCategories, domain.DefaultCategory, "Dev"}, h.m.Categories())
	assert.Equal(t, "BD", titles(h.m.Visible(View{Category: "Dev"})))
}
