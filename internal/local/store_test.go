package local

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/logger"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "gen-" + strconv.Itoa(n)
	}
}

func openTest(t *testing.T, path string) *Store {
	t.Helper()
	s, err := OpenPath(path, logger.Nop(), Options{PollInterval: 10 * time.Millisecond, NewID: sequentialIDs()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLinksRoundTrip(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), DBFile))
	ctx := context.Background()

	got, err := s.LoadLinks(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "nothing stored yet")

	links := []domain.Link{
		{ID: "1", Title: "Go", URL: "https://go.dev", Icon: "code", Category: "Dev", ClickCount: 4, SortOrder: 100},
		{ID: "2", Title: "News", URL: "https://news.ycombinator.com", Icon: "globe", Category: "Genel", CustomColor: "from-red-500 to-pink-600"},
	}
	require.NoError(t, s.SaveLinks(ctx, links))

	got, err = s.LoadLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, links, got)

	require.NoError(t, s.SaveLinks(ctx, nil))
	got, err = s.LoadLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDecodeLinks(t *testing.T) {
	data := []byte(`[
		{"id": 7, "title": "Legacy", "url": "https://old.example.com"},
		{"title": "No id", "url": "https://new.example.com", "extra": true, "clickCount": -3},
		{"id": "x", "title": "No url"},
		{"id": "y", "title": "Bad url", "url": "javascript:alert(1)"},
		{"id": "z", "title": "Creds", "url": "https://user:pw@example.com"},
		"not an object"
	]`)

	links, rejected, err := DecodeLinks(data, sequentialIDs())
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "7", links[0].ID)
	assert.Equal(t, domain.DefaultIcon, links[0].Icon)
	assert.Equal(t, domain.DefaultCategory, links[0].Category)
	assert.Equal(t, "", links[0].Description)

	assert.Equal(t, "gen-1", links[1].ID)
	assert.Equal(t, int64(0), links[1].ClickCount)

	require.Len(t, rejected, 4)
	assert.Equal(t, 2, rejected[0].Index)
	assert.True(t, errors.Is(rejected[0].Err, domain.ErrMissingField))
	assert.True(t, errors.Is(rejected[1].Err, domain.ErrInvalidURL))
	assert.True(t, errors.Is(rejected[2].Err, domain.ErrInvalidURL))

	_, _, err = DecodeLinks([]byte(`{"id":"1"}`), sequentialIDs())
	assert.Error(t, err)
}

func TestPendingRoundTrip(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), DBFile))
	ctx := context.Background()

	p, err := s.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, p)

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.Add("a", "https://a.com", 3, now)
	p.Add(domain.DeltaKey("", "https://b.com"), "https://b.com", 1, now)
	require.NoError(t, s.SavePending(ctx, p))

	got, err := s.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got["a"].Count)
	assert.True(t, got["a"].FirstSeen.Equal(now))
	assert.Equal(t, int64(1), got.CountFor("", "https://b.com"))
}

func TestPendingUnreadable(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), DBFile))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, KeyPending, []byte(`[1,2,3]`)))
	p, err := s.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestPreferences(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), DBFile))
	ctx := context.Background()

	theme, err := s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", theme)

	show, err := s.ShowClickCounts(ctx)
	require.NoError(t, err)
	assert.True(t, show, "defaults to visible")

	require.NoError(t, s.SetTheme(ctx, "bg-gray-900"))
	require.NoError(t, s.SetShowClickCounts(ctx, false))

	theme, err = s.Theme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bg-gray-900", theme)

	show, err = s.ShowClickCounts(ctx)
	require.NoError(t, err)
	assert.False(t, show)
}

func TestOnExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFile)
	a := openTest(t, path)
	b := openTest(t, path)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen []string
	)
	unsubscribe := a.OnExternalChange(func(key string, value []byte) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, key+"="+string(value))
	})

	require.NoError(t, a.SetTheme(ctx, "own-write"))
	require.NoError(t, b.SetTheme(ctx, "from-b"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{KeyTheme + "=from-b"}, seen, "own writes are not reported")
	mu.Unlock()

	unsubscribe()
	require.NoError(t, b.SetTheme(ctx, "after-unsubscribe"))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Len(t, seen, 1)
	mu.Unlock()
}
