package linksync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
)

func urls(links []domain.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.URL)
	}
	return out
}

func TestClassify(t *testing.T) {
	a := link("1", "https://a.com", "A")
	b := link("2", "https://b.com", "B")

	aSkewed := a
	aSkewed.ClickCount = 42
	aSkewed.SortOrder = 900
	bSkewed := b
	bSkewed.ID = "other-id"

	aEdited := a
	aEdited.Title = "A!"

	tests := []struct {
		name  string
		local []domain.Link
		cloud []domain.Link
		want  OutcomeKind
	}{
		{"both empty", nil, nil, Seeded},
		{"local empty", nil, []domain.Link{a}, AdoptRemote},
		{"cloud empty", []domain.Link{a}, nil, AdoptLocalAndUpload},
		{"equal in different order", []domain.Link{a, b}, []domain.Link{b, a}, InSync},
		{"volatile fields ignored", []domain.Link{a, b}, []domain.Link{aSkewed, bSkewed}, InSync},
		{"content edit", []domain.Link{a}, []domain.Link{aEdited}, ConflictPending},
		{"different urls", []domain.Link{link("x", "https://x.com", "X")}, []domain.Link{link("y", "https://y.com", "Y")}, ConflictPending},
		{"extra link", []domain.Link{a}, []domain.Link{a, b}, ConflictPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.local, tt.cloud); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_FirstRunSeedsDefaults(t *testing.T) {
	h := newHarness(nil)
	require.NoError(t, h.m.Load(context.Background()))

	links := h.m.Links()
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Zero(t, l.ClickCount)
		assert.NotEmpty(t, l.ID)
	}
	assert.Equal(t, urls(links), urls(h.cache.stored()), "seed is persisted")
	assert.Empty(t, h.remote.calls, "seeding alone writes nothing remote")
}

func TestReconcile_RequiresSession(t *testing.T) {
	h := newHarness(nil)
	_, err := h.m.Reconcile(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestReconcile_BothEmptySeeds(t *testing.T) {
	h := newHarness(nil)
	h.m.Restore(alice)

	out, err := h.m.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Seeded, out.Kind)
	assert.Len(t, h.m.Links(), 2)
	assert.Empty(t, h.remote.snapshot(), "no remote write")
}

func TestSignIn_AdoptsRemoteWhenLocalEmpty(t *testing.T) {
	h := newHarness(nil, row("srv-a", "https://a.com", "A"))
	h.m.Restore(Session{UserID: "nobody"})
	h.m.SignOut()

	out, err := h.m.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, AdoptRemote, out.Kind)

	links := h.m.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "srv-a", links[0].ID)
	assert.Equal(t, "srv-a", h.cache.stored()[0].ID)
	assert.NotNil(t, h.remote.token, "token getter attached")
}

func TestSignIn_UploadsLocalWhenCloudEmpty(t *testing.T) {
	h := newHarness([]domain.Link{link("l1", "https://a.com", "A"), link("l2", "https://b.com", "B")})
	require.NoError(t, h.m.Load(context.Background()))

	out, err := h.m.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, AdoptLocalAndUpload, out.Kind)

	rows := h.remote.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].OwnerID)
	assert.Equal(t, 100, rows[0].SortOrder)
	assert.Equal(t, 200, rows[1].SortOrder)

	links := h.m.Links()
	assert.Equal(t, rows[0].ID, links[0].ID, "remote id replaces local id")
	assert.Equal(t, rows[1].ID, links[1].ID)
}

func TestSignIn_InSyncAdoptsCloud(t *testing.T) {
	localA := link("l1", "https://a.com", "A")
	localA.ClickCount = 1
	cloudA := row("srv-a", "https://a.com", "A")
	cloudA.ClickCount = 7

	h := newHarness([]domain.Link{localA}, cloudA)
	require.NoError(t, h.m.Load(context.Background()))

	out, err := h.m.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, InSync, out.Kind)

	links := h.m.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "srv-a", links[0].ID)
	assert.Equal(t, int64(7), links[0].ClickCount)
}

func TestSignIn_DivergenceRaisesConflict(t *testing.T) {
	localX := []domain.Link{link("l1", "https://x.com", "X")}
	h := newHarness(localX, row("srv-y", "https://y.com", "Y"))
	require.NoError(t, h.m.Load(context.Background()))

	out, err := h.m.SignIn(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, ConflictPending, out.Kind)
	require.NotNil(t, out.Conflict)
	assert.Equal(t, localX, out.Conflict.Local)
	assert.Equal(t, []string{"https://y.com"}, urls(out.Conflict.Cloud))

	assert.Equal(t, localX, h.m.Links(), "local untouched")
	assert.Len(t, h.remote.snapshot(), 1, "remote untouched")
	assert.Zero(t, h.remote.calls["delete"]+h.remote.calls["insert"])

	_, err = h.m.Reconcile(context.Background())
	assert.ErrorIs(t, err, ErrConflictPending, "blocked until resolved")

	h.m.DismissConflict()
	_, ok := h.m.PendingConflict()
	assert.False(t, ok)
}

func TestReconcile_RemoteReadFailureLeavesLocal(t *testing.T) {
	localX := []domain.Link{link("l1", "https://x.com", "X")}
	h := newHarness(localX)
	require.NoError(t, h.m.Load(context.Background()))
	h.remote.setFail("list", errOffline)

	_, err := h.m.SignIn(context.Background(), alice)
	require.ErrorIs(t, err, errOffline)
	assert.Equal(t, localX, h.m.Links())
	assert.Contains(t, h.notes.notices, "error: Cloud links could not be fetched.")
}

func TestSignIn_OfflineLeavesReconcileDue(t *testing.T) {
	h := newHarness([]domain.Link{link("l1", "https://x.com", "X")})
	require.NoError(t, h.m.Load(context.Background()))
	h.remote.setFail("list", errOffline)

	_, err := h.m.SignIn(context.Background(), alice)
	require.ErrorIs(t, err, errOffline)
	assert.True(t, h.m.SignedIn(), "session stays attached")
	assert.True(t, h.m.ReconcileDue())

	h.remote.setFail("list", nil)
	out, err := h.m.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AdoptLocalAndUpload, out.Kind)
	assert.False(t, h.m.ReconcileDue())

	h.m.SignOut()
	assert.False(t, h.m.ReconcileDue())
}

func conflictHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(
		[]domain.Link{link("l1", "https://a.com", "L")},
		row("srv-a", "https://a.com", "C"), row("srv-b", "https://b.com", "B"),
	)
	require.NoError(t, h.m.Load(context.Background()))
	out, err := h.m.SignIn(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, ConflictPending, out.Kind)
	return h
}

func TestResolve_UseCloud(t *testing.T) {
	h := conflictHarness(t)

	links, err := h.m.Resolve(context.Background(), UseCloud)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, urls(links))
	assert.Equal(t, "C", h.m.Links()[0].Title)
	assert.Zero(t, h.remote.calls["delete"]+h.remote.calls["insert"], "no remote mutation")

	_, err = h.m.Resolve(context.Background(), UseCloud)
	assert.ErrorIs(t, err, ErrNoConflict)
}

func TestResolve_UseLocal(t *testing.T) {
	h := conflictHarness(t)

	links, err := h.m.Resolve(context.Background(), UseLocal)
	require.NoError(t, err)
	require.Len(t, links, 1)

	rows := h.remote.snapshot()
	require.Len(t, rows, 1, "prior cloud rows replaced")
	assert.Equal(t, "L", rows[0].Title)
	assert.Equal(t, rows[0].ID, h.m.Links()[0].ID, "fresh remote id adopted")
	assert.NotEqual(t, "srv-a", rows[0].ID)
}

func TestResolve_MergeLocalWinsOnOverlap(t *testing.T) {
	h := conflictHarness(t)

	links, err := h.m.Resolve(context.Background(), Merge)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://a.com", links[0].URL)
	assert.Equal(t, "L", links[0].Title)
	assert.Equal(t, "https://b.com", links[1].URL)
	assert.Equal(t, "B", links[1].Title)

	rows := h.remote.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "L", rows[0].Title)
	assert.Equal(t, 100, rows[0].SortOrder)
	assert.Equal(t, 200, rows[1].SortOrder)
}

func TestResolve_DeleteThenInsertFailure(t *testing.T) {
	h := conflictHarness(t)
	h.remote.setFail("insert", errOffline)

	_, err := h.m.Resolve(context.Background(), Merge)
	require.Error(t, err)

	var ie *InconsistencyError
	require.True(t, errors.As(err, &ie))
	assert.True(t, ie.RemoteCleared)
	assert.Contains(t, err.Error(), "local links updated, cloud NOT updated")
	assert.ErrorIs(t, err, errOffline)
	assert.True(t, IsInconsistent(err))

	assert.Equal(t, []string{"https://a.com", "https://b.com"}, urls(h.m.Links()), "local shows the chosen set")
	assert.Equal(t, "L", h.cache.stored()[0].Title)
	assert.Empty(t, h.remote.snapshot(), "cloud was cleared")

	_, pending := h.m.PendingConflict()
	assert.True(t, pending, "conflict kept for retry")

	h.remote.setFail("insert", nil)
	_, err = h.m.Resolve(context.Background(), Merge)
	require.NoError(t, err)
	assert.Len(t, h.remote.snapshot(), 2)
}

func TestParseChoice(t *testing.T) {
	for s, want := range map[string]Choice{"local": UseLocal, "cloud": UseCloud, "merge": Merge} {
		got, err := ParseChoice(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}
	_, err := ParseChoice("both")
	assert.Error(t, err)
}
