package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

func testSession(id string) *Session {
	return newSession(&profile.Profile{ID: id}, &fakePartition{name: "persist:" + id})
}

func TestRegistryAddRejectsDuplicates(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Add(testSession("A")))
	assert.ErrorIs(t, r.Add(testSession("A")), ErrSessionExists)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryForegroundPointer(t *testing.T) {
	r := NewRegistry()
	a := testSession("A")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(testSession("B")))

	assert.False(t, r.SetCurrent("missing"))
	assert.Empty(t, r.CurrentID())

	assert.True(t, r.SetCurrent("A"))
	cur, ok := r.Current()
	require.True(t, ok)
	assert.Same(t, a, cur)
	assert.True(t, r.IsCurrent(a))

	r.Remove("B")
	assert.Equal(t, "A", r.CurrentID())

	r.Remove("A")
	assert.Empty(t, r.CurrentID())
	_, ok = r.Current()
	assert.False(t, ok)
}

func TestRegistryHoldsByIdentity(t *testing.T) {
	r := NewRegistry()
	old := testSession("A")
	require.NoError(t, r.Add(old))
	r.Remove("A")

	fresh := testSession("A")
	require.NoError(t, r.Add(fresh))

	assert.False(t, r.Holds(old))
	assert.True(t, r.Holds(fresh))
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Add(testSession(id)))
	}

	assert.Equal(t, []string{"a", "b", "c"}, r.IDs())
	sessions := r.Sessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, "a", sessions[0].ProfileID)
}

func TestSessionTabHelpers(t *testing.T) {
	s := testSession("A")
	for i := 0; i < 3; i++ {
		s.appendTab(&Tab{ID: s.nextTabID(), Title: DefaultTitle})
	}
	s.activeTabID = "tab-2"

	tab, idx := s.tab("tab-3")
	require.NotNil(t, tab)
	assert.Equal(t, 2, idx)

	missing, idx := s.tab("tab-9")
	assert.Nil(t, missing)
	assert.Equal(t, -1, idx)

	removed := s.removeTabAt(0)
	assert.Equal(t, "tab-1", removed.ID)
	assert.False(t, s.owns(removed))
	assert.Equal(t, []TabInfo{
		{ID: "tab-2", Title: DefaultTitle, Active: true},
		{ID: "tab-3", Title: DefaultTitle, Active: false},
	}, s.tabInfos())

	// Ids stay monotonic after removals
	assert.Equal(t, "tab-4", s.nextTabID())
}

func TestSuccessorIndex(t *testing.T) {
	assert.Equal(t, 0, successorIndex(0))
	assert.Equal(t, 0, successorIndex(1))
	assert.Equal(t, 3, successorIndex(4))
}
